package poller

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zawnaing-2024/Router-Portal/internal/config"
	"github.com/zawnaing-2024/Router-Portal/internal/models"
)

// DeviceSource lists the devices to poll. Implemented by the resource
// repository.
type DeviceSource interface {
	ListEnabledDevices(ctx context.Context) ([]models.Device, error)
}

// SnapshotStore persists resource snapshots.
type SnapshotStore interface {
	Insert(ctx context.Context, m *models.DeviceResources) error
}

// ResourceProber fetches a device's resource usage.
type ResourceProber interface {
	Resources(ctx context.Context, device models.Device) (*models.DeviceResources, error)
}

// EmitFunc receives resource alert events. The service wires persistence and
// dispatch in here.
type EmitFunc func(ctx context.Context, event models.AlertEvent)

// Poller periodically samples every router's CPU/memory/storage usage,
// stores the snapshots and raises a resource alert when usage crosses the
// threshold. The alert is edge triggered per device: one alert when usage
// goes high, nothing while it stays high, re-armed once everything drops
// below the threshold again.
type Poller struct {
	devices DeviceSource
	store   SnapshotStore
	prober  ResourceProber
	emit    EmitFunc
	cfg     *config.Config
	logger  *zap.Logger

	mu   sync.Mutex
	high map[int64]bool
}

// New creates a resource poller.
func New(devices DeviceSource, store SnapshotStore, prober ResourceProber, emit EmitFunc, cfg *config.Config, logger *zap.Logger) *Poller {
	return &Poller{
		devices: devices,
		store:   store,
		prober:  prober,
		emit:    emit,
		cfg:     cfg,
		logger:  logger,
		high:    make(map[int64]bool),
	}
}

// Start runs poll rounds until the context is cancelled.
func (p *Poller) Start(ctx context.Context) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		p.Poll(ctx)

		ticker := time.NewTicker(p.cfg.Schedule.ResourcePollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Poll(ctx)
			}
		}
	}()
	return &wg
}

// Poll runs one round over all enabled devices.
func (p *Poller) Poll(ctx context.Context) {
	devices, err := p.devices.ListEnabledDevices(ctx)
	if err != nil {
		p.logger.Warn("Failed to list devices for resource poll", zap.Error(err))
		return
	}

	for _, device := range devices {
		p.pollDevice(ctx, device)
	}
}

func (p *Poller) pollDevice(ctx context.Context, device models.Device) {
	res, err := p.prober.Resources(ctx, device)
	if err != nil {
		// An unreachable router is the ping monitor's problem; the resource
		// poller just skips it this round.
		p.logger.Debug("Failed to fetch device resources",
			zap.Int64("device_id", device.ID),
			zap.String("host", device.Host),
			zap.Error(err),
		)
		return
	}

	if err := p.store.Insert(ctx, res); err != nil {
		p.logger.Error("Failed to store resource snapshot",
			zap.Int64("device_id", device.ID),
			zap.Error(err),
		)
	}

	exceeded := p.exceeded(res)

	p.mu.Lock()
	wasHigh := p.high[device.ID]
	p.high[device.ID] = len(exceeded) > 0
	p.mu.Unlock()

	if len(exceeded) > 0 && !wasHigh {
		threshold := p.cfg.Resource.ThresholdPercent
		p.emit(ctx, models.AlertEvent{
			EventID:     uuid.New().String(),
			CompanyID:   device.CompanyID,
			DeviceName:  device.Name,
			Type:        models.EventResource,
			Target:      device.Host,
			Metric:      &threshold,
			Resources:   exceeded,
			TriggeredAt: res.Timestamp,
		})
	}
}

// exceeded names the resources at or above the threshold.
func (p *Poller) exceeded(res *models.DeviceResources) []string {
	threshold := p.cfg.Resource.ThresholdPercent

	var out []string
	if res.CPULoadPercent != nil && *res.CPULoadPercent >= threshold {
		out = append(out, "CPU")
	}
	if mem := res.MemoryUsedPercent(); mem != nil && *mem >= threshold {
		out = append(out, "RAM")
	}
	if st := res.StorageUsedPercent(); st != nil && *st >= threshold {
		out = append(out, "Storage")
	}
	return out
}
