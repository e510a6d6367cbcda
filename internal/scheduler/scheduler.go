package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zawnaing-2024/Router-Portal/internal/config"
	"github.com/zawnaing-2024/Router-Portal/internal/models"
)

// MonitorSource lists the monitors to schedule. Implemented by the tenant
// registry.
type MonitorSource interface {
	ListMonitors(ctx context.Context) ([]models.Monitor, error)
}

// CheckFunc runs one probe-and-track cycle for a monitor. The service wires
// its observation handler in here.
type CheckFunc func(ctx context.Context, monitor models.Monitor)

// Manager runs one goroutine per monitor, each on its own ticker, and keeps
// the runner set in sync with the database. Ping and fiber monitors get
// different default intervals; a monitor's interval_seconds wins when set.
type Manager struct {
	source  MonitorSource
	check   CheckFunc
	cfg     *config.Config
	logger  *zap.Logger
	onStop  func(monitorID int64)
	runners map[int64]*runner
}

type runner struct {
	monitor models.Monitor
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewManager creates a scheduler. onStop is called after a monitor's runner
// is torn down (the service uses it to drop tracker state).
func NewManager(source MonitorSource, check CheckFunc, cfg *config.Config, logger *zap.Logger, onStop func(monitorID int64)) *Manager {
	return &Manager{
		source:  source,
		check:   check,
		cfg:     cfg,
		logger:  logger,
		onStop:  onStop,
		runners: make(map[int64]*runner),
	}
}

// Start runs the refresh loop until the context is cancelled, then stops all
// runners. The returned WaitGroup is done once every runner has exited.
func (m *Manager) Start(ctx context.Context) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		m.refresh(ctx)

		ticker := time.NewTicker(m.cfg.Schedule.MonitorRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				m.stopAll()
				return
			case <-ticker.C:
				m.refresh(ctx)
			}
		}
	}()
	return &wg
}

// refresh reconciles the runner set against the database. A list failure
// keeps the current runners going on their last known configuration.
func (m *Manager) refresh(ctx context.Context) {
	monitors, err := m.source.ListMonitors(ctx)
	if err != nil {
		m.logger.Warn("Failed to refresh monitor list, keeping current schedule", zap.Error(err))
		return
	}

	seen := make(map[int64]bool, len(monitors))
	for _, monitor := range monitors {
		seen[monitor.ID] = true
		if current, ok := m.runners[monitor.ID]; ok {
			if current.monitor == monitor {
				continue
			}
			// Config changed: restart with the new settings.
			m.stopRunner(monitor.ID, current)
		}
		m.startRunner(ctx, monitor)
	}

	for id, r := range m.runners {
		if !seen[id] {
			m.stopRunner(id, r)
			if m.onStop != nil {
				m.onStop(id)
			}
		}
	}
}

func (m *Manager) startRunner(ctx context.Context, monitor models.Monitor) {
	runCtx, cancel := context.WithCancel(ctx)
	r := &runner{
		monitor: monitor,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	m.runners[monitor.ID] = r

	interval := m.interval(monitor)
	m.logger.Info("Starting monitor runner",
		zap.Int64("monitor_id", monitor.ID),
		zap.String("kind", string(monitor.Kind)),
		zap.Duration("interval", interval),
	)

	go func() {
		defer close(r.done)

		// First check immediately, then on the ticker.
		m.check(runCtx, monitor)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				m.check(runCtx, monitor)
			}
		}
	}()
}

func (m *Manager) stopRunner(id int64, r *runner) {
	r.cancel()
	<-r.done
	delete(m.runners, id)
	m.logger.Info("Stopped monitor runner", zap.Int64("monitor_id", id))
}

func (m *Manager) stopAll() {
	for id, r := range m.runners {
		m.stopRunner(id, r)
	}
}

// interval resolves a monitor's probe cadence.
func (m *Manager) interval(monitor models.Monitor) time.Duration {
	if monitor.IntervalSeconds > 0 {
		return time.Duration(monitor.IntervalSeconds) * time.Second
	}
	if monitor.Kind == models.MonitorFiber {
		return m.cfg.Schedule.FiberInterval
	}
	return m.cfg.Schedule.PingInterval
}
