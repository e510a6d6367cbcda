package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zawnaing-2024/Router-Portal/internal/cache"
	"github.com/zawnaing-2024/Router-Portal/internal/config"
	"github.com/zawnaing-2024/Router-Portal/internal/models"
)

// Directory resolves companies, monitors and channel settings. Implemented
// by the tenant registry.
type Directory interface {
	ListCompanies(ctx context.Context) ([]models.Company, error)
	ListMonitors(ctx context.Context) ([]models.Monitor, error)
	TelegramSettings(ctx context.Context, companyID int64) (*models.TelegramSettings, error)
	Invalidate(companyID int64)
}

// ReportStore advances a company's report clock. Implemented by the tenant
// repository.
type ReportStore interface {
	UpdateLastReportSent(ctx context.Context, companyID int64, sentAt time.Time) error
}

// RealtimeSource reads the latest probe result per monitor. Implemented by
// the realtime cache manager.
type RealtimeSource interface {
	Get(ctx context.Context, monitorID int64) (*cache.MonitorRealtime, error)
}

// ResourceReader reads devices and their latest resource snapshots.
type ResourceReader interface {
	ListEnabledDevices(ctx context.Context) ([]models.Device, error)
	LatestByDevice(ctx context.Context, deviceID int64) (*models.DeviceResources, error)
}

// TextDispatcher enqueues a plain message for a company.
type TextDispatcher interface {
	DispatchText(companyID int64, text string, onSent func()) bool
}

// Reporter sends each company a periodic performance summary on its own
// cadence (report_interval_minutes). The report clock only advances after a
// confirmed delivery, so a failed send is retried on the next check round.
type Reporter struct {
	directory  Directory
	store      ReportStore
	realtime   RealtimeSource
	resources  ResourceReader
	dispatcher TextDispatcher
	cfg        *config.Config
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures the reporter.
type Option func(*Reporter)

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(r *Reporter) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a reporter.
func New(directory Directory, store ReportStore, realtime RealtimeSource, resources ResourceReader, dispatcher TextDispatcher, cfg *config.Config, logger *zap.Logger, opts ...Option) *Reporter {
	r := &Reporter{
		directory:  directory,
		store:      store,
		realtime:   realtime,
		resources:  resources,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start runs check rounds until the context is cancelled.
func (r *Reporter) Start(ctx context.Context) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(r.cfg.Schedule.ReportCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Run(ctx)
			}
		}
	}()
	return &wg
}

// Run checks every company once and sends the reports that are due.
func (r *Reporter) Run(ctx context.Context) {
	companies, err := r.directory.ListCompanies(ctx)
	if err != nil {
		r.logger.Warn("Failed to list companies for reports", zap.Error(err))
		return
	}

	for _, company := range companies {
		r.runCompany(ctx, company)
	}
}

func (r *Reporter) runCompany(ctx context.Context, company models.Company) {
	settings, err := r.directory.TelegramSettings(ctx, company.ID)
	if err != nil {
		// Companies without a channel are normal, not an error worth logging
		// every round.
		r.logger.Debug("No telegram settings for report",
			zap.Int64("company_id", company.ID),
			zap.Error(err),
		)
		return
	}
	if !settings.Deliverable() || !r.due(settings) {
		return
	}

	text, err := r.build(ctx, company)
	if err != nil {
		r.logger.Warn("Failed to build performance report",
			zap.Int64("company_id", company.ID),
			zap.Error(err),
		)
		return
	}
	if text == "" {
		return
	}

	sentAt := r.now()
	companyID := company.ID
	r.dispatcher.DispatchText(companyID, text, func() {
		if err := r.store.UpdateLastReportSent(context.Background(), companyID, sentAt); err != nil {
			r.logger.Warn("Failed to advance report clock",
				zap.Int64("company_id", companyID),
				zap.Error(err),
			)
			return
		}
		r.directory.Invalidate(companyID)
	})
}

// due reports whether a company's report interval has elapsed. A zero or
// negative interval disables the report.
func (r *Reporter) due(settings *models.TelegramSettings) bool {
	if settings.ReportIntervalMinutes <= 0 {
		return false
	}
	if settings.LastReportSentAt == nil {
		return true
	}
	interval := time.Duration(settings.ReportIntervalMinutes) * time.Minute
	return r.now().Sub(*settings.LastReportSentAt) >= interval
}

// build renders one company's report from the realtime cache and the latest
// resource snapshots. Returns "" when the company has nothing to report.
func (r *Reporter) build(ctx context.Context, company models.Company) (string, error) {
	monitors, err := r.directory.ListMonitors(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list monitors: %w", err)
	}
	devices, err := r.resources.ListEnabledDevices(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list devices: %w", err)
	}

	var own []models.Monitor
	for _, m := range monitors {
		if m.CompanyID == company.ID {
			own = append(own, m)
		}
	}
	var ownDevices []models.Device
	for _, d := range devices {
		if d.CompanyID == company.ID {
			ownDevices = append(ownDevices, d)
		}
	}
	if len(own) == 0 && len(ownDevices) == 0 {
		return "", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>📊 Performance Report</b>\n")
	fmt.Fprintf(&b, "Company: %s\n", company.Name)
	fmt.Fprintf(&b, "Time: %s\n", r.now().UTC().Format("2006-01-02 15:04:05 UTC"))

	if len(own) > 0 {
		b.WriteString("\n<b>Monitors</b>\n")
		sort.Slice(own, func(i, j int) bool { return own[i].Name < own[j].Name })
		for _, m := range own {
			b.WriteString(r.monitorLine(ctx, m))
		}
	}

	if len(ownDevices) > 0 {
		b.WriteString("\n<b>Routers</b>\n")
		for _, d := range ownDevices {
			b.WriteString(r.deviceLine(ctx, d))
		}
	}

	return b.String(), nil
}

func (r *Reporter) monitorLine(ctx context.Context, m models.Monitor) string {
	rt, err := r.realtime.Get(ctx, m.ID)
	if err != nil {
		return fmt.Sprintf("⚪ %s: no recent data\n", m.Name)
	}

	icon := "🟢"
	if rt.Status == models.StatusDown {
		icon = "🔴"
	}

	switch m.Kind {
	case models.MonitorFiber:
		detail := "link down"
		if rt.Status == models.StatusUp {
			detail = "link ok"
			if rt.RxPowerDBm != nil {
				detail = fmt.Sprintf("link ok, Rx %.2f dBm", *rt.RxPowerDBm)
			}
		}
		return fmt.Sprintf("%s %s (%s): %s\n", icon, m.Name, m.InterfaceName, detail)
	default:
		detail := "unreachable"
		if rt.Status == models.StatusUp {
			detail = "up"
			if rt.RTTMs != nil {
				detail = fmt.Sprintf("up, RTT %.1f ms", *rt.RTTMs)
			}
		}
		return fmt.Sprintf("%s %s (%s): %s\n", icon, m.Name, m.TargetIP, detail)
	}
}

func (r *Reporter) deviceLine(ctx context.Context, d models.Device) string {
	res, err := r.resources.LatestByDevice(ctx, d.ID)
	if err != nil || res == nil {
		return fmt.Sprintf("%s: no resource data\n", d.Name)
	}

	parts := make([]string, 0, 3)
	if res.CPULoadPercent != nil {
		parts = append(parts, fmt.Sprintf("CPU %.0f%%", *res.CPULoadPercent))
	}
	if mem := res.MemoryUsedPercent(); mem != nil {
		parts = append(parts, fmt.Sprintf("RAM %.0f%%", *mem))
	}
	if st := res.StorageUsedPercent(); st != nil {
		parts = append(parts, fmt.Sprintf("Disk %.0f%%", *st))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s: no resource data\n", d.Name)
	}
	return fmt.Sprintf("%s: %s\n", d.Name, strings.Join(parts, ", "))
}
