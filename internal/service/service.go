package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/zawnaing-2024/Router-Portal/internal/cache"
	"github.com/zawnaing-2024/Router-Portal/internal/config"
	"github.com/zawnaing-2024/Router-Portal/internal/models"
	"github.com/zawnaing-2024/Router-Portal/internal/notifier"
	"github.com/zawnaing-2024/Router-Portal/internal/poller"
	"github.com/zawnaing-2024/Router-Portal/internal/probe"
	"github.com/zawnaing-2024/Router-Portal/internal/registry"
	"github.com/zawnaing-2024/Router-Portal/internal/report"
	"github.com/zawnaing-2024/Router-Portal/internal/repository"
	"github.com/zawnaing-2024/Router-Portal/internal/scheduler"
	"github.com/zawnaing-2024/Router-Portal/internal/tracker"
)

// AlertService wires the whole pipeline: scheduler -> prober -> tracker ->
// dispatcher, plus the resource poller and the periodic reporter.
type AlertService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger

	stateRepo    *repository.AlertStateRepository
	monitorRepo  *repository.MonitorRepository
	tenantRepo   *repository.TenantRepository
	eventRepo    *repository.AlertEventRepository
	sampleRepo   *repository.SampleRepository
	resourceRepo *repository.ResourceRepository

	registry   *registry.Registry
	tracker    *tracker.Tracker
	prober     probe.Prober
	realtime   *cache.RealtimeManager
	dispatcher *notifier.Dispatcher
	scheduler  *scheduler.Manager
	poller     *poller.Poller
	reporter   *report.Reporter

	wgs []*sync.WaitGroup
}

// NewAlertService creates the alert service and its dependencies.
func NewAlertService(cfg *config.Config, logger *zap.Logger) (*AlertService, error) {
	db, err := sql.Open("postgres", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdle)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	s := &AlertService{
		config:      cfg,
		db:          db,
		redisClient: redisClient,
		logger:      logger,
	}

	s.stateRepo = repository.NewAlertStateRepository(db, logger)
	s.monitorRepo = repository.NewMonitorRepository(db, logger)
	s.tenantRepo = repository.NewTenantRepository(db, logger)
	s.eventRepo = repository.NewAlertEventRepository(db, logger)
	s.sampleRepo = repository.NewSampleRepository(db, logger)
	s.resourceRepo = repository.NewResourceRepository(db, logger)

	s.registry = registry.New(s.tenantRepo, s.monitorRepo, logger)
	s.tracker = tracker.New(s.stateRepo, logger)
	s.prober = probe.NewRouterOSProber(cfg, logger)
	s.realtime = cache.NewRealtimeManager(cfg, cache.NewRedisKVStore(redisClient), logger)

	sender := notifier.NewTelegramSender(notifier.NewBotFactory(cfg.Dispatch.TelegramTimeout), logger)
	s.dispatcher = notifier.New(s.registry, s.eventRepo, sender, logger,
		notifier.WithWorkerCount(cfg.Dispatch.Workers),
		notifier.WithQueueSize(cfg.Dispatch.QueueSize),
	)

	s.scheduler = scheduler.NewManager(s.registry, s.checkMonitor, cfg, logger, s.tracker.Forget)
	s.poller = poller.New(s.resourceRepo, s.resourceRepo, s.prober, s.emitEvent, cfg, logger)
	s.reporter = report.New(s.registry, s.tenantRepo, s.realtime, s.resourceRepo, s.dispatcher, cfg, logger)

	return s, nil
}

// Start seeds the tracker from persisted state and launches every loop. It
// returns once everything is running; cancelling the context begins
// shutdown.
func (s *AlertService) Start(ctx context.Context) error {
	states, err := s.stateRepo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load alert states: %w", err)
	}
	s.tracker.Load(states)
	s.logger.Info("Loaded persisted alert states", zap.Int("count", len(states)))

	s.wgs = append(s.wgs,
		s.dispatcher.Start(ctx),
		s.scheduler.Start(ctx),
		s.poller.Start(ctx),
		s.reporter.Start(ctx),
	)

	s.logger.Info("Alert service started")
	return nil
}

// Stop waits for the loops to drain, then closes the connections. The
// caller must cancel the Start context first.
func (s *AlertService) Stop() error {
	s.logger.Info("Stopping alert service")

	for _, wg := range s.wgs {
		wg.Wait()
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database", zap.Error(err))
	}
	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("Failed to close redis", zap.Error(err))
	}

	return nil
}

// checkMonitor is one probe-and-track cycle, invoked by the scheduler on
// each monitor's ticker.
func (s *AlertService) checkMonitor(ctx context.Context, monitor models.Monitor) {
	var obs models.Observation
	switch monitor.Kind {
	case models.MonitorFiber:
		obs = s.prober.FiberStatus(ctx, monitor)
	default:
		obs = s.prober.Ping(ctx, monitor)
	}

	events := s.tracker.Process(ctx, monitor, s.thresholds(ctx, monitor), obs)

	s.storeSample(ctx, monitor, obs)
	s.updateRealtime(ctx, monitor, obs)

	for _, event := range events {
		s.emitEvent(ctx, event)
	}
}

// thresholds merges global defaults with per-monitor and per-company
// overrides. Fiber monitors alert on the first failed check and have no
// high-metric alert.
func (s *AlertService) thresholds(ctx context.Context, monitor models.Monitor) tracker.Thresholds {
	th := tracker.Thresholds{
		ReminderInterval: s.config.Alert.ReminderInterval,
	}

	if monitor.Kind == models.MonitorFiber {
		th.FailureThreshold = s.config.Alert.FiberFailureThreshold
	} else {
		th.FailureThreshold = s.config.Alert.PingFailureThreshold
		th.HighMetric = float64(s.config.Alert.HighPingThresholdMs)

		settings, err := s.registry.TelegramSettings(ctx, monitor.CompanyID)
		switch {
		case err == nil && settings.HighPingThresholdMs > 0:
			th.HighMetric = float64(settings.HighPingThresholdMs)
		case err != nil && !errors.Is(err, repository.ErrSettingsNotFound):
			s.logger.Warn("Failed to resolve company thresholds, using defaults",
				zap.Int64("company_id", monitor.CompanyID),
				zap.Error(err),
			)
		}
	}

	if monitor.FailureThreshold > 0 {
		th.FailureThreshold = monitor.FailureThreshold
	}
	return th
}

// storeSample appends the observation to the probe history.
func (s *AlertService) storeSample(ctx context.Context, monitor models.Monitor, obs models.Observation) {
	var err error
	if monitor.Kind == models.MonitorFiber {
		err = s.sampleRepo.InsertFiber(ctx, monitor.ID, obs.Timestamp, obs.Metric, obs.TxPowerDBm, obs.Success)
	} else {
		err = s.sampleRepo.InsertPing(ctx, monitor.ID, obs.Timestamp, obs.Metric)
	}
	if err != nil {
		s.logger.Error("Failed to store probe sample",
			zap.Int64("monitor_id", monitor.ID),
			zap.Error(err),
		)
	}
}

// updateRealtime refreshes the monitor's snapshot for the portal UI.
func (s *AlertService) updateRealtime(ctx context.Context, monitor models.Monitor, obs models.Observation) {
	rt := &cache.MonitorRealtime{
		MonitorID: monitor.ID,
		Kind:      monitor.Kind,
		Status:    models.StatusUp,
		CheckedAt: obs.Timestamp,
	}
	if state, ok := s.tracker.State(monitor.ID); ok {
		rt.Status = state.Status
	}
	if monitor.Kind == models.MonitorFiber {
		rt.RxPowerDBm = obs.Metric
		rt.TxPowerDBm = obs.TxPowerDBm
	} else {
		rt.RTTMs = obs.Metric
	}

	if err := s.realtime.Update(ctx, rt); err != nil {
		s.logger.Warn("Failed to update realtime cache",
			zap.Int64("monitor_id", monitor.ID),
			zap.Error(err),
		)
	}
}

// emitEvent records an alert event and hands it to the dispatcher. The row
// is written before dispatch; an insert failure does not block the
// notification.
func (s *AlertService) emitEvent(ctx context.Context, event models.AlertEvent) {
	if err := s.eventRepo.Insert(ctx, event.CompanyID, &event); err != nil {
		s.logger.Error("Failed to record alert event",
			zap.String("event_id", event.EventID),
			zap.Int64("company_id", event.CompanyID),
			zap.Error(err),
		)
	}
	s.dispatcher.DispatchEvent(event)
}

// buildDSN builds the PostgreSQL connection string.
func buildDSN(cfg *config.Config) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.SSLMode,
	)
}
