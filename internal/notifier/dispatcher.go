package notifier

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/zawnaing-2024/Router-Portal/internal/models"
)

// SettingsSource resolves a company's notification channel. Implemented by
// the tenant registry.
type SettingsSource interface {
	TelegramSettings(ctx context.Context, companyID int64) (*models.TelegramSettings, error)
}

// EventStore marks alert events as delivered. Implemented by the alert
// event repository.
type EventStore interface {
	MarkDelivered(ctx context.Context, eventID string) error
}

// Sender delivers a formatted message to a chat.
type Sender interface {
	Send(token, chatID, text string) error
}

type job struct {
	companyID int64
	// event is nil for plain-text jobs (periodic reports)
	event  *models.AlertEvent
	text   string
	onSent func()
}

// Dispatcher is the fire-and-forget notification pipeline: a bounded job
// channel drained by a fixed worker pool. Enqueueing never blocks the
// observation path; when the queue is full the event is dropped and logged,
// and the reminder cadence acts as the retry. Delivery failures never
// propagate back into alert state.
type Dispatcher struct {
	settings SettingsSource
	events   EventStore
	sender   Sender
	logger   *zap.Logger

	jobs        chan job
	workerCount int
}

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithWorkerCount sets the number of dispatch workers.
func WithWorkerCount(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workerCount = n
		}
	}
}

// WithQueueSize sets the job queue capacity.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.jobs = make(chan job, n)
		}
	}
}

// New creates a dispatcher.
func New(settings SettingsSource, events EventStore, sender Sender, logger *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		settings:    settings,
		events:      events,
		sender:      sender,
		logger:      logger,
		jobs:        make(chan job, 256),
		workerCount: 4,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the worker pool. Workers drain the queue until the context
// is cancelled; the returned WaitGroup lets the caller wait for in-flight
// sends on shutdown.
func (d *Dispatcher) Start(ctx context.Context) *sync.WaitGroup {
	var wg sync.WaitGroup
	for i := 0; i < d.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.runWorker(ctx)
		}()
	}
	return &wg
}

// DispatchEvent enqueues an alert event. Returns false when the queue is
// full and the event was dropped.
func (d *Dispatcher) DispatchEvent(event models.AlertEvent) bool {
	ok := d.enqueue(job{companyID: event.CompanyID, event: &event})
	if !ok {
		d.logger.Warn("Dispatch queue full, dropping alert event",
			zap.String("event_id", event.EventID),
			zap.Int64("company_id", event.CompanyID),
			zap.String("type", string(event.Type)),
		)
	}
	return ok
}

// DispatchText enqueues a plain message for a company (periodic reports).
// onSent runs after a confirmed delivery.
func (d *Dispatcher) DispatchText(companyID int64, text string, onSent func()) bool {
	ok := d.enqueue(job{companyID: companyID, text: text, onSent: onSent})
	if !ok {
		d.logger.Warn("Dispatch queue full, dropping message",
			zap.Int64("company_id", companyID),
		)
	}
	return ok
}

func (d *Dispatcher) enqueue(j job) bool {
	select {
	case d.jobs <- j:
		return true
	default:
		return false
	}
}

func (d *Dispatcher) runWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-d.jobs:
			if !ok {
				return
			}
			d.handle(ctx, j)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, j job) {
	settings, err := d.settings.TelegramSettings(ctx, j.companyID)
	if err != nil {
		d.logger.Warn("Failed to resolve telegram settings",
			zap.Int64("company_id", j.companyID),
			zap.Error(err),
		)
		return
	}

	// Disabled or unconfigured channel: no-op success.
	if !settings.Deliverable() {
		return
	}
	if j.event != nil && !alertTypeEnabled(settings, j.event) {
		return
	}

	text := j.text
	if j.event != nil {
		text = FormatEvent(j.event, settings)
	}

	if err := d.sender.Send(settings.BotToken, settings.ChatID, text); err != nil {
		// Fire and forget: log and move on, state is untouched.
		d.logger.Warn("Telegram delivery failed",
			zap.Int64("company_id", j.companyID),
			zap.Error(err),
		)
		return
	}

	if j.event != nil {
		if err := d.events.MarkDelivered(ctx, j.event.EventID); err != nil {
			d.logger.Warn("Failed to mark alert event delivered",
				zap.String("event_id", j.event.EventID),
				zap.Error(err),
			)
		}
	}
	if j.onSent != nil {
		j.onSent()
	}
}

// alertTypeEnabled applies the company's per-alert-type flags.
func alertTypeEnabled(settings *models.TelegramSettings, event *models.AlertEvent) bool {
	switch event.Type {
	case models.EventDown, models.EventReminder:
		if event.Kind == models.MonitorFiber {
			return settings.FiberDownAlerts
		}
		return settings.PingDownAlerts
	case models.EventRestored:
		return settings.RestoreAlerts
	case models.EventHighMetric:
		return settings.HighPingAlerts
	case models.EventResource:
		return true
	default:
		return true
	}
}
