package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zawnaing-2024/Router-Portal/internal/models"
)

// Thresholds are the alert lifecycle parameters for one monitor, already
// merged from global defaults, per-monitor and per-company overrides.
type Thresholds struct {
	// FailureThreshold is the number of consecutive failures before the
	// monitor transitions to down (ping default 5, fiber 1).
	FailureThreshold int
	// ReminderInterval is the cadence of "still down" reminders.
	ReminderInterval time.Duration
	// HighMetric fires a one-shot alert when a successful observation
	// crosses above this value (RTT ms). 0 disables it.
	HighMetric float64
}

// StateStore persists alert states so reminder cadence and down duration
// survive restarts.
type StateStore interface {
	Upsert(ctx context.Context, state *models.AlertState) error
}

// Tracker owns the per-monitor alert state machine. Observations for the
// same monitor are serialized on a per-monitor lock; different monitors
// process fully in parallel.
type Tracker struct {
	store  StateStore
	logger *zap.Logger

	mu      sync.Mutex
	entries map[int64]*entry
}

type entry struct {
	mu    sync.Mutex
	state *models.AlertState
}

// New creates a tracker backed by the given state store.
func New(store StateStore, logger *zap.Logger) *Tracker {
	return &Tracker{
		store:   store,
		logger:  logger,
		entries: make(map[int64]*entry),
	}
}

// Load seeds the tracker with persisted states. Called once before the
// first probe cycle.
func (t *Tracker) Load(states []models.AlertState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range states {
		s := states[i]
		t.entries[s.MonitorID] = &entry{state: &s}
	}
}

// State returns a copy of a monitor's current alert state.
func (t *Tracker) State(monitorID int64) (models.AlertState, bool) {
	t.mu.Lock()
	e, ok := t.entries[monitorID]
	t.mu.Unlock()
	if !ok {
		return models.AlertState{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.state, true
}

// Forget drops a monitor's in-memory state, e.g. after the monitor was
// removed from the registry.
func (t *Tracker) Forget(monitorID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, monitorID)
}

// Process feeds one observation through the monitor's state machine and
// returns the alert events that must be dispatched. The state transition is
// persisted before Process returns, independently of any notification
// outcome; a persistence failure is logged and the in-memory state stays
// authoritative so the next cycle re-persists it.
func (t *Tracker) Process(ctx context.Context, monitor models.Monitor, th Thresholds, obs models.Observation) []models.AlertEvent {
	e := t.entry(monitor.ID)

	e.mu.Lock()
	defer e.mu.Unlock()

	changed, events := transition(e.state, obs, th)
	if changed {
		e.state.UpdatedAt = obs.Timestamp
		if err := t.store.Upsert(ctx, e.state); err != nil {
			// Losing a down transition breaks duration accuracy and
			// reminder cadence, so this is loud. The in-memory state is
			// kept and the next observation retries the upsert.
			t.logger.Error("Failed to persist alert state",
				zap.Int64("monitor_id", monitor.ID),
				zap.String("status", string(e.state.Status)),
				zap.Error(err),
			)
		}
	}

	out := make([]models.AlertEvent, 0, len(events))
	for _, ev := range events {
		ev.EventID = uuid.New().String()
		ev.CompanyID = monitor.CompanyID
		ev.MonitorID = monitor.ID
		ev.DeviceName = monitor.DeviceName
		ev.MonitorName = monitor.Name
		ev.Kind = monitor.Kind
		ev.Target = monitorTarget(monitor)
		ev.TriggeredAt = obs.Timestamp
		out = append(out, ev)
	}
	return out
}

func (t *Tracker) entry(monitorID int64) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[monitorID]
	if !ok {
		e = &entry{state: &models.AlertState{
			MonitorID: monitorID,
			Status:    models.StatusUp,
		}}
		t.entries[monitorID] = e
	}
	return e
}

// transition applies one observation to the state machine and reports
// whether the state changed and which events fired.
//
// Elapsed times are computed as obs.Timestamp.Sub(stored timestamp); both
// sides come from the same process's time.Now() during normal operation, so
// Go's monotonic clock reading protects the reminder cadence from wall-clock
// jumps.
func transition(state *models.AlertState, obs models.Observation, th Thresholds) (bool, []models.AlertEvent) {
	if !obs.Success {
		return transitionFailure(state, obs, th)
	}
	return transitionSuccess(state, obs, th)
}

func transitionFailure(state *models.AlertState, obs models.Observation, th Thresholds) (bool, []models.AlertEvent) {
	state.ConsecutiveFailures++

	if state.Status == models.StatusUp {
		if state.ConsecutiveFailures >= th.FailureThreshold {
			downSince := obs.Timestamp
			state.Status = models.StatusDown
			state.DownSince = &downSince
			// Seeding the reminder clock here means no reminder fires on
			// the same cycle as the down alert and the first one comes a
			// full interval later.
			lastReminder := obs.Timestamp
			state.LastReminderAt = &lastReminder

			return true, []models.AlertEvent{{
				Type:                models.EventDown,
				ConsecutiveFailures: state.ConsecutiveFailures,
				DownSince:           state.DownSince,
			}}
		}
		return true, nil
	}

	// Already down: reminder when a full interval elapsed.
	if state.LastReminderAt != nil && obs.Timestamp.Sub(*state.LastReminderAt) >= th.ReminderInterval {
		lastReminder := obs.Timestamp
		state.LastReminderAt = &lastReminder

		var duration time.Duration
		if state.DownSince != nil {
			duration = obs.Timestamp.Sub(*state.DownSince)
		}
		return true, []models.AlertEvent{{
			Type:                models.EventReminder,
			ConsecutiveFailures: state.ConsecutiveFailures,
			DownSince:           state.DownSince,
			Duration:            duration,
		}}
	}
	return true, nil
}

func transitionSuccess(state *models.AlertState, obs models.Observation, th Thresholds) (bool, []models.AlertEvent) {
	changed := false
	var events []models.AlertEvent

	if state.Status == models.StatusDown {
		var duration time.Duration
		downSince := state.DownSince
		if downSince != nil {
			duration = obs.Timestamp.Sub(*downSince)
		}
		state.Status = models.StatusUp
		state.DownSince = nil
		state.LastReminderAt = nil
		changed = true

		events = append(events, models.AlertEvent{
			Type:       models.EventRestored,
			Metric:     obs.Metric,
			TxPowerDBm: obs.TxPowerDBm,
			DownSince:  downSince,
			Duration:   duration,
		})
	}

	if state.ConsecutiveFailures != 0 {
		state.ConsecutiveFailures = 0
		changed = true
	}

	if th.HighMetric > 0 && obs.Metric != nil {
		if *obs.Metric > th.HighMetric {
			if !state.MetricHigh {
				state.MetricHigh = true
				changed = true
				events = append(events, models.AlertEvent{
					Type:   models.EventHighMetric,
					Metric: obs.Metric,
				})
			}
		} else if state.MetricHigh {
			state.MetricHigh = false
			changed = true
		}
	}

	return changed, events
}

func monitorTarget(m models.Monitor) string {
	if m.Kind == models.MonitorFiber {
		return m.InterfaceName
	}
	return m.TargetIP
}
