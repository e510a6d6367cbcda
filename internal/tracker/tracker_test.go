package tracker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zawnaing-2024/Router-Portal/internal/models"
	"github.com/zawnaing-2024/Router-Portal/internal/tracker"
)

type fakeStateStore struct {
	mu      sync.Mutex
	upserts []models.AlertState
	err     error
}

func (f *fakeStateStore) Upsert(ctx context.Context, state *models.AlertState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, *state)
	return nil
}

func (f *fakeStateStore) last() models.AlertState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts[len(f.upserts)-1]
}

var baseTime = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func pingMonitor() models.Monitor {
	return models.Monitor{
		ID:         1,
		CompanyID:  10,
		DeviceID:   5,
		DeviceName: "core-rtr-01",
		Name:       "Gateway",
		Kind:       models.MonitorPing,
		TargetIP:   "8.8.8.8",
	}
}

func fiberMonitor() models.Monitor {
	return models.Monitor{
		ID:            2,
		CompanyID:     10,
		DeviceID:      5,
		DeviceName:    "core-rtr-01",
		Name:          "Uplink",
		Kind:          models.MonitorFiber,
		InterfaceName: "sfp1",
	}
}

func pingThresholds() tracker.Thresholds {
	return tracker.Thresholds{
		FailureThreshold: 5,
		ReminderInterval: 30 * time.Minute,
		HighMetric:       90,
	}
}

func failureAt(ts time.Time) models.Observation {
	return models.Observation{Success: false, Timestamp: ts}
}

func successAt(ts time.Time, rtt float64) models.Observation {
	return models.Observation{Success: true, Metric: &rtt, Timestamp: ts}
}

func TestProcess_DownAlertFiresOnFifthFailureOnly(t *testing.T) {
	tr := tracker.New(&fakeStateStore{}, zap.NewNop())
	mon := pingMonitor()
	th := pingThresholds()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		events := tr.Process(ctx, mon, th, failureAt(baseTime.Add(time.Duration(i)*time.Second)))
		assert.Empty(t, events, "no alert before the threshold is reached")
	}

	events := tr.Process(ctx, mon, th, failureAt(baseTime.Add(4*time.Second)))
	require.Len(t, events, 1)
	assert.Equal(t, models.EventDown, events[0].Type)
	assert.Equal(t, 5, events[0].ConsecutiveFailures)
	assert.Equal(t, "core-rtr-01", events[0].DeviceName)
	assert.Equal(t, "8.8.8.8", events[0].Target)

	state, ok := tr.State(mon.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusDown, state.Status)
	require.NotNil(t, state.DownSince)
	assert.Equal(t, baseTime.Add(4*time.Second), *state.DownSince)
}

func TestProcess_SuccessResetsConsecutiveFailures(t *testing.T) {
	tr := tracker.New(&fakeStateStore{}, zap.NewNop())
	mon := pingMonitor()
	th := pingThresholds()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		tr.Process(ctx, mon, th, failureAt(baseTime.Add(time.Duration(i)*time.Second)))
	}
	tr.Process(ctx, mon, th, successAt(baseTime.Add(4*time.Second), 12))

	state, ok := tr.State(mon.ID)
	require.True(t, ok)
	assert.Equal(t, 0, state.ConsecutiveFailures)
	assert.Equal(t, models.StatusUp, state.Status)

	// The counter starts over: four more failures stay silent.
	for i := 5; i < 9; i++ {
		events := tr.Process(ctx, mon, th, failureAt(baseTime.Add(time.Duration(i)*time.Second)))
		assert.Empty(t, events)
	}
}

func TestProcess_RemindersEvery30MinutesWhileDown(t *testing.T) {
	tr := tracker.New(&fakeStateStore{}, zap.NewNop())
	mon := pingMonitor()
	th := pingThresholds()
	ctx := context.Background()

	// Drive the monitor down; the down alert cycle must not also remind.
	var downEvents []models.AlertEvent
	for i := 0; i < 5; i++ {
		downEvents = tr.Process(ctx, mon, th, failureAt(baseTime.Add(time.Duration(i)*time.Second)))
	}
	require.Len(t, downEvents, 1)
	downAt := baseTime.Add(4 * time.Second)

	// Down for 61 minutes with one-minute probes: exactly two reminders,
	// at +30m and +60m.
	var reminders []models.AlertEvent
	for m := 1; m <= 61; m++ {
		events := tr.Process(ctx, mon, th, failureAt(downAt.Add(time.Duration(m)*time.Minute)))
		for _, ev := range events {
			require.Equal(t, models.EventReminder, ev.Type)
			reminders = append(reminders, ev)
		}
	}
	require.Len(t, reminders, 2)
	assert.Equal(t, downAt.Add(30*time.Minute), reminders[0].TriggeredAt)
	assert.Equal(t, downAt.Add(60*time.Minute), reminders[1].TriggeredAt)
	assert.Equal(t, 30*time.Minute, reminders[0].Duration)
	assert.Equal(t, 60*time.Minute, reminders[1].Duration)
}

func TestProcess_RestorationCarriesOutageDuration(t *testing.T) {
	tr := tracker.New(&fakeStateStore{}, zap.NewNop())
	mon := pingMonitor()
	th := pingThresholds()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tr.Process(ctx, mon, th, failureAt(baseTime.Add(time.Duration(i)*time.Second)))
	}
	downAt := baseTime.Add(4 * time.Second)

	events := tr.Process(ctx, mon, th, successAt(downAt.Add(7*time.Minute), 15))
	require.Len(t, events, 1)
	assert.Equal(t, models.EventRestored, events[0].Type)
	assert.Equal(t, 7*time.Minute, events[0].Duration)

	state, ok := tr.State(mon.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusUp, state.Status)
	assert.Nil(t, state.DownSince)
	assert.Nil(t, state.LastReminderAt)
	assert.Equal(t, 0, state.ConsecutiveFailures)
}

func TestProcess_HighMetricFiresOnUpwardCrossingOnly(t *testing.T) {
	tr := tracker.New(&fakeStateStore{}, zap.NewNop())
	mon := pingMonitor()
	th := pingThresholds()
	ctx := context.Background()

	events := tr.Process(ctx, mon, th, successAt(baseTime, 50))
	assert.Empty(t, events)

	events = tr.Process(ctx, mon, th, successAt(baseTime.Add(time.Second), 120))
	require.Len(t, events, 1)
	assert.Equal(t, models.EventHighMetric, events[0].Type)

	// Stays above threshold: no re-fire.
	events = tr.Process(ctx, mon, th, successAt(baseTime.Add(2*time.Second), 140))
	assert.Empty(t, events)
	events = tr.Process(ctx, mon, th, successAt(baseTime.Add(3*time.Second), 95))
	assert.Empty(t, events)

	// Dip below, then cross again: fires once more.
	events = tr.Process(ctx, mon, th, successAt(baseTime.Add(4*time.Second), 40))
	assert.Empty(t, events)
	events = tr.Process(ctx, mon, th, successAt(baseTime.Add(5*time.Second), 110))
	require.Len(t, events, 1)
	assert.Equal(t, models.EventHighMetric, events[0].Type)
}

func TestProcess_HighMetricDoesNotAffectUpDownState(t *testing.T) {
	tr := tracker.New(&fakeStateStore{}, zap.NewNop())
	mon := pingMonitor()
	th := pingThresholds()
	ctx := context.Background()

	tr.Process(ctx, mon, th, successAt(baseTime, 150))
	state, ok := tr.State(mon.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusUp, state.Status)
	assert.True(t, state.MetricHigh)
}

func TestProcess_FiberGoesDownImmediately(t *testing.T) {
	tr := tracker.New(&fakeStateStore{}, zap.NewNop())
	mon := fiberMonitor()
	th := tracker.Thresholds{
		FailureThreshold: 1,
		ReminderInterval: 30 * time.Minute,
	}
	ctx := context.Background()

	events := tr.Process(ctx, mon, th, failureAt(baseTime))
	require.Len(t, events, 1)
	assert.Equal(t, models.EventDown, events[0].Type)
	assert.Equal(t, "sfp1", events[0].Target)
}

func TestProcess_StatePersistedBeforeReturn(t *testing.T) {
	store := &fakeStateStore{}
	tr := tracker.New(store, zap.NewNop())
	mon := pingMonitor()
	th := pingThresholds()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tr.Process(ctx, mon, th, failureAt(baseTime.Add(time.Duration(i)*time.Second)))
	}

	require.NotEmpty(t, store.upserts)
	last := store.last()
	assert.Equal(t, models.StatusDown, last.Status)
	assert.Equal(t, 5, last.ConsecutiveFailures)
	require.NotNil(t, last.DownSince)
}

func TestProcess_PersistFailureKeepsInMemoryState(t *testing.T) {
	store := &fakeStateStore{err: errors.New("db down")}
	tr := tracker.New(store, zap.NewNop())
	mon := pingMonitor()
	th := pingThresholds()
	ctx := context.Background()

	var events []models.AlertEvent
	for i := 0; i < 5; i++ {
		events = tr.Process(ctx, mon, th, failureAt(baseTime.Add(time.Duration(i)*time.Second)))
	}

	// Events still fire and the down transition survives in memory.
	require.Len(t, events, 1)
	state, ok := tr.State(mon.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusDown, state.Status)
}

func TestProcess_LoadRestoresReminderCadence(t *testing.T) {
	downSince := baseTime.Add(-45 * time.Minute)
	lastReminder := baseTime.Add(-31 * time.Minute)

	tr := tracker.New(&fakeStateStore{}, zap.NewNop())
	tr.Load([]models.AlertState{{
		MonitorID:           1,
		Status:              models.StatusDown,
		ConsecutiveFailures: 12,
		DownSince:           &downSince,
		LastReminderAt:      &lastReminder,
	}})

	events := tr.Process(context.Background(), pingMonitor(), pingThresholds(), failureAt(baseTime))
	require.Len(t, events, 1)
	assert.Equal(t, models.EventReminder, events[0].Type)
	assert.Equal(t, 45*time.Minute, events[0].Duration)
}

func TestProcess_ForgetDropsState(t *testing.T) {
	tr := tracker.New(&fakeStateStore{}, zap.NewNop())
	mon := pingMonitor()
	tr.Process(context.Background(), mon, pingThresholds(), failureAt(baseTime))

	_, ok := tr.State(mon.ID)
	require.True(t, ok)

	tr.Forget(mon.ID)
	_, ok = tr.State(mon.ID)
	assert.False(t, ok)
}
