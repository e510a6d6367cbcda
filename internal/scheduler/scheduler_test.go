package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zawnaing-2024/Router-Portal/internal/config"
	"github.com/zawnaing-2024/Router-Portal/internal/models"
)

type fakeSource struct {
	mu       sync.Mutex
	monitors []models.Monitor
}

func (f *fakeSource) set(monitors []models.Monitor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.monitors = monitors
}

func (f *fakeSource) ListMonitors(ctx context.Context) ([]models.Monitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Monitor, len(f.monitors))
	copy(out, f.monitors)
	return out, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Schedule.PingInterval = 10 * time.Millisecond
	cfg.Schedule.FiberInterval = 10 * time.Millisecond
	cfg.Schedule.MonitorRefreshInterval = 20 * time.Millisecond
	return cfg
}

func TestManager_RunsEachMonitorOnItsOwnTicker(t *testing.T) {
	var pingChecks, fiberChecks atomic.Int64
	source := &fakeSource{monitors: []models.Monitor{
		{ID: 1, Kind: models.MonitorPing},
		{ID: 2, Kind: models.MonitorFiber},
	}}

	m := NewManager(source, func(ctx context.Context, monitor models.Monitor) {
		switch monitor.ID {
		case 1:
			pingChecks.Add(1)
		case 2:
			fiberChecks.Add(1)
		}
	}, testConfig(), zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	wg := m.Start(ctx)

	require.Eventually(t, func() bool {
		return pingChecks.Load() >= 3 && fiberChecks.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	wg.Wait()
}

func TestManager_RemovedMonitorStopsAndNotifies(t *testing.T) {
	var checks atomic.Int64
	var forgotten atomic.Int64
	source := &fakeSource{monitors: []models.Monitor{
		{ID: 1, Kind: models.MonitorPing},
	}}

	m := NewManager(source, func(ctx context.Context, monitor models.Monitor) {
		checks.Add(1)
	}, testConfig(), zap.NewNop(), func(monitorID int64) {
		forgotten.Store(monitorID)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg := m.Start(ctx)

	require.Eventually(t, func() bool { return checks.Load() >= 1 }, time.Second, time.Millisecond)

	source.set(nil)

	require.Eventually(t, func() bool {
		return forgotten.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// No further checks after the runner stopped.
	settled := checks.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, checks.Load())

	cancel()
	wg.Wait()
}

func TestManager_IntervalResolution(t *testing.T) {
	cfg := testConfig()
	cfg.Schedule.PingInterval = 10 * time.Second
	cfg.Schedule.FiberInterval = time.Minute

	m := NewManager(&fakeSource{}, nil, cfg, zap.NewNop(), nil)

	ping := models.Monitor{ID: 1, Kind: models.MonitorPing}
	assert.Equal(t, 10*time.Second, m.interval(ping))

	ping.IntervalSeconds = 30
	assert.Equal(t, 30*time.Second, m.interval(ping))

	fiber := models.Monitor{ID: 2, Kind: models.MonitorFiber}
	assert.Equal(t, time.Minute, m.interval(fiber))
}

func TestManager_ConfigChangeRestartsRunner(t *testing.T) {
	var mu sync.Mutex
	var seenTargets []string
	source := &fakeSource{monitors: []models.Monitor{
		{ID: 1, Kind: models.MonitorPing, TargetIP: "8.8.8.8"},
	}}

	m := NewManager(source, func(ctx context.Context, monitor models.Monitor) {
		mu.Lock()
		seenTargets = append(seenTargets, monitor.TargetIP)
		mu.Unlock()
	}, testConfig(), zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	wg := m.Start(ctx)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seenTargets) >= 1
	}, time.Second, time.Millisecond)

	source.set([]models.Monitor{
		{ID: 1, Kind: models.MonitorPing, TargetIP: "1.1.1.1"},
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, target := range seenTargets {
			if target == "1.1.1.1" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	cancel()
	wg.Wait()
}
