package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zawnaing-2024/Router-Portal/internal/config"
	"github.com/zawnaing-2024/Router-Portal/internal/models"
)

// MonitorRealtime is the last observed state of one monitor, cached for the
// portal UI and the periodic report.
type MonitorRealtime struct {
	MonitorID  int64              `json:"monitor_id"`
	Kind       models.MonitorKind `json:"kind"`
	Status     models.AlertStatus `json:"status"`
	RTTMs      *float64           `json:"rtt_ms,omitempty"`
	RxPowerDBm *float64           `json:"rx_power_dbm,omitempty"`
	TxPowerDBm *float64           `json:"tx_power_dbm,omitempty"`
	CheckedAt  time.Time          `json:"checked_at"`
}

// RealtimeManager writes per-monitor realtime snapshots to the KV store
// with a TTL, keyed "router-portal:monitor:<id>:realtime".
type RealtimeManager struct {
	kv     KVStore
	prefix string
	suffix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRealtimeManager creates the realtime cache manager.
func NewRealtimeManager(cfg *config.Config, kv KVStore, logger *zap.Logger) *RealtimeManager {
	return &RealtimeManager{
		kv:     kv,
		prefix: cfg.Cache.RealtimeKeyPrefix,
		suffix: cfg.Cache.RealtimeSuffix,
		ttl:    cfg.Cache.RealtimeTTL,
		logger: logger,
	}
}

// Key builds the realtime cache key for a monitor.
func (m *RealtimeManager) Key(monitorID int64) string {
	return fmt.Sprintf("%s%d%s", m.prefix, monitorID, m.suffix)
}

// Update writes one monitor's realtime snapshot.
func (m *RealtimeManager) Update(ctx context.Context, rt *MonitorRealtime) error {
	data, err := json.Marshal(rt)
	if err != nil {
		return fmt.Errorf("failed to marshal realtime data: %w", err)
	}

	if err := m.kv.Set(ctx, m.Key(rt.MonitorID), string(data), m.ttl); err != nil {
		return fmt.Errorf("failed to set realtime cache: %w", err)
	}
	return nil
}

// Get reads one monitor's realtime snapshot. Returns ErrCacheMiss when the
// monitor has not been probed recently.
func (m *RealtimeManager) Get(ctx context.Context, monitorID int64) (*MonitorRealtime, error) {
	val, err := m.kv.Get(ctx, m.Key(monitorID))
	if err != nil {
		return nil, err
	}

	var rt MonitorRealtime
	if err := json.Unmarshal([]byte(val), &rt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal realtime data: %w", err)
	}
	return &rt, nil
}
