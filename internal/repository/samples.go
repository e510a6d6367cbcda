package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SampleRepository stores raw probe history (ping_samples and fiber_samples
// tables), used for latency graphs in the portal UI.
type SampleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSampleRepository creates the sample repository.
func NewSampleRepository(db *sql.DB, logger *zap.Logger) *SampleRepository {
	return &SampleRepository{
		db:     db,
		logger: logger,
	}
}

// InsertPing stores one ping sample. rttMs is nil on timeout.
func (r *SampleRepository) InsertPing(ctx context.Context, monitorID int64, timestamp time.Time, rttMs *float64) error {
	if monitorID == 0 {
		return fmt.Errorf("monitor_id is required")
	}

	query := `
		INSERT INTO ping_samples (monitor_id, timestamp, rtt_ms)
		VALUES ($1, $2, $3)
	`

	if _, err := r.db.ExecContext(ctx, query, monitorID, timestamp, rttMs); err != nil {
		return fmt.Errorf("failed to insert ping sample: %w", err)
	}
	return nil
}

// InsertFiber stores one fiber sample.
func (r *SampleRepository) InsertFiber(ctx context.Context, monitorID int64, timestamp time.Time, rxDBm, txDBm *float64, operUp bool) error {
	if monitorID == 0 {
		return fmt.Errorf("monitor_id is required")
	}

	query := `
		INSERT INTO fiber_samples (monitor_id, timestamp, rx_dbm, tx_dbm, oper_up)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := r.db.ExecContext(ctx, query, monitorID, timestamp, rxDBm, txDBm, operUp); err != nil {
		return fmt.Errorf("failed to insert fiber sample: %w", err)
	}
	return nil
}

// LatestPingRTT returns the most recent successful RTT for a monitor, or
// sql.ErrNoRows when none exists.
func (r *SampleRepository) LatestPingRTT(ctx context.Context, monitorID int64) (float64, time.Time, error) {
	query := `
		SELECT rtt_ms, timestamp
		FROM ping_samples
		WHERE monitor_id = $1 AND rtt_ms IS NOT NULL
		ORDER BY timestamp DESC
		LIMIT 1
	`

	var rtt float64
	var ts time.Time
	err := r.db.QueryRowContext(ctx, query, monitorID).Scan(&rtt, &ts)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, time.Time{}, err
		}
		return 0, time.Time{}, fmt.Errorf("failed to get latest ping sample: %w", err)
	}
	return rtt, ts, nil
}
