package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/zawnaing-2024/Router-Portal/internal/models"
)

// AlertStateRepository persists the per-monitor alert lifecycle state
// (alert_states table, one row per monitor).
type AlertStateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertStateRepository creates the alert state repository.
func NewAlertStateRepository(db *sql.DB, logger *zap.Logger) *AlertStateRepository {
	return &AlertStateRepository{
		db:     db,
		logger: logger,
	}
}

// LoadAll returns every persisted alert state. Called once on startup so
// reminder cadence and down duration survive restarts.
func (r *AlertStateRepository) LoadAll(ctx context.Context) ([]models.AlertState, error) {
	query := `
		SELECT
			monitor_id,
			status,
			consecutive_failures,
			down_since,
			last_reminder_at,
			metric_high,
			updated_at
		FROM alert_states
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load alert states: %w", err)
	}
	defer rows.Close()

	var states []models.AlertState
	for rows.Next() {
		var state models.AlertState
		var status string
		var downSince, lastReminderAt sql.NullTime

		if err := rows.Scan(
			&state.MonitorID,
			&status,
			&state.ConsecutiveFailures,
			&downSince,
			&lastReminderAt,
			&state.MetricHigh,
			&state.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert state: %w", err)
		}

		state.Status = models.AlertStatus(status)
		if downSince.Valid {
			state.DownSince = &downSince.Time
		}
		if lastReminderAt.Valid {
			state.LastReminderAt = &lastReminderAt.Time
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alert states: %w", err)
	}

	return states, nil
}

// Upsert writes a monitor's alert state, inserting on first observation.
func (r *AlertStateRepository) Upsert(ctx context.Context, state *models.AlertState) error {
	if state == nil {
		return fmt.Errorf("state is required")
	}

	query := `
		INSERT INTO alert_states (
			monitor_id,
			status,
			consecutive_failures,
			down_since,
			last_reminder_at,
			metric_high,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (monitor_id) DO UPDATE SET
			status = EXCLUDED.status,
			consecutive_failures = EXCLUDED.consecutive_failures,
			down_since = EXCLUDED.down_since,
			last_reminder_at = EXCLUDED.last_reminder_at,
			metric_high = EXCLUDED.metric_high,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		state.MonitorID,
		string(state.Status),
		state.ConsecutiveFailures,
		state.DownSince,
		state.LastReminderAt,
		state.MetricHigh,
		state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert alert state: %w", err)
	}

	return nil
}
