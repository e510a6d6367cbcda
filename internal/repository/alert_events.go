package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/zawnaing-2024/Router-Portal/internal/models"
)

// AlertEventRepository records fired alerts (alert_events table). Rows are
// inserted before dispatch; delivery is marked afterwards, best effort.
type AlertEventRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertEventRepository creates the alert event repository.
func NewAlertEventRepository(db *sql.DB, logger *zap.Logger) *AlertEventRepository {
	return &AlertEventRepository{
		db:     db,
		logger: logger,
	}
}

// Insert records one alert event for a tenant.
func (r *AlertEventRepository) Insert(ctx context.Context, tenantID int64, event *models.AlertEvent) error {
	if tenantID == 0 {
		return fmt.Errorf("tenant_id is required")
	}
	if event == nil {
		return fmt.Errorf("event is required")
	}
	if event.CompanyID != tenantID {
		return fmt.Errorf("event.company_id must match tenant_id parameter")
	}

	query := `
		INSERT INTO alert_events (
			event_id,
			company_id,
			monitor_id,
			device_name,
			monitor_name,
			kind,
			type,
			target,
			metric,
			consecutive_failures,
			down_since,
			duration_seconds,
			resources,
			triggered_at,
			delivered
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, false)
	`

	var resources interface{}
	if len(event.Resources) > 0 {
		resources = strings.Join(event.Resources, ",")
	}

	_, err := r.db.ExecContext(ctx, query,
		event.EventID,
		event.CompanyID,
		event.MonitorID,
		event.DeviceName,
		event.MonitorName,
		string(event.Kind),
		string(event.Type),
		event.Target,
		event.Metric,
		event.ConsecutiveFailures,
		event.DownSince,
		int64(event.Duration.Seconds()),
		resources,
		event.TriggeredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert event: %w", err)
	}

	return nil
}

// MarkDelivered flags an alert event as delivered to the channel.
func (r *AlertEventRepository) MarkDelivered(ctx context.Context, eventID string) error {
	if eventID == "" {
		return fmt.Errorf("event_id is required")
	}

	query := `UPDATE alert_events SET delivered = true WHERE event_id = $1`

	result, err := r.db.ExecContext(ctx, query, eventID)
	if err != nil {
		return fmt.Errorf("failed to mark alert event delivered: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}

	return nil
}
