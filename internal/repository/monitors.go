package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/zawnaing-2024/Router-Portal/internal/models"
)

// MonitorRepository reads the monitor configuration (monitors table joined
// with the owning devices).
type MonitorRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMonitorRepository creates the monitor repository.
func NewMonitorRepository(db *sql.DB, logger *zap.Logger) *MonitorRepository {
	return &MonitorRepository{
		db:     db,
		logger: logger,
	}
}

// ListEnabled returns every monitor whose monitor row and device are both
// enabled and that belongs to a company. Device credentials are joined in so
// the probe layer needs no second lookup.
func (r *MonitorRepository) ListEnabled(ctx context.Context) ([]models.Monitor, error) {
	query := `
		SELECT
			m.id,
			m.company_id,
			m.device_id,
			d.name AS device_name,
			m.name,
			m.kind,
			COALESCE(m.target_ip, ''),
			COALESCE(m.interface_name, ''),
			COALESCE(m.interval_seconds, 0),
			COALESCE(m.failure_threshold, 0),
			d.host,
			d.port,
			d.username,
			d.password
		FROM monitors m
		JOIN devices d ON d.id = m.device_id
		WHERE m.enabled = true
		  AND d.enabled = true
		  AND m.company_id IS NOT NULL
		ORDER BY m.id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitors: %w", err)
	}
	defer rows.Close()

	var monitors []models.Monitor
	for rows.Next() {
		var m models.Monitor
		var kind string

		if err := rows.Scan(
			&m.ID,
			&m.CompanyID,
			&m.DeviceID,
			&m.DeviceName,
			&m.Name,
			&kind,
			&m.TargetIP,
			&m.InterfaceName,
			&m.IntervalSeconds,
			&m.FailureThreshold,
			&m.Host,
			&m.Port,
			&m.Username,
			&m.Password,
		); err != nil {
			return nil, fmt.Errorf("failed to scan monitor: %w", err)
		}

		m.Kind = models.MonitorKind(kind)
		monitors = append(monitors, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate monitors: %w", err)
	}

	return monitors, nil
}
