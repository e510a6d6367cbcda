package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/zawnaing-2024/Router-Portal/internal/models"
)

// ResourceRepository stores router resource snapshots (resource_metrics
// table) and reads devices for the resource poller.
type ResourceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewResourceRepository creates the resource repository.
func NewResourceRepository(db *sql.DB, logger *zap.Logger) *ResourceRepository {
	return &ResourceRepository{
		db:     db,
		logger: logger,
	}
}

// ListEnabledDevices returns every enabled device that belongs to a company.
func (r *ResourceRepository) ListEnabledDevices(ctx context.Context) ([]models.Device, error) {
	query := `
		SELECT id, company_id, name, host, port, username, password, enabled
		FROM devices
		WHERE enabled = true AND company_id IS NOT NULL
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		var d models.Device
		if err := rows.Scan(
			&d.ID,
			&d.CompanyID,
			&d.Name,
			&d.Host,
			&d.Port,
			&d.Username,
			&d.Password,
			&d.Enabled,
		); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate devices: %w", err)
	}

	return devices, nil
}

// Insert stores one resource snapshot.
func (r *ResourceRepository) Insert(ctx context.Context, m *models.DeviceResources) error {
	if m == nil {
		return fmt.Errorf("metrics are required")
	}
	if m.DeviceID == 0 {
		return fmt.Errorf("device_id is required")
	}

	query := `
		INSERT INTO resource_metrics (
			device_id,
			timestamp,
			cpu_load_percent,
			total_memory_bytes,
			free_memory_bytes,
			total_storage_bytes,
			free_storage_bytes
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		m.DeviceID,
		m.Timestamp,
		m.CPULoadPercent,
		m.TotalMemoryBytes,
		m.FreeMemoryBytes,
		m.TotalStorageBytes,
		m.FreeStorageBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to insert resource metrics: %w", err)
	}
	return nil
}

// LatestByDevice returns the newest resource snapshot for a device, or nil
// when the device has none yet.
func (r *ResourceRepository) LatestByDevice(ctx context.Context, deviceID int64) (*models.DeviceResources, error) {
	query := `
		SELECT
			device_id,
			timestamp,
			cpu_load_percent,
			total_memory_bytes,
			free_memory_bytes,
			total_storage_bytes,
			free_storage_bytes
		FROM resource_metrics
		WHERE device_id = $1
		ORDER BY timestamp DESC
		LIMIT 1
	`

	var m models.DeviceResources
	var cpu sql.NullFloat64
	var totalMem, freeMem, totalSt, freeSt sql.NullInt64

	err := r.db.QueryRowContext(ctx, query, deviceID).Scan(
		&m.DeviceID,
		&m.Timestamp,
		&cpu,
		&totalMem,
		&freeMem,
		&totalSt,
		&freeSt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest resource metrics: %w", err)
	}

	if cpu.Valid {
		m.CPULoadPercent = &cpu.Float64
	}
	if totalMem.Valid {
		m.TotalMemoryBytes = &totalMem.Int64
	}
	if freeMem.Valid {
		m.FreeMemoryBytes = &freeMem.Int64
	}
	if totalSt.Valid {
		m.TotalStorageBytes = &totalSt.Int64
	}
	if freeSt.Valid {
		m.FreeStorageBytes = &freeSt.Int64
	}

	return &m, nil
}
