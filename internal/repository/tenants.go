package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zawnaing-2024/Router-Portal/internal/models"
)

// ErrSettingsNotFound is returned when a company has no telegram channel
// configured.
var ErrSettingsNotFound = fmt.Errorf("telegram settings not found")

// TenantRepository reads companies and their telegram channel settings
// (companies and company_telegram_settings tables).
type TenantRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTenantRepository creates the tenant repository.
func NewTenantRepository(db *sql.DB, logger *zap.Logger) *TenantRepository {
	return &TenantRepository{
		db:     db,
		logger: logger,
	}
}

// ListCompanies returns all companies.
func (r *TenantRepository) ListCompanies(ctx context.Context) ([]models.Company, error) {
	query := `SELECT id, name FROM companies ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []models.Company
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate companies: %w", err)
	}

	return companies, nil
}

// GetTelegramSettings returns a company's notification channel settings.
func (r *TenantRepository) GetTelegramSettings(ctx context.Context, companyID int64) (*models.TelegramSettings, error) {
	if companyID == 0 {
		return nil, fmt.Errorf("company_id is required")
	}

	query := `
		SELECT
			company_id,
			COALESCE(bot_token, ''),
			COALESCE(chat_id, ''),
			COALESCE(group_name, ''),
			enabled,
			ping_down_alerts,
			fiber_down_alerts,
			high_ping_alerts,
			restore_alerts,
			high_ping_threshold_ms,
			report_interval_minutes,
			last_report_sent_at
		FROM company_telegram_settings
		WHERE company_id = $1
	`

	var s models.TelegramSettings
	var lastReport sql.NullTime

	err := r.db.QueryRowContext(ctx, query, companyID).Scan(
		&s.CompanyID,
		&s.BotToken,
		&s.ChatID,
		&s.GroupName,
		&s.Enabled,
		&s.PingDownAlerts,
		&s.FiberDownAlerts,
		&s.HighPingAlerts,
		&s.RestoreAlerts,
		&s.HighPingThresholdMs,
		&s.ReportIntervalMinutes,
		&lastReport,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to get telegram settings: %w", err)
	}

	if lastReport.Valid {
		s.LastReportSentAt = &lastReport.Time
	}

	return &s, nil
}

// UpdateLastReportSent advances a company's report clock after a successful
// report delivery.
func (r *TenantRepository) UpdateLastReportSent(ctx context.Context, companyID int64, sentAt time.Time) error {
	if companyID == 0 {
		return fmt.Errorf("company_id is required")
	}

	query := `
		UPDATE company_telegram_settings
		SET last_report_sent_at = $2
		WHERE company_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, companyID, sentAt)
	if err != nil {
		return fmt.Errorf("failed to update last report time: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrSettingsNotFound
	}

	return nil
}
