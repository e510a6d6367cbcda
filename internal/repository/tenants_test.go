package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTenantRepository_GetTelegramSettings(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	lastReport := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"company_id", "bot_token", "chat_id", "group_name", "enabled",
		"ping_down_alerts", "fiber_down_alerts", "high_ping_alerts",
		"restore_alerts", "high_ping_threshold_ms", "report_interval_minutes",
		"last_report_sent_at",
	}).AddRow(int64(10), "123:token", "-100200300", "NOC Group", true,
		true, true, false, true, 120, 60, lastReport)

	mock.ExpectQuery(`SELECT(.|\s)+FROM company_telegram_settings`).
		WithArgs(int64(10)).
		WillReturnRows(rows)

	repo := NewTenantRepository(db, zap.NewNop())
	settings, err := repo.GetTelegramSettings(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, int64(10), settings.CompanyID)
	assert.Equal(t, "123:token", settings.BotToken)
	assert.Equal(t, "-100200300", settings.ChatID)
	assert.True(t, settings.Enabled)
	assert.True(t, settings.PingDownAlerts)
	assert.False(t, settings.HighPingAlerts)
	assert.Equal(t, 120, settings.HighPingThresholdMs)
	require.NotNil(t, settings.LastReportSentAt)
	assert.Equal(t, lastReport, *settings.LastReportSentAt)
	assert.True(t, settings.Deliverable())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTenantRepository_GetTelegramSettings_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT(.|\s)+FROM company_telegram_settings`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"company_id"}))

	repo := NewTenantRepository(db, zap.NewNop())
	_, err = repo.GetTelegramSettings(context.Background(), 99)
	assert.ErrorIs(t, err, ErrSettingsNotFound)
}

func TestTenantRepository_UpdateLastReportSent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sentAt := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(`UPDATE company_telegram_settings`).
		WithArgs(int64(10), sentAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewTenantRepository(db, zap.NewNop())
	require.NoError(t, repo.UpdateLastReportSent(context.Background(), 10, sentAt))
	require.NoError(t, mock.ExpectationsWereMet())
}
