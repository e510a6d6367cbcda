package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "routerportal", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "", cfg.Redis.Password)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, 5, cfg.Alert.PingFailureThreshold)
	assert.Equal(t, 1, cfg.Alert.FiberFailureThreshold)
	assert.Equal(t, 30*time.Minute, cfg.Alert.ReminderInterval)
	assert.Equal(t, 90, cfg.Alert.HighPingThresholdMs)

	assert.Equal(t, 10*time.Second, cfg.Schedule.PingInterval)
	assert.Equal(t, time.Minute, cfg.Schedule.FiberInterval)
	assert.Equal(t, 30*time.Second, cfg.Schedule.MonitorRefreshInterval)
	assert.Equal(t, 5*time.Minute, cfg.Schedule.ResourcePollInterval)

	assert.Equal(t, 4, cfg.Dispatch.Workers)
	assert.Equal(t, 256, cfg.Dispatch.QueueSize)
	assert.Equal(t, 5*time.Second, cfg.Dispatch.TelegramTimeout)

	assert.Equal(t, "router-portal:monitor:", cfg.Cache.RealtimeKeyPrefix)
	assert.Equal(t, ":realtime", cfg.Cache.RealtimeSuffix)

	assert.Equal(t, 80.0, cfg.Resource.ThresholdPercent)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_PORT", "6543")
	os.Setenv("DB_NAME", "test-db")
	os.Setenv("REDIS_ADDR", "test-redis:6380")
	os.Setenv("PING_FAILURE_THRESHOLD", "3")
	os.Setenv("REMINDER_INTERVAL", "15m")
	os.Setenv("HIGH_PING_THRESHOLD_MS", "120")
	os.Setenv("PING_INTERVAL", "2s")
	os.Setenv("DISPATCH_WORKERS", "8")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("LOG_FORMAT", "console")
	defer os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "test-db", cfg.Database.Database)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Alert.PingFailureThreshold)
	assert.Equal(t, 15*time.Minute, cfg.Alert.ReminderInterval)
	assert.Equal(t, 120, cfg.Alert.HighPingThresholdMs)
	assert.Equal(t, 2*time.Second, cfg.Schedule.PingInterval)
	assert.Equal(t, 8, cfg.Dispatch.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PORT", "not-a-number")
	os.Setenv("REMINDER_INTERVAL", "soon")
	os.Setenv("PROBE_TLS_INSECURE", "maybe")
	defer os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 30*time.Minute, cfg.Alert.ReminderInterval)
	assert.True(t, cfg.Probe.TLSInsecure)
}
