package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config is the full alert service configuration.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig

	// Alert lifecycle thresholds. HighPingThresholdMs is the global default;
	// a company's telegram settings may override it.
	Alert struct {
		PingFailureThreshold  int
		FiberFailureThreshold int
		ReminderInterval      time.Duration
		HighPingThresholdMs   int
	}

	// Probe scheduling intervals. Per-monitor interval_seconds wins when set.
	Schedule struct {
		PingInterval           time.Duration
		FiberInterval          time.Duration
		MonitorRefreshInterval time.Duration
		ResourcePollInterval   time.Duration
		ReportCheckInterval    time.Duration
	}

	// Probe transport (RouterOS REST API).
	Probe struct {
		Timeout     time.Duration
		TLSInsecure bool
	}

	// Telegram dispatcher sizing.
	Dispatch struct {
		Workers         int
		QueueSize       int
		TelegramTimeout time.Duration
	}

	// Redis realtime cache keys, e.g. "router-portal:monitor:<id>:realtime".
	Cache struct {
		RealtimeKeyPrefix string
		RealtimeSuffix    string
		RealtimeTTL       time.Duration
	}

	// Resource usage alert threshold (percent of CPU/RAM/storage).
	Resource struct {
		ThresholdPercent float64
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads the configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "routerportal")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.Alert.PingFailureThreshold = getEnvInt("PING_FAILURE_THRESHOLD", 5)
	cfg.Alert.FiberFailureThreshold = getEnvInt("FIBER_FAILURE_THRESHOLD", 1)
	cfg.Alert.ReminderInterval = getEnvDuration("REMINDER_INTERVAL", 30*time.Minute)
	cfg.Alert.HighPingThresholdMs = getEnvInt("HIGH_PING_THRESHOLD_MS", 90)

	cfg.Schedule.PingInterval = getEnvDuration("PING_INTERVAL", 10*time.Second)
	cfg.Schedule.FiberInterval = getEnvDuration("FIBER_INTERVAL", time.Minute)
	cfg.Schedule.MonitorRefreshInterval = getEnvDuration("MONITOR_REFRESH_INTERVAL", 30*time.Second)
	cfg.Schedule.ResourcePollInterval = getEnvDuration("RESOURCE_POLL_INTERVAL", 5*time.Minute)
	cfg.Schedule.ReportCheckInterval = getEnvDuration("REPORT_CHECK_INTERVAL", time.Minute)

	cfg.Probe.Timeout = getEnvDuration("PROBE_TIMEOUT", 5*time.Second)
	cfg.Probe.TLSInsecure = getEnvBool("PROBE_TLS_INSECURE", true)

	cfg.Dispatch.Workers = getEnvInt("DISPATCH_WORKERS", 4)
	cfg.Dispatch.QueueSize = getEnvInt("DISPATCH_QUEUE_SIZE", 256)
	cfg.Dispatch.TelegramTimeout = getEnvDuration("TELEGRAM_TIMEOUT", 5*time.Second)

	cfg.Cache.RealtimeKeyPrefix = getEnv("CACHE_REALTIME_PREFIX", "router-portal:monitor:")
	cfg.Cache.RealtimeSuffix = ":realtime"
	cfg.Cache.RealtimeTTL = getEnvDuration("CACHE_REALTIME_TTL", 5*time.Minute)

	cfg.Resource.ThresholdPercent = getEnvFloat("RESOURCE_THRESHOLD_PERCENT", 80)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
