package models

import "time"

// AlertStatus is the binary health state of a monitor.
type AlertStatus string

const (
	StatusUp   AlertStatus = "up"
	StatusDown AlertStatus = "down"
)

// AlertState is the persisted alert lifecycle state of one monitor
// (corresponds to the alert_states table, one row per monitor).
//
// Invariants: DownSince is set if and only if Status is down;
// ConsecutiveFailures resets to 0 on any successful observation.
type AlertState struct {
	MonitorID           int64       `json:"monitor_id" db:"monitor_id"`
	Status              AlertStatus `json:"status" db:"status"`
	ConsecutiveFailures int         `json:"consecutive_failures" db:"consecutive_failures"`
	DownSince           *time.Time  `json:"down_since,omitempty" db:"down_since"`
	LastReminderAt      *time.Time  `json:"last_reminder_at,omitempty" db:"last_reminder_at"`
	// MetricHigh tracks whether the last successful observation already
	// exceeded the high-metric threshold, so the high alert only fires on
	// the upward crossing.
	MetricHigh bool      `json:"metric_high" db:"metric_high"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Observation is one probe result. It is transient; only what AlertState
// needs survives it.
type Observation struct {
	Success bool
	// Metric is the RTT in ms for ping monitors and the RX power in dBm for
	// fiber monitors. Nil when the probe could not produce a value.
	Metric *float64
	// TxPowerDBm is only set by fiber probes.
	TxPowerDBm *float64
	Timestamp  time.Time
}

// AlertEventType classifies what the tracker decided.
type AlertEventType string

const (
	EventDown       AlertEventType = "down"
	EventReminder   AlertEventType = "reminder"
	EventRestored   AlertEventType = "restored"
	EventHighMetric AlertEventType = "high_metric"
	EventResource   AlertEventType = "resource"
)

// AlertEvent is an alert decision plus the context the dispatcher needs to
// format and route it (corresponds to the alert_events table).
type AlertEvent struct {
	EventID     string         `json:"event_id" db:"event_id"`
	CompanyID   int64          `json:"company_id" db:"company_id"`
	MonitorID   int64          `json:"monitor_id" db:"monitor_id"`
	DeviceName  string         `json:"device_name" db:"device_name"`
	MonitorName string         `json:"monitor_name" db:"monitor_name"`
	Kind        MonitorKind    `json:"kind" db:"kind"`
	Type        AlertEventType `json:"type" db:"type"`
	// Target is the ping target IP or the fiber interface name.
	Target string `json:"target" db:"target"`

	Metric              *float64      `json:"metric,omitempty" db:"metric"`
	TxPowerDBm          *float64      `json:"tx_power_dbm,omitempty" db:"tx_power_dbm"`
	ConsecutiveFailures int           `json:"consecutive_failures" db:"consecutive_failures"`
	DownSince           *time.Time    `json:"down_since,omitempty" db:"down_since"`
	Duration            time.Duration `json:"duration" db:"duration"`

	// Resources names the exceeded resources for EventResource ("CPU", ...).
	Resources []string `json:"resources,omitempty" db:"-"`

	TriggeredAt time.Time `json:"triggered_at" db:"triggered_at"`
}

// DeviceResources is a snapshot of a router's resource usage
// (corresponds to the resource_metrics table).
type DeviceResources struct {
	DeviceID          int64     `json:"device_id" db:"device_id"`
	CPULoadPercent    *float64  `json:"cpu_load_percent,omitempty" db:"cpu_load_percent"`
	TotalMemoryBytes  *int64    `json:"total_memory_bytes,omitempty" db:"total_memory_bytes"`
	FreeMemoryBytes   *int64    `json:"free_memory_bytes,omitempty" db:"free_memory_bytes"`
	TotalStorageBytes *int64    `json:"total_storage_bytes,omitempty" db:"total_storage_bytes"`
	FreeStorageBytes  *int64    `json:"free_storage_bytes,omitempty" db:"free_storage_bytes"`
	Timestamp         time.Time `json:"timestamp" db:"timestamp"`
}

// MemoryUsedPercent returns memory usage in percent, or nil when unknown.
func (r *DeviceResources) MemoryUsedPercent() *float64 {
	return usedPercent(r.TotalMemoryBytes, r.FreeMemoryBytes)
}

// StorageUsedPercent returns storage usage in percent, or nil when unknown.
func (r *DeviceResources) StorageUsedPercent() *float64 {
	return usedPercent(r.TotalStorageBytes, r.FreeStorageBytes)
}

func usedPercent(total, free *int64) *float64 {
	if total == nil || free == nil || *total <= 0 {
		return nil
	}
	pct := float64(*total-*free) / float64(*total) * 100.0
	return &pct
}
