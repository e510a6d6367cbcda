package models

import "time"

// MonitorKind distinguishes what a monitor watches on a router.
type MonitorKind string

const (
	MonitorPing  MonitorKind = "ping"  // RTT to a target IP
	MonitorFiber MonitorKind = "fiber" // optical interface status and power
)

// Company is the tenant boundary. A company owns devices, monitors and one
// telegram channel; nothing crosses company lines.
type Company struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Device is a managed router reachable over the RouterOS REST API.
type Device struct {
	ID        int64  `json:"id" db:"id"`
	CompanyID int64  `json:"company_id" db:"company_id"`
	Name      string `json:"name" db:"name"`
	Host      string `json:"host" db:"host"`
	Port      int    `json:"port" db:"port"`
	Username  string `json:"username" db:"username"`
	Password  string `json:"-" db:"password"`
	Enabled   bool   `json:"enabled" db:"enabled"`
}

// Monitor is one monitored target: a ping check against an IP or a fiber
// check against an optical interface. Device credentials are denormalized in
// so the probe never needs a second lookup.
type Monitor struct {
	ID         int64       `json:"id" db:"id"`
	CompanyID  int64       `json:"company_id" db:"company_id"`
	DeviceID   int64       `json:"device_id" db:"device_id"`
	DeviceName string      `json:"device_name" db:"device_name"`
	Name       string      `json:"name" db:"name"`
	Kind       MonitorKind `json:"kind" db:"kind"`

	// ping monitors
	TargetIP string `json:"target_ip,omitempty" db:"target_ip"`
	// fiber monitors, e.g. "sfp1"
	InterfaceName string `json:"interface_name,omitempty" db:"interface_name"`

	// IntervalSeconds overrides the global probe interval when > 0.
	IntervalSeconds int `json:"interval_seconds" db:"interval_seconds"`
	// FailureThreshold overrides the global consecutive-failure threshold when > 0.
	FailureThreshold int `json:"failure_threshold" db:"failure_threshold"`

	// probe transport, from the owning device
	Host     string `json:"host" db:"host"`
	Port     int    `json:"port" db:"port"`
	Username string `json:"username" db:"username"`
	Password string `json:"-" db:"password"`
}

// TelegramSettings is a company's notification channel configuration
// (corresponds to the company_telegram_settings table).
type TelegramSettings struct {
	CompanyID             int64      `json:"company_id" db:"company_id"`
	BotToken              string     `json:"-" db:"bot_token"`
	ChatID                string     `json:"chat_id" db:"chat_id"`
	GroupName             string     `json:"group_name" db:"group_name"`
	Enabled               bool       `json:"enabled" db:"enabled"`
	PingDownAlerts        bool       `json:"ping_down_alerts" db:"ping_down_alerts"`
	FiberDownAlerts       bool       `json:"fiber_down_alerts" db:"fiber_down_alerts"`
	HighPingAlerts        bool       `json:"high_ping_alerts" db:"high_ping_alerts"`
	RestoreAlerts         bool       `json:"restore_alerts" db:"restore_alerts"`
	HighPingThresholdMs   int        `json:"high_ping_threshold_ms" db:"high_ping_threshold_ms"`
	ReportIntervalMinutes int        `json:"report_interval_minutes" db:"report_interval_minutes"`
	LastReportSentAt      *time.Time `json:"last_report_sent_at,omitempty" db:"last_report_sent_at"`
}

// Deliverable reports whether the channel can send anything at all.
func (s *TelegramSettings) Deliverable() bool {
	return s != nil && s.Enabled && s.BotToken != "" && s.ChatID != ""
}
