package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/zawnaing-2024/Router-Portal/internal/models"
)

// FormatEvent renders an alert event as the HTML message sent to the
// company's telegram group.
func FormatEvent(event *models.AlertEvent, settings *models.TelegramSettings) string {
	switch event.Type {
	case models.EventDown:
		return formatDown(event)
	case models.EventReminder:
		return formatReminder(event)
	case models.EventRestored:
		return formatRestored(event)
	case models.EventHighMetric:
		return formatHighMetric(event, settings)
	case models.EventResource:
		return formatResource(event, settings)
	default:
		return fmt.Sprintf("<b>Alert</b>\nDevice: %s\nMonitor: %s", event.DeviceName, event.MonitorName)
	}
}

func formatDown(event *models.AlertEvent) string {
	if event.Kind == models.MonitorFiber {
		return fmt.Sprintf(
			"<b>🔴 Fiber DOWN</b>\n"+
				"Device: %s\n"+
				"Monitor: %s\n"+
				"Interface: %s\n"+
				"Status: DOWN\n"+
				"Down since: %s",
			event.DeviceName, event.MonitorName, event.Target,
			formatTime(event.DownSince),
		)
	}
	return fmt.Sprintf(
		"<b>🔴 Ping DOWN</b>\n"+
			"Device: %s\n"+
			"Monitor: %s\n"+
			"Target: %s\n"+
			"Down since: %s\n"+
			"Consecutive timeouts: %d",
		event.DeviceName, event.MonitorName, event.Target,
		formatTime(event.DownSince), event.ConsecutiveFailures,
	)
}

func formatReminder(event *models.AlertEvent) string {
	kind := "Ping"
	target := fmt.Sprintf("Target: %s", event.Target)
	if event.Kind == models.MonitorFiber {
		kind = "Fiber"
		target = fmt.Sprintf("Interface: %s", event.Target)
	}
	return fmt.Sprintf(
		"<b>🔴 %s STILL DOWN</b>\n"+
			"Device: %s\n"+
			"Monitor: %s\n"+
			"%s\n"+
			"Down since: %s\n"+
			"Duration: %d minutes",
		kind, event.DeviceName, event.MonitorName, target,
		formatTime(event.DownSince), int(event.Duration.Minutes()),
	)
}

func formatRestored(event *models.AlertEvent) string {
	duration := ""
	if event.Duration > 0 {
		duration = fmt.Sprintf(" (duration %s)", formatDuration(event.Duration))
	}

	if event.Kind == models.MonitorFiber {
		return fmt.Sprintf(
			"<b>🟢 Fiber RESTORED</b>\n"+
				"Device: %s\n"+
				"Monitor: %s\n"+
				"Interface: %s\n"+
				"Status: UP\n"+
				"Rx Power: %s\n"+
				"Tx Power: %s%s",
			event.DeviceName, event.MonitorName, event.Target,
			formatDBm(event.Metric), formatDBm(event.TxPowerDBm), duration,
		)
	}

	rtt := "-"
	if event.Metric != nil {
		rtt = fmt.Sprintf("%.1f ms", *event.Metric)
	}
	return fmt.Sprintf(
		"<b>🟢 Ping RESTORED</b>\n"+
			"Device: %s\n"+
			"Monitor: %s\n"+
			"Target: %s\n"+
			"RTT: %s%s",
		event.DeviceName, event.MonitorName, event.Target, rtt, duration,
	)
}

func formatHighMetric(event *models.AlertEvent, settings *models.TelegramSettings) string {
	rtt := "-"
	if event.Metric != nil {
		rtt = fmt.Sprintf("%.1f ms", *event.Metric)
	}
	threshold := 0
	if settings != nil {
		threshold = settings.HighPingThresholdMs
	}
	return fmt.Sprintf(
		"<b>⚠️ High Ping Alert</b>\n"+
			"Device: %s\n"+
			"Monitor: %s\n"+
			"Target: %s\n"+
			"RTT: %s (threshold: %d ms)\n"+
			"Time: %s",
		event.DeviceName, event.MonitorName, event.Target, rtt, threshold,
		formatTime(&event.TriggeredAt),
	)
}

func formatResource(event *models.AlertEvent, settings *models.TelegramSettings) string {
	threshold := 0.0
	if event.Metric != nil {
		threshold = *event.Metric
	}
	return fmt.Sprintf(
		"<b>Resource Alert</b>\n"+
			"Device: %s (%s)\n"+
			"Exceeded: %s >= %.0f%%",
		event.DeviceName, event.Target,
		strings.Join(event.Resources, ", "), threshold,
	)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "now"
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

func formatDuration(d time.Duration) string {
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", mins, secs)
}

func formatDBm(v *float64) string {
	if v == nil {
		return "Unknown"
	}
	return fmt.Sprintf("%.2f dBm", *v)
}
