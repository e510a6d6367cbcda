package probe

import (
	"context"

	"github.com/zawnaing-2024/Router-Portal/internal/models"
)

// Prober runs health checks through a router's management API. A failed
// check is a normal down observation, never an error; only resource
// snapshots distinguish "could not fetch" from data.
type Prober interface {
	// Ping asks the router to ping the monitor's target IP and reports the
	// RTT in ms.
	Ping(ctx context.Context, monitor models.Monitor) models.Observation
	// FiberStatus reads the monitor's optical interface link state and
	// RX/TX power.
	FiberStatus(ctx context.Context, monitor models.Monitor) models.Observation
	// Resources fetches the router's CPU/memory/storage usage.
	Resources(ctx context.Context, device models.Device) (*models.DeviceResources, error)
}
