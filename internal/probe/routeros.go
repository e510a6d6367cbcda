package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/zawnaing-2024/Router-Portal/internal/config"
	"github.com/zawnaing-2024/Router-Portal/internal/models"
)

// RouterOSProber runs checks over the RouterOS v7 REST API. The router
// itself performs the ping, so RTT is measured from the customer edge and
// not from this service.
type RouterOSProber struct {
	client *resty.Client
	scheme string
	logger *zap.Logger
	now    func() time.Time
}

// Option configures the prober.
type Option func(*RouterOSProber)

// WithScheme overrides the API scheme (tests use plain http).
func WithScheme(scheme string) Option {
	return func(p *RouterOSProber) {
		if scheme != "" {
			p.scheme = scheme
		}
	}
}

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(p *RouterOSProber) {
		if now != nil {
			p.now = now
		}
	}
}

// NewRouterOSProber creates the prober. Routers typically run self-signed
// certificates, so TLS verification follows the config flag.
func NewRouterOSProber(cfg *config.Config, logger *zap.Logger, opts ...Option) *RouterOSProber {
	client := resty.New().
		SetTimeout(cfg.Probe.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Probe.TLSInsecure {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	p := &RouterOSProber{
		client: client,
		scheme: "https",
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type pingReply struct {
	Host       string `json:"host"`
	Time       string `json:"time"`
	Status     string `json:"status"`
	PacketLoss string `json:"packet-loss"`
}

// Ping runs /rest/ping on the router with a single packet.
func (p *RouterOSProber) Ping(ctx context.Context, monitor models.Monitor) models.Observation {
	obs := models.Observation{Timestamp: p.now()}

	var replies []pingReply
	resp, err := p.client.R().
		SetContext(ctx).
		SetBasicAuth(monitor.Username, monitor.Password).
		SetBody(map[string]string{"address": monitor.TargetIP, "count": "1"}).
		SetResult(&replies).
		Post(p.baseURL(monitor.Host, monitor.Port) + "/rest/ping")
	if err != nil || resp.StatusCode() >= 300 {
		p.logProbeFailure("ping", monitor.Host, resp, err)
		return obs
	}

	for _, reply := range replies {
		if reply.Status != "" || reply.Time == "" {
			continue
		}
		// RouterOS reports RTT like "11ms852us", which is a valid Go
		// duration string.
		d, err := time.ParseDuration(reply.Time)
		if err != nil {
			continue
		}
		rtt := float64(d.Microseconds()) / 1000.0
		obs.Success = true
		obs.Metric = &rtt
		return obs
	}
	return obs
}

type sfpMonitorReply struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	RxPower string `json:"sfp-rx-power"`
	TxPower string `json:"sfp-tx-power"`
}

// FiberStatus runs /rest/interface/ethernet/monitor once for the monitor's
// SFP interface.
func (p *RouterOSProber) FiberStatus(ctx context.Context, monitor models.Monitor) models.Observation {
	obs := models.Observation{Timestamp: p.now()}

	var replies []sfpMonitorReply
	resp, err := p.client.R().
		SetContext(ctx).
		SetBasicAuth(monitor.Username, monitor.Password).
		SetBody(map[string]string{"numbers": monitor.InterfaceName, "once": "true"}).
		SetResult(&replies).
		Post(p.baseURL(monitor.Host, monitor.Port) + "/rest/interface/ethernet/monitor")
	if err != nil || resp.StatusCode() >= 300 {
		p.logProbeFailure("fiber", monitor.Host, resp, err)
		return obs
	}

	for _, reply := range replies {
		if reply.Name != "" && reply.Name != monitor.InterfaceName {
			continue
		}
		obs.Success = reply.Status == "link-ok"
		if rx, err := strconv.ParseFloat(reply.RxPower, 64); err == nil {
			obs.Metric = &rx
		}
		if tx, err := strconv.ParseFloat(reply.TxPower, 64); err == nil {
			obs.TxPowerDBm = &tx
		}
		return obs
	}
	return obs
}

type systemResourceReply struct {
	CPULoad       string `json:"cpu-load"`
	TotalMemory   string `json:"total-memory"`
	FreeMemory    string `json:"free-memory"`
	TotalHDDSpace string `json:"total-hdd-space"`
	FreeHDDSpace  string `json:"free-hdd-space"`
}

// Resources reads /rest/system/resource.
func (p *RouterOSProber) Resources(ctx context.Context, device models.Device) (*models.DeviceResources, error) {
	var reply systemResourceReply
	resp, err := p.client.R().
		SetContext(ctx).
		SetBasicAuth(device.Username, device.Password).
		SetResult(&reply).
		Get(p.baseURL(device.Host, device.Port) + "/rest/system/resource")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch system resources: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("system resource request returned status %d", resp.StatusCode())
	}

	res := &models.DeviceResources{
		DeviceID:  device.ID,
		Timestamp: p.now(),
	}
	res.CPULoadPercent = parseFloatPtr(reply.CPULoad)
	res.TotalMemoryBytes = parseIntPtr(reply.TotalMemory)
	res.FreeMemoryBytes = parseIntPtr(reply.FreeMemory)
	res.TotalStorageBytes = parseIntPtr(reply.TotalHDDSpace)
	res.FreeStorageBytes = parseIntPtr(reply.FreeHDDSpace)
	return res, nil
}

func (p *RouterOSProber) baseURL(host string, port int) string {
	if port > 0 {
		return fmt.Sprintf("%s://%s:%d", p.scheme, host, port)
	}
	return fmt.Sprintf("%s://%s", p.scheme, host)
}

func (p *RouterOSProber) logProbeFailure(kind, host string, resp *resty.Response, err error) {
	fields := []zap.Field{
		zap.String("kind", kind),
		zap.String("host", host),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	} else if resp != nil {
		fields = append(fields, zap.Int("status_code", resp.StatusCode()))
	}
	p.logger.Debug("Probe request failed", fields...)
}

func parseFloatPtr(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseIntPtr(s string) *int64 {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
