package registry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zawnaing-2024/Router-Portal/internal/models"
)

// TenantStore reads companies and telegram channel settings. Implemented by
// repository.TenantRepository.
type TenantStore interface {
	ListCompanies(ctx context.Context) ([]models.Company, error)
	GetTelegramSettings(ctx context.Context, companyID int64) (*models.TelegramSettings, error)
}

// MonitorStore reads the monitor configuration. Implemented by
// repository.MonitorRepository.
type MonitorStore interface {
	ListEnabled(ctx context.Context) ([]models.Monitor, error)
}

type cachedSettings struct {
	settings *models.TelegramSettings
	err      error
	fetched  time.Time
}

// Registry is the tenant configuration front for the hot paths. Telegram
// settings are cached for a short TTL so the dispatcher does not hit the
// database once per event; a settings change is picked up within the TTL.
type Registry struct {
	tenants  TenantStore
	monitors MonitorStore
	logger   *zap.Logger

	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	cache map[int64]cachedSettings
}

// Option configures the registry.
type Option func(*Registry)

// WithSettingsTTL overrides the settings cache TTL.
func WithSettingsTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a registry.
func New(tenants TenantStore, monitors MonitorStore, logger *zap.Logger, opts ...Option) *Registry {
	r := &Registry{
		tenants:  tenants,
		monitors: monitors,
		logger:   logger,
		ttl:      30 * time.Second,
		now:      time.Now,
		cache:    make(map[int64]cachedSettings),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TelegramSettings resolves a company's notification channel, serving from
// the cache when fresh. A "not found" result is cached too, so companies
// without a channel do not hammer the database.
func (r *Registry) TelegramSettings(ctx context.Context, companyID int64) (*models.TelegramSettings, error) {
	r.mu.Lock()
	if entry, ok := r.cache[companyID]; ok && r.now().Sub(entry.fetched) < r.ttl {
		r.mu.Unlock()
		return entry.settings, entry.err
	}
	r.mu.Unlock()

	settings, err := r.tenants.GetTelegramSettings(ctx, companyID)

	r.mu.Lock()
	r.cache[companyID] = cachedSettings{settings: settings, err: err, fetched: r.now()}
	r.mu.Unlock()

	return settings, err
}

// Invalidate drops a company's cached settings.
func (r *Registry) Invalidate(companyID int64) {
	r.mu.Lock()
	delete(r.cache, companyID)
	r.mu.Unlock()
}

// ListCompanies returns all companies.
func (r *Registry) ListCompanies(ctx context.Context) ([]models.Company, error) {
	return r.tenants.ListCompanies(ctx)
}

// ListMonitors returns every enabled monitor with its probe credentials.
func (r *Registry) ListMonitors(ctx context.Context) ([]models.Monitor, error) {
	return r.monitors.ListEnabled(ctx)
}
