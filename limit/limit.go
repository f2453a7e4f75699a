// Package limit admits or rejects run triggers per tenant.
//
// Each tenant gets its own token bucket and concurrency slot count, so
// a tenant hammering the trigger API never starves another tenant's
// runs. Tenants without an explicit config fall back to the manager's
// default limits.
package limit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Config defines rate and concurrency limits for one tenant.
type Config struct {
	// TenantID is the tenant this config applies to.
	TenantID string

	// RateLimit is the sustained trigger rate in runs per second.
	// Zero disables rate limiting for the tenant.
	RateLimit float64

	// RateBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int

	// MaxConcurrent limits simultaneous runs for this tenant.
	// Zero means no concurrency limit.
	MaxConcurrent int
}

// tenantState tracks runtime state for a single tenant.
type tenantState struct {
	config  Config
	limiter *rate.Limiter
	active  int
}

func newTenantState(cfg Config) *tenantState {
	ts := &tenantState{config: cfg}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		ts.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return ts
}

// Manager controls per-tenant trigger rate limiting and concurrency.
// It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	defaults Config
	tenants  map[string]*tenantState
}

// NewManager creates a Manager. defaults applies to tenants without an
// explicit config; a zero-value defaults means unlimited.
func NewManager(defaults Config, configs ...Config) *Manager {
	m := &Manager{
		defaults: defaults,
		tenants:  make(map[string]*tenantState, len(configs)),
	}
	for _, cfg := range configs {
		m.tenants[cfg.TenantID] = newTenantState(cfg)
	}
	return m
}

// state returns the tenant's state, lazily materializing one from the
// defaults. Caller holds the lock.
func (m *Manager) state(tenantID string) *tenantState {
	ts := m.tenants[tenantID]
	if ts == nil {
		cfg := m.defaults
		cfg.TenantID = tenantID
		ts = newTenantState(cfg)
		m.tenants[tenantID] = ts
	}
	return ts
}

// Acquire checks rate and concurrency limits for the tenant. If the run
// is allowed to proceed it increments the active counter and returns
// true. The caller MUST call Release when the run completes.
func (m *Manager) Acquire(tenantID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := m.state(tenantID)
	if ts.limiter != nil && !ts.limiter.Allow() {
		return false
	}
	if ts.config.MaxConcurrent > 0 && ts.active >= ts.config.MaxConcurrent {
		return false
	}
	ts.active++
	return true
}

// Release decrements the active run count for the tenant.
func (m *Manager) Release(tenantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ts := m.tenants[tenantID]; ts != nil && ts.active > 0 {
		ts.active--
	}
}

// SetTenantConfig dynamically updates (or creates) a tenant's limits.
// The current active count carries over.
func (m *Manager) SetTenantConfig(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.tenants[cfg.TenantID]
	ts := newTenantState(cfg)
	if existing != nil {
		ts.active = existing.active
	}
	m.tenants[cfg.TenantID] = ts
}

// ActiveCount returns the current number of active runs for a tenant.
func (m *Manager) ActiveCount(tenantID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ts := m.tenants[tenantID]; ts != nil {
		return ts.active
	}
	return 0
}
