package beema

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds configuration for the Platform.
type Config struct {
	// ConflictRetries is the maximum number of times a superseding write is
	// retried after a concurrent version race before the conflict surfaces.
	ConflictRetries int `env:"BEEMA_CONFLICT_RETRIES"`

	// DefaultChunkSize is used for job specs that do not set a chunk size.
	DefaultChunkSize int `env:"BEEMA_DEFAULT_CHUNK_SIZE"`

	// TriggerRate is the sustained per-tenant trigger rate (runs per second).
	TriggerRate float64 `env:"BEEMA_TRIGGER_RATE"`

	// TriggerBurst is the per-tenant trigger burst allowance.
	TriggerBurst int `env:"BEEMA_TRIGGER_BURST"`

	// MaxRunsPerTenant caps concurrent pipeline runs for a single tenant.
	// Runs for distinct tenants never contend.
	MaxRunsPerTenant int `env:"BEEMA_MAX_RUNS_PER_TENANT"`

	// CacheTTL is how long resolved layouts stay in the cache.
	CacheTTL time.Duration `env:"BEEMA_CACHE_TTL"`

	// TickInterval is how often the cron scheduler checks for due entries.
	TickInterval time.Duration `env:"BEEMA_TICK_INTERVAL"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConflictRetries:  5,
		DefaultChunkSize: 100,
		TriggerRate:      10,
		TriggerBurst:     5,
		MaxRunsPerTenant: 4,
		CacheTTL:         5 * time.Minute,
		TickInterval:     15 * time.Second,
	}
}

// ConfigFromEnv returns DefaultConfig overridden by BEEMA_* environment
// variables.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("beema: parse env: %w", err)
	}
	return cfg, nil
}
