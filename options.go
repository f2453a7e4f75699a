package beema

import (
	"context"
	"log/slog"
)

// Option configures a Platform.
type Option func(*Platform) error

// Storer is the minimal store interface held by the Platform.
// It covers lifecycle operations only. The full composite interface
// (store.Store) is used in subsystem layers that don't create import
// cycles. Implementations satisfy store.Store which embeds all
// subsystem stores.
type Storer interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// schedulerRunner is an internal interface for the cron scheduler lifecycle.
type schedulerRunner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// extensionEmitter is an internal interface for extension lifecycle events.
type extensionEmitter interface {
	EmitShutdown(ctx context.Context)
}

// Platform is the central coordinator for the temporal core: versioned
// entities, layout resolution, and batch pipeline execution.
//
// Create one with New() and functional options. The Platform holds
// references to subsystem components via internal interfaces to avoid
// import cycles. Use the engine package to wire everything together.
type Platform struct {
	config     Config
	logger     *slog.Logger
	store      Storer
	extensions extensionEmitter
	scheduler  schedulerRunner

	// started tracks whether Start has been called.
	started bool
}

// New creates a new Platform with the given options.
func New(opts ...Option) (*Platform, error) {
	p := &Platform{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Logger returns the platform's logger.
func (p *Platform) Logger() *slog.Logger { return p.logger }

// Store returns the platform's store.
func (p *Platform) Store() Storer { return p.store }

// Config returns a copy of the platform's configuration.
func (p *Platform) Config() Config { return p.config }

// SetScheduler sets the cron scheduler (called by the engine package).
func (p *Platform) SetScheduler(s schedulerRunner) { p.scheduler = s }

// SetExtensions sets the extension emitter (called by the engine package).
func (p *Platform) SetExtensions(e extensionEmitter) { p.extensions = e }

// Start begins scheduled pipeline triggering. It is a no-op when no
// scheduler has been wired; triggered and ad hoc operations work without it.
func (p *Platform) Start(ctx context.Context) error {
	if p.store == nil {
		return ErrNoStore
	}
	if p.scheduler != nil {
		if err := p.scheduler.Start(ctx); err != nil {
			return err
		}
	}
	p.started = true
	return nil
}

// Stop gracefully shuts down the platform.
func (p *Platform) Stop(ctx context.Context) error {
	if p.scheduler != nil && p.started {
		if err := p.scheduler.Stop(ctx); err != nil {
			p.logger.Error("scheduler stop error", "error", err)
		}
	}
	if p.extensions != nil {
		p.extensions.EmitShutdown(ctx)
	}
	if p.store != nil {
		return p.store.Close()
	}
	return nil
}

// WithConflictRetries sets the bounded retry count for version conflicts.
func WithConflictRetries(n int) Option {
	return func(p *Platform) error {
		p.config.ConflictRetries = n
		return nil
	}
}

// WithDefaultChunkSize sets the chunk size used by specs that leave it unset.
func WithDefaultChunkSize(n int) Option {
	return func(p *Platform) error {
		p.config.DefaultChunkSize = n
		return nil
	}
}

// WithConfig replaces the entire configuration.
func WithConfig(cfg Config) Option {
	return func(p *Platform) error {
		p.config = cfg
		return nil
	}
}

// WithLogger sets the structured logger for the platform.
func WithLogger(l *slog.Logger) Option {
	return func(p *Platform) error {
		p.logger = l
		return nil
	}
}

// WithStore sets the persistence backend for the platform.
// The store must implement Storer at minimum; typically it will be a
// store.Store which embeds all subsystem store interfaces.
func WithStore(s Storer) Option {
	return func(p *Platform) error {
		p.store = s
		return nil
	}
}
