// Package engine wires all beema subsystems together. It creates the
// extension registry, transform registry, middleware chain, pipeline
// runner, and cron scheduler, and provides Trigger/ResolveLayout/Versions
// operations.
//
// This package exists to break the import cycle: the root beema package
// defines Entity (imported by version, pipeline, etc.) and so cannot
// import those packages back. The engine package sits above all subsystem
// packages and below the application layer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	beema "github.com/prabhatkmr/beema-sub003"
	"github.com/prabhatkmr/beema-sub003/blob"
	"github.com/prabhatkmr/beema-sub003/cron"
	"github.com/prabhatkmr/beema-sub003/export"
	"github.com/prabhatkmr/beema-sub003/ext"
	"github.com/prabhatkmr/beema-sub003/id"
	"github.com/prabhatkmr/beema-sub003/layout"
	"github.com/prabhatkmr/beema-sub003/limit"
	mw "github.com/prabhatkmr/beema-sub003/middleware"
	"github.com/prabhatkmr/beema-sub003/observability"
	"github.com/prabhatkmr/beema-sub003/pipeline"
	"github.com/prabhatkmr/beema-sub003/script"
	"github.com/prabhatkmr/beema-sub003/store"
	"github.com/prabhatkmr/beema-sub003/version"
)

// extArtifactEmitter adapts *ext.Registry to satisfy export.Emitter.
// This breaks the import cycle: export defines the interface, ext.Registry
// provides the implementation, and the engine layer plugs them together.
type extArtifactEmitter struct {
	r *ext.Registry
}

func (a *extArtifactEmitter) EmitArtifactFlushed(ctx context.Context, run *pipeline.Run, key string, rows int) {
	a.r.EmitArtifactFlushed(ctx, run, key, rows)
}

// Engine wraps a Platform with typed subsystem access.
// Use Build() to create one from a Platform.
type Engine struct {
	p          *beema.Platform
	extensions *ext.Registry
	transforms *pipeline.Registry
	store      store.Store
	runner     *pipeline.Runner
	limiter    *limit.Manager
	blobs      blob.Store
	chain      mw.Middleware
	mws        []mw.Middleware
	logger     *slog.Logger

	// Version subsystem: one Service per entity type, created lazily.
	svcMu     sync.Mutex
	services  map[string]*version.Service
	contracts map[string]*version.Contract

	// Layout cache (optional; nil means every resolve hits the store).
	layoutCache layout.Cache

	// Cron subsystem.
	scheduler *cron.Scheduler

	// Tenant admission overrides beyond the config defaults.
	limitConfigs []limit.Config

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) {
		eng.extensions.Register(e)
	}
}

// WithMiddleware adds middleware to the engine's chain.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) {
		eng.mws = append(eng.mws, m)
	}
}

// WithBlobStore sets the artifact store used by export jobs.
// If not set, an in-memory store is used.
func WithBlobStore(s blob.Store) Option {
	return func(eng *Engine) {
		eng.blobs = s
	}
}

// WithLayoutCache enables cache-aside layout resolution.
func WithLayoutCache(c layout.Cache) Option {
	return func(eng *Engine) {
		eng.layoutCache = c
	}
}

// WithContract sets the payload contract enforced for an entity type.
func WithContract(entityType string, c *version.Contract) Option {
	return func(eng *Engine) {
		eng.contracts[entityType] = c
	}
}

// WithTenantLimit overrides the admission limits for specific tenants.
// Tenants not listed use the config defaults.
func WithTenantLimit(configs ...limit.Config) Option {
	return func(eng *Engine) {
		eng.limitConfigs = append(eng.limitConfigs, configs...)
	}
}

// WithTracerProvider sets a custom OTel TracerProvider for the engine.
// When set, the tracing middleware uses this provider instead of the global one.
// If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) {
		eng.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom OTel MeterProvider for the engine.
// When set, both the metrics middleware and the observability extension
// use this provider instead of the global one.
// If not set, the global otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) {
		eng.meterProvider = mp
	}
}

// Build creates an Engine from an existing Platform.
// The Platform's store must implement store.Store.
func Build(p *beema.Platform, opts ...Option) (*Engine, error) {
	logger := p.Logger()

	if p.Store() == nil {
		return nil, beema.ErrNoStore
	}

	// Type-assert the store to get the full composite interface.
	st, ok := p.Store().(store.Store)
	if !ok {
		return nil, fmt.Errorf("beema: store does not implement store.Store")
	}

	eng := &Engine{
		p:          p,
		extensions: ext.NewRegistry(logger),
		transforms: pipeline.NewRegistry(),
		store:      st,
		services:   make(map[string]*version.Service),
		contracts:  make(map[string]*version.Contract),
		logger:     logger,
	}

	for _, opt := range opts {
		opt(eng)
	}

	config := p.Config()

	if eng.blobs == nil {
		eng.blobs = blob.NewMemory()
	}

	// Per-tenant admission control.
	defaults := limit.Config{
		RateLimit:     config.TriggerRate,
		RateBurst:     config.TriggerBurst,
		MaxConcurrent: config.MaxRunsPerTenant,
	}
	eng.limiter = limit.NewManager(defaults, eng.limitConfigs...)

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracer := eng.tracerProvider.Tracer("github.com/prabhatkmr/beema-sub003")
		tracingMw = mw.TracingWithTracer(tracer)
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		meter := eng.meterProvider.Meter("github.com/prabhatkmr/beema-sub003")
		metricsMw = mw.MetricsWithMeter(meter)
	} else {
		metricsMw = mw.Metrics()
	}

	// Register the observability metrics extension.
	var obsExt *observability.MetricsExtension
	if eng.meterProvider != nil {
		meter := eng.meterProvider.Meter("github.com/prabhatkmr/beema-sub003/observability")
		obsExt = observability.NewMetricsExtensionWithMeter(meter)
	} else {
		obsExt = observability.NewMetricsExtension()
	}
	eng.extensions.Register(obsExt)

	// Build default middleware stack: recover → tracing → metrics → logging → scope.
	defaultMws := []mw.Middleware{
		mw.Recover(logger),
		tracingMw,
		metricsMw,
		mw.Logging(logger),
		mw.Scope(),
	}
	allMws := make([]mw.Middleware, 0, len(defaultMws)+len(eng.mws))
	allMws = append(allMws, defaultMws...)
	allMws = append(allMws, eng.mws...)
	eng.chain = mw.Chain(allMws...)

	// The resolver handles "lua:" refs inline and delegates named refs to
	// the transform registry.
	resolver := script.NewResolver(eng.transforms)

	sinkFactory := export.NewSinkFactory(eng.blobs,
		export.WithEmitter(&extArtifactEmitter{r: eng.extensions}),
		export.WithLogger(logger),
	)

	eng.runner = pipeline.NewRunner(st, resolver,
		pipeline.WithDefaultChunkSize(config.DefaultChunkSize),
		pipeline.WithExportSink(sinkFactory),
		pipeline.WithEmitter(eng.extensions),
		pipeline.WithLogger(logger),
	)

	// Create the cron scheduler. Due entries trigger runs through the
	// same admission and middleware path as ad hoc triggers.
	trigger := func(ctx context.Context, jobName, _ string, params pipeline.Params) (pipeline.Summary, error) {
		return eng.Trigger(ctx, jobName, params)
	}
	eng.scheduler = cron.NewScheduler(st, trigger, logger,
		cron.WithTickInterval(config.TickInterval),
	)

	// Wire back into the Platform.
	p.SetScheduler(eng.scheduler)
	p.SetExtensions(eng.extensions)

	return eng, nil
}

// RegisterTransform registers a named transform with the engine.
func (eng *Engine) RegisterTransform(name string, t pipeline.Transform) {
	eng.transforms.Register(name, t)
}

// RegisterTransformFunc registers a function as a named transform.
func (eng *Engine) RegisterTransformFunc(name string, f pipeline.TransformFunc) {
	eng.transforms.RegisterFunc(name, f)
}

// Trigger resolves the named job spec and executes one run to completion,
// returning its summary. Admission is per tenant: a tenant over its rate
// or concurrency limit gets beema.ErrLimitExceeded without a run being
// created. Runs for distinct tenants never contend.
func (eng *Engine) Trigger(ctx context.Context, jobName string, params pipeline.Params) (pipeline.Summary, error) {
	spec, err := eng.store.GetSpec(ctx, jobName)
	if err != nil {
		return pipeline.Summary{}, err
	}

	if !eng.limiter.Acquire(spec.TenantID) {
		return pipeline.Summary{}, fmt.Errorf("trigger %s for tenant %s: %w", jobName, spec.TenantID, beema.ErrLimitExceeded)
	}
	defer eng.limiter.Release(spec.TenantID)

	merged := spec.Defaults.Merge(params)

	run := pipeline.NewRun(spec)
	start := time.Now()
	eng.extensions.EmitRunStarted(ctx, run)

	var summary pipeline.Summary
	execErr := eng.chain(ctx, run, func(ctx context.Context) error {
		var innerErr error
		summary, innerErr = eng.runner.Execute(ctx, run, spec, merged)
		return innerErr
	})

	run.Finish(summary, execErr)
	if execErr != nil {
		eng.extensions.EmitRunFailed(ctx, run, execErr)
		return summary, execErr
	}
	eng.extensions.EmitRunCompleted(ctx, run, time.Since(start))
	return summary, nil
}

// ResolveLayout resolves the best layout for a request. Resolution itself
// never fails: no eligible candidate yields the default layout. An error
// is returned only when the candidate set cannot be loaded.
//
// When a cache is wired the resolution is cache-aside: hits skip the
// store entirely, misses are stored with the configured TTL.
func (eng *Engine) ResolveLayout(ctx context.Context, req layout.Request) (layout.Resolution, error) {
	key := req.CacheKey()
	if eng.layoutCache != nil {
		cached, hit, cacheErr := eng.layoutCache.GetResolution(ctx, key)
		if cacheErr != nil {
			eng.logger.Warn("layout cache read error", slog.String("error", cacheErr.Error()))
		} else if hit {
			return *cached, nil
		}
	}

	candidates, err := eng.store.ListCandidates(ctx, req.Context, req.ObjectType, req.MarketContext)
	if err != nil {
		return layout.Resolution{}, fmt.Errorf("list layout candidates: %w", err)
	}

	res := layout.Resolve(req, candidates)

	if eng.layoutCache != nil {
		if cacheErr := eng.layoutCache.PutResolution(ctx, key, &res, eng.p.Config().CacheTTL); cacheErr != nil {
			eng.logger.Warn("layout cache write error", slog.String("error", cacheErr.Error()))
		}
	}

	eng.extensions.EmitLayoutResolved(ctx, req, res)
	return res, nil
}

// Versions returns the version service for an entity type, creating it on
// first use. Services share the engine's store, conflict retry budget,
// and extension registry.
func (eng *Engine) Versions(entityType string) *version.Service {
	eng.svcMu.Lock()
	defer eng.svcMu.Unlock()

	if svc, ok := eng.services[entityType]; ok {
		return svc
	}

	svcOpts := []version.ServiceOption{
		version.WithConflictRetries(eng.p.Config().ConflictRetries),
		version.WithEmitter(eng.extensions),
		version.WithLogger(eng.logger),
	}
	if c, ok := eng.contracts[entityType]; ok {
		svcOpts = append(svcOpts, version.WithContract(c))
	}
	svc := version.NewService(eng.store, entityType, svcOpts...)
	eng.services[entityType] = svc
	return svc
}

// RegisterCron registers a cron definition with the engine.
// It validates the schedule expression, computes the initial NextRunAt,
// and persists the entry. Re-registration of the same name is idempotent.
func (eng *Engine) RegisterCron(ctx context.Context, def *cron.Definition) error {
	sched, err := cron.ParseSchedule(def.Schedule)
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", def.Schedule, err)
	}

	now := time.Now().UTC()
	next := sched.Next(now)

	entry := &cron.Entry{
		Entity:    beema.NewEntity(),
		ID:        id.NewCronID(),
		Name:      def.Name,
		Schedule:  def.Schedule,
		JobName:   def.JobName,
		TenantID:  def.TenantID,
		Params:    def.Params,
		NextRunAt: &next,
		Enabled:   true,
	}

	if err := eng.store.RegisterCron(ctx, entry); err != nil {
		// Idempotent: ignore duplicate cron entries.
		if errors.Is(err, beema.ErrCronExists) {
			return nil
		}
		return fmt.Errorf("register cron %q: %w", def.Name, err)
	}

	eng.logger.Info("cron registered",
		slog.String("name", def.Name),
		slog.String("schedule", def.Schedule),
		slog.String("job_name", def.JobName),
		slog.Time("next_run_at", next),
	)

	return nil
}

// Start begins scheduled triggering via the Platform lifecycle.
func (eng *Engine) Start(ctx context.Context) error {
	return eng.p.Start(ctx)
}

// Stop gracefully shuts down the engine.
func (eng *Engine) Stop(ctx context.Context) error {
	return eng.p.Stop(ctx)
}

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Transforms returns the transform registry.
func (eng *Engine) Transforms() *pipeline.Registry { return eng.transforms }

// Platform returns the underlying Platform.
func (eng *Engine) Platform() *beema.Platform { return eng.p }

// Blobs returns the artifact store export jobs write to.
func (eng *Engine) Blobs() blob.Store { return eng.blobs }

// Scheduler returns the cron scheduler.
func (eng *Engine) Scheduler() *cron.Scheduler { return eng.scheduler }

// Limiter returns the tenant admission manager.
func (eng *Engine) Limiter() *limit.Manager { return eng.limiter }
