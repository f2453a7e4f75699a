package version

import (
	"context"
	"log/slog"
	"time"

	beema "github.com/prabhatkmr/beema-sub003"
	"github.com/prabhatkmr/beema-sub003/backoff"
	"github.com/prabhatkmr/beema-sub003/id"
	"github.com/prabhatkmr/beema-sub003/value"
)

// Emitter emits version lifecycle events.
// ext.Registry satisfies this interface.
type Emitter interface {
	EmitVersionCreated(ctx context.Context, rec *Record)
	EmitVersionSuperseded(ctx context.Context, rec *Record)
	EmitVersionConflict(ctx context.Context, tenantID, entityID string, attempt int)
}

// noopEmitter is used when no extension registry is wired.
type noopEmitter struct{}

func (noopEmitter) EmitVersionCreated(context.Context, *Record)            {}
func (noopEmitter) EmitVersionSuperseded(context.Context, *Record)         {}
func (noopEmitter) EmitVersionConflict(context.Context, string, string, int) {}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithContract sets the payload contract enforced on every write.
func WithContract(c *Contract) ServiceOption {
	return func(s *Service) { s.contract = c }
}

// WithConflictRetries bounds how many times NewVersion retries after a
// concurrent version race before surfacing the conflict.
func WithConflictRetries(n int) ServiceOption {
	return func(s *Service) { s.retries = n }
}

// WithBackoff sets the delay strategy between conflict retries.
func WithBackoff(b backoff.Strategy) ServiceOption {
	return func(s *Service) { s.backoff = b }
}

// WithEmitter sets the lifecycle event emitter.
func WithEmitter(e Emitter) ServiceOption {
	return func(s *Service) { s.emitter = e }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// Service is the entity-facing API over a version Store for one entity
// type. Entity services call NewVersion on every business-state transition
// and expose the read operations to their read paths.
type Service struct {
	store      Store
	entityType string
	contract   *Contract
	retries    int
	backoff    backoff.Strategy
	emitter    Emitter
	logger     *slog.Logger
}

// NewService creates a Service for the given entity type.
func NewService(store Store, entityType string, opts ...ServiceOption) *Service {
	s := &Service{
		store:      store,
		entityType: entityType,
		retries:    5,
		backoff:    backoff.DefaultStrategy(),
		emitter:    noopEmitter{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newRecord builds an open current row stamped with a single now for both
// time axes.
func (s *Service) newRecord(tenantID, entityID, status string, payload value.Object) *Record {
	now := time.Now().UTC()
	return &Record{
		Entity:          beema.NewEntity(),
		ID:              id.NewVersionID(),
		TenantID:        tenantID,
		EntityID:        entityID,
		EntityType:      s.entityType,
		Status:          status,
		Payload:         payload.Clone(),
		ValidFrom:       now,
		TransactionTime: now,
		Current:         true,
	}
}

// Create persists the first version of an entity. Fails with
// beema.ErrVersionExists if the entity already has a current version record.
func (s *Service) Create(ctx context.Context, tenantID, entityID, status string, payload value.Object) (*Record, error) {
	if err := s.validate(status, payload); err != nil {
		return nil, err
	}

	rec := s.newRecord(tenantID, entityID, status, payload)
	if err := s.store.InsertFirst(ctx, rec); err != nil {
		return nil, err
	}

	s.emitter.EmitVersionCreated(ctx, rec)
	return rec, nil
}

// NewVersion closes the current version and opens a new one in a single
// atomic step. Concurrent callers racing on the same (tenant, entity) key
// serialize: losers retry against the re-derived current row up to the
// bounded retry count, after which beema.ErrVersionConflict surfaces.
func (s *Service) NewVersion(ctx context.Context, tenantID, entityID, status string, payload value.Object) (*Record, error) {
	if err := s.validate(status, payload); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			s.emitter.EmitVersionConflict(ctx, tenantID, entityID, attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.backoff.Delay(attempt)):
			}
		}

		// A fresh record per attempt: each retry targets the current row
		// left behind by the winner of the previous race.
		rec := s.newRecord(tenantID, entityID, status, payload)
		err := s.store.Supersede(ctx, rec)
		if err == nil {
			s.emitter.EmitVersionSuperseded(ctx, rec)
			return rec, nil
		}
		if !beema.IsRetryable(err) {
			return nil, err
		}

		lastErr = err
		s.logger.Debug("version conflict, retrying",
			slog.String("tenant_id", tenantID),
			slog.String("entity_id", entityID),
			slog.Int("attempt", attempt+1),
		)
	}
	return nil, lastErr
}

// Current returns the version presently in effect.
func (s *Service) Current(ctx context.Context, tenantID, entityID string) (*Record, error) {
	return s.store.GetCurrent(ctx, tenantID, entityID)
}

// AsOf reconstructs the version effective at validAt as known by knownAt.
func (s *Service) AsOf(ctx context.Context, tenantID, entityID string, validAt, knownAt time.Time) (*Record, error) {
	return s.store.GetAsOf(ctx, tenantID, entityID, validAt, knownAt)
}

// History returns the full audit trail in the given order.
func (s *Service) History(ctx context.Context, tenantID, entityID string, order HistoryOrder) ([]*Record, error) {
	return s.store.ListHistory(ctx, tenantID, entityID, order)
}

// AllCurrent returns every current version for the tenant.
func (s *Service) AllCurrent(ctx context.Context, tenantID string) ([]*Record, error) {
	return s.store.ListCurrent(ctx, tenantID)
}

func (s *Service) validate(status string, payload value.Object) error {
	if s.contract == nil {
		return nil
	}
	return s.contract.Validate(status, payload)
}
