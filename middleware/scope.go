package middleware

import (
	"context"

	"github.com/prabhatkmr/beema-sub003/pipeline"
	"github.com/prabhatkmr/beema-sub003/scope"
)

// Scope returns middleware that injects the run's tenant into the
// context. This ensures handlers see the same tenant scope as the
// caller that triggered the run, even when it fires from the scheduler.
func Scope() Middleware {
	return func(ctx context.Context, run *pipeline.Run, next Handler) error {
		ctx = scope.WithTenant(ctx, run.TenantID)
		return next(ctx)
	}
}
