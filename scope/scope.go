// Package scope carries the tenant identity of an operation explicitly on
// the context.Context. There is no ambient or thread-local tenancy: every
// store call is scoped by the tenant it received.
package scope

import (
	"context"
	"errors"
)

// ErrNoTenant indicates an operation that requires a tenant was invoked
// with a context carrying none.
var ErrNoTenant = errors.New("scope: no tenant on context")

type tenantKey struct{}

// WithTenant returns a context carrying the given tenant identifier.
// An empty tenant leaves the context unchanged.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	if tenantID == "" {
		return ctx
	}
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// Tenant extracts the tenant identifier from the context.
// Returns an empty string when no tenant is present.
func Tenant(ctx context.Context) string {
	t, _ := ctx.Value(tenantKey{}).(string)
	return t
}

// Require extracts the tenant identifier or fails with ErrNoTenant.
func Require(ctx context.Context) (string, error) {
	t := Tenant(ctx)
	if t == "" {
		return "", ErrNoTenant
	}
	return t, nil
}
