// Package middleware provides composable middleware for run execution.
//
// A [Middleware] is a function that wraps a run handler. Middleware are
// composed into a chain using [Chain] and applied before each run executes.
// They are applied right-to-left: the first middleware in the slice is the
// outermost wrapper.
//
//	// logging → recover → handler
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging] — logs job name, tenant, duration, and outcome at each run
//   - [Recover] — catches panics and converts them to errors
//   - [Tracing] — wraps execution in an OpenTelemetry span
//   - [Metrics] — records per-run duration and outcome counters
//   - [Scope] — injects the run's tenant into the context
//
// There is no timeout middleware: a caller that wants a deadline passes
// a context that carries one, and the runner honors it at the next chunk
// boundary.
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, run *pipeline.Run, next middleware.Handler) error {
//	        // pre-processing
//	        err := next(ctx)
//	        // post-processing
//	        return err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting (e.g., circuit breaker, rate limiting).
package middleware
