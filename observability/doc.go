// Package observability provides an OpenTelemetry-based metrics
// extension for Beema. The MetricsExtension implements lifecycle hooks
// to record system-wide counters for version, run, chunk, artifact, and
// layout events.
//
// For per-execution tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
