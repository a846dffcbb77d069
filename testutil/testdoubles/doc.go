// Package testdoubles provides test doubles (spies) for the governance
// observability interfaces:
//   - LoggerSpy: captures plain logging calls for verification
//   - ContextualLoggerSpy: captures structured logging with context
//   - MetricsCollectorSpy: captures metrics recording calls
//   - TracingCollectorSpy: captures spans and their final status
//
// These test doubles enable testing observability instrumentation without
// requiring actual telemetry backends.
package testdoubles
