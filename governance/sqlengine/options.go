package sqlengine

import (
	"errors"
	"time"

	"github.com/dbgovernor/db-access-governor-go/governance"
)

// ErrInvalidPoolSize is returned when a negative pool size is configured.
// Zero is valid and disables the pool governor.
var ErrInvalidPoolSize = errors.New("pool size must not be negative")

// Option defines a functional option for configuring an AccessContext.
type Option func(*AccessContext) error

// WithLogger sets the logger for the access context.
//
// Debug level: acquire timings (development use)
// Info level: context lifecycle, mode resolution (production-safe)
// Warn level: non-critical issues
// Error level: acquisition timeouts and transaction failures.
func WithLogger(logger governance.Logger) Option {
	return func(ac *AccessContext) error {
		ac.logger = logger
		return nil
	}
}

// WithContextualLogger sets the context-aware logger, enabling automatic
// trace/span correlation when tracing is configured as well.
func WithContextualLogger(logger governance.ContextualLogger) Option {
	return func(ac *AccessContext) error {
		ac.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector. The collector receives acquire
// durations, timeout counts and transaction counts in addition to everything
// the in-process aggregator keeps.
func WithMetrics(collector governance.MetricsCollector) Option {
	return func(ac *AccessContext) error {
		ac.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector. Spans cover permit acquisition and
// transaction starts.
func WithTracing(collector governance.TracingCollector) Option {
	return func(ac *AccessContext) error {
		ac.tracingCollector = collector
		return nil
	}
}

// WithNormalizationCache injects a shared connection-string normalization
// cache, typically owned by the composition root so parses are memoized across
// contexts. Without this option each context creates its own bounded cache.
func WithNormalizationCache(cache *governance.NormalizationCache) Option {
	return func(ac *AccessContext) error {
		ac.cache = cache
		return nil
	}
}

// WithReaderPoolSize bounds concurrent readers. Ignored when the resolved mode
// disables the reader pool.
func WithReaderPoolSize(size int) Option {
	return func(ac *AccessContext) error {
		if size < 0 {
			return ErrInvalidPoolSize
		}

		ac.readerPoolSize = size

		return nil
	}
}

// WithWriterPoolSize bounds concurrent writers. Ignored when the resolved mode
// serializes or disables writers.
func WithWriterPoolSize(size int) Option {
	return func(ac *AccessContext) error {
		if size < 0 {
			return ErrInvalidPoolSize
		}

		ac.writerPoolSize = size

		return nil
	}
}

// WithAcquireTimeout sets the default maximum wait applied when a caller
// passes a non-positive timeout to AcquireRead/AcquireWrite.
func WithAcquireTimeout(timeout time.Duration) Option {
	return func(ac *AccessContext) error {
		if timeout > 0 {
			ac.acquireTimeout = timeout
		}

		return nil
	}
}

// WithMetricsWindow sets the number of recent command duration samples kept
// for percentile reads.
func WithMetricsWindow(size int) Option {
	return func(ac *AccessContext) error {
		ac.metricsWindow = size
		return nil
	}
}
