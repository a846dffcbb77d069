package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dbgovernor/db-access-governor-go/governance"
)

// logOperation logs operational information at info level if a logger is configured.
func (ac *AccessContext) logOperation(msg string, args ...any) {
	if ac.logger != nil {
		ac.logger.Info(msg, args...)
	}
}

// logError logs error information at the error level if a logger is configured.
func (ac *AccessContext) logError(msg string, err error, args ...any) {
	if ac.logger != nil {
		allArgs := []any{logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		ac.logger.Error(msg, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// recordAcquireSuccess feeds the aggregator, the metrics collector and the
// loggers after a successful acquisition.
func (ac *AccessContext) recordAcquireSuccess(ctx context.Context, operation string, waited time.Duration) {
	ac.aggregator.RecordAcquireWait(waited)

	ac.recordDuration(ctx, metricAcquireWait, waited, operation, statusSuccess)
	ac.incrementCounter(ctx, metricAcquires, operation, statusSuccess)

	if ac.logger != nil {
		ac.logger.Debug(logMsgPermitAcquired, logAttrMode, ac.mode.String(), logAttrWaitMS, toMilliseconds(waited))
	}

	if ac.contextualLogger != nil {
		ac.contextualLogger.DebugContext(ctx, logMsgPermitAcquired+": "+operation, logAttrMode, ac.mode.String(), logAttrWaitMS, toMilliseconds(waited))
	}
}

// recordAcquireError feeds the collectors on the failure path. Saturation and
// contention timeouts are warnings for callers with retry/backoff; everything
// else (closed context, canceled caller) logs at error level.
func (ac *AccessContext) recordAcquireError(ctx context.Context, operation string, err error, waited time.Duration) {
	ac.recordDuration(ctx, metricAcquireWait, waited, operation, statusError)

	timedOut := errors.Is(err, governance.ErrPoolSaturated) || errors.Is(err, governance.ErrLockContention)
	if timedOut {
		ac.incrementCounter(ctx, metricAcquireTimeouts, operation, statusError)

		if ac.logger != nil {
			ac.logger.Warn(logMsgAcquireTimedOut,
				logAttrError, err.Error(),
				logAttrMode, ac.mode.String(),
				logAttrKeyHash, ac.keyHash,
				logAttrWaitMS, toMilliseconds(waited),
			)
		}

		return
	}

	ac.logError(logMsgAcquireFailed, err, logAttrMode, ac.mode.String(), logAttrKeyHash, ac.keyHash)
}

// recordDuration forwards to the metrics collector, preferring the
// context-aware interface when the collector implements it.
func (ac *AccessContext) recordDuration(
	ctx context.Context,
	metric string,
	duration time.Duration,
	operation, status string,
) {
	if ac.metricsCollector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operation, "status": status}

	if contextual, ok := ac.metricsCollector.(governance.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	ac.metricsCollector.RecordDuration(metric, duration, labels)
}

// incrementCounter forwards to the metrics collector, preferring the
// context-aware interface when the collector implements it.
func (ac *AccessContext) incrementCounter(ctx context.Context, metric string, operation, status string) {
	if ac.metricsCollector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operation, "status": status}

	if contextual, ok := ac.metricsCollector.(governance.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	ac.metricsCollector.IncrementCounter(metric, labels)
}

// acquireTracingObserver encapsulates span lifecycle management for acquire
// and transaction-start operations.
type acquireTracingObserver struct {
	ac   *AccessContext
	span governance.SpanContext
}

// startAcquireTracing opens a span for a permit acquisition if tracing is configured.
func (ac *AccessContext) startAcquireTracing(
	ctx context.Context,
	operation string,
	label governance.PoolLabel,
) (*acquireTracingObserver, context.Context) {

	if ac.tracingCollector == nil {
		return &acquireTracingObserver{ac: ac}, ctx
	}

	newCtx, span := ac.tracingCollector.StartSpan(ctx, spanNameAcquire, map[string]string{
		spanAttrOperation: operation,
		spanAttrPool:      label.String(),
		spanAttrMode:      ac.mode.String(),
	})

	return &acquireTracingObserver{ac: ac, span: span}, newCtx
}

// startBeginTxTracing opens a span for a transaction start if tracing is configured.
func (ac *AccessContext) startBeginTxTracing(
	ctx context.Context,
	level sql.IsolationLevel,
) (*acquireTracingObserver, context.Context) {

	if ac.tracingCollector == nil {
		return &acquireTracingObserver{ac: ac}, ctx
	}

	newCtx, span := ac.tracingCollector.StartSpan(ctx, spanNameBeginTx, map[string]string{
		spanAttrOperation: operationBeginTx,
		logAttrIsolation:  level.String(),
		spanAttrMode:      ac.mode.String(),
	})

	return &acquireTracingObserver{ac: ac, span: span}, newCtx
}

// finishSuccess completes the span for successful operations.
func (o *acquireTracingObserver) finishSuccess(waited time.Duration) {
	if o.span == nil {
		return
	}

	o.span.SetStatus(statusSuccess)

	if waited > 0 {
		o.span.AddAttribute(logAttrWaitMS, fmt.Sprintf("%.2f", toMilliseconds(waited)))
	}

	o.ac.tracingCollector.FinishSpan(o.span, statusSuccess, nil)
}

// finishError completes the span with error details.
func (o *acquireTracingObserver) finishError(err error) {
	if o.span == nil {
		return
	}

	o.span.SetStatus(statusError)
	o.span.AddAttribute(logAttrError, err.Error())
	o.ac.tracingCollector.FinishSpan(o.span, statusError, map[string]string{logAttrError: err.Error()})
}
