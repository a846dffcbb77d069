package oteladapters_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/log/noop"

	"github.com/dbgovernor/db-access-governor-go/governance/oteladapters"
)

func Test_NewSlogBridgeLogger_Construction(t *testing.T) {
	logger := oteladapters.NewSlogBridgeLogger("test")
	assert.NotNil(t, logger, "NewSlogBridgeLogger should return non-nil logger")
}

func Test_NewSlogBridgeLoggerWithHandler_Construction(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)

	logger := oteladapters.NewSlogBridgeLoggerWithHandler(handler)
	assert.NotNil(t, logger, "NewSlogBridgeLoggerWithHandler should return non-nil logger")
}

func Test_SlogBridgeLogger_AllLevels(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug, // Capture all levels
	})

	logger := oteladapters.NewSlogBridgeLoggerWithHandler(handler)
	ctx := context.Background()

	logger.DebugContext(ctx, "permit acquired", "level", "debug")
	logger.InfoContext(ctx, "access context opened", "level", "info")
	logger.WarnContext(ctx, "permit acquisition timed out", "level", "warn")
	logger.ErrorContext(ctx, "failed to begin transaction", "level", "error")

	output := buf.String()

	assert.Contains(t, output, "permit acquired", "Debug message should be logged")
	assert.Contains(t, output, "access context opened", "Info message should be logged")
	assert.Contains(t, output, "permit acquisition timed out", "Warn message should be logged")
	assert.Contains(t, output, "failed to begin transaction", "Error message should be logged")

	assert.Contains(t, output, `"level":"debug"`, "Debug level should be present")
	assert.Contains(t, output, `"level":"info"`, "Info level should be present")
	assert.Contains(t, output, `"level":"warn"`, "Warn level should be present")
	assert.Contains(t, output, `"level":"error"`, "Error level should be present")
}

func Test_SlogBridgeLogger_WithAttributes(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)

	logger := oteladapters.NewSlogBridgeLoggerWithHandler(handler)
	ctx := context.Background()

	logger.InfoContext(ctx, "access context opened",
		"engine", "postgres",
		"mode", "standard",
		"key_hash", uint64(42),
		"pooled", true,
	)

	output := buf.String()

	assert.Contains(t, output, "access context opened", "Message should be logged")
	assert.Contains(t, output, `"engine":"postgres"`, "String attribute should be present")
	assert.Contains(t, output, `"mode":"standard"`, "String attribute should be present")
	assert.Contains(t, output, `"key_hash":42`, "Numeric attribute should be present")
	assert.Contains(t, output, `"pooled":true`, "Bool attribute should be present")
}

func Test_NewOTelLogger_Construction(t *testing.T) {
	otelLogger := noop.NewLoggerProvider().Logger("test")

	logger := oteladapters.NewOTelLogger(otelLogger)
	assert.NotNil(t, logger, "NewOTelLogger should return non-nil logger")
}

func Test_OTelLogger_AllLevels(t *testing.T) {
	// Noop logger; the methods must tolerate arbitrary key/value args.
	otelLogger := noop.NewLoggerProvider().Logger("test")
	logger := oteladapters.NewOTelLogger(otelLogger)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		logger.DebugContext(ctx, "permit acquired", "wait_ms", int64(3))
		logger.InfoContext(ctx, "access context opened", "engine", "sqlite")
		logger.WarnContext(ctx, "permit acquisition timed out", "pool", "writer")
		logger.ErrorContext(ctx, "failed to begin transaction", "error", "boom")
	}, "Logging with mixed value types should not panic")
}

func Test_OTelLogger_SkipsNonStringKeys(t *testing.T) {
	otelLogger := noop.NewLoggerProvider().Logger("test")
	logger := oteladapters.NewOTelLogger(otelLogger)

	assert.NotPanics(t, func() {
		logger.InfoContext(context.Background(), "access context opened", 42, "value", "dangling")
	}, "Malformed args should be tolerated")
}
