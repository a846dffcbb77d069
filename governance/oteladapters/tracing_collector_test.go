package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dbgovernor/db-access-governor-go/governance/oteladapters"
)

func Test_NewTracingCollector_Construction(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := trace.NewTracerProvider(trace.WithSyncer(exporter))
	tracer := provider.Tracer("test")

	collector := oteladapters.NewTracingCollector(tracer)

	assert.NotNil(t, collector, "NewTracingCollector should return non-nil collector")
}

func Test_TracingCollector_StartSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := trace.NewTracerProvider(trace.WithSyncer(exporter))
	tracer := provider.Tracer("test")

	collector := oteladapters.NewTracingCollector(tracer)

	attrs := map[string]string{
		"operation": "acquire_read",
		"pool":      "reader",
		"mode":      "standard",
	}

	ctx, spanCtx := collector.StartSpan(context.Background(), "governance.acquire", attrs)

	assert.NotNil(t, ctx, "Context should not be nil")
	assert.NotNil(t, spanCtx, "SpanContext should not be nil")

	collector.FinishSpan(spanCtx, "success", map[string]string{"wait_ms": "3"})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1, "Expected exactly one span")

	span := spans[0]
	assert.Equal(t, "governance.acquire", span.Name, "Span name should match")

	assertSpanHasAttribute(t, span, "operation", "acquire_read")
	assertSpanHasAttribute(t, span, "pool", "reader")
	assertSpanHasAttribute(t, span, "mode", "standard")
	assertSpanHasAttribute(t, span, "wait_ms", "3")

	assert.Equal(t, codes.Ok, span.Status.Code, "Span should have OK status")
}

func Test_TracingCollector_FinishSpan_StatusMapping(t *testing.T) {
	tests := []struct {
		name         string
		status       string
		expectedCode codes.Code
	}{
		{name: "success maps to ok", status: "success", expectedCode: codes.Ok},
		{name: "error maps to error", status: "error", expectedCode: codes.Error},
		{name: "saturated maps to error", status: "saturated", expectedCode: codes.Error},
		{name: "contended maps to error", status: "contended", expectedCode: codes.Error},
		{name: "timeout maps to error", status: "timeout", expectedCode: codes.Error},
		{name: "cancelled maps to error", status: "cancelled", expectedCode: codes.Error},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			exporter := tracetest.NewInMemoryExporter()
			provider := trace.NewTracerProvider(trace.WithSyncer(exporter))
			collector := oteladapters.NewTracingCollector(provider.Tracer("test"))

			_, spanCtx := collector.StartSpan(context.Background(), "governance.acquire", nil)

			// act
			collector.FinishSpan(spanCtx, tc.status, nil)

			// assert
			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tc.expectedCode, spans[0].Status.Code)
		})
	}
}

func Test_TracingCollector_FinishSpan_UnknownStatusBecomesAttribute(t *testing.T) {
	// arrange
	exporter := tracetest.NewInMemoryExporter()
	provider := trace.NewTracerProvider(trace.WithSyncer(exporter))
	collector := oteladapters.NewTracingCollector(provider.Tracer("test"))

	_, spanCtx := collector.StartSpan(context.Background(), "governance.begin_tx", nil)

	// act
	collector.FinishSpan(spanCtx, "deferred", nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assertSpanHasAttribute(t, spans[0], "status", "deferred")
}

func Test_OTelSpanContext_AddAttribute(t *testing.T) {
	// arrange
	exporter := tracetest.NewInMemoryExporter()
	provider := trace.NewTracerProvider(trace.WithSyncer(exporter))
	collector := oteladapters.NewTracingCollector(provider.Tracer("test"))

	_, spanCtx := collector.StartSpan(context.Background(), "governance.acquire", nil)

	// act
	spanCtx.AddAttribute("key_hash", "deadbeef")
	collector.FinishSpan(spanCtx, "success", nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assertSpanHasAttribute(t, spans[0], "key_hash", "deadbeef")
}

func assertSpanHasAttribute(t *testing.T, span tracetest.SpanStub, key, value string) {
	t.Helper()

	for _, attr := range span.Attributes {
		if attr.Key == attribute.Key(key) {
			assert.Equal(t, value, attr.Value.AsString(), "Attribute %s should match", key)

			return
		}
	}

	t.Errorf("Attribute %s not found on span %s", key, span.Name)
}
