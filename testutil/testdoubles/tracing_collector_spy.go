package testdoubles

import (
	"context"
	"sync"

	"github.com/dbgovernor/db-access-governor-go/governance"
)

// SpySpan represents one span observed by the TracingCollectorSpy. Status and
// FinalAttrs are filled in when the span finishes.
type SpySpan struct {
	Name       string
	StartAttrs map[string]string
	FinalAttrs map[string]string
	Status     string
	Finished   bool

	mu    sync.Mutex
	attrs map[string]string
}

// SetStatus implements the SpanContext interface for testing.
func (s *SpySpan) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Status = status
}

// AddAttribute implements the SpanContext interface for testing.
func (s *SpySpan) AddAttribute(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attrs == nil {
		s.attrs = make(map[string]string)
	}

	s.attrs[key] = value
}

// TracingCollectorSpy is a governance.TracingCollector implementation that
// captures span lifecycles for testing instrumentation.
type TracingCollectorSpy struct {
	mu    sync.Mutex
	spans []*SpySpan
}

// NewTracingCollectorSpy creates a new TracingCollectorSpy instance.
func NewTracingCollectorSpy() *TracingCollectorSpy {
	return &TracingCollectorSpy{}
}

// StartSpan implements the TracingCollector interface for testing.
func (s *TracingCollectorSpy) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, governance.SpanContext) {
	span := &SpySpan{Name: name, StartAttrs: cloneLabels(attrs)}

	s.mu.Lock()
	s.spans = append(s.spans, span)
	s.mu.Unlock()

	return ctx, span
}

// FinishSpan implements the TracingCollector interface for testing.
func (s *TracingCollectorSpy) FinishSpan(spanCtx governance.SpanContext, status string, attrs map[string]string) {
	span, ok := spanCtx.(*SpySpan)
	if !ok {
		return
	}

	span.mu.Lock()
	defer span.mu.Unlock()

	span.Status = status
	span.FinalAttrs = cloneLabels(attrs)
	span.Finished = true
}

// Spans returns all observed spans in start order.
func (s *TracingCollectorSpy) Spans() []*SpySpan {
	s.mu.Lock()
	defer s.mu.Unlock()

	spans := make([]*SpySpan, len(s.spans))
	copy(spans, s.spans)

	return spans
}

// SpansNamed returns all observed spans with the given name.
func (s *TracingCollectorSpy) SpansNamed(name string) []*SpySpan {
	s.mu.Lock()
	defer s.mu.Unlock()

	var named []*SpySpan

	for _, span := range s.spans {
		if span.Name == name {
			named = append(named, span)
		}
	}

	return named
}

// Reset clears all observed spans.
func (s *TracingCollectorSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.spans = nil
}

var _ governance.TracingCollector = (*TracingCollectorSpy)(nil)
