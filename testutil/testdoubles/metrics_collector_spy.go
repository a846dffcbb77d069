package testdoubles

import (
	"sync"
	"time"

	"github.com/dbgovernor/db-access-governor-go/governance"
)

// SpyDurationRecord represents one recorded duration observation.
type SpyDurationRecord struct {
	Metric   string
	Duration time.Duration
	Labels   map[string]string
}

// SpyCounterRecord represents one recorded counter increment.
type SpyCounterRecord struct {
	Metric string
	Labels map[string]string
}

// SpyValueRecord represents one recorded gauge observation.
type SpyValueRecord struct {
	Metric string
	Value  float64
	Labels map[string]string
}

// MetricsCollectorSpy is a governance.MetricsCollector implementation that
// captures metric calls for testing instrumentation.
type MetricsCollectorSpy struct {
	mu        sync.Mutex
	durations []SpyDurationRecord
	counters  []SpyCounterRecord
	values    []SpyValueRecord
}

// NewMetricsCollectorSpy creates a new MetricsCollectorSpy instance.
func NewMetricsCollectorSpy() *MetricsCollectorSpy {
	return &MetricsCollectorSpy{}
}

// RecordDuration implements the MetricsCollector interface for testing.
func (s *MetricsCollectorSpy) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.durations = append(s.durations, SpyDurationRecord{
		Metric:   metric,
		Duration: duration,
		Labels:   cloneLabels(labels),
	})
}

// IncrementCounter implements the MetricsCollector interface for testing.
func (s *MetricsCollectorSpy) IncrementCounter(metric string, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters = append(s.counters, SpyCounterRecord{
		Metric: metric,
		Labels: cloneLabels(labels),
	})
}

// RecordValue implements the MetricsCollector interface for testing.
func (s *MetricsCollectorSpy) RecordValue(metric string, value float64, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = append(s.values, SpyValueRecord{
		Metric: metric,
		Value:  value,
		Labels: cloneLabels(labels),
	})
}

// Durations returns a copy of all recorded duration observations.
func (s *MetricsCollectorSpy) Durations() []SpyDurationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	durations := make([]SpyDurationRecord, len(s.durations))
	copy(durations, s.durations)

	return durations
}

// Counters returns a copy of all recorded counter increments.
func (s *MetricsCollectorSpy) Counters() []SpyCounterRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	counters := make([]SpyCounterRecord, len(s.counters))
	copy(counters, s.counters)

	return counters
}

// CounterCount returns how often the given counter was incremented.
func (s *MetricsCollectorSpy) CounterCount(metric string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0

	for _, record := range s.counters {
		if record.Metric == metric {
			count++
		}
	}

	return count
}

// DurationCount returns how many durations were recorded on the given metric.
func (s *MetricsCollectorSpy) DurationCount(metric string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0

	for _, record := range s.durations {
		if record.Metric == metric {
			count++
		}
	}

	return count
}

// Reset clears all recorded metric calls.
func (s *MetricsCollectorSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.durations = nil
	s.counters = nil
	s.values = nil
}

func cloneLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}

	cloned := make(map[string]string, len(labels))
	for key, value := range labels {
		cloned[key] = value
	}

	return cloned
}

var _ governance.MetricsCollector = (*MetricsCollectorSpy)(nil)
