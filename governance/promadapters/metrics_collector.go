// Package promadapters provides a Prometheus implementation of the governance
// MetricsCollector interface, for deployments that scrape rather than push.
package promadapters

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dbgovernor/db-access-governor-go/governance"
)

// MetricsCollector implements governance.MetricsCollector on a Prometheus
// registry. Collectors are created on demand per metric name; because
// Prometheus fixes the label schema at registration, the label keys seen on
// the first observation of a metric define its schema and later observations
// are reduced to those keys.
type MetricsCollector struct {
	registerer prometheus.Registerer

	mu         sync.Mutex
	histograms map[string]*labeledHistogram
	counters   map[string]*labeledCounter
	gauges     map[string]*labeledGauge
}

type labeledHistogram struct {
	vec  *prometheus.HistogramVec
	keys []string
}

type labeledCounter struct {
	vec  *prometheus.CounterVec
	keys []string
}

type labeledGauge struct {
	vec  *prometheus.GaugeVec
	keys []string
}

// NewMetricsCollector creates a Prometheus metrics collector registering on
// the given registerer, e.g. prometheus.DefaultRegisterer.
func NewMetricsCollector(registerer prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		registerer: registerer,
		histograms: make(map[string]*labeledHistogram),
		counters:   make(map[string]*labeledCounter),
		gauges:     make(map[string]*labeledGauge),
	}
}

// RecordDuration observes a duration in seconds on a histogram.
func (m *MetricsCollector) RecordDuration(name string, duration time.Duration, labels map[string]string) {
	histogram := m.histogram(name, labels)
	if histogram == nil {
		return
	}

	histogram.vec.With(reduceLabels(labels, histogram.keys)).Observe(duration.Seconds())
}

// IncrementCounter increments a monotonically increasing counter.
func (m *MetricsCollector) IncrementCounter(name string, labels map[string]string) {
	counter := m.counter(name, labels)
	if counter == nil {
		return
	}

	counter.vec.With(reduceLabels(labels, counter.keys)).Inc()
}

// RecordValue sets a gauge to the given value.
func (m *MetricsCollector) RecordValue(name string, value float64, labels map[string]string) {
	gauge := m.gauge(name, labels)
	if gauge == nil {
		return
	}

	gauge.vec.With(reduceLabels(labels, gauge.keys)).Set(value)
}

func (m *MetricsCollector) histogram(name string, labels map[string]string) *labeledHistogram {
	m.mu.Lock()
	defer m.mu.Unlock()

	if histogram, ok := m.histograms[name]; ok {
		return histogram
	}

	keys := labelKeys(labels)
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name + "_seconds",
		Help:    "Duration histogram recorded by the governance metrics collector.",
		Buckets: prometheus.DefBuckets,
	}, keys)

	if err := m.registerer.Register(vec); err != nil {
		return nil
	}

	histogram := &labeledHistogram{vec: vec, keys: keys}
	m.histograms[name] = histogram

	return histogram
}

func (m *MetricsCollector) counter(name string, labels map[string]string) *labeledCounter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if counter, ok := m.counters[name]; ok {
		return counter
	}

	keys := labelKeys(labels)
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name + "_total",
		Help: "Counter recorded by the governance metrics collector.",
	}, keys)

	if err := m.registerer.Register(vec); err != nil {
		return nil
	}

	counter := &labeledCounter{vec: vec, keys: keys}
	m.counters[name] = counter

	return counter
}

func (m *MetricsCollector) gauge(name string, labels map[string]string) *labeledGauge {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gauge, ok := m.gauges[name]; ok {
		return gauge
	}

	keys := labelKeys(labels)
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: name,
		Help: "Gauge recorded by the governance metrics collector.",
	}, keys)

	if err := m.registerer.Register(vec); err != nil {
		return nil
	}

	gauge := &labeledGauge{vec: vec, keys: keys}
	m.gauges[name] = gauge

	return gauge
}

func labelKeys(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// reduceLabels projects the observed labels onto the schema fixed at
// registration; missing keys become empty values.
func reduceLabels(labels map[string]string, keys []string) prometheus.Labels {
	reduced := make(prometheus.Labels, len(keys))
	for _, key := range keys {
		reduced[key] = labels[key]
	}

	return reduced
}

var _ governance.MetricsCollector = (*MetricsCollector)(nil)
