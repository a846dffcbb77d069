package governance

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const defaultMetricsWindowSize = 256

// MetricsAggregator is the process-wide sink for counters and timers fed by
// the other governance components. Writers touch per-field atomics so many
// unrelated writers never contend with each other; only the bounded window of
// recent command durations is guarded by a mutex, and only snapshot reads need
// a stable view of it.
//
// Non-positive duration and count inputs are silently discarded: they
// originate from timing, not caller data, and are treated as instrumentation
// noise rather than business errors.
type MetricsAggregator struct {
	commandsExecuted      atomic.Uint64
	commandsFailed        atomic.Uint64
	rowsRead              atomic.Uint64
	rowsAffected          atomic.Uint64
	statementsEvicted     atomic.Uint64
	transactionsStarted   atomic.Uint64
	transactionsCompleted atomic.Uint64

	commandDurationCount atomic.Uint64
	commandDurationTotal atomic.Int64

	acquireWaitCount atomic.Uint64
	acquireWaitTotal atomic.Int64

	window *durationWindow
}

// NewMetricsAggregator creates an aggregator keeping up to windowSize recent
// command duration samples for approximate percentile reads. A windowSize <= 0
// falls back to the default window.
func NewMetricsAggregator(windowSize int) *MetricsAggregator {
	if windowSize <= 0 {
		windowSize = defaultMetricsWindowSize
	}

	return &MetricsAggregator{window: newDurationWindow(windowSize)}
}

// RecordCommandDuration records one successfully executed command and its
// duration. Non-positive durations are discarded.
func (a *MetricsAggregator) RecordCommandDuration(duration time.Duration) {
	if duration <= 0 {
		return
	}

	a.commandsExecuted.Add(1)
	a.commandDurationCount.Add(1)
	a.commandDurationTotal.Add(int64(duration))
	a.window.add(duration)
}

// RecordCommandFailure records one failed command execution.
func (a *MetricsAggregator) RecordCommandFailure() {
	a.commandsFailed.Add(1)
}

// RecordRowsRead adds to the rows-read counter. Non-positive counts are discarded.
func (a *MetricsAggregator) RecordRowsRead(count int64) {
	if count <= 0 {
		return
	}

	a.rowsRead.Add(uint64(count))
}

// RecordRowsAffected adds to the rows-affected counter. Non-positive counts are discarded.
func (a *MetricsAggregator) RecordRowsAffected(count int64) {
	if count <= 0 {
		return
	}

	a.rowsAffected.Add(uint64(count))
}

// RecordStatementsEvicted adds to the statement-eviction counter.
// Non-positive counts are discarded.
func (a *MetricsAggregator) RecordStatementsEvicted(count int64) {
	if count <= 0 {
		return
	}

	a.statementsEvicted.Add(uint64(count))
}

// RecordTransactionStarted records the start of one transaction.
func (a *MetricsAggregator) RecordTransactionStarted() {
	a.transactionsStarted.Add(1)
}

// RecordTransactionCompleted records one committed or rolled back transaction.
func (a *MetricsAggregator) RecordTransactionCompleted() {
	a.transactionsCompleted.Add(1)
}

// RecordAcquireWait records time spent waiting for admission or the contention
// lock. Non-positive durations are discarded.
func (a *MetricsAggregator) RecordAcquireWait(duration time.Duration) {
	if duration <= 0 {
		return
	}

	a.acquireWaitCount.Add(1)
	a.acquireWaitTotal.Add(int64(duration))
}

// Snapshot returns an immutable aggregate of all counters. Reading never
// blocks writers beyond the brief critical section on the duration window.
func (a *MetricsAggregator) Snapshot() MetricsSnapshot {
	snapshot := MetricsSnapshot{
		CommandsExecuted:      a.commandsExecuted.Load(),
		CommandsFailed:        a.commandsFailed.Load(),
		RowsRead:              a.rowsRead.Load(),
		RowsAffected:          a.rowsAffected.Load(),
		StatementsEvicted:     a.statementsEvicted.Load(),
		TransactionsStarted:   a.transactionsStarted.Load(),
		TransactionsCompleted: a.transactionsCompleted.Load(),
		CommandDurationCount:  a.commandDurationCount.Load(),
		CommandDurationTotal:  time.Duration(a.commandDurationTotal.Load()),
		AcquireWaitCount:      a.acquireWaitCount.Load(),
		AcquireWaitTotal:      time.Duration(a.acquireWaitTotal.Load()),
	}

	if snapshot.CommandDurationCount > 0 {
		snapshot.CommandDurationMean = snapshot.CommandDurationTotal / time.Duration(snapshot.CommandDurationCount)
	}

	sorted := a.window.sortedSamples()
	snapshot.CommandDurationP50 = percentile(sorted, 50)
	snapshot.CommandDurationP95 = percentile(sorted, 95)
	snapshot.CommandDurationP99 = percentile(sorted, 99)

	return snapshot
}

// durationWindow is a fixed-size ring of the most recent duration samples.
type durationWindow struct {
	mu      sync.Mutex
	samples []time.Duration
	next    int
	filled  bool
}

func newDurationWindow(size int) *durationWindow {
	return &durationWindow{samples: make([]time.Duration, 0, size)}
}

func (w *durationWindow) add(sample time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.filled && len(w.samples) < cap(w.samples) {
		w.samples = append(w.samples, sample)

		if len(w.samples) == cap(w.samples) {
			w.filled = true
		}

		return
	}

	w.samples[w.next] = sample
	w.next = (w.next + 1) % len(w.samples)
}

// sortedSamples copies the window under the lock and sorts outside of it.
func (w *durationWindow) sortedSamples() []time.Duration {
	w.mu.Lock()
	sorted := make([]time.Duration, len(w.samples))
	copy(sorted, w.samples)
	w.mu.Unlock()

	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return sorted
}

// percentile reads the nearest-rank percentile from an ascending sample set.
// An empty window yields 0 for every percentile.
func percentile(sorted []time.Duration, pct int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	rank := (pct*len(sorted) + 99) / 100

	if rank < 1 {
		rank = 1
	}

	if rank > len(sorted) {
		rank = len(sorted)
	}

	return sorted[rank-1]
}
