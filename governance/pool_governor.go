package governance

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// PoolLabel identifies an admission-control domain.
type PoolLabel int

const (
	// ReaderPool bounds concurrent read operations.
	ReaderPool PoolLabel = iota

	// WriterPool bounds concurrent write operations.
	WriterPool
)

// String provides a string representation of PoolLabel for logging and debugging.
func (l PoolLabel) String() string {
	switch l {
	case ReaderPool:
		return "reader"
	case WriterPool:
		return "writer"
	default:
		return "unknown"
	}
}

// PoolSaturatedError reports an admission timeout against a saturated pool
// governor. It carries the pool label, a hash of the pool key (never the raw
// connection string) and a point-in-time snapshot. Recoverable by caller
// retry/backoff.
type PoolSaturatedError struct {
	Label    PoolLabel
	KeyHash  uint64
	Snapshot PoolSnapshot
}

func (e *PoolSaturatedError) Error() string {
	return fmt.Sprintf(
		"%s pool saturated for key %x: %d/%d permits in use, %d queued",
		e.Label, e.KeyHash, e.Snapshot.InUse, e.Snapshot.MaxPermits, e.Snapshot.Queued,
	)
}

// Unwrap makes errors.Is(err, ErrPoolSaturated) work.
func (e *PoolSaturatedError) Unwrap() error {
	return ErrPoolSaturated
}

// PoolPermit represents one admitted unit of concurrency from a PoolGovernor.
// A permit is exclusively owned by its acquirer and released exactly once;
// further Release calls are safe no-ops.
type PoolPermit struct {
	id       uuid.UUID
	governor *PoolGovernor
	counted  bool
	released atomic.Bool
}

// ID returns the unique identity of this permit, useful for log correlation.
func (p *PoolPermit) ID() uuid.UUID {
	return p.id
}

// Release returns the permit's slot to the governor. If waiters are queued the
// slot is handed to the longest-waiting one. Releasing twice is a no-op.
func (p *PoolPermit) Release() {
	if p == nil {
		return
	}

	if !p.released.CompareAndSwap(false, true) {
		return
	}

	if p.counted && p.governor != nil {
		p.governor.release()
	}
}

// poolWaiter is one queued acquirer. The grant channel is buffered so the
// releasing side never blocks on a waiter that is concurrently timing out.
type poolWaiter struct {
	grant   chan struct{}
	granted bool
}

// PoolGovernor bounds the number of concurrently outstanding operations of one
// resource class against a physical resource, with strict FIFO queuing and
// observable counters. All counter updates happen inside the same critical
// section as the corresponding state transition, so snapshots are never torn.
//
// A governor constructed with maxPermits <= 0 is disabled: every acquire
// succeeds immediately and uncounted. This is used when pooling does not
// apply, e.g. under ModeSingleConnection.
type PoolGovernor struct {
	label      PoolLabel
	maxPermits int
	keyHash    uint64

	mu            sync.Mutex
	inUse         int
	peakInUse     int
	waiters       []*poolWaiter
	totalAcquired uint64
	totalTimeouts uint64
	closed        bool
}

// NewPoolGovernor creates a pool governor for one resource class. The keyHash
// identifies the governed connection target in saturation errors without
// exposing the raw connection string.
func NewPoolGovernor(label PoolLabel, maxPermits int, keyHash uint64) *PoolGovernor {
	return &PoolGovernor{
		label:      label,
		maxPermits: maxPermits,
		keyHash:    keyHash,
	}
}

// Disabled reports whether this governor admits everything uncounted.
func (g *PoolGovernor) Disabled() bool {
	return g.maxPermits <= 0
}

// Label returns the admission-control domain of this governor.
func (g *PoolGovernor) Label() PoolLabel {
	return g.label
}

// Acquire obtains a permit, suspending the calling goroutine until a slot
// frees, the timeout elapses, the context is canceled, or the governor is
// closed. Timeout failures are *PoolSaturatedError carrying a snapshot;
// a timeout <= 0 fails immediately when the pool is saturated.
func (g *PoolGovernor) Acquire(ctx context.Context, timeout time.Duration) (*PoolPermit, error) {
	if g.Disabled() {
		return &PoolPermit{id: uuid.New(), governor: g}, nil
	}

	g.mu.Lock()

	if g.closed {
		g.mu.Unlock()
		return nil, ErrGovernorClosed
	}

	// Fast path: a free slot and no queue ahead of us.
	if g.inUse < g.maxPermits && len(g.waiters) == 0 {
		g.grantLocked()
		g.mu.Unlock()

		return &PoolPermit{id: uuid.New(), governor: g, counted: true}, nil
	}

	if timeout <= 0 {
		g.totalTimeouts++
		saturatedErr := &PoolSaturatedError{Label: g.label, KeyHash: g.keyHash, Snapshot: g.snapshotLocked()}
		g.mu.Unlock()

		return nil, saturatedErr
	}

	waiter := &poolWaiter{grant: make(chan struct{}, 1)}
	g.waiters = append(g.waiters, waiter)
	g.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-waiter.grant:
		return g.settleGrant(waiter)

	case <-timer.C:
		return g.settleTimeout(waiter)

	case <-ctx.Done():
		return nil, g.settleCancel(waiter, ctx.Err())
	}
}

// settleGrant finalizes a waiter that was woken through its grant channel,
// which happens both on slot handoff and on governor closure.
func (g *PoolGovernor) settleGrant(waiter *poolWaiter) (*PoolPermit, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !waiter.granted {
		return nil, ErrGovernorClosed
	}

	return &PoolPermit{id: uuid.New(), governor: g, counted: true}, nil
}

// settleTimeout removes the waiter from the queue. If a release handed the
// slot over before we got the lock, the acquisition simply succeeded first.
func (g *PoolGovernor) settleTimeout(waiter *poolWaiter) (*PoolPermit, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if waiter.granted {
		return &PoolPermit{id: uuid.New(), governor: g, counted: true}, nil
	}

	if g.closed {
		return nil, ErrGovernorClosed
	}

	g.removeWaiterLocked(waiter)
	g.totalTimeouts++

	return nil, &PoolSaturatedError{Label: g.label, KeyHash: g.keyHash, Snapshot: g.snapshotLocked()}
}

// settleCancel removes the waiter on context cancellation. A slot that was
// already handed over is passed back so it is not leaked.
func (g *PoolGovernor) settleCancel(waiter *poolWaiter, cause error) error {
	g.mu.Lock()

	if waiter.granted {
		g.mu.Unlock()
		g.release()

		return cause
	}

	g.removeWaiterLocked(waiter)
	g.mu.Unlock()

	return cause
}

// grantLocked admits one acquirer and updates the counters; callers hold g.mu.
func (g *PoolGovernor) grantLocked() {
	g.inUse++
	g.totalAcquired++

	if g.inUse > g.peakInUse {
		g.peakInUse = g.inUse
	}
}

func (g *PoolGovernor) removeWaiterLocked(target *poolWaiter) {
	for i, waiter := range g.waiters {
		if waiter == target {
			g.waiters = append(g.waiters[:i], g.waiters[i+1:]...)
			return
		}
	}
}

// release returns one slot. If waiters are queued the slot transfers directly
// to the longest-waiting one without ever becoming free, so late arrivals can
// never barge past the queue.
func (g *PoolGovernor) release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.waiters) > 0 {
		waiter := g.waiters[0]
		g.waiters = g.waiters[1:]
		waiter.granted = true
		g.totalAcquired++
		waiter.grant <- struct{}{}

		return
	}

	if g.inUse > 0 {
		g.inUse--
	}
}

// Close disposes the governor. Queued waiters and all future acquires fail
// deterministically with ErrGovernorClosed. Close is idempotent. Permits that
// are already held stay valid; releasing them after Close is harmless.
func (g *PoolGovernor) Close() {
	g.mu.Lock()

	if g.closed {
		g.mu.Unlock()
		return
	}

	g.closed = true
	waiters := g.waiters
	g.waiters = nil
	g.mu.Unlock()

	for _, waiter := range waiters {
		close(waiter.grant)
	}
}

// Snapshot returns an immutable point-in-time copy of the governor state.
func (g *PoolGovernor) Snapshot() PoolSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.snapshotLocked()
}

func (g *PoolGovernor) snapshotLocked() PoolSnapshot {
	return PoolSnapshot{
		Label:         g.label,
		MaxPermits:    g.maxPermits,
		InUse:         g.inUse,
		PeakInUse:     g.peakInUse,
		Queued:        len(g.waiters),
		TotalAcquired: g.totalAcquired,
		TotalTimeouts: g.totalTimeouts,
		Disabled:      g.Disabled(),
	}
}
