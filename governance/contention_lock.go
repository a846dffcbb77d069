package governance

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ContentionTimeoutError reports that an exclusive-lock acquisition timed out
// while another holder kept the lock. It carries the effective mode the lock
// enforces and a contention snapshot. Recoverable by caller retry/backoff.
type ContentionTimeoutError struct {
	Mode     ConcurrencyMode
	Snapshot ContentionSnapshot
}

func (e *ContentionTimeoutError) Error() string {
	return fmt.Sprintf(
		"contention lock timed out in %s mode: %d waiting, %d timeouts total",
		e.Mode, e.Snapshot.CurrentWaiters, e.Snapshot.TotalTimeouts,
	)
}

// Unwrap makes errors.Is(err, ErrLockContention) work.
func (e *ContentionTimeoutError) Unwrap() error {
	return ErrLockContention
}

// LockHandle is the scoped ownership token for a held ContentionLock.
// Release is safe to call from a defer on every exit path, including caller
// panics; releasing twice is a no-op.
type LockHandle struct {
	lock     *ContentionLock
	released atomic.Bool
}

// Release hands the lock to the longest-waiting acquirer, or returns it to
// idle when nobody waits. Releasing twice is a no-op.
func (h *LockHandle) Release() {
	if h == nil {
		return
	}

	if !h.released.CompareAndSwap(false, true) {
		return
	}

	h.lock.unlock()
}

type lockWaiter struct {
	grant   chan struct{}
	granted bool
}

// ContentionLock is a one-holder mutex with contention accounting, used when
// the effective mode requires a single logical connection or writer. Waiters
// are served strictly FIFO. The bookkeeping mutex is held only for state
// transitions and is never held while waiting on the guarded resource, so
// bookkeeping can never deadlock against the exclusivity it instruments.
//
// This is deliberately distinct from PoolGovernor's N-of-M admission: the two
// are never interchangeable since their peak-concurrency invariants differ
// (1 vs. MaxPermits).
type ContentionLock struct {
	mode ConcurrencyMode

	mu             sync.Mutex
	held           bool
	waiters        []*lockWaiter
	currentWaiters int
	peakWaiters    int
	totalWaits     uint64
	totalWaitTime  time.Duration
	totalTimeouts  uint64
	closed         bool
}

// NewContentionLock creates a contention lock enforcing the given mode.
func NewContentionLock(mode ConcurrencyMode) *ContentionLock {
	return &ContentionLock{mode: mode}
}

// Mode returns the concurrency mode this lock enforces.
func (l *ContentionLock) Mode() ConcurrencyMode {
	return l.mode
}

// Lock acquires exclusive ownership, suspending the calling goroutine until
// the lock frees, the timeout elapses, the context is canceled, or the lock is
// closed. An immediately-available acquisition is uncontended and records no
// wait statistics. Otherwise the caller is accounted as a waiter until it is
// granted the lock or removed on timeout/cancellation, so CurrentWaiters never
// leaks on any path.
func (l *ContentionLock) Lock(ctx context.Context, timeout time.Duration) (*LockHandle, error) {
	l.mu.Lock()

	if l.closed {
		l.mu.Unlock()
		return nil, ErrLockClosed
	}

	if !l.held && len(l.waiters) == 0 {
		l.held = true
		l.mu.Unlock()

		return &LockHandle{lock: l}, nil
	}

	if timeout <= 0 {
		l.totalTimeouts++
		timeoutErr := &ContentionTimeoutError{Mode: l.mode, Snapshot: l.snapshotLocked()}
		l.mu.Unlock()

		return nil, timeoutErr
	}

	waiter := &lockWaiter{grant: make(chan struct{}, 1)}
	l.waiters = append(l.waiters, waiter)
	l.currentWaiters++

	if l.currentWaiters > l.peakWaiters {
		l.peakWaiters = l.currentWaiters
	}

	l.mu.Unlock()

	waitStart := time.Now()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-waiter.grant:
		return l.settleGrant(waiter, waitStart)

	case <-timer.C:
		return l.settleTimeout(waiter, waitStart)

	case <-ctx.Done():
		return nil, l.settleCancel(waiter, ctx.Err())
	}
}

func (l *ContentionLock) settleGrant(waiter *lockWaiter, waitStart time.Time) (*LockHandle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentWaiters--

	if !waiter.granted {
		return nil, ErrLockClosed
	}

	l.totalWaits++
	l.totalWaitTime += time.Since(waitStart)

	return &LockHandle{lock: l}, nil
}

// settleTimeout removes the waiter from accounting. A hand-off that won the
// race against the timer still counts as a successful contended acquisition.
func (l *ContentionLock) settleTimeout(waiter *lockWaiter, waitStart time.Time) (*LockHandle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentWaiters--

	if waiter.granted {
		l.totalWaits++
		l.totalWaitTime += time.Since(waitStart)

		return &LockHandle{lock: l}, nil
	}

	if l.closed {
		return nil, ErrLockClosed
	}

	l.removeWaiterLocked(waiter)
	l.totalTimeouts++

	return nil, &ContentionTimeoutError{Mode: l.mode, Snapshot: l.snapshotLocked()}
}

func (l *ContentionLock) settleCancel(waiter *lockWaiter, cause error) error {
	l.mu.Lock()
	l.currentWaiters--

	if waiter.granted {
		l.mu.Unlock()
		l.unlock()

		return cause
	}

	l.removeWaiterLocked(waiter)
	l.mu.Unlock()

	return cause
}

func (l *ContentionLock) removeWaiterLocked(target *lockWaiter) {
	for i, waiter := range l.waiters {
		if waiter == target {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			return
		}
	}
}

// unlock hands the lock to the head of the queue or returns it to idle.
// A waiter's own timeout self-removes without disturbing the holder, so the
// hand-off here only ever sees live waiters or an empty queue.
func (l *ContentionLock) unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.waiters) > 0 {
		waiter := l.waiters[0]
		l.waiters = l.waiters[1:]
		waiter.granted = true
		waiter.grant <- struct{}{}

		return
	}

	l.held = false
}

// Close disposes the lock. Queued waiters and all future acquires fail
// deterministically with ErrLockClosed. Close is idempotent; a currently held
// handle stays valid and its release is harmless.
func (l *ContentionLock) Close() {
	l.mu.Lock()

	if l.closed {
		l.mu.Unlock()
		return
	}

	l.closed = true
	waiters := l.waiters
	l.waiters = nil
	l.mu.Unlock()

	for _, waiter := range waiters {
		close(waiter.grant)
	}
}

// Snapshot returns an immutable point-in-time copy of the contention counters.
func (l *ContentionLock) Snapshot() ContentionSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.snapshotLocked()
}

func (l *ContentionLock) snapshotLocked() ContentionSnapshot {
	return ContentionSnapshot{
		TotalWaits:     l.totalWaits,
		TotalWaitTime:  l.totalWaitTime,
		PeakWaiters:    l.peakWaiters,
		CurrentWaiters: l.currentWaiters,
		TotalTimeouts:  l.totalTimeouts,
	}
}
