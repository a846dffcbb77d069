package governance

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

var snapshotJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// PoolSnapshot is an immutable point-in-time copy of one pool governor.
type PoolSnapshot struct {
	Label         PoolLabel `json:"-"`
	MaxPermits    int       `json:"max_permits"`
	InUse         int       `json:"in_use"`
	PeakInUse     int       `json:"peak_in_use"`
	Queued        int       `json:"queued"`
	TotalAcquired uint64    `json:"total_acquired"`
	TotalTimeouts uint64    `json:"total_timeouts"`
	Disabled      bool      `json:"disabled"`
}

// JSON renders the snapshot for diagnostic surfaces and log exports.
func (s PoolSnapshot) JSON() ([]byte, error) {
	type labeled struct {
		PoolLabel string `json:"pool"`
		PoolSnapshot
	}

	return snapshotJSON.Marshal(labeled{PoolLabel: s.Label.String(), PoolSnapshot: s})
}

// ContentionSnapshot is an immutable point-in-time copy of a contention lock.
type ContentionSnapshot struct {
	TotalWaits     uint64        `json:"total_waits"`
	TotalWaitTime  time.Duration `json:"total_wait_time_ns"`
	PeakWaiters    int           `json:"peak_waiters"`
	CurrentWaiters int           `json:"current_waiters"`
	TotalTimeouts  uint64        `json:"total_timeouts"`
}

// JSON renders the snapshot for diagnostic surfaces and log exports.
func (s ContentionSnapshot) JSON() ([]byte, error) {
	return snapshotJSON.Marshal(s)
}

// MetricsSnapshot is an immutable aggregate of all telemetry counters and
// duration statistics collected by a MetricsAggregator.
type MetricsSnapshot struct {
	CommandsExecuted      uint64 `json:"commands_executed"`
	CommandsFailed        uint64 `json:"commands_failed"`
	RowsRead              uint64 `json:"rows_read"`
	RowsAffected          uint64 `json:"rows_affected"`
	StatementsEvicted     uint64 `json:"statements_evicted"`
	TransactionsStarted   uint64 `json:"transactions_started"`
	TransactionsCompleted uint64 `json:"transactions_completed"`

	CommandDurationCount uint64        `json:"command_duration_count"`
	CommandDurationTotal time.Duration `json:"command_duration_total_ns"`
	CommandDurationMean  time.Duration `json:"command_duration_mean_ns"`
	CommandDurationP50   time.Duration `json:"command_duration_p50_ns"`
	CommandDurationP95   time.Duration `json:"command_duration_p95_ns"`
	CommandDurationP99   time.Duration `json:"command_duration_p99_ns"`

	AcquireWaitCount uint64        `json:"acquire_wait_count"`
	AcquireWaitTotal time.Duration `json:"acquire_wait_total_ns"`
}

// JSON renders the snapshot for diagnostic surfaces and log exports.
func (s MetricsSnapshot) JSON() ([]byte, error) {
	return snapshotJSON.Marshal(s)
}
