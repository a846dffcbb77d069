package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbgovernor/db-access-governor-go/governance"
	"github.com/dbgovernor/db-access-governor-go/governance/sqlengine/internal/adapters"
)

type stubHandle struct {
	beginErr  error
	lastLevel sql.IsolationLevel
	beginTxs  int
}

func (h *stubHandle) Ping(_ context.Context) error {
	return nil
}

func (h *stubHandle) BeginTx(_ context.Context, level sql.IsolationLevel) (adapters.DBTx, error) {
	h.beginTxs++
	h.lastLevel = level

	if h.beginErr != nil {
		return nil, h.beginErr
	}

	return &stubTx{}, nil
}

type stubTx struct {
	commitErr   error
	rollbackErr error
}

func (t *stubTx) Commit(_ context.Context) error {
	return t.commitErr
}

func (t *stubTx) Rollback(_ context.Context) error {
	return t.rollbackErr
}

func newStubContext(t *testing.T, handle adapters.DBHandle, caps governance.EngineCapabilities) *AccessContext {
	t.Helper()

	ac, err := newAccessContext(handle, caps, "host=localhost dbname=governed", governance.ModeStandard, nil)
	require.NoError(t, err)
	t.Cleanup(ac.Close)

	return ac
}

func Test_BeginTx_ShouldPassResolvedLevelToTheHandle(t *testing.T) {
	// arrange
	handle := &stubHandle{}
	ac := newStubContext(t, handle, governance.CapabilitiesFor(governance.EnginePostgres))

	// act
	tx, err := ac.BeginTx(context.Background(), governance.SafeNonBlockingReads)

	// assert
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, 1, handle.beginTxs)
	assert.Equal(t, sql.LevelRepeatableRead, handle.lastLevel)
	assert.Equal(t, uint64(1), ac.MetricsSnapshot().TransactionsStarted)
}

func Test_BeginTx_ShouldCountCompletionOnce_OnCommit(t *testing.T) {
	// arrange
	ac := newStubContext(t, &stubHandle{}, governance.CapabilitiesFor(governance.EnginePostgres))

	tx, err := ac.BeginTx(context.Background(), governance.StrictConsistency)
	require.NoError(t, err)

	// act
	require.NoError(t, tx.Commit(context.Background()))
	_ = tx.Rollback(context.Background())

	// assert
	snapshot := ac.MetricsSnapshot()
	assert.Equal(t, uint64(1), snapshot.TransactionsStarted)
	assert.Equal(t, uint64(1), snapshot.TransactionsCompleted)
}

func Test_BeginTx_ShouldCountCompletionOnce_OnRollback(t *testing.T) {
	// arrange
	ac := newStubContext(t, &stubHandle{}, governance.CapabilitiesFor(governance.EnginePostgres))

	tx, err := ac.BeginTx(context.Background(), governance.StrictConsistency)
	require.NoError(t, err)

	// act
	require.NoError(t, tx.Rollback(context.Background()))
	_ = tx.Rollback(context.Background())

	// assert
	assert.Equal(t, uint64(1), ac.MetricsSnapshot().TransactionsCompleted)
}

func Test_BeginTx_ShouldRecordFailure_WhenTheHandleRefuses(t *testing.T) {
	// arrange
	handleErr := errors.New("connection refused")
	ac := newStubContext(t, &stubHandle{beginErr: handleErr}, governance.CapabilitiesFor(governance.EnginePostgres))

	// act
	tx, err := ac.BeginTx(context.Background(), governance.StrictConsistency)

	// assert
	assert.Nil(t, tx)
	assert.True(t, errors.Is(err, handleErr))

	snapshot := ac.MetricsSnapshot()
	assert.Equal(t, uint64(0), snapshot.TransactionsStarted)
	assert.Equal(t, uint64(1), snapshot.CommandsFailed)
}

func Test_BeginTx_ShouldNotTouchTheHandle_WhenResolutionFails(t *testing.T) {
	// arrange
	handle := &stubHandle{}
	ac := newStubContext(t, handle, governance.CapabilitiesFor(governance.EngineSQLite))

	// act
	tx, err := ac.BeginTx(context.Background(), governance.FastWithRisks)

	// assert
	assert.Nil(t, tx)
	assert.True(t, errors.Is(err, governance.ErrProfileNotSupported))
	assert.Equal(t, 0, handle.beginTxs)
}
