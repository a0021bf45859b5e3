package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/autofund/internal/fund"
	"github.com/roach88/autofund/internal/rules"
	"github.com/roach88/autofund/internal/testutil"
)

func TestUndoRestoresBalances(t *testing.T) {
	snap := makeTestSnapshot()
	te := newTestEngine(t, []fund.Rule{
		makeFixedRule("rule-a", "100", 1, "env-rent"),
	}, snap)

	record, err := te.engine.Execute(context.Background(), fund.TriggerManual, snap)
	require.NoError(t, err)
	require.True(t, te.ledger.Unassigned().IsZero())

	te.clock.Advance(time.Hour)
	undoRecord, err := te.engine.Undo().Undo(context.Background(), record.ID)
	require.NoError(t, err)

	assert.True(t, te.ledger.Unassigned().Equal(dec("100")))
	assert.True(t, te.ledger.Balance("env-rent").Equal(dec("40")))

	assert.Equal(t, fund.TriggerManualUndo, undoRecord.Trigger)
	assert.Equal(t, 0, undoRecord.RulesExecuted)
	assert.True(t, undoRecord.TotalFunded.Equal(dec("-100")))
	assert.True(t, undoRecord.Success)
	assert.True(t, undoRecord.IsUndo)
	assert.Equal(t, record.ID, undoRecord.OriginalExecutionID)
	assert.Equal(t, 2, te.engine.History().Len())

	// The inverse transfer carries the undo description.
	log := te.ledger.Log()
	require.Len(t, log, 2)
	assert.Equal(t, "Undo: Auto-funding: Fund env-rent", log[1].Description)
}

func TestUndoOnlyOnce(t *testing.T) {
	snap := makeTestSnapshot()
	te := newTestEngine(t, []fund.Rule{
		makeFixedRule("rule-a", "100", 1, "env-rent"),
	}, snap)

	record, err := te.engine.Execute(context.Background(), fund.TriggerManual, snap)
	require.NoError(t, err)

	_, err = te.engine.Undo().Undo(context.Background(), record.ID)
	require.NoError(t, err)

	_, err = te.engine.Undo().Undo(context.Background(), record.ID)
	require.Error(t, err)
	assert.True(t, IsUndoError(err))

	var ue *UndoError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, UndoErrNotFound, ue.Code)
	assert.True(t, te.ledger.Unassigned().Equal(dec("100")), "second attempt moved nothing")
}

func TestUndoUnknownExecution(t *testing.T) {
	te := newTestEngine(t, nil, makeTestSnapshot())

	_, err := te.engine.Undo().Undo(context.Background(), "exec-missing")
	require.Error(t, err)

	var ue *UndoError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, UndoErrNotFound, ue.Code)
}

func TestUndoLast(t *testing.T) {
	snap := makeTestSnapshot()
	te := newTestEngine(t, []fund.Rule{
		makeFixedRule("rule-a", "20", 1, "env-rent"),
	}, snap)

	first, err := te.engine.Execute(context.Background(), fund.TriggerManual, snap)
	require.NoError(t, err)
	second, err := te.engine.Execute(context.Background(), fund.TriggerManual, te.ledger.Snapshot(snap))
	require.NoError(t, err)

	undoRecord, err := te.engine.Undo().UndoLast(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second.ID, undoRecord.OriginalExecutionID, "newest execution is reversed first")

	undoRecord, err = te.engine.Undo().UndoLast(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.ID, undoRecord.OriginalExecutionID)

	_, err = te.engine.Undo().UndoLast(context.Background())
	require.Error(t, err, "nothing left to undo")
}

// failAfterLedger succeeds for the first n transfers, then fails.
type failAfterLedger struct {
	inner *MemoryLedger
	n     int
	calls int
}

func (l *failAfterLedger) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal, description string) error {
	l.calls++
	if l.calls > l.n {
		return &fund.TransferError{Code: fund.ErrCodeStorageFailure, Message: "write failed"}
	}
	return l.inner.Transfer(ctx, fromID, toID, amount, description)
}

func TestUndoPartialReversal(t *testing.T) {
	snap := makeTestSnapshot()
	split := makeFixedRule("rule-s", "0", 1, "")
	split.Type = fund.RuleSplitRemainder
	split.Config.TargetType = fund.TargetMultiple
	split.Config.TargetIDs = []string{"env-rent", "env-savings"}

	clock := testutil.NewFrozenClock(testNow)
	store := rules.NewStore([]fund.Rule{split}, rules.WithNow(clock.Now))
	// Two transfers for the run, one successful reversal, then failure.
	ledger := &failAfterLedger{inner: NewMemoryLedger(snap), n: 3}
	eng := New(store, ledger,
		WithClock(clock),
		WithIDGenerator(NewFixedGenerator("exec-001", "exec-002")),
	)

	record, err := eng.Execute(context.Background(), fund.TriggerManual, snap)
	require.NoError(t, err)
	require.Equal(t, 1, record.RulesExecuted)
	require.True(t, ledger.inner.Unassigned().IsZero())

	_, err = eng.Undo().Undo(context.Background(), record.ID)
	require.Error(t, err)

	var ue *UndoError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, UndoErrPartial, ue.Code)
	assert.Equal(t, record.ID, ue.ExecutionID)
	assert.Equal(t, 1, ue.Reversed)
	assert.Equal(t, 1, ue.Remaining)
	assert.True(t, fund.IsTransferError(err, fund.ErrCodeStorageFailure), "ledger cause is wrapped")

	// The reversed half stays reversed; the other half stays funded.
	assert.True(t, ledger.inner.Unassigned().Equal(dec("50")))
	assert.True(t, ledger.inner.Balance("env-rent").Equal(dec("90")))
	assert.True(t, ledger.inner.Balance("env-savings").Equal(dec("300")))

	// A partial undo still produces a history record for what was reversed.
	records := eng.History().Get(0, HistoryFilter{Trigger: fund.TriggerManualUndo})
	require.Len(t, records, 1)
	assert.True(t, records[0].TotalFunded.Equal(dec("-50")))

	// No second chance after a partial reversal.
	_, err = eng.Undo().Undo(context.Background(), record.ID)
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, UndoErrNotFound, ue.Code)
}

func TestUndoStackStatistics(t *testing.T) {
	snap := makeTestSnapshot()
	te := newTestEngine(t, []fund.Rule{
		makeFixedRule("rule-a", "20", 1, "env-rent"),
	}, snap)

	first, err := te.engine.Execute(context.Background(), fund.TriggerManual, snap)
	require.NoError(t, err)
	_, err = te.engine.Execute(context.Background(), fund.TriggerManual, te.ledger.Snapshot(snap))
	require.NoError(t, err)

	stats := te.engine.Undo().Statistics()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Available)
	assert.Equal(t, 0, stats.Undone)
	assert.True(t, stats.TotalReversible.Equal(dec("40")))

	_, err = te.engine.Undo().Undo(context.Background(), first.ID)
	require.NoError(t, err)

	stats = te.engine.Undo().Statistics()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Available)
	assert.Equal(t, 1, stats.Undone)
	assert.True(t, stats.TotalReversible.Equal(dec("20")))

	undoable := te.engine.Undo().Undoable()
	require.Len(t, undoable, 1)
	assert.NotEqual(t, first.ID, undoable[0].ExecutionID)
}

func TestUndoStackEvictsOldest(t *testing.T) {
	snap := makeTestSnapshot()
	snap.UnassignedCash = dec("10000")
	ids := make([]string, DefaultUndoLimit+1)
	for i := range ids {
		ids[i] = "exec-" + string(rune('A'+i/26)) + string(rune('a'+i%26))
	}
	te := newTestEngine(t, []fund.Rule{
		makeFixedRule("rule-a", "1", 1, "env-rent"),
	}, snap, ids...)

	var firstID string
	current := snap
	for i := 0; i < DefaultUndoLimit+1; i++ {
		record, err := te.engine.Execute(context.Background(), fund.TriggerManual, current)
		require.NoError(t, err)
		if i == 0 {
			firstID = record.ID
		}
		current = te.ledger.Snapshot(snap)
	}

	stack := te.engine.Undo().Stack()
	assert.Len(t, stack, DefaultUndoLimit)
	for _, item := range stack {
		assert.NotEqual(t, firstID, item.ExecutionID, "oldest entry was evicted")
	}
}
