package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/autofund/internal/fund"
)

func TestHistoryBoundedNewestFirst(t *testing.T) {
	snap := makeTestSnapshot()
	snap.UnassignedCash = dec("10000")
	ids := make([]string, DefaultHistoryLimit+5)
	for i := range ids {
		ids[i] = "exec-" + string(rune('A'+i/26)) + string(rune('a'+i%26))
	}
	te := newTestEngine(t, []fund.Rule{
		makeFixedRule("rule-a", "1", 1, "env-rent"),
	}, snap, ids...)

	current := snap
	for i := 0; i < DefaultHistoryLimit+5; i++ {
		_, err := te.engine.Execute(context.Background(), fund.TriggerManual, current)
		require.NoError(t, err)
		te.clock.Advance(time.Minute)
		current = te.ledger.Snapshot(snap)
	}

	h := te.engine.History()
	assert.Equal(t, DefaultHistoryLimit, h.Len())

	records := h.Get(0, HistoryFilter{})
	require.Len(t, records, DefaultHistoryLimit)
	assert.Equal(t, ids[len(ids)-1], records[0].ID, "newest first")
	for i := 1; i < len(records); i++ {
		assert.False(t, records[i].ExecutedAt.After(records[i-1].ExecutedAt))
	}
}

func TestHistoryGetFilters(t *testing.T) {
	yes, no := true, false
	base := fund.ExecutionRecord{TotalFunded: dec("10"), RemainingCash: dec("0"), InitialCash: dec("10")}

	mk := func(id string, trigger fund.TriggerType, at time.Time, ok bool) fund.ExecutionRecord {
		r := base
		r.ID = id
		r.Trigger = trigger
		r.ExecutedAt = at
		r.Success = ok
		return r
	}

	seed := []fund.ExecutionRecord{
		mk("e3", fund.TriggerManual, testNow, true),
		mk("e2", fund.TriggerWeekly, testNow.Add(-24*time.Hour), false),
		mk("e1", fund.TriggerManual, testNow.Add(-48*time.Hour), true),
	}
	h := newHistory(testutilClock(t), seed)

	assert.Len(t, h.Get(0, HistoryFilter{}), 3)
	assert.Len(t, h.Get(2, HistoryFilter{}), 2)

	manual := h.Get(0, HistoryFilter{Trigger: fund.TriggerManual})
	require.Len(t, manual, 2)
	assert.Equal(t, "e3", manual[0].ID)
	assert.Equal(t, "e1", manual[1].ID)

	failed := h.Get(0, HistoryFilter{Success: &no})
	require.Len(t, failed, 1)
	assert.Equal(t, "e2", failed[0].ID)

	recent := h.Get(0, HistoryFilter{Success: &yes, Since: testNow.Add(-36 * time.Hour)})
	require.Len(t, recent, 1)
	assert.Equal(t, "e3", recent[0].ID)

	until := h.Get(0, HistoryFilter{Until: testNow.Add(-36 * time.Hour)})
	require.Len(t, until, 1)
	assert.Equal(t, "e1", until[0].ID)
}

func TestHistoryStatistics(t *testing.T) {
	seed := []fund.ExecutionRecord{
		{ID: "e4", Trigger: fund.TriggerManualUndo, ExecutedAt: testNow, TotalFunded: dec("-30"), Success: true, IsUndo: true, OriginalExecutionID: "e2"},
		{ID: "e3", Trigger: fund.TriggerManual, ExecutedAt: testNow.Add(-24 * time.Hour), TotalFunded: dec("50"), Success: true},
		{ID: "e2", Trigger: fund.TriggerWeekly, ExecutedAt: testNow.Add(-40 * 24 * time.Hour), TotalFunded: dec("30"), Success: true},
		{ID: "e1", Trigger: fund.TriggerManual, ExecutedAt: testNow.Add(-45 * 24 * time.Hour), TotalFunded: dec("0"), Success: false},
	}
	h := newHistory(testutilClock(t), seed)

	stats := h.Statistics()
	assert.Equal(t, 4, stats.TotalExecutions)
	assert.Equal(t, 3, stats.Successful)
	assert.Equal(t, 1, stats.Failed)
	assert.True(t, stats.TotalFunded.Equal(dec("80")))
	assert.True(t, stats.TotalReversed.Equal(dec("30")))
	assert.True(t, stats.NetFunded.Equal(dec("50")))
	assert.True(t, stats.AverageFunded.Equal(dec("40")), "failed runs do not dilute the average, got %s", stats.AverageFunded)
	assert.Equal(t, 2, stats.Last30Days)
	require.NotNil(t, stats.LastExecution)
	assert.True(t, stats.LastExecution.Equal(testNow))
	assert.Equal(t, map[fund.TriggerType]int{
		fund.TriggerManual:     2,
		fund.TriggerWeekly:     1,
		fund.TriggerManualUndo: 1,
	}, stats.ByTrigger)
}

func TestHistoryStatisticsEmpty(t *testing.T) {
	h := newHistory(testutilClock(t), nil)

	stats := h.Statistics()
	assert.Equal(t, 0, stats.TotalExecutions)
	assert.True(t, stats.TotalFunded.IsZero())
	assert.True(t, stats.NetFunded.IsZero())
	assert.True(t, stats.AverageFunded.IsZero())
	assert.Nil(t, stats.LastExecution)
	assert.Empty(t, stats.ByTrigger)
}

func TestHistoryExportCSV(t *testing.T) {
	snap := makeTestSnapshot()
	te := newTestEngine(t, []fund.Rule{
		makeFixedRule("rule-a", "25", 1, "env-rent"),
	}, snap, "exec-001", "exec-002")

	_, err := te.engine.Execute(context.Background(), fund.TriggerManual, snap)
	require.NoError(t, err)
	te.clock.Advance(24 * time.Hour)
	_, err = te.engine.Execute(context.Background(), fund.TriggerManual, te.ledger.Snapshot(snap))
	require.NoError(t, err)

	filename, data, err := te.engine.History().Export(ExportCSV, ExportOptions{})
	require.NoError(t, err)
	assert.Equal(t, "auto-funding-history-2026-08-16.csv", filename)

	g := goldie.New(t)
	g.Assert(t, "history_csv", data)
}

func TestHistoryExportJSON(t *testing.T) {
	snap := makeTestSnapshot()
	te := newTestEngine(t, []fund.Rule{
		makeFixedRule("rule-a", "25", 1, "env-rent"),
	}, snap, "exec-001")

	_, err := te.engine.Execute(context.Background(), fund.TriggerManual, snap)
	require.NoError(t, err)

	filename, data, err := te.engine.History().Export(ExportJSON, ExportOptions{
		UndoStack: te.engine.Undo().Stack(),
	})
	require.NoError(t, err)
	assert.Equal(t, "auto-funding-history-2026-08-15.json", filename)

	var payload struct {
		ExportedAt time.Time              `json:"exportedAt"`
		Records    []fund.ExecutionRecord `json:"records"`
		UndoStack  []fund.UndoItem        `json:"undoStack"`
	}
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.True(t, payload.ExportedAt.Equal(testNow))
	require.Len(t, payload.Records, 1)
	assert.Equal(t, "exec-001", payload.Records[0].ID)
	assert.Equal(t, fund.TriggerManual, payload.Records[0].Trigger)
	assert.True(t, payload.Records[0].TotalFunded.Equal(dec("25")))
	require.Len(t, payload.Records[0].Results, 1)
	assert.Equal(t, "rule-a", payload.Records[0].Results[0].RuleID)
	require.Len(t, payload.UndoStack, 1)
	assert.Equal(t, "exec-001", payload.UndoStack[0].ExecutionID)
}

func TestHistoryExportFiltered(t *testing.T) {
	snap := makeTestSnapshot()
	te := newTestEngine(t, []fund.Rule{
		makeFixedRule("rule-a", "25", 1, "env-rent"),
	}, snap, "exec-001", "exec-002")

	_, err := te.engine.Execute(context.Background(), fund.TriggerManual, snap)
	require.NoError(t, err)
	te.clock.Advance(24 * time.Hour)
	_, err = te.engine.Execute(context.Background(), fund.TriggerManual, te.ledger.Snapshot(snap))
	require.NoError(t, err)

	_, data, err := te.engine.History().Export(ExportCSV, ExportOptions{
		Filter: HistoryFilter{Since: testNow.Add(12 * time.Hour)},
	})
	require.NoError(t, err)
	assert.Contains(t, string(data), "exec-002")
	assert.NotContains(t, string(data), "exec-001")
}

func TestHistoryExportUnknownFormat(t *testing.T) {
	h := newHistory(testutilClock(t), nil)

	_, _, err := h.Export("xml", ExportOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported export format")
}

func testutilClock(t *testing.T) Clock {
	t.Helper()
	return fixedClock{}
}

type fixedClock struct{}

func (fixedClock) Now() time.Time { return testNow }
