package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/autofund/internal/fund"
)

var persistNow = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func makeStoredRule(id string, priority int, createdAt time.Time) fund.Rule {
	return fund.Rule{
		ID:        id,
		Name:      "Rule " + id,
		Type:      fund.RuleFixedAmount,
		Trigger:   fund.TriggerManual,
		Priority:  priority,
		Enabled:   true,
		CreatedAt: createdAt,
		Config: fund.RuleConfig{
			SourceType: fund.SourceUnassigned,
			TargetType: fund.TargetEnvelope,
			TargetID:   "env-rent",
			Amount:     dec("25"),
		},
	}
}

func TestRulesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seed := []fund.Rule{
		makeStoredRule("rule-b", 5, persistNow),
		makeStoredRule("rule-a", 10, persistNow.Add(-time.Hour)),
	}
	require.NoError(t, s.SaveRules(ctx, seed))

	loaded, err := s.LoadRules(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "rule-b", loaded[0].ID, "ordered by priority")
	assert.Equal(t, "rule-a", loaded[1].ID)
	assert.True(t, loaded[0].Config.Amount.Equal(dec("25")))
	assert.True(t, loaded[0].CreatedAt.Equal(persistNow))

	// SaveRules replaces wholesale.
	require.NoError(t, s.SaveRules(ctx, seed[:1]))
	loaded, err = s.LoadRules(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	require.NoError(t, s.SaveRules(ctx, nil))
	loaded, err = s.LoadRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestHistoryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mk := func(id string, at time.Time) fund.ExecutionRecord {
		return fund.ExecutionRecord{
			ID:            id,
			Trigger:       fund.TriggerManual,
			ExecutedAt:    at,
			RulesExecuted: 1,
			TotalFunded:   dec("25"),
			RemainingCash: dec("75"),
			InitialCash:   dec("100"),
			Success:       true,
			Results: []fund.RuleResult{
				{RuleID: "rule-a", RuleName: "Rule A", Success: true, Amount: dec("25"), ExecutedAt: at},
			},
		}
	}

	require.NoError(t, s.AppendRecord(ctx, mk("exec-001", persistNow)))
	require.NoError(t, s.AppendRecord(ctx, mk("exec-002", persistNow.Add(time.Hour))))

	// Duplicate append is a silent no-op.
	require.NoError(t, s.AppendRecord(ctx, mk("exec-001", persistNow)))

	records, err := s.LoadHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "exec-002", records[0].ID, "newest first")
	require.Len(t, records[0].Results, 1)
	assert.True(t, records[0].Results[0].Amount.Equal(dec("25")))

	records, err = s.LoadHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "exec-002", records[0].ID)

	require.NoError(t, s.PruneHistory(ctx, 1))
	records, err = s.LoadHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "exec-002", records[0].ID, "pruning keeps the newest")
}

func TestUndoStackRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	undoneAt := persistNow.Add(2 * time.Hour)
	items := []fund.UndoItem{
		{
			ExecutionID: "exec-002",
			ExecutedAt:  persistNow.Add(time.Hour),
			Trigger:     fund.TriggerManual,
			TotalAmount: dec("50"),
			CanUndo:     true,
			Transfers: []fund.Transfer{
				{FromEnvelopeID: fund.Unassigned, ToEnvelopeID: "env-rent", Amount: dec("50"), Description: "fund"},
			},
		},
		{
			ExecutionID: "exec-001",
			ExecutedAt:  persistNow,
			Trigger:     fund.TriggerWeekly,
			TotalAmount: dec("25"),
			CanUndo:     false,
			UndoneAt:    &undoneAt,
		},
	}
	require.NoError(t, s.SaveUndoStack(ctx, items))

	loaded, err := s.LoadUndoStack(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "exec-002", loaded[0].ExecutionID, "newest first")
	assert.True(t, loaded[0].CanUndo)
	require.Len(t, loaded[0].Transfers, 1)
	assert.True(t, loaded[0].Transfers[0].Amount.Equal(dec("50")))

	assert.False(t, loaded[1].CanUndo)
	require.NotNil(t, loaded[1].UndoneAt)
	assert.True(t, loaded[1].UndoneAt.Equal(undoneAt))

	// Replaced wholesale on save.
	require.NoError(t, s.SaveUndoStack(ctx, nil))
	loaded, err = s.LoadUndoStack(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
