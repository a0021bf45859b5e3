package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/autofund/internal/fund"
)

func TestSimulateMatchesExecution(t *testing.T) {
	snap := makeTestSnapshot()
	seed := []fund.Rule{
		makeFixedRule("rule-a", "80", 10, "env-rent"),
		makePercentRule("rule-b", "50", 5, "env-savings"),
	}

	te := newTestEngine(t, seed, snap)

	plan := te.engine.Simulate(context.Background(), fund.TriggerManual, snap)
	record, err := te.engine.Execute(context.Background(), fund.TriggerManual, snap)
	require.NoError(t, err)

	assert.Equal(t, record.RulesExecuted, plan.RulesPlanned)
	assert.True(t, plan.TotalPlanned.Equal(record.TotalFunded))
	assert.True(t, plan.RemainingCash.Equal(record.RemainingCash))
	require.Equal(t, len(record.Results), len(plan.Results))
	for i := range plan.Results {
		assert.Equal(t, record.Results[i].RuleID, plan.Results[i].RuleID)
		assert.True(t, plan.Results[i].Amount.Equal(record.Results[i].Amount))
	}

	applied := te.ledger.Log()
	require.Equal(t, len(applied), len(plan.Transfers))
	for i, tr := range plan.Transfers {
		assert.Equal(t, applied[i].FromEnvelopeID, tr.FromEnvelopeID)
		assert.Equal(t, applied[i].ToEnvelopeID, tr.ToEnvelopeID)
		assert.True(t, tr.Amount.Equal(applied[i].Amount))
		assert.Equal(t, applied[i].Description, tr.Description)
	}
}

func TestSimulateDoesNotMutate(t *testing.T) {
	snap := makeTestSnapshot()
	te := newTestEngine(t, []fund.Rule{
		makeFixedRule("rule-a", "80", 10, "env-rent"),
	}, snap)

	plan := te.engine.Simulate(context.Background(), fund.TriggerManual, snap)
	assert.Equal(t, 1, plan.RulesPlanned)

	assert.True(t, te.ledger.Unassigned().Equal(snap.UnassignedCash))
	assert.Empty(t, te.ledger.Log())
	assert.Equal(t, 0, te.engine.History().Len())
	assert.Empty(t, te.engine.Undo().Stack())

	r, err := te.store.Get("rule-a")
	require.NoError(t, err)
	assert.Equal(t, 0, r.ExecutionCount)
	assert.Nil(t, r.LastExecuted)
}

func TestSimulateImpacts(t *testing.T) {
	snap := makeTestSnapshot()
	te := newTestEngine(t, []fund.Rule{
		makeFixedRule("rule-a", "80", 10, "env-rent"),
	}, snap)

	plan := te.engine.Simulate(context.Background(), fund.TriggerManual, snap)

	require.Len(t, plan.Impacts, 1)
	imp := plan.Impacts[0]
	assert.Equal(t, "env-rent", imp.EnvelopeID)
	assert.True(t, imp.BalanceBefore.Equal(dec("40")))
	assert.True(t, imp.BalanceAfter.Equal(dec("120")))
	assert.True(t, imp.FillBefore.Equal(dec("3.3")), "fill before %s", imp.FillBefore)
	assert.True(t, imp.FillAfter.Equal(dec("10")), "fill after %s", imp.FillAfter)
}

func TestSimulateWarnings(t *testing.T) {
	codes := func(plan Plan) []string {
		var out []string
		for _, w := range plan.Warnings {
			out = append(out, w.Code)
		}
		return out
	}

	t.Run("no execution", func(t *testing.T) {
		snap := makeTestSnapshot()
		te := newTestEngine(t, nil, snap)

		plan := te.engine.Simulate(context.Background(), fund.TriggerManual, snap)
		assert.Equal(t, []string{WarnNoExecution}, codes(plan))
	})

	t.Run("insufficient funds", func(t *testing.T) {
		snap := makeTestSnapshot()
		te := newTestEngine(t, []fund.Rule{
			makeFixedRule("rule-a", "100", 1, "env-rent"),
			makeFixedRule("rule-b", "50", 2, "env-savings"),
		}, snap)

		plan := te.engine.Simulate(context.Background(), fund.TriggerManual, snap)
		assert.Contains(t, codes(plan), WarnInsufficientFunds)
		assert.NotContains(t, codes(plan), WarnLowRemainingCash, "zero remaining is not low remaining")
	})

	t.Run("all rules starved", func(t *testing.T) {
		snap := makeTestSnapshot()
		snap.UnassignedCash = dec("0")
		te := newTestEngine(t, []fund.Rule{
			makeFixedRule("rule-a", "100", 1, "env-rent"),
		}, snap)

		plan := te.engine.Simulate(context.Background(), fund.TriggerManual, snap)
		assert.Equal(t, []string{WarnNoExecution, WarnInsufficientFunds}, codes(plan))
	})

	t.Run("low remaining cash", func(t *testing.T) {
		snap := makeTestSnapshot()
		te := newTestEngine(t, []fund.Rule{
			makeFixedRule("rule-a", "96", 1, "env-rent"),
		}, snap)

		plan := te.engine.Simulate(context.Background(), fund.TriggerManual, snap)
		assert.Equal(t, []string{WarnLowRemainingCash}, codes(plan))
	})

	t.Run("clean plan has no warnings", func(t *testing.T) {
		snap := makeTestSnapshot()
		te := newTestEngine(t, []fund.Rule{
			makeFixedRule("rule-a", "40", 1, "env-rent"),
		}, snap)

		plan := te.engine.Simulate(context.Background(), fund.TriggerManual, snap)
		assert.Empty(t, plan.Warnings)
	})
}
