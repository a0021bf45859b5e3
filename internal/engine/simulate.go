package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/autofund/internal/fund"
)

// Warning codes attached to a simulated plan.
const (
	WarnInsufficientFunds = "insufficient_funds"
	WarnNoExecution       = "no_execution"
	WarnLowRemainingCash  = "low_remaining_cash"
)

// lowCashThreshold is the fraction of initial cash below which the
// low_remaining_cash warning fires.
var lowCashThreshold = decimal.NewFromFloat(0.05)

var hundredPct = decimal.NewFromInt(100)

// Warning flags a concern with a simulated plan.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Impact describes how the plan would change one envelope. Fill
// percentages are relative to the envelope's monthly amount.
type Impact struct {
	EnvelopeID    string          `json:"envelopeId"`
	Name          string          `json:"name,omitempty"`
	BalanceBefore decimal.Decimal `json:"balanceBefore"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	FillBefore    decimal.Decimal `json:"fillBefore"`
	FillAfter     decimal.Decimal `json:"fillAfter"`
}

// Plan is the result of a dry run: what an execution with the same
// trigger and snapshot would do, without touching the ledger.
type Plan struct {
	Trigger       fund.TriggerType  `json:"trigger"`
	GeneratedAt   time.Time         `json:"generatedAt"`
	InitialCash   decimal.Decimal   `json:"initialCash"`
	RemainingCash decimal.Decimal   `json:"remainingCash"`
	TotalPlanned  decimal.Decimal   `json:"totalPlanned"`
	RulesPlanned  int               `json:"rulesPlanned"`
	Results       []fund.RuleResult `json:"results"`
	Transfers     []fund.Transfer   `json:"transfers"`
	Impacts       []Impact          `json:"impacts,omitempty"`
	Warnings      []Warning         `json:"warnings,omitempty"`
}

// Simulate runs the funding pipeline against a recording ledger and
// returns the plan an Execute with the same inputs would produce. No
// balances move, no history is written, rule counters are untouched.
func (e *Engine) Simulate(ctx context.Context, trigger fund.TriggerType, snap fund.Snapshot) Plan {
	rec := &recordingLedger{}
	outcome := e.runPipeline(ctx, trigger, snap, rec)

	plan := Plan{
		Trigger:       trigger,
		GeneratedAt:   e.clock.Now(),
		InitialCash:   snap.UnassignedCash,
		RemainingCash: outcome.remaining,
		TotalPlanned:  outcome.totalFunded,
		RulesPlanned:  outcome.rulesExecuted,
		Results:       outcome.results,
		Transfers:     outcome.issued,
	}
	plan.Impacts = planImpacts(snap, plan.Transfers)
	plan.Warnings = planWarnings(plan)

	slog.Debug("simulation completed",
		"trigger", trigger,
		"rules_planned", plan.RulesPlanned,
		"total_planned", plan.TotalPlanned,
		"warnings", len(plan.Warnings),
	)
	return plan
}

// planImpacts projects the planned transfers onto envelope balances.
// Only envelopes the plan touches appear, in snapshot order.
func planImpacts(snap fund.Snapshot, transfers []fund.Transfer) []Impact {
	deltas := make(map[string]decimal.Decimal, len(transfers))
	for _, tr := range transfers {
		deltas[tr.ToEnvelopeID] = deltas[tr.ToEnvelopeID].Add(tr.Amount)
		deltas[tr.FromEnvelopeID] = deltas[tr.FromEnvelopeID].Sub(tr.Amount)
	}

	var impacts []Impact
	for _, env := range snap.Envelopes {
		delta, ok := deltas[env.ID]
		if !ok || delta.IsZero() {
			continue
		}
		after := env.CurrentBalance.Add(delta)
		impacts = append(impacts, Impact{
			EnvelopeID:    env.ID,
			Name:          env.Name,
			BalanceBefore: env.CurrentBalance,
			BalanceAfter:  after,
			FillBefore:    fillPercent(env.CurrentBalance, env.MonthlyAmount),
			FillAfter:     fillPercent(after, env.MonthlyAmount),
		})
	}
	return impacts
}

// fillPercent reports balance as a percentage of the monthly amount,
// rounded to one decimal place. Zero when no monthly amount is set.
func fillPercent(balance, monthly decimal.Decimal) decimal.Decimal {
	if !monthly.IsPositive() {
		return decimal.Zero
	}
	return balance.Div(monthly).Mul(hundredPct).Round(1)
}

// planWarnings derives the plan's warnings. The three conditions are
/// independent: a plan where every eligible rule starved carries both
// no_execution and insufficient_funds.
func planWarnings(plan Plan) []Warning {
	var warnings []Warning

	if plan.RulesPlanned == 0 {
		warnings = append(warnings, Warning{
			Code:    WarnNoExecution,
			Message: "No rules would execute for this trigger",
		})
	}

	starved := 0
	for _, res := range plan.Results {
		if !res.Success && res.Error == msgNoFunds {
			starved++
		}
	}
	if starved > 0 {
		warnings = append(warnings, Warning{
			Code:    WarnInsufficientFunds,
			Message: fmt.Sprintf("%d rule(s) would not fund due to insufficient cash", starved),
		})
	}

	if plan.RemainingCash.IsPositive() &&
		plan.RemainingCash.LessThan(plan.InitialCash.Mul(lowCashThreshold)) {
		warnings = append(warnings, Warning{
			Code:    WarnLowRemainingCash,
			Message: fmt.Sprintf("Only %s unassigned cash would remain", plan.RemainingCash.StringFixed(2)),
		})
	}

	return warnings
}
