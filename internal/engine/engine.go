// Package engine orchestrates auto-funding rule execution: eligibility
// filtering, priority ordering, funding calculation, transfer planning,
// ledger calls, history, simulation, and undo.
//
// The engine performs no I/O of its own. Rules, history, and the undo
// stack are handed in as in-memory collections at construction and read
// back out for durable storage by the caller; transfers go through the
// injected Ledger; time comes from the injected Clock.
//
// Concurrency model: single writer. Exactly one execution may be in
// flight, enforced by an atomic busy flag. A second request fails fast
// with BusyError rather than queueing, and a scheduler tick that finds
// the engine busy is skipped, not deferred.
package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/autofund/internal/fund"
	"github.com/roach88/autofund/internal/rules"
)

// Failure messages recorded for zero-amount rules. The two cases are kept
// distinct so callers can tell "the pool is empty" from "this rule
// computed nothing".
const (
	msgNoFunds    = "No funds available"
	msgZeroAmount = "Amount calculated as zero"
)

// Engine owns the funding pipeline state: the rule set, bounded execution
// history, and the undo stack.
type Engine struct {
	rules  *rules.Store
	ledger Ledger
	clock  Clock
	idGen  IDGenerator

	history *History
	undo    *UndoManager

	executing atomic.Bool

	// seed state captured by options, consumed by New.
	seedHistory []fund.ExecutionRecord
	seedUndo    []fund.UndoItem
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDGenerator overrides execution ID generation.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.idGen = g }
}

// WithHistory seeds the execution history (newest first), as restored
// from durable storage.
func WithHistory(records []fund.ExecutionRecord) Option {
	return func(e *Engine) { e.seedHistory = records }
}

// WithUndoStack seeds the undo stack (newest first), as restored from
// durable storage.
func WithUndoStack(items []fund.UndoItem) Option {
	return func(e *Engine) { e.seedUndo = items }
}

// New creates an Engine over the given rule store and ledger.
func New(ruleStore *rules.Store, ledger Ledger, opts ...Option) *Engine {
	e := &Engine{
		rules:  ruleStore,
		ledger: ledger,
		clock:  SystemClock{},
		idGen:  UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}

	e.history = newHistory(e.clock, e.seedHistory)
	e.undo = newUndoManager(e, e.seedUndo)
	e.seedHistory = nil
	e.seedUndo = nil
	return e
}

// Rules returns the engine's rule store.
func (e *Engine) Rules() *rules.Store {
	return e.rules
}

// History returns the engine's execution history.
func (e *Engine) History() *History {
	return e.history
}

// Undo returns the engine's undo manager.
func (e *Engine) Undo() *UndoManager {
	return e.undo
}

// Executing reports whether a run is currently in flight.
func (e *Engine) Executing() bool {
	return e.executing.Load()
}

// Execute runs all eligible rules for the trigger against the snapshot.
//
// Rules run in (priority asc, createdAt asc) order against a shrinking
// cash budget. Per-rule failures (no funds, zero amount, ledger errors)
// are recorded in the result list and never abort sibling rules. A rule
// whose ledger transfer fails mid-way keeps its already-issued transfers
// committed (they are not rolled back and not added to the undo stack);
// the rule is recorded as failed and its amount is not deducted from the
// remaining budget.
//
// Returns BusyError, leaving all state untouched, if another execution
// is in flight.
func (e *Engine) Execute(ctx context.Context, trigger fund.TriggerType, snap fund.Snapshot) (fund.ExecutionRecord, error) {
	if !e.executing.CompareAndSwap(false, true) {
		slog.Warn("execution rejected: already in progress", "trigger", trigger)
		return fund.ExecutionRecord{}, &BusyError{}
	}
	defer e.executing.Store(false)

	now := e.clock.Now()
	slog.Info("executing auto-funding rules",
		"trigger", trigger,
		"available_cash", snap.UnassignedCash,
	)

	outcome := e.runPipeline(ctx, trigger, snap, e.ledger)

	record := e.buildRecord(trigger, snap, outcome, now)
	for _, res := range outcome.results {
		if res.Success {
			e.rules.MarkExecuted(res.RuleID, now)
		}
	}
	e.history.append(record)

	if record.TotalFunded.IsPositive() {
		e.undo.addToStack(record, outcome.issued)
	}

	slog.Info("execution completed",
		"execution_id", record.ID,
		"rules_executed", record.RulesExecuted,
		"total_funded", record.TotalFunded,
		"remaining_cash", record.RemainingCash,
	)
	return record, nil
}

// Tick runs the periodic schedule check. For each time-scheduled trigger
// with at least one due rule it performs one execution; triggers with
// nothing due are skipped so manual rules do not re-run on every tick.
//
// snapshot is called before each trigger's execution so that later
// triggers in the same tick see the cash earlier ones already moved.
//
// If the engine is busy the tick is skipped entirely and the scheduler
// retries on its next interval.
func (e *Engine) Tick(ctx context.Context, snapshot func() fund.Snapshot) ([]fund.ExecutionRecord, error) {
	if e.executing.Load() {
		slog.Debug("tick skipped: execution in progress")
		return nil, nil
	}

	scheduled := []fund.TriggerType{
		fund.TriggerWeekly,
		fund.TriggerBiweekly,
		fund.TriggerMonthly,
		fund.TriggerPayday,
	}

	var records []fund.ExecutionRecord
	for _, trigger := range scheduled {
		snap := snapshot()
		if !e.anyRuleDue(trigger, snap) {
			continue
		}
		record, err := e.Execute(ctx, trigger, snap)
		if err != nil {
			return records, err
		}
		records = append(records, record)
	}
	return records, nil
}

// anyRuleDue reports whether some rule with exactly this trigger is
// eligible right now. Manual rules are deliberately excluded: they ride
// along with an execution but never cause one.
func (e *Engine) anyRuleDue(trigger fund.TriggerType, snap fund.Snapshot) bool {
	ctx := fund.ExecContext{Trigger: trigger, Now: e.clock.Now(), Snapshot: snap}
	for _, r := range e.rules.List() {
		if r.Trigger == trigger && fund.Eligible(r, ctx) {
			return true
		}
	}
	return false
}

// TransactionEvent describes a newly added transaction.
type TransactionEvent struct {
	Amount      decimal.Decimal
	Description string
}

// OnTransactionAdded handles a detected income transaction. Invoked
// explicitly by the caller when a positive transaction arrives; there is
// no ambient subscription. Non-positive amounts are ignored.
func (e *Engine) OnTransactionAdded(ctx context.Context, event TransactionEvent, snap fund.Snapshot) (fund.ExecutionRecord, error) {
	if !event.Amount.IsPositive() {
		slog.Debug("transaction ignored: not income", "amount", event.Amount)
		return fund.ExecutionRecord{}, nil
	}

	income := event.Amount
	snap.NewIncomeAmount = &income
	return e.Execute(ctx, fund.TriggerIncomeDetected, snap)
}

// runOutcome carries the pipeline results shared by Execute and Simulate.
type runOutcome struct {
	results       []fund.RuleResult
	issued        []fund.Transfer // transfers of successful rules, in order
	remaining     decimal.Decimal
	totalFunded   decimal.Decimal
	rulesExecuted int
}

// runPipeline is the single funding pipeline: eligibility filter, priority
// sort, per-rule calculate/plan/transfer against a shrinking budget.
//
// Execute passes the real ledger; Simulate passes a recording stand-in.
// Everything else is identical, which is what makes a simulated plan
// byte-for-byte the same as a real run.
func (e *Engine) runPipeline(ctx context.Context, trigger fund.TriggerType, snap fund.Snapshot, ledger Ledger) runOutcome {
	now := e.clock.Now()
	execCtx := fund.ExecContext{Trigger: trigger, Now: now, Snapshot: snap}

	var eligible []fund.Rule
	for _, r := range e.rules.List() {
		if fund.Eligible(r, execCtx) {
			eligible = append(eligible, r)
		}
	}
	ordered := fund.SortRules(eligible)

	slog.Debug("eligible rules selected",
		"trigger", trigger,
		"eligible", len(ordered),
		"total", len(e.rules.List()),
	)

	outcome := runOutcome{
		remaining:   snap.UnassignedCash,
		totalFunded: decimal.Zero,
	}

	for _, rule := range ordered {
		result := e.runRule(ctx, rule, snap, outcome.remaining, ledger, now)
		outcome.results = append(outcome.results, result.RuleResult)

		if result.Success {
			outcome.issued = append(outcome.issued, result.transfers...)
			outcome.remaining = outcome.remaining.Sub(result.Amount)
			outcome.totalFunded = outcome.totalFunded.Add(result.Amount)
			outcome.rulesExecuted++

			slog.Debug("rule funded",
				"rule_id", rule.ID,
				"amount", result.Amount,
				"remaining_cash", outcome.remaining,
			)
		}
	}

	return outcome
}

// ruleOutcome pairs a rule result with the transfers actually issued.
type ruleOutcome struct {
	fund.RuleResult
	transfers []fund.Transfer
}

// runRule computes, plans, and issues the transfers for one rule.
// Failures are captured in the result, never returned: one bad rule must
// not block the rules after it.
func (e *Engine) runRule(ctx context.Context, rule fund.Rule, snap fund.Snapshot, remaining decimal.Decimal, ledger Ledger, now time.Time) ruleOutcome {
	failed := func(msg string) ruleOutcome {
		return ruleOutcome{RuleResult: fund.RuleResult{
			RuleID:     rule.ID,
			RuleName:   rule.Name,
			Success:    false,
			Amount:     decimal.Zero,
			Error:      msg,
			ExecutedAt: now,
		}}
	}

	amount := fund.CalculateAmount(rule, remaining, snap)
	if !amount.IsPositive() {
		if remaining.LessThanOrEqual(decimal.Zero) {
			return failed(msgNoFunds)
		}
		return failed(msgZeroAmount)
	}

	transfers := fund.PlanTransfers(rule, amount)
	if len(transfers) == 0 {
		return failed("no transfer targets configured")
	}

	targetIDs := make([]string, 0, len(transfers))
	for i, tr := range transfers {
		if err := ledger.Transfer(ctx, tr.FromEnvelopeID, tr.ToEnvelopeID, tr.Amount, tr.Description); err != nil {
			slog.Error("transfer failed",
				"rule_id", rule.ID,
				"to", tr.ToEnvelopeID,
				"amount", tr.Amount,
				"issued_before_failure", i,
				"error", err,
			)
			// Transfers issued before the failure stay committed; the rule
			// is recorded as failed and its amount is not deducted.
			return failed(err.Error())
		}
		transfers[i].ExecutedAt = now
		targetIDs = append(targetIDs, tr.ToEnvelopeID)
	}

	return ruleOutcome{
		RuleResult: fund.RuleResult{
			RuleID:            rule.ID,
			RuleName:          rule.Name,
			Success:           true,
			Amount:            amount,
			TransfersCount:    len(transfers),
			TargetEnvelopeIDs: targetIDs,
			ExecutedAt:        now,
		},
		transfers: transfers,
	}
}

// buildRecord assembles the immutable execution record for a run.
func (e *Engine) buildRecord(trigger fund.TriggerType, snap fund.Snapshot, outcome runOutcome, now time.Time) fund.ExecutionRecord {
	success := true
	for _, r := range outcome.results {
		if !r.Success {
			success = false
			break
		}
	}

	return fund.ExecutionRecord{
		ID:            e.idGen.Generate(),
		Trigger:       trigger,
		ExecutedAt:    now,
		RulesExecuted: outcome.rulesExecuted,
		TotalFunded:   outcome.totalFunded,
		RemainingCash: outcome.remaining,
		InitialCash:   snap.UnassignedCash,
		Results:       outcome.results,
		Success:       success,
	}
}
