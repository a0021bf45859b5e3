package harness

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/autofund/internal/engine"
	"github.com/roach88/autofund/internal/fund"
	"github.com/roach88/autofund/internal/rules"
	"github.com/roach88/autofund/internal/testutil"
)

// defaultStart is the frozen clock origin for scenarios that do not
// set their own starting instant.
var defaultStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// seqGenerator issues deterministic sequential IDs like "exec-001".
type seqGenerator struct {
	prefix string
	n      int
}

func (g *seqGenerator) Generate() string {
	g.n++
	return fmt.Sprintf("%s-%03d", g.prefix, g.n)
}

// Run executes the scenario against a fresh engine and in-memory
// ledger. The returned Result reports every expect clause or assertion
// that did not hold; a non-nil error means the scenario itself is
// broken (invalid rules, unresolvable undo references) rather than a
// failed expectation.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	start := defaultStart
	if s.Now != nil {
		start = s.Now.UTC()
	}
	clock := testutil.NewFrozenClock(start)

	base := fund.Snapshot{
		Envelopes:      s.Budget.Envelopes,
		UnassignedCash: s.Budget.Unassigned,
	}
	ledger := engine.NewMemoryLedger(base)

	ruleGen := &seqGenerator{prefix: "rule"}
	ruleStore := rules.NewStore(nil,
		rules.WithNow(clock.Now),
		rules.WithIDFunc(ruleGen.Generate),
	)
	for i, r := range s.Rules {
		if _, err := ruleStore.Add(r); err != nil {
			return nil, fmt.Errorf("scenario %q rule %d: %w", s.Name, i+1, err)
		}
	}

	eng := engine.New(ruleStore, ledger,
		engine.WithClock(clock),
		engine.WithIDGenerator(&seqGenerator{prefix: "exec"}),
	)

	result := NewResult()
	execIDByStep := make(map[int]string)

	for i, step := range s.Steps {
		stepNo := i + 1
		if step.Advance != "" {
			d, err := time.ParseDuration(step.Advance)
			if err != nil {
				return nil, fmt.Errorf("scenario %q step %d: bad advance %q: %w", s.Name, stepNo, step.Advance, err)
			}
			clock.Advance(d)
		}

		snap := ledger.Snapshot(base)
		if step.Income != nil {
			income := *step.Income
			snap.NewIncomeAmount = &income
		}

		switch {
		case step.Run != "":
			record, err := eng.Execute(ctx, fund.TriggerType(step.Run), snap)
			if err != nil {
				return nil, fmt.Errorf("scenario %q step %d: run %s: %w", s.Name, stepNo, step.Run, err)
			}
			result.Records = append(result.Records, record)
			execIDByStep[stepNo] = record.ID
			checkRecord(result, stepNo, step.Expect, record)

		case step.Simulate != "":
			plan := eng.Simulate(ctx, fund.TriggerType(step.Simulate), snap)
			result.Plans = append(result.Plans, plan)
			checkPlan(result, stepNo, step.Expect, plan)

		case step.Undo != "":
			record, err := runUndo(ctx, eng, step.Undo, execIDByStep, stepNo)
			if expectsFailure(step.Expect) {
				if err == nil {
					result.AddError("step %d: undo %s succeeded, expected failure", stepNo, step.Undo)
				}
				continue
			}
			if err != nil {
				result.AddError("step %d: undo %s: %v", stepNo, step.Undo, err)
				continue
			}
			result.Records = append(result.Records, record)
			checkRecord(result, stepNo, step.Expect, record)
		}
	}

	result.FinalUnassigned = ledger.Unassigned().String()
	for _, e := range s.Budget.Envelopes {
		result.FinalBalances[e.ID] = ledger.Balance(e.ID).String()
	}

	for i, a := range s.Assertions {
		checkAssertion(result, i+1, a, eng, ledger)
	}

	return result, nil
}

// runUndo resolves an undo reference ("last" or "step:N") and performs
// the reversal.
func runUndo(ctx context.Context, eng *engine.Engine, ref string, execIDByStep map[int]string, stepNo int) (fund.ExecutionRecord, error) {
	if ref == "last" {
		return eng.Undo().UndoLast(ctx)
	}
	target, ok := strings.CutPrefix(ref, "step:")
	if !ok {
		return fund.ExecutionRecord{}, fmt.Errorf("step %d: undo reference %q must be %q or %q", stepNo, ref, "last", "step:N")
	}
	n, err := strconv.Atoi(target)
	if err != nil {
		return fund.ExecutionRecord{}, fmt.Errorf("step %d: undo reference %q: %w", stepNo, ref, err)
	}
	id, ok := execIDByStep[n]
	if !ok {
		return fund.ExecutionRecord{}, fmt.Errorf("step %d: undo reference %q names no earlier run step", stepNo, ref)
	}
	return eng.Undo().Undo(ctx, id)
}

func expectsFailure(expect *ExpectClause) bool {
	return expect != nil && expect.Success != nil && !*expect.Success
}

func checkRecord(result *Result, stepNo int, expect *ExpectClause, record fund.ExecutionRecord) {
	if expect == nil {
		return
	}
	if expect.RulesExecuted != nil && record.RulesExecuted != *expect.RulesExecuted {
		result.AddError("step %d: rules executed: got %d, want %d", stepNo, record.RulesExecuted, *expect.RulesExecuted)
	}
	if expect.TotalFunded != nil && !record.TotalFunded.Equal(*expect.TotalFunded) {
		result.AddError("step %d: total funded: got %s, want %s", stepNo, record.TotalFunded, *expect.TotalFunded)
	}
	if expect.RemainingCash != nil && !record.RemainingCash.Equal(*expect.RemainingCash) {
		result.AddError("step %d: remaining cash: got %s, want %s", stepNo, record.RemainingCash, *expect.RemainingCash)
	}
	if expect.Success != nil && record.Success != *expect.Success {
		result.AddError("step %d: success: got %t, want %t", stepNo, record.Success, *expect.Success)
	}
	if len(expect.Warnings) > 0 {
		result.AddError("step %d: warnings only apply to simulate steps", stepNo)
	}
}

func checkPlan(result *Result, stepNo int, expect *ExpectClause, plan engine.Plan) {
	if expect == nil {
		return
	}
	if expect.RulesExecuted != nil && plan.RulesPlanned != *expect.RulesExecuted {
		result.AddError("step %d: rules planned: got %d, want %d", stepNo, plan.RulesPlanned, *expect.RulesExecuted)
	}
	if expect.TotalFunded != nil && !plan.TotalPlanned.Equal(*expect.TotalFunded) {
		result.AddError("step %d: total planned: got %s, want %s", stepNo, plan.TotalPlanned, *expect.TotalFunded)
	}
	if expect.RemainingCash != nil && !plan.RemainingCash.Equal(*expect.RemainingCash) {
		result.AddError("step %d: remaining cash: got %s, want %s", stepNo, plan.RemainingCash, *expect.RemainingCash)
	}
	if expect.Success != nil {
		result.AddError("step %d: success does not apply to simulate steps", stepNo)
	}
	if expect.Warnings != nil {
		got := make([]string, 0, len(plan.Warnings))
		for _, w := range plan.Warnings {
			got = append(got, w.Code)
		}
		if !sameCodes(got, expect.Warnings) {
			result.AddError("step %d: warnings: got %v, want %v", stepNo, got, expect.Warnings)
		}
	}
}

// sameCodes compares warning code lists ignoring order.
func sameCodes(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	counts := make(map[string]int, len(got))
	for _, c := range got {
		counts[c]++
	}
	for _, c := range want {
		counts[c]--
		if counts[c] < 0 {
			return false
		}
	}
	return true
}

func checkAssertion(result *Result, n int, a Assertion, eng *engine.Engine, ledger *engine.MemoryLedger) {
	switch a.Type {
	case AssertBalance:
		got := ledger.Balance(a.Envelope)
		if !got.Equal(a.Equals) {
			result.AddError("assertion %d: balance of %s: got %s, want %s", n, a.Envelope, got, a.Equals)
		}
	case AssertUnassigned:
		got := ledger.Unassigned()
		if !got.Equal(a.Equals) {
			result.AddError("assertion %d: unassigned cash: got %s, want %s", n, got, a.Equals)
		}
	case AssertHistoryCount:
		got := eng.History().Len()
		if got != a.Count {
			result.AddError("assertion %d: history count: got %d, want %d", n, got, a.Count)
		}
	case AssertUndoableCount:
		got := len(eng.Undo().Undoable())
		if got != a.Count {
			result.AddError("assertion %d: undoable count: got %d, want %d", n, got, a.Count)
		}
	}
}
