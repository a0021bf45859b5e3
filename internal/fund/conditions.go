package fund

import (
	"time"

	"github.com/shopspring/decimal"
)

// equalsTolerance is the slack allowed when comparing a detected income
// amount for equality. Amounts are 2dp decimals, so anything below one cent
// counts as equal.
var equalsTolerance = decimal.NewFromFloat(0.01)

// EvaluateConditions evaluates all conditions with AND semantics.
//
// An empty condition list evaluates to true. Unknown condition types also
// evaluate to true: rules created by a newer version must not silently stop
// firing on an older engine, so the default is fail-open.
func EvaluateConditions(conds []Condition, snap Snapshot, now time.Time) bool {
	for _, cond := range conds {
		if !evaluateCondition(cond, snap, now) {
			return false
		}
	}
	return true
}

func evaluateCondition(c Condition, snap Snapshot, now time.Time) bool {
	switch c.Type {
	case CondBalanceLessThan:
		if c.EnvelopeID != "" {
			env, ok := snap.Envelope(c.EnvelopeID)
			return ok && env.CurrentBalance.LessThan(c.Value)
		}
		return snap.UnassignedCash.LessThan(c.Value)

	case CondBalanceGreaterThan:
		if c.EnvelopeID != "" {
			env, ok := snap.Envelope(c.EnvelopeID)
			return ok && env.CurrentBalance.GreaterThan(c.Value)
		}
		return snap.UnassignedCash.GreaterThan(c.Value)

	case CondUnassignedAbove:
		return snap.UnassignedCash.GreaterThan(c.Value)

	case CondDateRange:
		return evaluateDateRange(c, now)

	case CondTransactionAmount:
		return evaluateTransactionAmount(c, snap)

	default:
		// Fail-open for unknown condition types.
		return true
	}
}

// evaluateDateRange checks now against [start, end] inclusive.
// Conditions with a missing bound pass validation-era data through unchanged.
func evaluateDateRange(c Condition, now time.Time) bool {
	if c.StartDate == nil || c.EndDate == nil {
		return true
	}
	return !now.Before(*c.StartDate) && !now.After(*c.EndDate)
}

// evaluateTransactionAmount compares the detected income amount against the
// condition value. Evaluates false when no income amount was supplied in
// this run.
func evaluateTransactionAmount(c Condition, snap Snapshot) bool {
	if snap.NewIncomeAmount == nil {
		return false
	}
	amount := *snap.NewIncomeAmount

	switch c.Operator {
	case OpGreaterThan:
		return amount.GreaterThan(c.Value)
	case OpLessThan:
		return amount.LessThan(c.Value)
	case OpEquals:
		return amount.Sub(c.Value).Abs().LessThan(equalsTolerance)
	case OpGreaterThanOrEqual:
		return amount.GreaterThanOrEqual(c.Value)
	case OpLessThanOrEqual:
		return amount.LessThanOrEqual(c.Value)
	default:
		return true
	}
}
