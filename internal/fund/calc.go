package fund

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// CalculateAmount computes the funding amount for one rule given the cash
// still available in this run.
//
// The result is never negative and never exceeds remaining. A zero result
// is not an error: it signals "nothing to fund this rule", and callers
// distinguish zero-because-no-cash from zero-by-calculation for messaging.
func CalculateAmount(r Rule, remaining decimal.Decimal, snap Snapshot) decimal.Decimal {
	switch r.Type {
	case RuleFixedAmount, RuleConditional:
		return decimal.Min(r.Config.Amount, remaining)

	case RulePercentage:
		base := percentageBase(r, remaining, snap)
		amount := base.Mul(r.Config.Percentage).Div(hundred).Round(2)
		return decimal.Min(amount, remaining)

	case RulePriorityFill:
		return priorityFillAmount(r, remaining, snap)

	case RuleSplitRemainder:
		// The planner divides the total across targets.
		return remaining

	default:
		return decimal.Zero
	}
}

// percentageBase resolves the base amount a percentage rule applies to.
func percentageBase(r Rule, remaining decimal.Decimal, snap Snapshot) decimal.Decimal {
	switch r.Config.SourceType {
	case SourceEnvelope:
		if r.Config.SourceID == "" {
			return decimal.Zero
		}
		env, ok := snap.Envelope(r.Config.SourceID)
		if !ok {
			return decimal.Zero
		}
		return env.CurrentBalance

	case SourceIncome:
		if snap.NewIncomeAmount != nil {
			return *snap.NewIncomeAmount
		}
		return remaining

	default: // SourceUnassigned and unset
		return remaining
	}
}

// priorityFillAmount tops the target envelope up to its monthly amount,
// bounded by remaining cash. Returns zero if the envelope is unknown or
// already full.
func priorityFillAmount(r Rule, remaining decimal.Decimal, snap Snapshot) decimal.Decimal {
	env, ok := snap.Envelope(r.Config.TargetID)
	if !ok {
		return decimal.Zero
	}
	needed := env.MonthlyAmount.Sub(env.CurrentBalance)
	if !needed.IsPositive() {
		return decimal.Zero
	}
	return decimal.Max(decimal.Zero, decimal.Min(needed, remaining))
}
