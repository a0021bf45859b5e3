package fund

import "github.com/shopspring/decimal"

// PlanTransfers turns a computed amount into concrete transfer instructions.
//
// Single-target rule types produce one transfer from unassigned cash to the
// rule's target envelope. SplitRemainder divides the total across all target
// envelopes: each target receives floor(total/N) at 2dp and the last target
// absorbs the rounding remainder, so the transfer amounts always sum exactly
// to the planned total.
func PlanTransfers(r Rule, total decimal.Decimal) []Transfer {
	switch r.Type {
	case RuleFixedAmount, RulePercentage, RuleConditional, RulePriorityFill:
		if r.Config.TargetID == "" {
			return nil
		}
		return []Transfer{{
			FromEnvelopeID: Unassigned,
			ToEnvelopeID:   r.Config.TargetID,
			Amount:         total,
			Description:    "Auto-funding: " + r.Name,
		}}

	case RuleSplitRemainder:
		return planSplit(r, total)

	default:
		return nil
	}
}

func planSplit(r Rule, total decimal.Decimal) []Transfer {
	targets := r.Config.TargetIDs
	if len(targets) == 0 {
		return nil
	}

	n := decimal.NewFromInt(int64(len(targets)))
	perTarget := total.Div(n).RoundFloor(2)

	transfers := make([]Transfer, 0, len(targets))
	for i, envelopeID := range targets {
		amount := perTarget
		if i == len(targets)-1 {
			// Rounding remainder goes to the last target so the sum is exact.
			amount = total.Sub(perTarget.Mul(decimal.NewFromInt(int64(len(targets) - 1))))
		}
		transfers = append(transfers, Transfer{
			FromEnvelopeID: Unassigned,
			ToEnvelopeID:   envelopeID,
			Amount:         amount,
			Description:    "Auto-funding (split): " + r.Name,
		})
	}
	return transfers
}
