package fund

import (
	"sort"
	"time"
)

// Schedule intervals, measured from a rule's last execution.
const (
	weeklyInterval   = 7 * 24 * time.Hour
	biweeklyInterval = 14 * 24 * time.Hour
	monthlyInterval  = 28 * 24 * time.Hour // approximate month
	// Payday currently collapses to the biweekly interval; kept as its own
	// constant so the heuristic can diverge without touching callers.
	paydayInterval = 14 * 24 * time.Hour
)

// ExecContext carries per-run inputs to the eligibility gate.
type ExecContext struct {
	Trigger  TriggerType
	Now      time.Time
	Snapshot Snapshot
}

// Eligible reports whether a rule should run for the given context.
//
// A disabled rule never runs. A rule whose trigger differs from the
// context's runs only if its own trigger is Manual (manual rules run on
// every trigger type). Time-scheduled triggers must additionally satisfy
// their elapsed-time requirement, and Conditional rules must satisfy all
// of their conditions.
func Eligible(r Rule, ctx ExecContext) bool {
	if !r.Enabled {
		return false
	}

	if r.Trigger != ctx.Trigger && r.Trigger != TriggerManual {
		return false
	}

	if r.Trigger.Scheduled() && !scheduleDue(r.Trigger, r.LastExecuted, ctx.Now) {
		return false
	}

	if r.Type == RuleConditional {
		return EvaluateConditions(r.Config.Conditions, ctx.Snapshot, ctx.Now)
	}

	return true
}

// scheduleDue reports whether enough time has passed since lastExecuted.
// A rule that never executed is due immediately.
func scheduleDue(trigger TriggerType, lastExecuted *time.Time, now time.Time) bool {
	if lastExecuted == nil {
		return true
	}
	elapsed := now.Sub(*lastExecuted)

	switch trigger {
	case TriggerWeekly:
		return elapsed >= weeklyInterval
	case TriggerBiweekly:
		return elapsed >= biweeklyInterval
	case TriggerMonthly:
		return elapsed >= monthlyInterval
	case TriggerPayday:
		return elapsed >= paydayInterval
	default:
		return true
	}
}

// SortRules orders rules by (priority asc, createdAt asc). The order is a
// stable total order: two rules never tie because creation times are
// distinct in practice, and the sort itself is stable regardless.
func SortRules(rules []Rule) []Rule {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted
}
