package fund

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func makeScheduledRule(trigger TriggerType, lastExecuted *time.Time) Rule {
	r := makeValidRule()
	r.Trigger = trigger
	r.LastExecuted = lastExecuted
	return r
}

func daysAgo(now time.Time, days int) *time.Time {
	t := now.Add(-time.Duration(days) * 24 * time.Hour)
	return &t
}

func TestEligible_DisabledNeverRuns(t *testing.T) {
	rule := makeValidRule()
	rule.Enabled = false

	ctx := ExecContext{Trigger: TriggerManual, Now: testNow, Snapshot: makeTestSnapshot()}
	assert.False(t, Eligible(rule, ctx))
}

func TestEligible_TriggerMatching(t *testing.T) {
	ctx := ExecContext{Trigger: TriggerIncomeDetected, Now: testNow, Snapshot: makeTestSnapshot()}

	manual := makeScheduledRule(TriggerManual, nil)
	assert.True(t, Eligible(manual, ctx), "manual rules run on every trigger type")

	weekly := makeScheduledRule(TriggerWeekly, nil)
	assert.False(t, Eligible(weekly, ctx), "non-manual rules require a matching trigger")

	income := makeScheduledRule(TriggerIncomeDetected, nil)
	assert.True(t, Eligible(income, ctx))
}

func TestEligible_ScheduleElapsed(t *testing.T) {
	testCases := []struct {
		name    string
		trigger TriggerType
		last    *time.Time
		want    bool
	}{
		{"weekly never executed", TriggerWeekly, nil, true},
		{"weekly 6 days ago", TriggerWeekly, daysAgo(testNow, 6), false},
		{"weekly exactly 7 days ago", TriggerWeekly, daysAgo(testNow, 7), true},
		{"biweekly 13 days ago", TriggerBiweekly, daysAgo(testNow, 13), false},
		{"biweekly 14 days ago", TriggerBiweekly, daysAgo(testNow, 14), true},
		{"monthly 27 days ago", TriggerMonthly, daysAgo(testNow, 27), false},
		{"monthly 28 days ago", TriggerMonthly, daysAgo(testNow, 28), true},
		{"payday 13 days ago", TriggerPayday, daysAgo(testNow, 13), false},
		{"payday 14 days ago", TriggerPayday, daysAgo(testNow, 14), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rule := makeScheduledRule(tc.trigger, tc.last)
			ctx := ExecContext{Trigger: tc.trigger, Now: testNow, Snapshot: makeTestSnapshot()}
			assert.Equal(t, tc.want, Eligible(rule, ctx))
		})
	}
}

func TestEligible_ConditionalGate(t *testing.T) {
	rule := makeValidRule()
	rule.Type = RuleConditional
	rule.Config.Amount = decimal.NewFromInt(50)
	rule.Config.Conditions = []Condition{
		{Type: CondUnassignedAbove, Value: decimal.NewFromInt(1000)},
	}

	ctx := ExecContext{Trigger: TriggerManual, Now: testNow, Snapshot: makeTestSnapshot()}
	assert.False(t, Eligible(rule, ctx), "conditions must hold for conditional rules")

	rule.Config.Conditions[0].Value = decimal.NewFromInt(100)
	assert.True(t, Eligible(rule, ctx))
}

func TestSortRules_TotalOrder(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(id string, priority int, created time.Time) Rule {
		r := makeValidRule()
		r.ID = id
		r.Priority = priority
		r.CreatedAt = created
		return r
	}

	rules := []Rule{
		mk("c", 10, base.Add(2*time.Hour)),
		mk("a", 5, base.Add(time.Hour)),
		mk("d", 10, base.Add(3*time.Hour)),
		mk("b", 5, base),
	}

	sorted := SortRules(rules)

	var ids []string
	for _, r := range sorted {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"b", "a", "c", "d"}, ids,
		"priority ascending, then creation time ascending")

	// Input slice is left untouched.
	assert.Equal(t, "c", rules[0].ID)
}
