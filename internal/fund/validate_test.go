package fund

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeValidRule returns a minimal rule that passes validation.
func makeValidRule() Rule {
	return Rule{
		ID:      "rule-1",
		Name:    "Fund Rent",
		Type:    RuleFixedAmount,
		Trigger: TriggerManual,
		Enabled: true,
		Config: RuleConfig{
			SourceType: SourceUnassigned,
			TargetType: TargetEnvelope,
			TargetID:   "env-rent",
			Amount:     decimal.NewFromInt(200),
		},
	}
}

func TestValidateRule_Valid(t *testing.T) {
	require.NoError(t, ValidateRule(makeValidRule()))
}

func TestValidateRule_Rejections(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Rule)
		wantMsg string
	}{
		{
			name:    "empty name",
			mutate:  func(r *Rule) { r.Name = "  " },
			wantMsg: "rule name is required",
		},
		{
			name:    "unknown type",
			mutate:  func(r *Rule) { r.Type = "lottery" },
			wantMsg: `unknown rule type "lottery"`,
		},
		{
			name:    "unknown trigger",
			mutate:  func(r *Rule) { r.Trigger = "hourly" },
			wantMsg: `unknown trigger type "hourly"`,
		},
		{
			name:    "fixed amount zero",
			mutate:  func(r *Rule) { r.Config.Amount = decimal.Zero },
			wantMsg: "fixed amount rules require a positive amount",
		},
		{
			name:    "fixed amount negative",
			mutate:  func(r *Rule) { r.Config.Amount = decimal.NewFromInt(-5) },
			wantMsg: "fixed amount rules require a positive amount",
		},
		{
			name: "percentage zero",
			mutate: func(r *Rule) {
				r.Type = RulePercentage
				r.Config.Percentage = decimal.Zero
			},
			wantMsg: "percentage rules require a percentage between 0 and 100",
		},
		{
			name: "percentage above 100",
			mutate: func(r *Rule) {
				r.Type = RulePercentage
				r.Config.Percentage = decimal.NewFromInt(101)
			},
			wantMsg: "percentage rules require a percentage between 0 and 100",
		},
		{
			name: "conditional without conditions",
			mutate: func(r *Rule) {
				r.Type = RuleConditional
				r.Config.Amount = decimal.NewFromInt(50)
				r.Config.Conditions = nil
			},
			wantMsg: "conditional rules require at least one condition",
		},
		{
			name: "priority fill without target",
			mutate: func(r *Rule) {
				r.Type = RulePriorityFill
				r.Config.TargetID = ""
			},
			wantMsg: "priority fill rules require a target envelope",
		},
		{
			name:    "single target missing",
			mutate:  func(r *Rule) { r.Config.TargetID = "" },
			wantMsg: "single envelope rules require a target envelope",
		},
		{
			name: "multi target empty",
			mutate: func(r *Rule) {
				r.Type = RuleSplitRemainder
				r.Config.TargetType = TargetMultiple
				r.Config.TargetIDs = nil
			},
			wantMsg: "multiple envelope rules require at least one target envelope",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rule := makeValidRule()
			tc.mutate(&rule)

			err := ValidateRule(rule)
			require.Error(t, err)
			require.True(t, IsValidationError(err))

			ve := err.(*ValidationError)
			assert.Contains(t, ve.Errors, tc.wantMsg)
		})
	}
}

func TestValidateRule_CollectsAllViolations(t *testing.T) {
	rule := makeValidRule()
	rule.Name = ""
	rule.Type = "bogus"
	rule.Config.TargetID = ""

	err := ValidateRule(rule)
	require.Error(t, err)

	ve := err.(*ValidationError)
	assert.GreaterOrEqual(t, len(ve.Errors), 3, "every violated constraint should be listed")
}

func TestValidateCondition(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, ValidateCondition(Condition{
		Type:  CondBalanceLessThan,
		Value: decimal.NewFromInt(50),
	}))
	assert.NoError(t, ValidateCondition(Condition{
		Type:      CondDateRange,
		StartDate: &start,
		EndDate:   &end,
	}))

	assert.Error(t, ValidateCondition(Condition{Type: "vibes"}))
	assert.Error(t, ValidateCondition(Condition{
		Type:  CondBalanceLessThan,
		Value: decimal.NewFromInt(-1),
	}))
	assert.Error(t, ValidateCondition(Condition{Type: CondDateRange, StartDate: &start}))
	assert.Error(t, ValidateCondition(Condition{
		Type:      CondDateRange,
		StartDate: &end,
		EndDate:   &start,
	}))
	assert.Error(t, ValidateCondition(Condition{
		Type:     CondTransactionAmount,
		Value:    decimal.NewFromInt(100),
		Operator: "roughly",
	}))
}
