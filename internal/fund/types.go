package fund

import (
	"time"

	"github.com/shopspring/decimal"
)

// RuleType identifies how a rule computes its funding amount.
type RuleType string

const (
	// RuleFixedAmount moves a fixed dollar amount ("Move $200 to Rent").
	RuleFixedAmount RuleType = "fixed_amount"
	// RulePercentage moves a percentage of a base amount ("Move 30% to Savings").
	RulePercentage RuleType = "percentage"
	// RuleConditional moves a fixed amount only when its conditions hold.
	RuleConditional RuleType = "conditional"
	// RuleSplitRemainder divides remaining cash across several envelopes.
	RuleSplitRemainder RuleType = "split_remainder"
	// RulePriorityFill tops an envelope up to its monthly amount.
	RulePriorityFill RuleType = "priority_fill"
)

// ValidRuleTypes defines the accepted rule types.
var ValidRuleTypes = map[RuleType]bool{
	RuleFixedAmount:    true,
	RulePercentage:     true,
	RuleConditional:    true,
	RuleSplitRemainder: true,
	RulePriorityFill:   true,
}

// TriggerType identifies the event class that makes a rule eligible.
type TriggerType string

const (
	// TriggerManual fires when the user runs rules by hand. Manual rules
	// also run on every other trigger type.
	TriggerManual TriggerType = "manual"
	// TriggerIncomeDetected fires when a new positive transaction arrives.
	TriggerIncomeDetected TriggerType = "income_detected"
	// TriggerMonthly fires on a monthly schedule (>= 28 days elapsed).
	TriggerMonthly TriggerType = "monthly"
	// TriggerWeekly fires on a weekly schedule (>= 7 days elapsed).
	TriggerWeekly TriggerType = "weekly"
	// TriggerBiweekly fires on a biweekly schedule (>= 14 days elapsed).
	TriggerBiweekly TriggerType = "biweekly"
	// TriggerPayday fires on a detected payday pattern (>= 14 days elapsed).
	TriggerPayday TriggerType = "payday"

	// TriggerManualUndo marks synthetic execution records produced by undo.
	// It is never a valid trigger for a rule.
	TriggerManualUndo TriggerType = "manual_undo"
)

// ValidTriggerTypes defines the trigger types accepted on rules.
var ValidTriggerTypes = map[TriggerType]bool{
	TriggerManual:         true,
	TriggerIncomeDetected: true,
	TriggerMonthly:        true,
	TriggerWeekly:         true,
	TriggerBiweekly:       true,
	TriggerPayday:         true,
}

// Scheduled reports whether the trigger carries an elapsed-time requirement.
func (t TriggerType) Scheduled() bool {
	switch t {
	case TriggerWeekly, TriggerBiweekly, TriggerMonthly, TriggerPayday:
		return true
	}
	return false
}

// ConditionType identifies a predicate kind for conditional rules.
type ConditionType string

const (
	// CondBalanceLessThan compares an envelope balance (or unassigned cash)
	// against a threshold with <.
	CondBalanceLessThan ConditionType = "balance_less_than"
	// CondBalanceGreaterThan compares an envelope balance (or unassigned
	// cash) against a threshold with >.
	CondBalanceGreaterThan ConditionType = "balance_greater_than"
	// CondUnassignedAbove holds when unassigned cash exceeds a threshold.
	CondUnassignedAbove ConditionType = "unassigned_above"
	// CondDateRange holds when the current date falls within [start, end].
	CondDateRange ConditionType = "date_range"
	// CondTransactionAmount compares the newly detected income amount
	// against a threshold using an operator.
	CondTransactionAmount ConditionType = "transaction_amount"
)

// ValidConditionTypes defines the accepted condition types.
var ValidConditionTypes = map[ConditionType]bool{
	CondBalanceLessThan:    true,
	CondBalanceGreaterThan: true,
	CondUnassignedAbove:    true,
	CondDateRange:          true,
	CondTransactionAmount:  true,
}

// ConditionOperator is the comparison operator for transaction-amount
// conditions.
type ConditionOperator string

const (
	OpGreaterThan        ConditionOperator = "greater_than"
	OpLessThan           ConditionOperator = "less_than"
	OpEquals             ConditionOperator = "equals"
	OpGreaterThanOrEqual ConditionOperator = "greater_than_or_equal"
	OpLessThanOrEqual    ConditionOperator = "less_than_or_equal"
)

// ValidOperators defines the accepted comparison operators.
var ValidOperators = map[ConditionOperator]bool{
	OpGreaterThan:        true,
	OpLessThan:           true,
	OpEquals:             true,
	OpGreaterThanOrEqual: true,
	OpLessThanOrEqual:    true,
}

// SourceType identifies the base amount a percentage rule draws from.
type SourceType string

const (
	// SourceUnassigned bases the percentage on remaining unassigned cash.
	SourceUnassigned SourceType = "unassigned"
	// SourceEnvelope bases the percentage on a specific envelope balance.
	SourceEnvelope SourceType = "envelope"
	// SourceIncome bases the percentage on the detected income amount.
	SourceIncome SourceType = "income"
)

// TargetType distinguishes single-envelope rules from multi-envelope rules.
type TargetType string

const (
	// TargetEnvelope routes the full amount to one envelope (TargetID).
	TargetEnvelope TargetType = "envelope"
	// TargetMultiple splits the amount across several envelopes (TargetIDs).
	TargetMultiple TargetType = "multiple"
)

// Condition is one predicate of a conditional rule.
type Condition struct {
	ID         string            `json:"id,omitempty" yaml:"id,omitempty"`
	Type       ConditionType     `json:"type" yaml:"type"`
	EnvelopeID string            `json:"envelopeId,omitempty" yaml:"envelopeId,omitempty"`
	Value      decimal.Decimal   `json:"value" yaml:"value"`
	Operator   ConditionOperator `json:"operator,omitempty" yaml:"operator,omitempty"`
	StartDate  *time.Time        `json:"startDate,omitempty" yaml:"startDate,omitempty"`
	EndDate    *time.Time        `json:"endDate,omitempty" yaml:"endDate,omitempty"`
}

// RuleConfig carries the type-specific configuration of a rule.
type RuleConfig struct {
	SourceType SourceType      `json:"sourceType" yaml:"sourceType"`
	SourceID   string          `json:"sourceId,omitempty" yaml:"sourceId,omitempty"`
	TargetType TargetType      `json:"targetType" yaml:"targetType"`
	TargetID   string          `json:"targetId,omitempty" yaml:"targetId,omitempty"`
	TargetIDs  []string        `json:"targetIds,omitempty" yaml:"targetIds,omitempty"`
	Amount     decimal.Decimal `json:"amount" yaml:"amount"`
	Percentage decimal.Decimal `json:"percentage" yaml:"percentage"`
	Conditions []Condition     `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// Rule is a user-defined instruction for moving unassigned cash.
//
// Rules are plain data: all behavior lives in the evaluator, calculator and
// planner functions so that adding a rule kind forces every consumer to
// handle it.
type Rule struct {
	ID             string      `json:"id" yaml:"id"`
	Name           string      `json:"name" yaml:"name"`
	Description    string      `json:"description,omitempty" yaml:"description,omitempty"`
	Type           RuleType    `json:"type" yaml:"type"`
	Trigger        TriggerType `json:"trigger" yaml:"trigger"`
	Priority       int         `json:"priority" yaml:"priority"`
	Enabled        bool        `json:"enabled" yaml:"enabled"`
	CreatedAt      time.Time   `json:"createdAt" yaml:"createdAt"`
	LastExecuted   *time.Time  `json:"lastExecuted,omitempty" yaml:"lastExecuted,omitempty"`
	ExecutionCount int         `json:"executionCount" yaml:"executionCount"`
	Config         RuleConfig  `json:"config" yaml:"config"`
}

// DefaultPriority is assigned when a rule omits its priority.
// Lower values run first.
const DefaultPriority = 100

// Clone returns a deep copy of the rule.
func (r Rule) Clone() Rule {
	c := r
	if r.LastExecuted != nil {
		t := *r.LastExecuted
		c.LastExecuted = &t
	}
	if r.Config.TargetIDs != nil {
		c.Config.TargetIDs = append([]string(nil), r.Config.TargetIDs...)
	}
	if r.Config.Conditions != nil {
		c.Config.Conditions = append([]Condition(nil), r.Config.Conditions...)
	}
	return c
}
