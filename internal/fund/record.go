package fund

import (
	"time"

	"github.com/shopspring/decimal"
)

// RuleResult is the per-rule outcome inside an execution record.
type RuleResult struct {
	RuleID            string          `json:"ruleId" yaml:"ruleId"`
	RuleName          string          `json:"ruleName" yaml:"ruleName"`
	Success           bool            `json:"success" yaml:"success"`
	Amount            decimal.Decimal `json:"amount" yaml:"amount"`
	TransfersCount    int             `json:"transfersCount,omitempty" yaml:"transfersCount,omitempty"`
	TargetEnvelopeIDs []string        `json:"targetEnvelopeIds,omitempty" yaml:"targetEnvelopeIds,omitempty"`
	Error             string          `json:"error,omitempty" yaml:"error,omitempty"`
	ExecutedAt        time.Time       `json:"executedAt" yaml:"executedAt"`
}

// ExecutionRecord is the immutable log entry for one engine run.
// Records are never edited after being appended to history; an undo produces
// a new record with IsUndo set rather than mutating the original.
type ExecutionRecord struct {
	ID                  string          `json:"id" yaml:"id"`
	Trigger             TriggerType     `json:"trigger" yaml:"trigger"`
	ExecutedAt          time.Time       `json:"executedAt" yaml:"executedAt"`
	RulesExecuted       int             `json:"rulesExecuted" yaml:"rulesExecuted"`
	TotalFunded         decimal.Decimal `json:"totalFunded" yaml:"totalFunded"`
	RemainingCash       decimal.Decimal `json:"remainingCash" yaml:"remainingCash"`
	InitialCash         decimal.Decimal `json:"initialCash" yaml:"initialCash"`
	Results             []RuleResult    `json:"results" yaml:"results"`
	Success             bool            `json:"success" yaml:"success"`
	IsUndo              bool            `json:"isUndo,omitempty" yaml:"isUndo,omitempty"`
	OriginalExecutionID string          `json:"originalExecutionId,omitempty" yaml:"originalExecutionId,omitempty"`
}

// UndoItem captures the exact transfers needed to reverse one execution.
// CanUndo transitions from true to false exactly once; there is no redo.
type UndoItem struct {
	ExecutionID string          `json:"executionId" yaml:"executionId"`
	ExecutedAt  time.Time       `json:"executedAt" yaml:"executedAt"`
	Trigger     TriggerType     `json:"trigger" yaml:"trigger"`
	Transfers   []Transfer      `json:"transfers" yaml:"transfers"`
	TotalAmount decimal.Decimal `json:"totalAmount" yaml:"totalAmount"`
	CanUndo     bool            `json:"canUndo" yaml:"canUndo"`
	UndoneAt    *time.Time      `json:"undoneAt,omitempty" yaml:"undoneAt,omitempty"`
}
