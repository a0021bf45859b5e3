package harness

import (
	"fmt"

	"github.com/roach88/autofund/internal/engine"
	"github.com/roach88/autofund/internal/fund"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Records contains the execution records produced by run and undo
	// steps, in step order.
	Records []fund.ExecutionRecord `json:"records"`

	// Plans contains the plans produced by simulate steps, in step order.
	Plans []engine.Plan `json:"plans,omitempty"`

	// FinalUnassigned is the unassigned cash after the last step.
	FinalUnassigned string `json:"finalUnassigned"`

	// FinalBalances maps envelope IDs to final balances.
	FinalBalances map[string]string `json:"finalBalances"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:          true,
		FinalBalances: make(map[string]string),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}
