package harness

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/roach88/autofund/internal/fund"
)

// Scenario defines a conformance test scenario.
// Scenarios establish a budget and rule set, execute a sequence of
// steps, and assert on the resulting balances and history.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Now is the frozen starting instant. Defaults to
	// 2026-01-01T00:00:00Z when omitted.
	Now *time.Time `yaml:"now,omitempty"`

	// Budget is the starting budget state.
	Budget Budget `yaml:"budget"`

	// Rules is the rule set under test. Every rule must validate.
	Rules []fund.Rule `yaml:"rules"`

	// Steps is the sequence of engine operations to perform.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final balances and history.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Budget is the starting budget state of a scenario.
type Budget struct {
	Unassigned decimal.Decimal `yaml:"unassigned"`
	Envelopes  []fund.Envelope `yaml:"envelopes,omitempty"`
}

// Step is one engine operation. Exactly one of Run, Simulate, or Undo
// must be set.
type Step struct {
	// Run executes rules with the named trigger ("manual", "payday", ...).
	Run string `yaml:"run,omitempty"`

	// Simulate plans a run with the named trigger without applying it.
	Simulate string `yaml:"simulate,omitempty"`

	// Undo reverses an execution: "last", or a 1-based step reference
	// like "step:1" naming an earlier run step.
	Undo string `yaml:"undo,omitempty"`

	// Income is the detected income amount for income_detected runs.
	Income *decimal.Decimal `yaml:"income,omitempty"`

	// Advance moves the clock forward before the step. It holds a
	// Go duration string like "168h" or "30m".
	Advance string `yaml:"advance,omitempty"`

	// Expect validates the step's outcome. Nil means no validation.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a run or simulate step.
// Only non-nil fields are checked.
type ExpectClause struct {
	RulesExecuted *int             `yaml:"rulesExecuted,omitempty"`
	TotalFunded   *decimal.Decimal `yaml:"totalFunded,omitempty"`
	RemainingCash *decimal.Decimal `yaml:"remainingCash,omitempty"`
	Success       *bool            `yaml:"success,omitempty"`
	Warnings      []string         `yaml:"warnings,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "balance": check an envelope's final balance
	// - "unassigned": check final unassigned cash
	// - "history_count": check the number of retained records
	// - "undoable_count": check how many executions can still be undone
	Type string `yaml:"type"`

	// Envelope is the envelope ID (used by balance).
	Envelope string `yaml:"envelope,omitempty"`

	// Equals is the expected amount (used by balance, unassigned).
	Equals decimal.Decimal `yaml:"equals,omitempty"`

	// Count is the expected number (used by history_count, undoable_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertBalance       = "balance"
	AssertUnassigned    = "unassigned"
	AssertHistoryCount  = "history_count"
	AssertUndoableCount = "undoable_count"
)

// LoadScenario parses a scenario from YAML bytes and validates it.
func LoadScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadScenarioFile reads and parses a scenario YAML file.
func LoadScenarioFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	s, err := LoadScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks the scenario for structural problems before running.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", s.Name)
	}

	for i, r := range s.Rules {
		if err := fund.ValidateRule(r); err != nil {
			return fmt.Errorf("scenario %q rule %d (%s): %w", s.Name, i+1, r.Name, err)
		}
	}

	for i, step := range s.Steps {
		set := 0
		for _, v := range []string{step.Run, step.Simulate, step.Undo} {
			if v != "" {
				set++
			}
		}
		if set != 1 {
			return fmt.Errorf("scenario %q step %d: exactly one of run, simulate, undo is required", s.Name, i+1)
		}
		if step.Run != "" && !fund.ValidTriggerTypes[fund.TriggerType(step.Run)] {
			return fmt.Errorf("scenario %q step %d: unknown trigger %q", s.Name, i+1, step.Run)
		}
		if step.Simulate != "" && !fund.ValidTriggerTypes[fund.TriggerType(step.Simulate)] {
			return fmt.Errorf("scenario %q step %d: unknown trigger %q", s.Name, i+1, step.Simulate)
		}
		if step.Advance != "" {
			if _, err := time.ParseDuration(step.Advance); err != nil {
				return fmt.Errorf("scenario %q step %d: bad advance %q: %w", s.Name, i+1, step.Advance, err)
			}
		}
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertBalance:
			if a.Envelope == "" {
				return fmt.Errorf("scenario %q assertion %d: balance requires envelope", s.Name, i+1)
			}
		case AssertUnassigned, AssertHistoryCount, AssertUndoableCount:
		default:
			return fmt.Errorf("scenario %q assertion %d: unknown type %q", s.Name, i+1, a.Type)
		}
	}
	return nil
}
