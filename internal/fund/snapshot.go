package fund

import "github.com/shopspring/decimal"

// Unassigned is the pseudo envelope ID for money not yet allocated to any
// envelope. Every funding transfer draws from it; every undo returns to it.
const Unassigned = "unassigned"

// Envelope is a named budget bucket.
type Envelope struct {
	ID             string          `json:"id" yaml:"id"`
	Name           string          `json:"name,omitempty" yaml:"name,omitempty"`
	CurrentBalance decimal.Decimal `json:"currentBalance" yaml:"currentBalance"`
	MonthlyAmount  decimal.Decimal `json:"monthlyAmount" yaml:"monthlyAmount"`
}

// Snapshot is the read-only budget state supplied per run.
//
// NewIncomeAmount is set only when the run was triggered by a detected
// income transaction; conditions that depend on it evaluate to false when
// it is absent.
type Snapshot struct {
	Envelopes       []Envelope       `json:"envelopes" yaml:"envelopes"`
	UnassignedCash  decimal.Decimal  `json:"unassignedCash" yaml:"unassignedCash"`
	NewIncomeAmount *decimal.Decimal `json:"newIncomeAmount,omitempty" yaml:"newIncomeAmount,omitempty"`
}

// Envelope returns the envelope with the given ID, or false if absent.
func (s Snapshot) Envelope(id string) (Envelope, bool) {
	for _, e := range s.Envelopes {
		if e.ID == id {
			return e, true
		}
	}
	return Envelope{}, false
}
