package engine

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/roach88/autofund/internal/fund"
)

// Ledger performs the actual balance-changing transfer operation.
//
// Implementations return a *fund.TransferError for domain failures
// (insufficient funds, unknown envelope, storage failure). The engine
// issues transfers sequentially and waits for each before the next, since
// remaining-cash bookkeeping cannot be computed against in-flight
// transfers.
type Ledger interface {
	Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal, description string) error
}

// recordingLedger accepts every transfer without side effects, recording
// what would have been issued. Simulation substitutes it for the real
// ledger so the planning pipeline is byte-for-byte identical to a run.
type recordingLedger struct {
	transfers []fund.Transfer
}

func (l *recordingLedger) Transfer(_ context.Context, fromID, toID string, amount decimal.Decimal, description string) error {
	l.transfers = append(l.transfers, fund.Transfer{
		FromEnvelopeID: fromID,
		ToEnvelopeID:   toID,
		Amount:         amount,
		Description:    description,
	})
	return nil
}

// MemoryLedger is an in-memory Ledger over envelope balances.
//
// It enforces the same failure modes as a durable ledger (unknown
// envelope, insufficient source funds) and keeps an append-only transfer
// log. Used by tests and as the reference implementation.
type MemoryLedger struct {
	mu         sync.Mutex
	balances   map[string]decimal.Decimal
	unassigned decimal.Decimal
	log        []fund.Transfer
}

// NewMemoryLedger creates a ledger seeded from a budget snapshot.
func NewMemoryLedger(snap fund.Snapshot) *MemoryLedger {
	balances := make(map[string]decimal.Decimal, len(snap.Envelopes))
	for _, e := range snap.Envelopes {
		balances[e.ID] = e.CurrentBalance
	}
	return &MemoryLedger{
		balances:   balances,
		unassigned: snap.UnassignedCash,
	}
}

// Transfer moves amount between envelopes (or unassigned cash).
func (l *MemoryLedger) Transfer(_ context.Context, fromID, toID string, amount decimal.Decimal, description string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	from, err := l.balance(fromID)
	if err != nil {
		return err
	}
	if _, err := l.balance(toID); err != nil {
		return err
	}
	if from.LessThan(amount) {
		return &fund.TransferError{
			Code:       fund.ErrCodeInsufficientFunds,
			EnvelopeID: fromID,
			Message:    "balance " + from.String() + " cannot cover " + amount.String(),
		}
	}

	l.credit(fromID, amount.Neg())
	l.credit(toID, amount)
	l.log = append(l.log, fund.Transfer{
		FromEnvelopeID: fromID,
		ToEnvelopeID:   toID,
		Amount:         amount,
		Description:    description,
	})
	return nil
}

func (l *MemoryLedger) balance(id string) (decimal.Decimal, error) {
	if id == fund.Unassigned {
		return l.unassigned, nil
	}
	b, ok := l.balances[id]
	if !ok {
		return decimal.Zero, &fund.TransferError{
			Code:       fund.ErrCodeUnknownEnvelope,
			EnvelopeID: id,
			Message:    "envelope does not exist",
		}
	}
	return b, nil
}

func (l *MemoryLedger) credit(id string, amount decimal.Decimal) {
	if id == fund.Unassigned {
		l.unassigned = l.unassigned.Add(amount)
		return
	}
	l.balances[id] = l.balances[id].Add(amount)
}

// Unassigned returns the current unassigned cash balance.
func (l *MemoryLedger) Unassigned() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unassigned
}

// Balance returns an envelope's current balance.
func (l *MemoryLedger) Balance(id string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[id]
}

// Log returns the transfers applied so far, in order.
func (l *MemoryLedger) Log() []fund.Transfer {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]fund.Transfer, len(l.log))
	copy(out, l.log)
	return out
}

// Snapshot rebuilds a budget snapshot from the current ledger state.
// Envelope metadata (name, monthly amount) is carried over from base.
func (l *MemoryLedger) Snapshot(base fund.Snapshot) fund.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := fund.Snapshot{UnassignedCash: l.unassigned}
	for _, e := range base.Envelopes {
		e.CurrentBalance = l.balances[e.ID]
		snap.Envelopes = append(snap.Envelopes, e)
	}
	return snap
}
