package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/autofund/internal/fund"
)

// DefaultUndoLimit bounds the undo stack. Older entries fall off and
// become permanently non-reversible.
const DefaultUndoLimit = 50

// UndoManager tracks recent executions and reverses them on request.
// Each execution can be undone at most once; an entry that has been
// undone, or that was evicted from the bounded stack, is gone for good.
type UndoManager struct {
	engine *Engine
	stack  *ring[fund.UndoItem]
}

func newUndoManager(e *Engine, seed []fund.UndoItem) *UndoManager {
	u := &UndoManager{
		engine: e,
		stack:  newRing[fund.UndoItem](DefaultUndoLimit),
	}
	// Seed is newest first; push oldest first so order is preserved.
	for i := len(seed) - 1; i >= 0; i-- {
		u.stack.Push(seed[i])
	}
	return u
}

// addToStack records an execution's transfers for later reversal.
// Called under the engine's busy flag.
func (u *UndoManager) addToStack(record fund.ExecutionRecord, transfers []fund.Transfer) {
	u.stack.Push(fund.UndoItem{
		ExecutionID: record.ID,
		ExecutedAt:  record.ExecutedAt,
		Trigger:     record.Trigger,
		Transfers:   transfers,
		TotalAmount: record.TotalFunded,
		CanUndo:     true,
	})
}

// Stack returns all undo entries, newest first, for durable storage.
func (u *UndoManager) Stack() []fund.UndoItem {
	return u.stack.Items()
}

// Undoable returns the entries that can still be reversed, newest first.
func (u *UndoManager) Undoable() []fund.UndoItem {
	var items []fund.UndoItem
	for _, item := range u.stack.Items() {
		if item.CanUndo {
			items = append(items, item)
		}
	}
	return items
}

// Undo reverses the execution with the given ID by issuing the inverse
// of each of its transfers, newest transfer first.
//
// The entry is marked non-reversible before any ledger call, so a second
// attempt (or a retry after a partial failure) fails with NOT_UNDOABLE
// rather than double-reversing. If a ledger call fails mid-way the
// already-reversed transfers stay reversed and the error reports the
// reversed and remaining counts.
//
// A successful (or partially successful) undo appends a synthetic
// history record with trigger "manual_undo" and a negative funded total.
func (u *UndoManager) Undo(ctx context.Context, executionID string) (fund.ExecutionRecord, error) {
	e := u.engine
	if !e.executing.CompareAndSwap(false, true) {
		return fund.ExecutionRecord{}, &BusyError{}
	}
	defer e.executing.Store(false)

	idx := -1
	for i, item := range u.stack.Items() {
		if item.ExecutionID == executionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fund.ExecutionRecord{}, &UndoError{
			Code:        UndoErrNotFound,
			ExecutionID: executionID,
		}
	}

	item := u.stack.At(idx)
	if !item.CanUndo {
		return fund.ExecutionRecord{}, &UndoError{
			Code:        UndoErrNotFound,
			ExecutionID: executionID,
		}
	}

	now := e.clock.Now()
	item.CanUndo = false
	item.UndoneAt = &now
	u.stack.Replace(idx, item)

	slog.Info("undoing execution",
		"execution_id", executionID,
		"transfers", len(item.Transfers),
		"total_amount", item.TotalAmount,
	)

	reversed := decimal.Zero
	for i := len(item.Transfers) - 1; i >= 0; i-- {
		inv := item.Transfers[i].Inverse()
		if err := e.ledger.Transfer(ctx, inv.FromEnvelopeID, inv.ToEnvelopeID, inv.Amount, inv.Description); err != nil {
			done := len(item.Transfers) - 1 - i
			slog.Error("undo reversal failed",
				"execution_id", executionID,
				"reversed", done,
				"remaining", i+1,
				"error", err,
			)
			if done > 0 {
				u.appendUndoRecord(executionID, reversed, now)
			}
			return fund.ExecutionRecord{}, &UndoError{
				Code:        UndoErrPartial,
				ExecutionID: executionID,
				Reversed:    done,
				Remaining:   i + 1,
				Err:         err,
			}
		}
		reversed = reversed.Add(inv.Amount)
	}

	record := u.appendUndoRecord(executionID, reversed, now)

	slog.Info("execution undone",
		"execution_id", executionID,
		"amount_reversed", reversed,
	)
	return record, nil
}

// UndoLast reverses the most recent still-reversible execution.
func (u *UndoManager) UndoLast(ctx context.Context) (fund.ExecutionRecord, error) {
	for _, item := range u.stack.Items() {
		if item.CanUndo {
			return u.Undo(ctx, item.ExecutionID)
		}
	}
	return fund.ExecutionRecord{}, &UndoError{Code: UndoErrNotFound}
}

// appendUndoRecord writes the synthetic history record for a reversal.
// RulesExecuted stays zero: no funding rule ran.
func (u *UndoManager) appendUndoRecord(executionID string, reversed decimal.Decimal, now time.Time) fund.ExecutionRecord {
	e := u.engine
	record := fund.ExecutionRecord{
		ID:                  e.idGen.Generate(),
		Trigger:             fund.TriggerManualUndo,
		ExecutedAt:          now,
		RulesExecuted:       0,
		TotalFunded:         reversed.Neg(),
		Success:             true,
		IsUndo:              true,
		OriginalExecutionID: executionID,
	}
	e.history.append(record)
	return record
}

// UndoStatistics summarizes the undo stack.
type UndoStatistics struct {
	Total           int             `json:"total"`
	Available       int             `json:"available"`
	Undone          int             `json:"undone"`
	TotalReversible decimal.Decimal `json:"totalReversible"`
}

// Statistics reports counts over the current undo stack.
func (u *UndoManager) Statistics() UndoStatistics {
	stats := UndoStatistics{TotalReversible: decimal.Zero}
	for _, item := range u.stack.Items() {
		stats.Total++
		if item.CanUndo {
			stats.Available++
			stats.TotalReversible = stats.TotalReversible.Add(item.TotalAmount)
		} else {
			stats.Undone++
		}
	}
	return stats
}
