package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/autofund/internal/fund"
)

// Ledger is the durable implementation of the engine's transfer
// interface, backed by the store's SQLite database.
//
// Each transfer runs in one transaction: both balance checks, both
// balance updates, and the log row commit together or not at all.
type Ledger struct {
	store *Store
	now   func() time.Time
}

// NewLedger creates a ledger over the store. A nil now defaults to UTC
// wall-clock time.
func NewLedger(s *Store, now func() time.Time) *Ledger {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Ledger{store: s, now: now}
}

// Transfer moves amount from one envelope (or unassigned cash) to
// another. Returns a *fund.TransferError for domain failures; backend
// failures map to ErrCodeStorageFailure.
func (l *Ledger) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal, description string) error {
	tx, err := l.store.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("begin transaction", err)
	}
	defer tx.Rollback() // No-op if committed

	from, err := readBalance(ctx, tx, fromID)
	if err != nil {
		return err
	}
	to, err := readBalance(ctx, tx, toID)
	if err != nil {
		return err
	}

	if from.LessThan(amount) {
		return &fund.TransferError{
			Code:       fund.ErrCodeInsufficientFunds,
			EnvelopeID: fromID,
			Message:    "balance " + from.String() + " cannot cover " + amount.String(),
		}
	}

	if err := writeBalance(ctx, tx, fromID, from.Sub(amount)); err != nil {
		return err
	}
	if err := writeBalance(ctx, tx, toID, to.Add(amount)); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transfers (from_id, to_id, amount, description, executed_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		fromID,
		toID,
		amount.String(),
		description,
		l.now().Format(time.RFC3339Nano),
	)
	if err != nil {
		return storageError("write transfer log", err)
	}

	if err := tx.Commit(); err != nil {
		return storageError("commit transaction", err)
	}
	return nil
}

// Log returns the most recent transfers, newest first. A limit of 0 or
// less returns everything.
func (l *Ledger) Log(ctx context.Context, limit int) ([]fund.Transfer, error) {
	query := `
		SELECT from_id, to_id, amount, description, executed_at
		FROM transfers
		ORDER BY id DESC
	`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = l.store.db.QueryContext(ctx, query+" LIMIT ?", limit)
	} else {
		rows, err = l.store.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, storageError("read transfer log", err)
	}
	defer rows.Close()

	var transfers []fund.Transfer
	for rows.Next() {
		var t fund.Transfer
		var amount, executedAt string
		if err := rows.Scan(&t.FromEnvelopeID, &t.ToEnvelopeID, &amount, &t.Description, &executedAt); err != nil {
			return nil, storageError("scan transfer log", err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, storageError("parse transfer amount", err)
		}
		if t.ExecutedAt, err = time.Parse(time.RFC3339Nano, executedAt); err != nil {
			return nil, storageError("parse transfer timestamp", err)
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("read transfer log", err)
	}
	return transfers, nil
}

func readBalance(ctx context.Context, tx *sql.Tx, id string) (decimal.Decimal, error) {
	var raw string
	var err error
	if id == fund.Unassigned {
		err = tx.QueryRowContext(ctx, `SELECT unassigned_cash FROM budget_state WHERE id = 1`).Scan(&raw)
	} else {
		err = tx.QueryRowContext(ctx, `SELECT current_balance FROM envelopes WHERE id = ?`, id).Scan(&raw)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, &fund.TransferError{
			Code:       fund.ErrCodeUnknownEnvelope,
			EnvelopeID: id,
			Message:    "envelope does not exist",
		}
	}
	if err != nil {
		return decimal.Zero, storageError("read balance", err)
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, storageError("parse balance", err)
	}
	return balance, nil
}

func writeBalance(ctx context.Context, tx *sql.Tx, id string, balance decimal.Decimal) error {
	var err error
	if id == fund.Unassigned {
		_, err = tx.ExecContext(ctx, `UPDATE budget_state SET unassigned_cash = ? WHERE id = 1`, balance.String())
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE envelopes SET current_balance = ? WHERE id = ?`, balance.String(), id)
	}
	if err != nil {
		return storageError("write balance", err)
	}
	return nil
}

func storageError(op string, err error) error {
	return &fund.TransferError{
		Code:    fund.ErrCodeStorageFailure,
		Message: op + ": " + err.Error(),
	}
}
