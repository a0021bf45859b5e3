package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/autofund/internal/fund"
)

// UpsertEnvelope creates or updates an envelope.
func (s *Store) UpsertEnvelope(ctx context.Context, e fund.Envelope) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO envelopes (id, name, current_balance, monthly_amount)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			current_balance = excluded.current_balance,
			monthly_amount = excluded.monthly_amount
	`,
		e.ID,
		e.Name,
		e.CurrentBalance.String(),
		e.MonthlyAmount.String(),
	)
	if err != nil {
		return fmt.Errorf("upsert envelope: %w", err)
	}
	return nil
}

// DeleteEnvelope removes an envelope. Its balance is not returned to
// unassigned cash; callers transfer money out first if they want that.
func (s *Store) DeleteEnvelope(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM envelopes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete envelope: %w", err)
	}
	return nil
}

// ListEnvelopes returns all envelopes ordered by ID.
func (s *Store) ListEnvelopes(ctx context.Context) ([]fund.Envelope, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, current_balance, monthly_amount
		FROM envelopes
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list envelopes: %w", err)
	}
	defer rows.Close()

	var envelopes []fund.Envelope
	for rows.Next() {
		var e fund.Envelope
		var balance, monthly string
		if err := rows.Scan(&e.ID, &e.Name, &balance, &monthly); err != nil {
			return nil, fmt.Errorf("list envelopes: scan: %w", err)
		}
		if e.CurrentBalance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("list envelopes: parse balance for %s: %w", e.ID, err)
		}
		if e.MonthlyAmount, err = decimal.NewFromString(monthly); err != nil {
			return nil, fmt.Errorf("list envelopes: parse monthly amount for %s: %w", e.ID, err)
		}
		envelopes = append(envelopes, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list envelopes: %w", err)
	}
	return envelopes, nil
}

// SetUnassignedCash overwrites the unassigned cash balance.
func (s *Store) SetUnassignedCash(ctx context.Context, amount decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE budget_state SET unassigned_cash = ? WHERE id = 1
	`, amount.String())
	if err != nil {
		return fmt.Errorf("set unassigned cash: %w", err)
	}
	return nil
}

// UnassignedCash returns the current unassigned cash balance.
func (s *Store) UnassignedCash(ctx context.Context) (decimal.Decimal, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT unassigned_cash FROM budget_state WHERE id = 1
	`).Scan(&raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get unassigned cash: %w", err)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get unassigned cash: parse: %w", err)
	}
	return amount, nil
}

// Snapshot reads the full budget state for an engine run.
func (s *Store) Snapshot(ctx context.Context) (fund.Snapshot, error) {
	envelopes, err := s.ListEnvelopes(ctx)
	if err != nil {
		return fund.Snapshot{}, err
	}
	unassigned, err := s.UnassignedCash(ctx)
	if err != nil {
		return fund.Snapshot{}, err
	}
	return fund.Snapshot{Envelopes: envelopes, UnassignedCash: unassigned}, nil
}
