package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/autofund/internal/fund"
)

// SaveRules replaces the stored rule set with the given rules in one
// transaction. The in-memory rule store is the source of truth while the
// process runs; this persists it wholesale after mutations.
func (s *Store) SaveRules(ctx context.Context, rules []fund.Rule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save rules: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM rules`); err != nil {
		return fmt.Errorf("save rules: clear: %w", err)
	}

	for _, r := range rules {
		data, err := marshalRule(r)
		if err != nil {
			return fmt.Errorf("save rules: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO rules (id, priority, created_at, enabled, data)
			VALUES (?, ?, ?, ?, ?)
		`,
			r.ID,
			r.Priority,
			r.CreatedAt.Format(time.RFC3339Nano),
			boolToInt(r.Enabled),
			data,
		)
		if err != nil {
			return fmt.Errorf("save rules: insert %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save rules: commit: %w", err)
	}
	return nil
}

// LoadRules reads all stored rules in (priority, created_at) order.
func (s *Store) LoadRules(ctx context.Context) ([]fund.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM rules ORDER BY priority, created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	defer rows.Close()

	var rules []fund.Rule
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("load rules: scan: %w", err)
		}
		r, err := unmarshalRule(data)
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	return rules, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
