package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/autofund/internal/fund"
)

// AppendRecord inserts an execution record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are
// silently ignored so a retried save after a crash cannot double-write.
func (s *Store) AppendRecord(ctx context.Context, r fund.ExecutionRecord) error {
	data, err := marshalRecord(r)
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO execution_history (id, trigger, executed_at, success, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.ID,
		string(r.Trigger),
		r.ExecutedAt.Format(time.RFC3339Nano),
		boolToInt(r.Success),
		data,
	)
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// LoadHistory reads the most recent execution records, newest first.
// A limit of 0 or less returns everything.
func (s *Store) LoadHistory(ctx context.Context, limit int) ([]fund.ExecutionRecord, error) {
	query := `SELECT data FROM execution_history ORDER BY executed_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var records []fund.ExecutionRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("load history: scan: %w", err)
		}
		r, err := unmarshalRecord(data)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return records, nil
}

// PruneHistory deletes everything but the newest keep records.
func (s *Store) PruneHistory(ctx context.Context, keep int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM execution_history
		WHERE id NOT IN (
			SELECT id FROM execution_history
			ORDER BY executed_at DESC, id DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return nil
}
