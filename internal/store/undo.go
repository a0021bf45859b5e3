package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/autofund/internal/fund"
)

// SaveUndoStack replaces the stored undo stack in one transaction.
// Items arrive newest first, mirroring the engine's in-memory order.
func (s *Store) SaveUndoStack(ctx context.Context, items []fund.UndoItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save undo stack: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM undo_stack`); err != nil {
		return fmt.Errorf("save undo stack: clear: %w", err)
	}

	for _, item := range items {
		data, err := marshalUndoItem(item)
		if err != nil {
			return fmt.Errorf("save undo stack: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO undo_stack (execution_id, executed_at, can_undo, data)
			VALUES (?, ?, ?, ?)
		`,
			item.ExecutionID,
			item.ExecutedAt.Format(time.RFC3339Nano),
			boolToInt(item.CanUndo),
			data,
		)
		if err != nil {
			return fmt.Errorf("save undo stack: insert %s: %w", item.ExecutionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save undo stack: commit: %w", err)
	}
	return nil
}

// LoadUndoStack reads the stored undo stack, newest first.
func (s *Store) LoadUndoStack(ctx context.Context) ([]fund.UndoItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM undo_stack ORDER BY executed_at DESC, execution_id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("load undo stack: %w", err)
	}
	defer rows.Close()

	var items []fund.UndoItem
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("load undo stack: scan: %w", err)
		}
		item, err := unmarshalUndoItem(data)
		if err != nil {
			return nil, fmt.Errorf("load undo stack: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load undo stack: %w", err)
	}
	return items, nil
}
