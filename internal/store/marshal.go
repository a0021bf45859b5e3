package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/autofund/internal/fund"
)

// Rules, execution records, and undo items are stored as JSON documents.
// The handful of indexed columns beside them exist for ordering and
// filtering; the JSON column is the source of truth.

func marshalRule(r fund.Rule) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal rule %s: %w", r.ID, err)
	}
	return string(data), nil
}

func unmarshalRule(data string) (fund.Rule, error) {
	var r fund.Rule
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return fund.Rule{}, fmt.Errorf("unmarshal rule: %w", err)
	}
	return r, nil
}

func marshalRecord(r fund.ExecutionRecord) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal execution record %s: %w", r.ID, err)
	}
	return string(data), nil
}

func unmarshalRecord(data string) (fund.ExecutionRecord, error) {
	var r fund.ExecutionRecord
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return fund.ExecutionRecord{}, fmt.Errorf("unmarshal execution record: %w", err)
	}
	return r, nil
}

func marshalUndoItem(item fund.UndoItem) (string, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return "", fmt.Errorf("marshal undo item %s: %w", item.ExecutionID, err)
	}
	return string(data), nil
}

func unmarshalUndoItem(data string) (fund.UndoItem, error) {
	var item fund.UndoItem
	if err := json.Unmarshal([]byte(data), &item); err != nil {
		return fund.UndoItem{}, fmt.Errorf("unmarshal undo item: %w", err)
	}
	return item, nil
}
