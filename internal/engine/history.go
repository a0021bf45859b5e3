package engine

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/autofund/internal/fund"
)

// DefaultHistoryLimit bounds the execution history. Appending past the
// limit evicts the oldest record.
const DefaultHistoryLimit = 50

// History is the bounded, newest-first log of execution records.
type History struct {
	clock   Clock
	records *ring[fund.ExecutionRecord]
}

func newHistory(clock Clock, seed []fund.ExecutionRecord) *History {
	h := &History{
		clock:   clock,
		records: newRing[fund.ExecutionRecord](DefaultHistoryLimit),
	}
	for i := len(seed) - 1; i >= 0; i-- {
		h.records.Push(seed[i])
	}
	return h
}

func (h *History) append(record fund.ExecutionRecord) {
	h.records.Push(record)
}

// Len returns the number of retained records.
func (h *History) Len() int {
	return h.records.Len()
}

// HistoryFilter narrows a history query. Zero-valued fields match
// everything.
type HistoryFilter struct {
	Trigger fund.TriggerType
	Success *bool
	Since   time.Time
	Until   time.Time
}

func (f HistoryFilter) matches(r fund.ExecutionRecord) bool {
	if f.Trigger != "" && r.Trigger != f.Trigger {
		return false
	}
	if f.Success != nil && r.Success != *f.Success {
		return false
	}
	if !f.Since.IsZero() && r.ExecutedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && r.ExecutedAt.After(f.Until) {
		return false
	}
	return true
}

// Get returns up to limit matching records, newest first. A limit of 0
// or less means no limit.
func (h *History) Get(limit int, filter HistoryFilter) []fund.ExecutionRecord {
	var out []fund.ExecutionRecord
	for _, r := range h.records.Items() {
		if !filter.matches(r) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Clear drops all retained records.
func (h *History) Clear() {
	h.records.Clear()
}

// HistoryStatistics aggregates the retained history. Undo records count
// toward TotalReversed, all others toward TotalFunded. AverageFunded
// averages over successful runs only.
type HistoryStatistics struct {
	TotalExecutions int                      `json:"totalExecutions"`
	Successful      int                      `json:"successful"`
	Failed          int                      `json:"failed"`
	TotalFunded     decimal.Decimal          `json:"totalFunded"`
	TotalReversed   decimal.Decimal          `json:"totalReversed"`
	NetFunded       decimal.Decimal          `json:"netFunded"`
	AverageFunded   decimal.Decimal          `json:"averageFunded"`
	ByTrigger       map[fund.TriggerType]int `json:"byTrigger"`
	Last30Days      int                      `json:"last30Days"`
	LastExecution   *time.Time               `json:"lastExecution,omitempty"`
}

// Statistics computes aggregates over all retained records.
func (h *History) Statistics() HistoryStatistics {
	stats := HistoryStatistics{
		TotalFunded:   decimal.Zero,
		TotalReversed: decimal.Zero,
		NetFunded:     decimal.Zero,
		AverageFunded: decimal.Zero,
		ByTrigger:     map[fund.TriggerType]int{},
	}

	items := h.records.Items()
	if len(items) > 0 {
		last := items[0].ExecutedAt
		stats.LastExecution = &last
	}

	cutoff := h.clock.Now().AddDate(0, 0, -30)
	funded := 0
	for _, r := range items {
		stats.TotalExecutions++
		if r.Success {
			stats.Successful++
		} else {
			stats.Failed++
		}
		stats.ByTrigger[r.Trigger]++
		if !r.ExecutedAt.Before(cutoff) {
			stats.Last30Days++
		}

		if r.IsUndo {
			stats.TotalReversed = stats.TotalReversed.Add(r.TotalFunded.Neg())
		} else {
			stats.TotalFunded = stats.TotalFunded.Add(r.TotalFunded)
			if r.Success {
				funded++
			}
		}
	}

	stats.NetFunded = stats.TotalFunded.Sub(stats.TotalReversed)
	if funded > 0 {
		stats.AverageFunded = stats.TotalFunded.Div(decimal.NewFromInt(int64(funded))).Round(2)
	}
	return stats
}

// Export formats. CSV carries a flat summary row per record; JSON carries
// the full records including per-rule results.
const (
	ExportJSON = "json"
	ExportCSV  = "csv"
)

// ExportOptions narrows and enriches an export. The zero value exports
// every retained record.
type ExportOptions struct {
	// Filter limits which records are exported.
	Filter HistoryFilter

	// UndoStack, when non-nil, is embedded in JSON exports. CSV
	// exports ignore it.
	UndoStack []fund.UndoItem
}

// exportPayload is the JSON export document.
type exportPayload struct {
	ExportedAt time.Time              `json:"exportedAt"`
	Records    []fund.ExecutionRecord `json:"records"`
	UndoStack  []fund.UndoItem        `json:"undoStack,omitempty"`
}

// Export renders the retained history in the given format and returns
// the suggested filename alongside the payload.
func (h *History) Export(format string, opts ExportOptions) (filename string, data []byte, err error) {
	records := h.Get(0, opts.Filter)
	if records == nil {
		records = []fund.ExecutionRecord{}
	}

	now := h.clock.Now()
	date := now.Format("2006-01-02")
	switch format {
	case ExportJSON:
		payload := exportPayload{
			ExportedAt: now,
			Records:    records,
			UndoStack:  opts.UndoStack,
		}
		data, err = json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return "", nil, fmt.Errorf("marshal history: %w", err)
		}
		return fmt.Sprintf("auto-funding-history-%s.json", date), data, nil

	case ExportCSV:
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write([]string{"id", "trigger", "executedAt", "rulesExecuted", "totalFunded", "success"}); err != nil {
			return "", nil, fmt.Errorf("write csv header: %w", err)
		}
		for _, r := range records {
			row := []string{
				r.ID,
				string(r.Trigger),
				r.ExecutedAt.UTC().Format(time.RFC3339),
				strconv.Itoa(r.RulesExecuted),
				r.TotalFunded.StringFixed(2),
				strconv.FormatBool(r.Success),
			}
			if err := w.Write(row); err != nil {
				return "", nil, fmt.Errorf("write csv row: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return "", nil, fmt.Errorf("flush csv: %w", err)
		}
		return fmt.Sprintf("auto-funding-history-%s.csv", date), buf.Bytes(), nil

	default:
		return "", nil, fmt.Errorf("unsupported export format %q", format)
	}
}
