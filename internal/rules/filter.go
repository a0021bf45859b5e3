package rules

import (
	"strings"
	"time"

	"github.com/roach88/autofund/internal/fund"
)

// Filter selects rules matching criteria. Zero-value fields match all.
type Filter struct {
	Enabled *bool
	Type    fund.RuleType
	Trigger fund.TriggerType
	// Search matches the rule name or description, case-insensitively.
	Search string
}

// Filter returns rules matching the criteria, in priority order.
func (s *Store) Filter(f Filter) []fund.Rule {
	all := s.List()
	out := make([]fund.Rule, 0, len(all))
	for _, r := range all {
		if f.Enabled != nil && r.Enabled != *f.Enabled {
			continue
		}
		if f.Type != "" && r.Type != f.Type {
			continue
		}
		if f.Trigger != "" && r.Trigger != f.Trigger {
			continue
		}
		if f.Search != "" && !matchesSearch(r, f.Search) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchesSearch(r fund.Rule, term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(r.Name), term) ||
		strings.Contains(strings.ToLower(r.Description), term)
}

// Statistics aggregates over the stored rule definitions.
type Statistics struct {
	Total           int                      `json:"total"`
	Enabled         int                      `json:"enabled"`
	Disabled        int                      `json:"disabled"`
	ByType          map[fund.RuleType]int    `json:"byType"`
	ByTrigger       map[fund.TriggerType]int `json:"byTrigger"`
	TotalExecutions int                      `json:"totalExecutions"`
	// LastExecuted is the most recent execution time across all rules,
	// nil when no rule has ever executed.
	LastExecuted *time.Time `json:"lastExecuted"`
}

// Statistics computes aggregate counts over all rules.
func (s *Store) Statistics() Statistics {
	stats := Statistics{
		ByType:    make(map[fund.RuleType]int),
		ByTrigger: make(map[fund.TriggerType]int),
	}

	for _, r := range s.List() {
		stats.Total++
		if r.Enabled {
			stats.Enabled++
		} else {
			stats.Disabled++
		}
		stats.ByType[r.Type]++
		stats.ByTrigger[r.Trigger]++
		stats.TotalExecutions += r.ExecutionCount

		if r.LastExecuted != nil {
			if stats.LastExecuted == nil || r.LastExecuted.After(*stats.LastExecuted) {
				t := *r.LastExecuted
				stats.LastExecuted = &t
			}
		}
	}

	return stats
}
