// Package rules owns the set of auto-funding rule definitions: validated
// CRUD, filtering, and aggregate statistics.
//
// The store is an explicit type guarding its collection behind a mutex.
// All returned rules are deep copies; callers never hold references into
// the store's state.
package rules

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/autofund/internal/fund"
)

// ErrNotFound is returned when a rule ID does not exist.
var ErrNotFound = errors.New("rule not found")

// Store holds rule definitions in memory. Persistence is the caller's
// concern: construct with the durably stored rules and read them back out
// with List.
type Store struct {
	mu    sync.Mutex
	rules map[string]fund.Rule

	now   func() time.Time
	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithNow overrides the wall clock, for deterministic tests.
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDFunc overrides rule ID generation, for deterministic tests.
func WithIDFunc(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// NewStore creates a store seeded with the given rules.
// Seed rules are trusted (they were validated when first stored).
func NewStore(seed []fund.Rule, opts ...Option) *Store {
	s := &Store{
		rules: make(map[string]fund.Rule, len(seed)),
		now:   time.Now,
		newID: func() string { return "rule_" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, r := range seed {
		s.rules[r.ID] = r.Clone()
	}
	return s
}

// Add validates and stores a new rule. On validation failure nothing is
// stored and the returned ValidationError lists every violated constraint.
//
// Missing ID, priority, and creation time are filled with defaults before
// validation; Enabled is taken as given (zero value disables the rule only
// if the caller said so explicitly via the struct literal).
func (s *Store) Add(r fund.Rule) (fund.Rule, error) {
	if r.ID == "" {
		r.ID = s.newID()
	}
	if r.Priority == 0 {
		r.Priority = fund.DefaultPriority
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}

	if err := fund.ValidateRule(r); err != nil {
		return fund.Rule{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[r.ID]; exists {
		return fund.Rule{}, fmt.Errorf("rule %s already exists", r.ID)
	}
	s.rules[r.ID] = r.Clone()

	slog.Info("rule added", "rule_id", r.ID, "name", r.Name, "type", r.Type)
	return r, nil
}

// Patch is a partial update to a rule. Nil fields are left unchanged.
type Patch struct {
	Name        *string
	Description *string
	Type        *fund.RuleType
	Trigger     *fund.TriggerType
	Priority    *int
	Enabled     *bool
	Config      *fund.RuleConfig
}

// Update applies a partial update. The patched rule is validated before
// being stored; an invalid patch leaves the stored rule untouched.
func (s *Store) Update(id string, p Patch) (fund.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.rules[id]
	if !ok {
		return fund.Rule{}, fmt.Errorf("update rule %s: %w", id, ErrNotFound)
	}

	updated := current.Clone()
	if p.Name != nil {
		updated.Name = *p.Name
	}
	if p.Description != nil {
		updated.Description = *p.Description
	}
	if p.Type != nil {
		updated.Type = *p.Type
	}
	if p.Trigger != nil {
		updated.Trigger = *p.Trigger
	}
	if p.Priority != nil {
		updated.Priority = *p.Priority
	}
	if p.Enabled != nil {
		updated.Enabled = *p.Enabled
	}
	if p.Config != nil {
		updated.Config = *p.Config
	}

	if err := fund.ValidateRule(updated); err != nil {
		return fund.Rule{}, err
	}

	s.rules[id] = updated
	slog.Info("rule updated", "rule_id", id)
	return updated.Clone(), nil
}

// Delete removes a rule permanently.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[id]; !ok {
		return fmt.Errorf("delete rule %s: %w", id, ErrNotFound)
	}
	delete(s.rules, id)
	slog.Info("rule deleted", "rule_id", id)
	return nil
}

// Toggle flips a rule's enabled flag and returns the new state.
func (s *Store) Toggle(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rules[id]
	if !ok {
		return false, fmt.Errorf("toggle rule %s: %w", id, ErrNotFound)
	}
	r.Enabled = !r.Enabled
	s.rules[id] = r
	return r.Enabled, nil
}

// Duplicate copies a rule under a new ID. The copy gets "(Copy)" appended
// to its name, starts disabled, and has its execution counters zeroed.
func (s *Store) Duplicate(id string) (fund.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.rules[id]
	if !ok {
		return fund.Rule{}, fmt.Errorf("duplicate rule %s: %w", id, ErrNotFound)
	}

	dup := src.Clone()
	dup.ID = s.newID()
	dup.Name = src.Name + " (Copy)"
	dup.Enabled = false
	dup.CreatedAt = s.now()
	dup.LastExecuted = nil
	dup.ExecutionCount = 0

	s.rules[dup.ID] = dup
	slog.Info("rule duplicated", "source_rule_id", id, "rule_id", dup.ID)
	return dup.Clone(), nil
}

// Get returns a copy of one rule.
func (s *Store) Get(id string) (fund.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rules[id]
	if !ok {
		return fund.Rule{}, fmt.Errorf("get rule %s: %w", id, ErrNotFound)
	}
	return r.Clone(), nil
}

// List returns all rules sorted by (priority asc, createdAt asc).
func (s *Store) List() []fund.Rule {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]fund.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r.Clone())
	}
	return fund.SortRules(out)
}

// MarkExecuted records one successful execution of a rule.
// Unknown IDs are ignored: the rule may have been deleted mid-run.
func (s *Store) MarkExecuted(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rules[id]
	if !ok {
		return
	}
	t := at
	r.LastExecuted = &t
	r.ExecutionCount++
	s.rules[id] = r
}
