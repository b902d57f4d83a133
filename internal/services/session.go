package services

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budgetplan/internal/core"
)

// Session is one user's editing view of a single displayed month. All
// mutators act on the materialized template only and write it through to
// the store. Unknown ids are a silent no-op: applied is false and err nil.
// err is non-nil only when the write-through failed, in which case the
// in-memory change is kept.
type Session struct {
	mu       sync.Mutex
	engine   *Engine
	userID   string
	month    core.MonthKey
	source   Source
	template core.BudgetTemplate
}

func newSession(e *Engine, userID string, res Resolution) *Session {
	return &Session{
		engine:   e,
		userID:   userID,
		month:    res.Month,
		source:   res.Source,
		template: res.Template,
	}
}

func (s *Session) UserID() string { return s.userID }

func (s *Session) Month() core.MonthKey { return s.month }

// Source reports where the template was resolved from when the session was
// opened.
func (s *Session) Source() Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Template returns a deep copy of the materialized template.
func (s *Session) Template() core.BudgetTemplate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.CloneTemplate(s.template)
}

func (s *Session) Summary() core.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.CalculateSummary(s.template)
}

func (s *Session) Breakdown() core.Breakdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.CalculateBreakdown(s.template)
}

// UpdateAmount replaces the amount; negative values coerce to zero.
func (s *Session) UpdateAmount(ctx context.Context, categoryID, subID string, amount decimal.Decimal) (bool, error) {
	return s.mutate(ctx, "update_amount", func(t *core.BudgetTemplate) bool {
		sub := findSubcategory(t, categoryID, subID)
		if sub == nil {
			return false
		}
		sub.Amount = core.CoerceAmount(amount)
		return true
	})
}

// UpdateName replaces the display name. Blank names are rejected.
func (s *Session) UpdateName(ctx context.Context, categoryID, subID, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}
	return s.mutate(ctx, "update_name", func(t *core.BudgetTemplate) bool {
		sub := findSubcategory(t, categoryID, subID)
		if sub == nil {
			return false
		}
		sub.Name = name
		return true
	})
}

// UpdateClassification stores an explicit override, even one that disagrees
// with the default table.
func (s *Session) UpdateClassification(ctx context.Context, categoryID, subID string, c core.Classification) (bool, error) {
	if !c.Valid() {
		return false, nil
	}
	return s.mutate(ctx, "update_classification", func(t *core.BudgetTemplate) bool {
		sub := findSubcategory(t, categoryID, subID)
		if sub == nil {
			return false
		}
		sub.Classification = c
		return true
	})
}

// SetDueDate sets the due date, or clears it when due is nil. Only the
// calendar date is kept.
func (s *Session) SetDueDate(ctx context.Context, categoryID, subID string, due *time.Time) (bool, error) {
	var day *time.Time
	if due != nil {
		d := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
		day = &d
	}
	return s.mutate(ctx, "set_due_date", func(t *core.BudgetTemplate) bool {
		sub := findSubcategory(t, categoryID, subID)
		if sub == nil {
			return false
		}
		sub.DueDate = day
		return true
	})
}

// AddSubcategory appends a zero-amount line item with a fresh id. An empty
// classification defaults to need.
func (s *Session) AddSubcategory(ctx context.Context, categoryID, name string, c core.Classification) (core.Subcategory, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Subcategory{}, false, nil
	}
	if c == "" {
		c = core.Need
	}
	if !c.Valid() {
		return core.Subcategory{}, false, nil
	}

	added := core.Subcategory{
		ID:             uuid.NewString(),
		Name:           name,
		Amount:         decimal.Zero,
		Classification: c,
	}
	applied, err := s.mutate(ctx, "add_subcategory", func(t *core.BudgetTemplate) bool {
		ci := t.CategoryIndex(categoryID)
		if ci < 0 {
			return false
		}
		t.Categories[ci].Subcategories = append(t.Categories[ci].Subcategories, added)
		return true
	})
	if !applied {
		return core.Subcategory{}, false, err
	}
	return added, true, err
}

func (s *Session) DeleteSubcategory(ctx context.Context, categoryID, subID string) (bool, error) {
	return s.mutate(ctx, "delete_subcategory", func(t *core.BudgetTemplate) bool {
		ci, si := locate(t, categoryID, subID)
		if si < 0 {
			return false
		}
		subs := t.Categories[ci].Subcategories
		t.Categories[ci].Subcategories = append(subs[:si], subs[si+1:]...)
		return true
	})
}

// MoveUp swaps the item with its predecessor. No-op at the first position.
func (s *Session) MoveUp(ctx context.Context, categoryID, subID string) (bool, error) {
	return s.move(ctx, "move_up", categoryID, subID, -1)
}

// MoveDown swaps the item with its successor. No-op at the last position.
func (s *Session) MoveDown(ctx context.Context, categoryID, subID string) (bool, error) {
	return s.move(ctx, "move_down", categoryID, subID, 1)
}

func (s *Session) move(ctx context.Context, op, categoryID, subID string, delta int) (bool, error) {
	return s.mutate(ctx, op, func(t *core.BudgetTemplate) bool {
		ci, si := locate(t, categoryID, subID)
		if si < 0 {
			return false
		}
		subs := t.Categories[ci].Subcategories
		to := si + delta
		if to < 0 || to >= len(subs) {
			return false
		}
		subs[si], subs[to] = subs[to], subs[si]
		return true
	})
}

// Reset deletes every stored snapshot of the user and shows the built-in
// template. The displayed month is unchanged.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.Reset(ctx, s.userID); err != nil {
		return err
	}
	s.template = prepare(core.DefaultTemplate())
	s.source = SourceBuiltin
	return nil
}

// mutate applies fn to a copy of the template. The copy replaces the
// session template before the write-through starts, and the lock is held
// until the write-through returns.
func (s *Session) mutate(ctx context.Context, op string, fn func(t *core.BudgetTemplate) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := core.CloneTemplate(s.template)
	if !fn(&next) {
		slog.DebugContext(ctx, "Mutation ignored",
			"operation", op,
			"user_id", s.userID,
			"month", s.month.String())
		return false, nil
	}
	s.template = prepare(next)
	s.source = SourceExplicit

	if err := s.engine.Persist(ctx, s.userID, s.month, s.template); err != nil {
		slog.ErrorContext(ctx, "Write-through failed",
			"operation", op,
			"user_id", s.userID,
			"month", s.month.String(),
			"error", err)
		return true, err
	}
	return true, nil
}

func locate(t *core.BudgetTemplate, categoryID, subID string) (int, int) {
	ci := t.CategoryIndex(categoryID)
	if ci < 0 {
		return -1, -1
	}
	return ci, t.Categories[ci].SubcategoryIndex(subID)
}

func findSubcategory(t *core.BudgetTemplate, categoryID, subID string) *core.Subcategory {
	ci, si := locate(t, categoryID, subID)
	if si < 0 {
		return nil
	}
	return &t.Categories[ci].Subcategories[si]
}
