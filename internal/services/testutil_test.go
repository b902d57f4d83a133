package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budgetplan/internal/amqp"
	"budgetplan/internal/core"
	"budgetplan/internal/snapshots"
	"budgetplan/internal/snapshots/memory"
)

const testUser = "user-1"

// today is 15 March 2025 in every engine test.
var today = time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)

func month(t *testing.T, year, m int) core.MonthKey {
	t.Helper()
	k, err := core.NewMonthKey(year, m)
	if err != nil {
		t.Fatalf("NewMonthKey(%d, %d): %v", year, m, err)
	}
	return k
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.SnapshotEvent
}

func (p *recordingPublisher) PublishSnapshotEvent(_ context.Context, ev *amqp.SnapshotEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) slots() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, string(ev.Type)+":"+ev.Slot)
	}
	return out
}

// failingBackend fails every call.
type failingBackend struct{}

var errBackendDown = errors.New("backend down")

func (failingBackend) Load(context.Context, string, string) ([]byte, error) {
	return nil, errBackendDown
}
func (failingBackend) Save(context.Context, string, string, []byte) error { return errBackendDown }
func (failingBackend) Exists(context.Context, string, string) (bool, error) {
	return false, errBackendDown
}
func (failingBackend) DeleteUser(context.Context, string) error { return errBackendDown }

type fixture struct {
	backend   *memory.Backend
	store     snapshots.Store
	engine    *Engine
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := memory.New()
	store := snapshots.New(b)
	pub := &recordingPublisher{}
	return &fixture{
		backend:   b,
		store:     store,
		publisher: pub,
		engine: NewEngine(store,
			WithClock(func() time.Time { return today }),
			WithPublisher(pub)),
	}
}

// templateWith returns the built-in template with the given amounts keyed
// by "category/subcategory" ids.
func templateWith(t *testing.T, amounts map[string]string) core.BudgetTemplate {
	t.Helper()
	tpl := core.DefaultTemplate()
	for path, amount := range amounts {
		sub := findByPath(&tpl, path)
		if sub == nil {
			t.Fatalf("no line item %q in built-in template", path)
		}
		sub.Amount = decimal.RequireFromString(amount)
	}
	return tpl
}

func findByPath(tpl *core.BudgetTemplate, path string) *core.Subcategory {
	for ci := range tpl.Categories {
		for si := range tpl.Categories[ci].Subcategories {
			if tpl.Categories[ci].ID+"/"+tpl.Categories[ci].Subcategories[si].ID == path {
				return &tpl.Categories[ci].Subcategories[si]
			}
		}
	}
	return nil
}

func amountAt(t *testing.T, tpl core.BudgetTemplate, path string) decimal.Decimal {
	t.Helper()
	sub := findByPath(&tpl, path)
	if sub == nil {
		t.Fatalf("no line item %q", path)
	}
	return sub.Amount
}

func assertClassified(t *testing.T, tpl core.BudgetTemplate) {
	t.Helper()
	for _, c := range tpl.Categories {
		for _, s := range c.Subcategories {
			if !s.Classification.Valid() {
				t.Fatalf("%s/%s has no classification", c.ID, s.ID)
			}
		}
	}
}

func subIDs(tpl core.BudgetTemplate, categoryID string) []string {
	ci := tpl.CategoryIndex(categoryID)
	if ci < 0 {
		return nil
	}
	ids := make([]string, 0, len(tpl.Categories[ci].Subcategories))
	for _, s := range tpl.Categories[ci].Subcategories {
		ids = append(ids, s.ID)
	}
	return ids
}
