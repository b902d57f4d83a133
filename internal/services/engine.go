package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetplan/internal/amqp"
	"budgetplan/internal/core"
	"budgetplan/internal/snapshots"
)

const defaultStoreTimeout = 5 * time.Second

var ErrEmptyUser = errors.New("empty user id")

// EventPublisher receives a notification after every successful write.
type EventPublisher interface {
	PublishSnapshotEvent(ctx context.Context, ev *amqp.SnapshotEvent) error
}

// Resolution is the outcome of resolving one month.
type Resolution struct {
	Month     core.MonthKey
	Relation  core.Relation
	Template  core.BudgetTemplate
	Source    Source
	Persisted bool
}

// MonthStatus decorates a month picker entry without loading the snapshot.
type MonthStatus struct {
	Month    core.MonthKey `json:"month"`
	Relation string        `json:"relation"`
	HasData  bool          `json:"hasData"`
}

// Engine resolves which template to show for a month and persists derived
// and edited templates.
type Engine struct {
	store        snapshots.Store
	publisher    EventPublisher
	now          func() time.Time
	storeTimeout time.Duration
}

type Option func(*Engine)

// WithClock replaces the wall clock. "Today" is read from it on every call.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPublisher enables snapshot events.
func WithPublisher(p EventPublisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithStoreTimeout bounds every individual store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.storeTimeout = d
		}
	}
}

func NewEngine(store snapshots.Store, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		now:          time.Now,
		storeTimeout: defaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Today returns the current month according to the engine clock.
func (e *Engine) Today() core.MonthKey {
	return core.MonthOf(e.now())
}

// Relation places month against today, recomputed on every call.
func (e *Engine) Relation(month core.MonthKey) core.Relation {
	return month.RelativeTo(e.now())
}

// Resolve returns the classified template for month. Store failures never
// surface here: they fall through to the next source, and the built-in
// template is always available. A failed write of a derived snapshot is
// logged and the derived template is still returned.
func (e *Engine) Resolve(ctx context.Context, userID string, month core.MonthKey) (Resolution, error) {
	if strings.TrimSpace(userID) == "" {
		return Resolution{}, ErrEmptyUser
	}
	if !month.Valid() {
		return Resolution{}, core.ErrInvalidMonth
	}

	now := e.now()
	today := core.MonthOf(now)
	rel := month.RelativeTo(now)
	resolver, err := GetMonthResolver(rel)
	if err != nil {
		return Resolution{}, err
	}

	t, src, persist := resolver.Resolve(ctx, e, userID, month, today)
	t = prepare(t)
	res := Resolution{Month: month, Relation: rel, Template: t, Source: src}

	slog.DebugContext(ctx, "Month resolved",
		"user_id", userID,
		"month", month.String(),
		"relation", rel.String(),
		"source", src)

	if persist {
		if err := e.setMonth(ctx, userID, month, t); err != nil {
			slog.WarnContext(ctx, "Failed to persist derived snapshot",
				"user_id", userID,
				"month", month.String(),
				"source", src,
				"error", err)
		} else {
			res.Persisted = true
			slog.InfoContext(ctx, "Derived snapshot persisted",
				"user_id", userID,
				"month", month.String(),
				"source", src)
		}
	}
	return res, nil
}

// Persist is the write-through of a mutation: the template is stored under
// month and, unless month lies in the future, under the default slot too.
// The writes ignore cancellation of ctx and are bounded by the store
// timeout only.
func (e *Engine) Persist(ctx context.Context, userID string, month core.MonthKey, t core.BudgetTemplate) error {
	ctx = context.WithoutCancel(ctx)
	if err := e.setMonth(ctx, userID, month, t); err != nil {
		return err
	}
	if e.Relation(month) == core.Future {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()
	if err := e.store.SetDefault(ctx, userID, t); err != nil {
		return fmt.Errorf("persist default: %w", err)
	}
	e.publish(ctx, amqp.NewSnapshotSavedEvent(userID, snapshots.DefaultSlot))
	return nil
}

// Reset deletes every stored snapshot of the user.
func (e *Engine) Reset(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUser
	}
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()
	if err := e.store.DeleteAll(ctx, userID); err != nil {
		return fmt.Errorf("reset budget: %w", err)
	}
	slog.InfoContext(ctx, "Budget reset", "user_id", userID)
	e.publish(ctx, amqp.NewSnapshotResetEvent(userID))
	return nil
}

// MonthStatuses reports, for every month of year, whether an explicit
// snapshot exists. Nothing is materialized; a failed check reads as blank.
func (e *Engine) MonthStatuses(ctx context.Context, userID string, year int) ([]MonthStatus, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyUser
	}
	if _, err := core.NewMonthKey(year, 1); err != nil {
		return nil, err
	}

	now := e.now()
	out := make([]MonthStatus, 12)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range 12 {
		m := core.MonthKey{Month: time.Month(i + 1), Year: year}
		out[i] = MonthStatus{Month: m, Relation: m.RelativeTo(now).String()}
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, e.storeTimeout)
			defer cancel()
			ok, err := e.store.Has(cctx, userID, m)
			if err != nil {
				slog.WarnContext(ctx, "Snapshot existence check failed",
					"user_id", userID, "month", m.String(), "error", err)
				return nil
			}
			out[i].HasData = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) setMonth(ctx context.Context, userID string, month core.MonthKey, t core.BudgetTemplate) error {
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()
	if err := e.store.Set(ctx, userID, month, t); err != nil {
		return fmt.Errorf("persist %s: %w", month, err)
	}
	e.publish(ctx, amqp.NewSnapshotSavedEvent(userID, month.Slot()))
	return nil
}

func (e *Engine) publish(ctx context.Context, ev *amqp.SnapshotEvent) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.PublishSnapshotEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish snapshot event",
			"type", ev.Type,
			"user_id", ev.UserID,
			"slot", ev.Slot,
			"error", err)
	}
}

// month implements snapshotReader
func (e *Engine) month(ctx context.Context, userID string, m core.MonthKey) (core.BudgetTemplate, bool) {
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()
	t, err := e.store.Get(ctx, userID, m)
	return e.absentOnError(ctx, t, err, userID, m.Slot())
}

// defaults implements snapshotReader
func (e *Engine) defaults(ctx context.Context, userID string) (core.BudgetTemplate, bool) {
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()
	t, err := e.store.GetDefault(ctx, userID)
	return e.absentOnError(ctx, t, err, userID, snapshots.DefaultSlot)
}

func (e *Engine) absentOnError(ctx context.Context, t core.BudgetTemplate, err error, userID, slot string) (core.BudgetTemplate, bool) {
	if err == nil {
		return t, true
	}
	if !errors.Is(err, snapshots.ErrNotFound) {
		slog.WarnContext(ctx, "Snapshot unreadable, treating as absent",
			"user_id", userID,
			"slot", slot,
			"error", err)
	}
	return core.BudgetTemplate{}, false
}

// prepare coerces amounts and backfills classifications. Every template
// leaving the engine passes through here.
func prepare(t core.BudgetTemplate) core.BudgetTemplate {
	return core.EnsureClassifications(core.NormalizeAmounts(t))
}
