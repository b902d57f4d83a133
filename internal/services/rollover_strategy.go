// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for month resolution. Each
// position relative to today (past, current, future) has its own strategy
// deciding which snapshot to materialize and whether to persist it.

package services

import (
	"context"
	"fmt"

	"budgetplan/internal/core"
)

// Source names where a resolved template came from.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourcePrevious Source = "previous_month"
	SourceCurrent  Source = "current_month"
	SourceDefault  Source = "default"
	SourceBuiltin  Source = "builtin"
)

// snapshotReader is the read side the strategies need. Every method reports
// absence (including corrupt or unreadable snapshots) as ok=false.
type snapshotReader interface {
	month(ctx context.Context, userID string, m core.MonthKey) (core.BudgetTemplate, bool)
	defaults(ctx context.Context, userID string) (core.BudgetTemplate, bool)
}

// MonthResolver is the strategy interface for one relation to today.
type MonthResolver interface {
	// Resolve picks the template to show for target. persist reports whether
	// the result must be written as a new explicit snapshot for target.
	Resolve(ctx context.Context, r snapshotReader, userID string, target, today core.MonthKey) (t core.BudgetTemplate, src Source, persist bool)
}

// CurrentResolver shows the explicit snapshot, else the default slot, else
// the built-in template. It never writes: the current month is materialized
// by its first mutation.
type CurrentResolver struct{}

func (CurrentResolver) Resolve(ctx context.Context, r snapshotReader, userID string, target, _ core.MonthKey) (core.BudgetTemplate, Source, bool) {
	if t, ok := r.month(ctx, userID, target); ok {
		return t, SourceExplicit, false
	}
	t, src := defaultOrBuiltin(ctx, r, userID)
	return t, src, false
}

// FutureResolver inherits the most recent real plan: the preceding month,
// then the actual current month, then the default slot, then the built-in
// template. A derived result is persisted so later visits find it explicit.
type FutureResolver struct{}

func (FutureResolver) Resolve(ctx context.Context, r snapshotReader, userID string, target, today core.MonthKey) (core.BudgetTemplate, Source, bool) {
	if t, ok := r.month(ctx, userID, target); ok {
		return t, SourceExplicit, false
	}
	if t, ok := r.month(ctx, userID, target.Previous()); ok {
		return t, SourcePrevious, true
	}
	if t, ok := r.month(ctx, userID, today); ok {
		return t, SourceCurrent, true
	}
	t, src := defaultOrBuiltin(ctx, r, userID)
	return t, src, true
}

// PastResolver never borrows neighbouring months: an untracked past month
// starts from the user's baseline structure.
type PastResolver struct{}

func (PastResolver) Resolve(ctx context.Context, r snapshotReader, userID string, target, _ core.MonthKey) (core.BudgetTemplate, Source, bool) {
	if t, ok := r.month(ctx, userID, target); ok {
		return t, SourceExplicit, false
	}
	t, src := defaultOrBuiltin(ctx, r, userID)
	return t, src, true
}

func defaultOrBuiltin(ctx context.Context, r snapshotReader, userID string) (core.BudgetTemplate, Source) {
	if t, ok := r.defaults(ctx, userID); ok {
		return t, SourceDefault
	}
	return core.DefaultTemplate(), SourceBuiltin
}

// monthResolvers maps relations to their strategies.
var monthResolvers = map[core.Relation]MonthResolver{
	core.Past:    PastResolver{},
	core.Current: CurrentResolver{},
	core.Future:  FutureResolver{},
}

// GetMonthResolver returns the strategy for a relation.
func GetMonthResolver(rel core.Relation) (MonthResolver, error) {
	r, ok := monthResolvers[rel]
	if !ok {
		return nil, fmt.Errorf("unknown month relation: %d", rel)
	}
	return r, nil
}
