package snapshots

import (
	"context"

	"budgetplan/internal/core"
)

// Ports for snapshot persistence.
type (
	// Store keeps one BudgetTemplate per (user, month) plus one default slot
	// per user. Reads return ErrNotFound for absent slots and an error
	// wrapping ErrCorrupt for slots that cannot be decoded.
	Store interface {
		Get(ctx context.Context, userID string, month core.MonthKey) (core.BudgetTemplate, error)
		Set(ctx context.Context, userID string, month core.MonthKey, t core.BudgetTemplate) error
		GetDefault(ctx context.Context, userID string) (core.BudgetTemplate, error)
		SetDefault(ctx context.Context, userID string, t core.BudgetTemplate) error
		// DeleteAll removes every month-keyed and default snapshot of the user.
		DeleteAll(ctx context.Context, userID string) error
		// Has reports whether a usable explicit snapshot exists. A corrupt
		// slot reports false, matching how Get-based lookups treat it.
		Has(ctx context.Context, userID string, month core.MonthKey) (bool, error)
	}

	// Backend is the raw key-value medium behind a Store. Slots are either
	// DefaultSlot or a MonthKey.Slot().
	Backend interface {
		Load(ctx context.Context, userID, slot string) ([]byte, error)
		Save(ctx context.Context, userID, slot string, data []byte) error
		Exists(ctx context.Context, userID, slot string) (bool, error)
		DeleteUser(ctx context.Context, userID string) error
	}
)
