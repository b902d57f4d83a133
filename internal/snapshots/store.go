package snapshots

import (
	"context"
	"errors"
	"fmt"

	"budgetplan/internal/core"
)

// kvStore adapts a Backend to Store by encoding whole templates.
type kvStore struct {
	backend Backend
}

// New returns a Store persisting through b.
func New(b Backend) Store {
	return &kvStore{backend: b}
}

func (s *kvStore) Get(ctx context.Context, userID string, month core.MonthKey) (core.BudgetTemplate, error) {
	return s.load(ctx, userID, month.Slot())
}

func (s *kvStore) Set(ctx context.Context, userID string, month core.MonthKey, t core.BudgetTemplate) error {
	return s.save(ctx, userID, month.Slot(), t)
}

func (s *kvStore) GetDefault(ctx context.Context, userID string) (core.BudgetTemplate, error) {
	return s.load(ctx, userID, DefaultSlot)
}

func (s *kvStore) SetDefault(ctx context.Context, userID string, t core.BudgetTemplate) error {
	return s.save(ctx, userID, DefaultSlot, t)
}

func (s *kvStore) DeleteAll(ctx context.Context, userID string) error {
	if err := s.backend.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete snapshots of %s: %w", userID, err)
	}
	return nil
}

func (s *kvStore) Has(ctx context.Context, userID string, month core.MonthKey) (bool, error) {
	ok, err := s.backend.Exists(ctx, userID, month.Slot())
	if err != nil {
		return false, fmt.Errorf("check %s: %w", MonthKey(userID, month), err)
	}
	if !ok {
		return false, nil
	}
	_, err = s.load(ctx, userID, month.Slot())
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrCorrupt), errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *kvStore) load(ctx context.Context, userID, slot string) (core.BudgetTemplate, error) {
	data, err := s.backend.Load(ctx, userID, slot)
	if err != nil {
		return core.BudgetTemplate{}, fmt.Errorf("load %s: %w", Key(userID, slot), err)
	}
	t, err := Decode(data)
	if err != nil {
		return core.BudgetTemplate{}, fmt.Errorf("load %s: %w", Key(userID, slot), err)
	}
	return t, nil
}

func (s *kvStore) save(ctx context.Context, userID, slot string, t core.BudgetTemplate) error {
	data, err := Encode(t)
	if err != nil {
		return fmt.Errorf("encode %s: %w", Key(userID, slot), err)
	}
	if err := s.backend.Save(ctx, userID, slot, data); err != nil {
		return fmt.Errorf("save %s: %w", Key(userID, slot), err)
	}
	return nil
}
