package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"budgetplan/internal/core"
	"budgetplan/internal/snapshots"
)

func TestPostgresStorageIntegration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	user := "it-" + time.Now().Format("150405.000000")
	store := snapshots.New(s)
	month := core.MonthKey{Month: time.August, Year: 2025}
	tmpl := core.EnsureClassifications(core.DefaultTemplate())

	if err := store.Set(ctx, user, month, tmpl); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ok, err := store.Has(ctx, user, month); err != nil || !ok {
		t.Fatalf("expected snapshot, ok=%v err=%v", ok, err)
	}
	got, err := store.Get(ctx, user, month)
	if err != nil || !got.Equal(tmpl) {
		t.Fatalf("unexpected get err=%v", err)
	}
	if err := store.DeleteAll(ctx, user); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, user, month); !errors.Is(err, snapshots.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
