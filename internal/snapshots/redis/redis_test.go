package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"budgetplan/internal/core"
	"budgetplan/internal/snapshots"
)

// Integration test: requires a running Redis, e.g.
//
//	REDIS_ADDR=localhost:6379 go test ./internal/snapshots/redis/
func TestRedisBackendIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	b, err := New(Options{Addr: addr, DB: 15})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	user := "it_" + time.Now().Format("150405.000000")
	neighbour := user + "_x"
	store := snapshots.New(b)
	month := core.MonthKey{Month: time.July, Year: 2025}
	tmpl := core.EnsureClassifications(core.DefaultTemplate())

	if err := store.Set(ctx, user, month, tmpl); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.SetDefault(ctx, user, tmpl); err != nil {
		t.Fatalf("set default: %v", err)
	}
	if err := store.SetDefault(ctx, neighbour, tmpl); err != nil {
		t.Fatalf("set neighbour default: %v", err)
	}
	defer b.DeleteUser(ctx, neighbour)

	got, err := store.Get(ctx, user, month)
	if err != nil || !got.Equal(tmpl) {
		t.Fatalf("unexpected get err=%v", err)
	}
	if err := store.DeleteAll(ctx, user); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetDefault(ctx, user); !errors.Is(err, snapshots.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetDefault(ctx, neighbour); err != nil {
		t.Fatalf("neighbour's default must survive: %v", err)
	}
}

func TestRedisDeleteUserWithGlobCharacters(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	b, err := New(Options{Addr: addr, DB: 15})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	user := "it[" + time.Now().Format("150405.000000") + "]*?"
	store := snapshots.New(b)
	if err := store.SetDefault(ctx, user, core.EnsureClassifications(core.DefaultTemplate())); err != nil {
		t.Fatalf("set default: %v", err)
	}
	if err := store.DeleteAll(ctx, user); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetDefault(ctx, user); !errors.Is(err, snapshots.ErrNotFound) {
		t.Fatalf("snapshot of %q survived reset: %v", user, err)
	}
}
