package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"budgetplan/internal/amqp"
	"budgetplan/internal/snapshots"
)

// Archive is the write side of the mirror copy.
type Archive interface {
	Save(ctx context.Context, userID, slot string, data []byte) error
	DeleteSlot(ctx context.Context, userID, slot string) error
	DeleteUser(ctx context.Context, userID string) error
	ListSlots(ctx context.Context, userID string) ([]string, error)
	ListUsers(ctx context.Context) ([]string, error)
}

// MirrorWorker keeps an archive copy of the primary snapshot store in step
// with snapshot events. Events carry no payload, so every saved event
// re-reads the primary slot and copies whatever is there now.
type MirrorWorker struct {
	source  snapshots.Backend
	archive Archive

	mirrored atomic.Int64
	deleted  atomic.Int64
}

func NewMirrorWorker(source snapshots.Backend, archive Archive) *MirrorWorker {
	return &MirrorWorker{source: source, archive: archive}
}

// HandleEvent applies one snapshot event to the archive. A returned error
// asks the consumer to requeue the event.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.SnapshotEvent) error {
	switch ev.Type {
	case amqp.EventSaved:
		return w.mirrorSlot(ctx, ev.UserID, ev.Slot)
	case amqp.EventReset:
		if err := w.archive.DeleteUser(ctx, ev.UserID); err != nil {
			return fmt.Errorf("archive reset: %w", err)
		}
		w.deleted.Add(1)
		slog.InfoContext(ctx, "Archive reset", "user_id", ev.UserID)
		return nil
	default:
		slog.WarnContext(ctx, "Ignoring unknown snapshot event", "type", ev.Type, "user_id", ev.UserID)
		return nil
	}
}

func (w *MirrorWorker) mirrorSlot(ctx context.Context, userID, slot string) error {
	if !snapshots.ValidSlot(slot) {
		slog.WarnContext(ctx, "Ignoring event for malformed slot", "user_id", userID, "slot", slot)
		return nil
	}

	data, err := w.source.Load(ctx, userID, slot)
	if errors.Is(err, snapshots.ErrNotFound) {
		// gone from the primary, typically a reset that raced the event
		if err := w.archive.DeleteSlot(ctx, userID, slot); err != nil {
			return fmt.Errorf("archive delete slot: %w", err)
		}
		w.deleted.Add(1)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load primary slot: %w", err)
	}

	if err := w.archive.Save(ctx, userID, slot, data); err != nil {
		return fmt.Errorf("archive save: %w", err)
	}
	w.mirrored.Add(1)
	slog.DebugContext(ctx, "Snapshot mirrored", "user_id", userID, "slot", slot, "bytes", len(data))
	return nil
}

// ReconcileUser drops archive slots the primary no longer has. It is the
// backstop for events lost while the worker was down.
func (w *MirrorWorker) ReconcileUser(ctx context.Context, userID string) (int, error) {
	slots, err := w.archive.ListSlots(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list archive slots: %w", err)
	}

	removed := 0
	for _, slot := range slots {
		ok, err := w.source.Exists(ctx, userID, slot)
		if err != nil {
			return removed, fmt.Errorf("check primary slot %s: %w", slot, err)
		}
		if ok {
			if err := w.mirrorSlot(ctx, userID, slot); err != nil {
				return removed, err
			}
			continue
		}
		if err := w.archive.DeleteSlot(ctx, userID, slot); err != nil {
			return removed, fmt.Errorf("archive delete slot: %w", err)
		}
		removed++
	}
	if removed > 0 {
		slog.InfoContext(ctx, "Archive reconciled", "user_id", userID, "removed", removed)
	}
	return removed, nil
}

// Reconcile runs ReconcileUser for every user in the archive. The worker
// runs it at startup and after each broker reconnect, when events may have
// been missed. A failing user is logged and skipped.
func (w *MirrorWorker) Reconcile(ctx context.Context) (int, error) {
	users, err := w.archive.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list archive users: %w", err)
	}

	removed := 0
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		n, err := w.ReconcileUser(ctx, u)
		removed += n
		if err != nil {
			slog.WarnContext(ctx, "Archive reconcile failed", "user_id", u, "error", err)
		}
	}
	slog.InfoContext(ctx, "Archive reconcile finished", "users", len(users), "removed", removed)
	return removed, nil
}

// Stats reports mirrored writes and deletions since start.
func (w *MirrorWorker) Stats() (mirrored, deleted int64) {
	return w.mirrored.Load(), w.deleted.Load()
}
