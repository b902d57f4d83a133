package memory

import (
	"context"
	"sync"

	"budgetplan/internal/snapshots"
)

// Backend keeps encoded snapshots in process memory.
type Backend struct {
	mu    sync.Mutex
	slots map[string]map[string][]byte
}

func New() *Backend {
	return &Backend{slots: make(map[string]map[string][]byte)}
}

// NewStore is a convenience for a Store over a fresh memory backend.
func NewStore() snapshots.Store {
	return snapshots.New(New())
}

func (b *Backend) Load(_ context.Context, userID, slot string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.slots[userID][slot]
	if !ok {
		return nil, snapshots.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (b *Backend) Save(_ context.Context, userID, slot string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	user, ok := b.slots[userID]
	if !ok {
		user = make(map[string][]byte)
		b.slots[userID] = user
	}
	user[slot] = append([]byte(nil), data...)
	return nil
}

func (b *Backend) Exists(_ context.Context, userID, slot string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.slots[userID][slot]
	return ok, nil
}

func (b *Backend) DeleteUser(_ context.Context, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.slots, userID)
	return nil
}

// Len returns the number of slots stored for userID.
func (b *Backend) Len(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.slots[userID])
}
