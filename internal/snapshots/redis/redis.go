// Package redis stores snapshots as plain string keys using the
// budget_template_{userId}_{slot} layout.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/go-redis/redis"

	"budgetplan/internal/snapshots"
)

const scanCount = 100

type Backend struct {
	client *goredis.Client
}

// Options configures the connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

func New(opts Options) (*Backend, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return &Backend{client: client}, nil
}

func (b *Backend) Close() error {
	return b.client.Close()
}

// Ping checks the connection for readiness probes.
func (b *Backend) Ping(ctx context.Context) error {
	return b.client.WithContext(ctx).Ping().Err()
}

func (b *Backend) Load(ctx context.Context, userID, slot string) ([]byte, error) {
	data, err := b.client.WithContext(ctx).Get(snapshots.Key(userID, slot)).Bytes()
	if err == goredis.Nil {
		return nil, snapshots.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func (b *Backend) Save(ctx context.Context, userID, slot string, data []byte) error {
	key := snapshots.Key(userID, slot)
	if err := b.client.WithContext(ctx).Set(key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	slog.DebugContext(ctx, "Snapshot saved to Redis", "key", key, "bytes", len(data))
	return nil
}

func (b *Backend) Exists(ctx context.Context, userID, slot string) (bool, error) {
	n, err := b.client.WithContext(ctx).Exists(snapshots.Key(userID, slot)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// DeleteUser scans the user's key space and deletes only keys that parse as
// one of the user's slots, so a user "bob" never removes keys of "bob_x".
func (b *Backend) DeleteUser(ctx context.Context, userID string) error {
	client := b.client.WithContext(ctx)
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := client.Scan(cursor, snapshots.UserPattern(userID), scanCount).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		owned := keys[:0]
		for _, k := range keys {
			if snapshots.OwnsKey(userID, k) {
				owned = append(owned, k)
			}
		}
		if len(owned) > 0 {
			if err := client.Del(owned...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
			deleted += len(owned)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	slog.InfoContext(ctx, "Snapshots deleted from Redis", "user_id", userID, "count", deleted)
	return nil
}
