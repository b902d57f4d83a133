package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"budgetplan/internal/snapshots"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Storage is a snapshots.Backend over Postgres.
type Storage struct {
	db *pgxpool.Pool
}

// Open connects, applies migrations and returns the storage.
func Open(ctx context.Context, dsn string) (*Storage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return NewStorage(pool), nil
}

func NewStorage(db *pgxpool.Pool) *Storage {
	return &Storage{db: db}
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	s.db.Close()
	return nil
}

// Ping checks the pool for readiness probes.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Storage) Load(ctx context.Context, userID, slot string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRow(ctx,
		"SELECT payload FROM budget_snapshots WHERE user_id = $1 AND slot = $2",
		userID, slot).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, snapshots.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return payload, nil
}

func (s *Storage) Save(ctx context.Context, userID, slot string, data []byte) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO budget_snapshots (user_id, slot, snapshot_key, payload, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, slot) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = now()
	`, userID, slot, snapshots.Key(userID, slot), string(data))
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

func (s *Storage) Exists(ctx context.Context, userID, slot string) (bool, error) {
	var ok bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM budget_snapshots WHERE user_id = $1 AND slot = $2)",
		userID, slot).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("exists snapshot: %w", err)
	}
	return ok, nil
}

func (s *Storage) DeleteUser(ctx context.Context, userID string) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM budget_snapshots WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("delete snapshots: %w", err)
	}
	slog.InfoContext(ctx, "Snapshots deleted from Postgres", "user_id", userID, "count", tag.RowsAffected())
	return nil
}
