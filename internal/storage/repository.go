package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"budgetplan/internal/snapshots"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is a snapshots.Backend over a single SQLite table.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection for readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Load implements snapshots.Backend
func (r *SQLiteRepository) Load(ctx context.Context, userID, slot string) ([]byte, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM budget_snapshots WHERE user_id = ? AND slot = ?`,
		userID, slot).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, snapshots.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return payload, nil
}

// Save implements snapshots.Backend. The whole payload is replaced in one
// statement so readers never observe a partial template.
func (r *SQLiteRepository) Save(ctx context.Context, userID, slot string, data []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budget_snapshots (user_id, slot, snapshot_key, payload, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, slot) DO UPDATE SET
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP`,
		userID, slot, snapshots.Key(userID, slot), data)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	slog.DebugContext(ctx, "Snapshot saved to SQLite",
		"user_id", userID,
		"slot", slot,
		"bytes", len(data))
	return nil
}

// Exists implements snapshots.Backend
func (r *SQLiteRepository) Exists(ctx context.Context, userID, slot string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM budget_snapshots WHERE user_id = ? AND slot = ?`,
		userID, slot).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count snapshots: %w", err)
	}
	return n > 0, nil
}

// DeleteUser implements snapshots.Backend
func (r *SQLiteRepository) DeleteUser(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budget_snapshots WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete snapshots: %w", err)
	}
	n, _ := res.RowsAffected()
	slog.InfoContext(ctx, "Snapshots deleted from SQLite", "user_id", userID, "count", n)
	return nil
}

// DeleteSlot removes a single slot. Used by the mirror worker when the
// primary copy disappeared.
func (r *SQLiteRepository) DeleteSlot(ctx context.Context, userID, slot string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM budget_snapshots WHERE user_id = ? AND slot = ?`, userID, slot); err != nil {
		return fmt.Errorf("delete snapshot slot: %w", err)
	}
	return nil
}

// ListSlots returns the stored slots of a user ordered by slot name.
func (r *SQLiteRepository) ListSlots(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT slot FROM budget_snapshots WHERE user_id = ? ORDER BY slot`, userID)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []string
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// ListUsers returns every user with at least one stored slot.
func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM budget_snapshots ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
