// Package backend builds the snapshot store selected by configuration.
package backend

import (
	"context"

	"budgetplan/internal/snapshots"
)

// CleanupFunc releases the resources of a backend.
type CleanupFunc func() error

// PingFunc reports whether a backend can serve requests.
type PingFunc func(ctx context.Context) error

// BackendResult contains the raw backend, the store over it and its
// lifecycle hooks.
type BackendResult struct {
	Backend snapshots.Backend
	Store   snapshots.Store
	Ping    PingFunc
	Cleanup CleanupFunc
}

// Close runs Cleanup when set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite
	SQLiteDBPath string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Postgres
	DatabaseURL string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	RedisBackend    BackendType = "redis"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, RedisBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
