package backend

import (
	"context"
	"fmt"
	"log/slog"

	"budgetplan/internal/snapshots"
	"budgetplan/internal/snapshots/memory"
	"budgetplan/internal/snapshots/redis"
	"budgetplan/internal/storage"
	"budgetplan/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case RedisBackend:
		return f.createRedisBackend(config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return result(repo, repo.Ping, repo.Close), nil
}

func (f *DefaultFactory) createRedisBackend(config Config) (*BackendResult, error) {
	b, err := redis.New(redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis backend: %w", err)
	}
	f.logger.Info("Initialized redis backend", "addr", config.RedisAddr, "db", config.RedisDB)
	return result(b, b.Ping, b.Close), nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	s, err := postgres.Open(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres backend: %w", err)
	}
	f.logger.Info("Initialized postgres backend")
	return result(s, s.Ping, s.Close), nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	f.logger.Warn("Using in-memory snapshot backend; data is lost on restart")
	return result(memory.New(), nil, nil), nil
}

func result(b snapshots.Backend, ping PingFunc, cleanup CleanupFunc) *BackendResult {
	return &BackendResult{
		Backend: b,
		Store:   snapshots.New(b),
		Ping:    ping,
		Cleanup: cleanup,
	}
}
