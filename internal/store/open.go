package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rickgao/chat-relay/internal/config"
	"github.com/rickgao/chat-relay/internal/database"
)

// Open builds the Store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store", "driver", cfg.Driver)

	switch cfg.Driver {
	case "", "memory":
		logger.Info("memory store ready")
		return NewMemory(), nil

	case "sqlite":
		return OpenSQLite(ctx, cfg.SQLite.Path, logger)

	case "postgres":
		pool, err := database.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := database.EnsurePostgresSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("postgres store opened",
			"host", cfg.Postgres.Host,
			"database", cfg.Postgres.Name,
			"max_conns", cfg.Postgres.MaxConns,
		)
		return NewPostgres(pool, logger), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
