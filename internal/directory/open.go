package directory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/rickgao/chat-relay/internal/config"
)

// Open builds the directory selected by cfg.Driver. accounts backs the
// "store" driver. The returned close function releases the cache client,
// if any.
func Open(ctx context.Context, cfg config.DirectoryConfig, accounts Directory, logger *slog.Logger) (Directory, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "directory", "driver", cfg.Driver)

	var dir Directory
	switch cfg.Driver {
	case "", "store":
		if accounts == nil {
			return nil, nil, fmt.Errorf("directory driver store requires an account source")
		}
		dir = accounts
	case "static":
		dir = NewStatic(cfg.Accounts...)
	case "http":
		dir = NewHTTP(cfg.HTTP.BaseURL, cfg.HTTP.APIKey,
			WithTimeout(cfg.HTTP.Timeout),
			WithRetries(cfg.HTTP.MaxRetries, cfg.HTTP.RetryBackoff),
			WithLogger(logger),
		)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	if cfg.Cache.RedisAddr == "" {
		return dir, func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		// Lookups still fall through to the wrapped directory.
		logger.Warn("redis unreachable at startup", "addr", cfg.Cache.RedisAddr, "error", err)
	}
	cached := NewCached(dir, client, cfg.Cache.TTL, cfg.Cache.NegativeTTL, logger)
	logger.Info("account cache enabled",
		"addr", cfg.Cache.RedisAddr,
		"ttl", cfg.Cache.TTL,
		"negative_ttl", cfg.Cache.NegativeTTL,
	)
	return cached, cached.Close, nil
}
