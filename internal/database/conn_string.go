package database

import (
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/rickgao/chat-relay/internal/config"
)

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.DBConfig) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		escapedPassword,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}

// BuildSQLiteDSN builds a modernc.org/sqlite DSN with WAL and a busy timeout.
// The special path ":memory:" is passed through unchanged.
func BuildSQLiteDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	return filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
}
