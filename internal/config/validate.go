package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *RelayConfig) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if !strings.HasPrefix(c.Server.WSPath, "/") {
		return fmt.Errorf("server.ws_path must start with /, got %q", c.Server.WSPath)
	}
	if c.Server.OutboxSize < 1 {
		return errors.New("server.outbox_size must be >= 1")
	}
	if c.Server.MaxMessageBytes < 1 {
		return errors.New("server.max_message_bytes must be >= 1")
	}
	if c.Server.PingInterval >= c.Server.ReadTimeout {
		return fmt.Errorf("server.ping_interval (%s) must be shorter than server.read_timeout (%s)",
			c.Server.PingInterval, c.Server.ReadTimeout)
	}

	if err := c.Chat.validate(); err != nil {
		return err
	}

	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if strings.TrimSpace(c.Store.SQLite.Path) == "" {
			return errors.New("store.sqlite.path is required")
		}
	case "postgres":
		if err := c.Store.Postgres.validate("store.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("store.driver must be one of memory, sqlite, postgres, got %q", c.Store.Driver)
	}

	switch c.Directory.Driver {
	case "store", "static":
	case "http":
		if c.Directory.HTTP.BaseURL == "" {
			return errors.New("directory.http.base_url is required")
		}
		if c.Directory.HTTP.MaxRetries < 0 {
			return errors.New("directory.http.max_retries must be >= 0")
		}
	default:
		return fmt.Errorf("directory.driver must be one of store, http, static, got %q", c.Directory.Driver)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (c *ChatConfig) validate() error {
	if len(c.Rooms) == 0 {
		return errors.New("chat.rooms must not be empty")
	}
	seen := make(map[string]struct{}, len(c.Rooms))
	for _, room := range c.Rooms {
		name := strings.TrimSpace(room)
		if name == "" {
			return errors.New("chat.rooms must not contain blank names")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("chat.rooms contains %q twice", name)
		}
		seen[name] = struct{}{}
	}
	if c.HistoryLimit < 1 {
		return errors.New("chat.history_limit must be >= 1")
	}
	if c.PrivateHistoryLimit < 1 {
		return errors.New("chat.private_history_limit must be >= 1")
	}
	if c.TypingWindow <= 0 {
		return errors.New("chat.typing_window must be > 0")
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
