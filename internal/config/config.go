package config

import "time"

// RelayConfig is the root configuration for a relay process.
type RelayConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Chat      ChatConfig      `yaml:"chat"`
	Store     StoreConfig     `yaml:"store"`
	Directory DirectoryConfig `yaml:"directory"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds the HTTP/WebSocket listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"RELAY_ADDR"`
	WSPath          string        `yaml:"ws_path" env:"RELAY_WS_PATH"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`  // max silence before a peer is dropped
	WriteTimeout    time.Duration `yaml:"write_timeout"` // deadline per frame write
	PingInterval    time.Duration `yaml:"ping_interval"`
	MaxMessageBytes int64         `yaml:"max_message_bytes"`
	OutboxSize      int           `yaml:"outbox_size"` // frames queued per connection before it is dropped
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ChatConfig holds routing behaviour.
type ChatConfig struct {
	Rooms               []string      `yaml:"rooms" env:"RELAY_ROOMS" envSeparator:","`
	HistoryLimit        int           `yaml:"history_limit"`
	PrivateHistoryLimit int           `yaml:"private_history_limit"`
	TypingWindow        time.Duration `yaml:"typing_window" env:"RELAY_TYPING_WINDOW"`
}

// StoreConfig selects the message store backend.
type StoreConfig struct {
	Driver   string       `yaml:"driver" env:"RELAY_STORE_DRIVER"` // memory, sqlite, postgres
	SQLite   SQLiteConfig `yaml:"sqlite"`
	Postgres DBConfig     `yaml:"postgres"`
}

// SQLiteConfig locates the SQLite database file.
type SQLiteConfig struct {
	Path string `yaml:"path" env:"RELAY_SQLITE_PATH"`
}

// DBConfig holds a single PostgreSQL connection.
type DBConfig struct {
	Host     string `yaml:"host" env:"RELAY_DB_HOST"`
	Port     int    `yaml:"port" env:"RELAY_DB_PORT"`
	Name     string `yaml:"name" env:"RELAY_DB_NAME"`
	User     string `yaml:"user" env:"RELAY_DB_USER"`
	Password string `yaml:"password" env:"RELAY_DB_PASSWORD"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// DirectoryConfig selects where account existence is checked.
type DirectoryConfig struct {
	Driver   string              `yaml:"driver" env:"RELAY_DIRECTORY_DRIVER"` // store, http, static
	Accounts []string            `yaml:"accounts"`                            // static driver only
	HTTP     HTTPDirectoryConfig `yaml:"http"`
	Cache    CacheConfig         `yaml:"cache"`
}

// HTTPDirectoryConfig points at an external account service.
type HTTPDirectoryConfig struct {
	BaseURL      string        `yaml:"base_url" env:"RELAY_DIRECTORY_URL"`
	APIKey       string        `yaml:"api_key" env:"RELAY_DIRECTORY_API_KEY"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// CacheConfig enables the Redis lookup cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr   string        `yaml:"redis_addr" env:"RELAY_REDIS_ADDR"`
	TTL         time.Duration `yaml:"ttl"`
	NegativeTTL time.Duration `yaml:"negative_ttl"`
}

// LogConfig controls the root slog handler.
type LogConfig struct {
	Level  string `yaml:"level" env:"RELAY_LOG_LEVEL"`
	Format string `yaml:"format" env:"RELAY_LOG_FORMAT"` // text, json
}
