package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultAddr                = ":3000"
	DefaultWSPath              = "/ws"
	DefaultReadTimeout         = 60 * time.Second
	DefaultWriteTimeout        = 10 * time.Second
	DefaultPingInterval        = 30 * time.Second
	DefaultMaxMessageBytes     = 16 * 1024
	DefaultOutboxSize          = 256
	DefaultShutdownTimeout     = 10 * time.Second
	DefaultHistoryLimit        = 20
	DefaultPrivateHistoryLimit = 50
	DefaultTypingWindow        = 800 * time.Millisecond
	DefaultStoreDriver         = "memory"
	DefaultSQLitePath          = "relay.db"
	DefaultDirectoryDriver     = "store"
	DefaultDBPort              = 5432
	DefaultDBSSLMode           = "prefer"
	DefaultMaxConns            = 10
	DefaultMinConns            = 2
	DefaultHTTPTimeout         = 5 * time.Second
	DefaultHTTPMaxRetries      = 2
	DefaultHTTPRetryBackoff    = 200 * time.Millisecond
	DefaultCacheTTL            = 5 * time.Minute
	DefaultCacheNegativeTTL    = 30 * time.Second
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "text"
)

// DefaultRooms is the fixed room set offered when none is configured.
var DefaultRooms = []string{"devops", "cloud computing", "covid19", "sports", "nodeJS", "general"}

func (c *RelayConfig) applyDefaults() {
	// Server defaults
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.WSPath == "" {
		c.Server.WSPath = DefaultWSPath
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.PingInterval == 0 {
		c.Server.PingInterval = DefaultPingInterval
	}
	if c.Server.MaxMessageBytes == 0 {
		c.Server.MaxMessageBytes = DefaultMaxMessageBytes
	}
	if c.Server.OutboxSize == 0 {
		c.Server.OutboxSize = DefaultOutboxSize
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Chat defaults
	if len(c.Chat.Rooms) == 0 {
		c.Chat.Rooms = append([]string(nil), DefaultRooms...)
	}
	if c.Chat.HistoryLimit == 0 {
		c.Chat.HistoryLimit = DefaultHistoryLimit
	}
	if c.Chat.PrivateHistoryLimit == 0 {
		c.Chat.PrivateHistoryLimit = DefaultPrivateHistoryLimit
	}
	if c.Chat.TypingWindow == 0 {
		c.Chat.TypingWindow = DefaultTypingWindow
	}

	// Store defaults
	if c.Store.Driver == "" {
		c.Store.Driver = DefaultStoreDriver
	}
	if c.Store.SQLite.Path == "" {
		c.Store.SQLite.Path = DefaultSQLitePath
	}
	applyDBDefaults(&c.Store.Postgres)

	// Directory defaults
	if c.Directory.Driver == "" {
		c.Directory.Driver = DefaultDirectoryDriver
	}
	if c.Directory.HTTP.Timeout == 0 {
		c.Directory.HTTP.Timeout = DefaultHTTPTimeout
	}
	if c.Directory.HTTP.MaxRetries == 0 {
		c.Directory.HTTP.MaxRetries = DefaultHTTPMaxRetries
	}
	if c.Directory.HTTP.RetryBackoff == 0 {
		c.Directory.HTTP.RetryBackoff = DefaultHTTPRetryBackoff
	}
	if c.Directory.Cache.TTL == 0 {
		c.Directory.Cache.TTL = DefaultCacheTTL
	}
	if c.Directory.Cache.NegativeTTL == 0 {
		c.Directory.Cache.NegativeTTL = DefaultCacheNegativeTTL
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
