package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/chat-relay/internal/database"
	"github.com/rickgao/chat-relay/internal/model"
)

// SQLite is a Store backed by a single SQLite file.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (and migrates) the SQLite database at path.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := database.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	logger.Info("sqlite store opened", "path", path)
	return &SQLite{db: db, logger: logger}, nil
}

// PersistRoomMessage inserts a room message.
func (s *SQLite) PersistRoomMessage(ctx context.Context, room, from, text string) (model.RoomMessage, error) {
	if err := validRoomMessage(room, from, text); err != nil {
		return model.RoomMessage{}, err
	}

	msg := model.RoomMessage{
		ID:           uuid.New(),
		Room:         room,
		FromIdentity: from,
		Text:         text,
		PersistedAt:  nowMillis(),
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO room_messages (id, room, from_identity, text, persisted_at)
VALUES (?, ?, ?, ?, ?)
`, msg.ID.String(), msg.Room, msg.FromIdentity, msg.Text, msg.PersistedAt.UnixMilli())
	if err != nil {
		return model.RoomMessage{}, fmt.Errorf("insert room message: %w", err)
	}
	return msg, nil
}

// PersistPrivateMessage inserts a private message.
func (s *SQLite) PersistPrivateMessage(ctx context.Context, from, to, text string) (model.PrivateMessage, error) {
	if err := validPrivateMessage(from, to, text); err != nil {
		return model.PrivateMessage{}, err
	}

	msg := model.PrivateMessage{
		ID:           uuid.New(),
		FromIdentity: from,
		ToIdentity:   to,
		Text:         text,
		PersistedAt:  nowMillis(),
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO private_messages (id, from_identity, to_identity, text, persisted_at)
VALUES (?, ?, ?, ?, ?)
`, msg.ID.String(), msg.FromIdentity, msg.ToIdentity, msg.Text, msg.PersistedAt.UnixMilli())
	if err != nil {
		return model.PrivateMessage{}, fmt.Errorf("insert private message: %w", err)
	}
	return msg, nil
}

// RecentRoomHistory returns the newest limit messages of room, oldest first.
func (s *SQLite) RecentRoomHistory(ctx context.Context, room string, limit int) ([]model.RoomMessage, error) {
	if limit <= 0 {
		return []model.RoomMessage{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, room, from_identity, text, persisted_at
FROM room_messages
WHERE room = ?
ORDER BY seq DESC
LIMIT ?
`, room, limit)
	if err != nil {
		return nil, fmt.Errorf("query room history: %w", err)
	}
	defer rows.Close()

	out := make([]model.RoomMessage, 0, limit)
	for rows.Next() {
		var (
			msg    model.RoomMessage
			id     string
			millis int64
		)
		if err := rows.Scan(&id, &msg.Room, &msg.FromIdentity, &msg.Text, &millis); err != nil {
			return nil, fmt.Errorf("scan room message: %w", err)
		}
		if msg.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse room message id: %w", err)
		}
		msg.PersistedAt = time.UnixMilli(millis).UTC()
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate room history: %w", err)
	}
	slices.Reverse(out)
	return out, nil
}

// RecentPrivateHistory returns the newest limit messages between a and b,
// oldest first.
func (s *SQLite) RecentPrivateHistory(ctx context.Context, a, b string, limit int) ([]model.PrivateMessage, error) {
	if limit <= 0 {
		return []model.PrivateMessage{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, from_identity, to_identity, text, persisted_at
FROM private_messages
WHERE (from_identity = ? AND to_identity = ?)
   OR (from_identity = ? AND to_identity = ?)
ORDER BY seq DESC
LIMIT ?
`, a, b, b, a, limit)
	if err != nil {
		return nil, fmt.Errorf("query private history: %w", err)
	}
	defer rows.Close()

	out := make([]model.PrivateMessage, 0, limit)
	for rows.Next() {
		var (
			msg    model.PrivateMessage
			id     string
			millis int64
		)
		if err := rows.Scan(&id, &msg.FromIdentity, &msg.ToIdentity, &msg.Text, &millis); err != nil {
			return nil, fmt.Errorf("scan private message: %w", err)
		}
		if msg.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse private message id: %w", err)
		}
		msg.PersistedAt = time.UnixMilli(millis).UTC()
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate private history: %w", err)
	}
	slices.Reverse(out)
	return out, nil
}

// AccountExists reports whether identity is in the accounts table.
func (s *SQLite) AccountExists(ctx context.Context, identity string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE identity = ?)`, identity).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query account: %w", err)
	}
	return exists == 1, nil
}

// CreateAccounts inserts missing accounts in one transaction.
func (s *SQLite) CreateAccounts(ctx context.Context, identities ...string) (int, error) {
	ids, err := normalizeAccounts(identities)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	created := 0
	now := time.Now().UTC().UnixMilli()
	for _, id := range ids {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (identity, created_at) VALUES (?, ?) ON CONFLICT (identity) DO NOTHING`, id, now)
		if err != nil {
			return 0, fmt.Errorf("insert account %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		created += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit accounts: %w", err)
	}
	return created, nil
}

// Ping verifies the database handle.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func nowMillis() time.Time {
	return time.UnixMilli(time.Now().UnixMilli()).UTC()
}
