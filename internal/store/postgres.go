package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/chat-relay/internal/model"
)

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres wraps an open pool. The schema must already be applied.
func NewPostgres(db *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, logger: logger}
}

// PersistRoomMessage inserts a room message; the database clock assigns
// persisted_at.
func (p *Postgres) PersistRoomMessage(ctx context.Context, room, from, text string) (model.RoomMessage, error) {
	if err := validRoomMessage(room, from, text); err != nil {
		return model.RoomMessage{}, err
	}

	msg := model.RoomMessage{
		ID:           uuid.New(),
		Room:         room,
		FromIdentity: from,
		Text:         text,
	}
	err := p.db.QueryRow(ctx, `
		INSERT INTO room_messages (id, room, from_identity, text)
		VALUES ($1, $2, $3, $4)
		RETURNING persisted_at
	`, pgtype.UUID{Bytes: msg.ID, Valid: true}, msg.Room, msg.FromIdentity, msg.Text).Scan(&msg.PersistedAt)
	if err != nil {
		return model.RoomMessage{}, fmt.Errorf("insert room message: %w", err)
	}
	msg.PersistedAt = msg.PersistedAt.UTC()
	return msg, nil
}

// PersistPrivateMessage inserts a private message.
func (p *Postgres) PersistPrivateMessage(ctx context.Context, from, to, text string) (model.PrivateMessage, error) {
	if err := validPrivateMessage(from, to, text); err != nil {
		return model.PrivateMessage{}, err
	}

	msg := model.PrivateMessage{
		ID:           uuid.New(),
		FromIdentity: from,
		ToIdentity:   to,
		Text:         text,
	}
	err := p.db.QueryRow(ctx, `
		INSERT INTO private_messages (id, from_identity, to_identity, text)
		VALUES ($1, $2, $3, $4)
		RETURNING persisted_at
	`, pgtype.UUID{Bytes: msg.ID, Valid: true}, msg.FromIdentity, msg.ToIdentity, msg.Text).Scan(&msg.PersistedAt)
	if err != nil {
		return model.PrivateMessage{}, fmt.Errorf("insert private message: %w", err)
	}
	msg.PersistedAt = msg.PersistedAt.UTC()
	return msg, nil
}

// RecentRoomHistory returns the newest limit messages of room, oldest first.
func (p *Postgres) RecentRoomHistory(ctx context.Context, room string, limit int) ([]model.RoomMessage, error) {
	if limit <= 0 {
		return []model.RoomMessage{}, nil
	}
	rows, err := p.db.Query(ctx, `
		SELECT id, room, from_identity, text, persisted_at
		FROM room_messages
		WHERE room = $1
		ORDER BY seq DESC
		LIMIT $2
	`, room, limit)
	if err != nil {
		return nil, fmt.Errorf("query room history: %w", err)
	}
	defer rows.Close()

	out := make([]model.RoomMessage, 0, limit)
	for rows.Next() {
		var (
			msg model.RoomMessage
			id  pgtype.UUID
			at  time.Time
		)
		if err := rows.Scan(&id, &msg.Room, &msg.FromIdentity, &msg.Text, &at); err != nil {
			return nil, fmt.Errorf("scan room message: %w", err)
		}
		msg.ID = uuid.UUID(id.Bytes)
		msg.PersistedAt = at.UTC()
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
func (p *Postgres) RecentPrivateHistory(ctx context.Context, a, b string, limit int) ([]model.PrivateMessage, error) {
	if limit <= 0 {
		return []model.PrivateMessage{}, nil
	}
	rows, err := p.db.Query(ctx, `
		SELECT id, from_identity, to_identity, text, persisted_at
		FROM private_messages
		WHERE (from_identity = $1 AND to_identity = $2)
		   OR (from_identity = $2 AND to_identity = $1)
		ORDER BY seq DESC
		LIMIT $3
	`, a, b, limit)
	if err != nil {
		return nil, fmt.Errorf("query private history: %w", err)
	}
	defer rows.Close()

	out := make([]model.PrivateMessage, 0, limit)
	for rows.Next() {
		var (
			msg model.PrivateMessage
			id  pgtype.UUID
			at  time.Time
		)
		if err := rows.Scan(&id, &msg.FromIdentity, &msg.ToIdentity, &msg.Text, &at); err != nil {
			return nil, fmt.Errorf("scan private message: %w", err)
		}
		msg.ID = uuid.UUID(id.Bytes)
		msg.PersistedAt = at.UTC()
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate private history: %w", err)
	}
	slices.Reverse(out)
	return out, nil
}

// AccountExists reports whether identity is in the accounts table.
func (p *Postgres) AccountExists(ctx context.Context, identity string) (bool, error) {
	var exists bool
	err := p.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE identity = $1)`, identity).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query account: %w", err)
	}
	return exists, nil
}

// CreateAccounts inserts missing accounts using pgx.Batch with ON CONFLICT DO
// NOTHING.
func (p *Postgres) CreateAccounts(ctx context.Context, identities ...string) (int, error) {
	ids, err := normalizeAccounts(identities)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, id := range ids {
		batch.Queue(`
			INSERT INTO accounts (identity)
			VALUES ($1)
			ON CONFLICT (identity) DO NOTHING
		`, id)
	}

	results := p.db.SendBatch(ctx, batch)
	defer results.Close()

	created := 0
	for range ids {
		ct, err := results.Exec()
		if err != nil {
			return created, fmt.Errorf("insert account: %w", err)
		}
		created += int(ct.RowsAffected())
	}

	p.logger.Debug("accounts created", "requested", len(ids), "created", created)
	return created, nil
}

// Ping verifies the pool.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}
