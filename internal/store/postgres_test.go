package store

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/chat-relay/internal/database"
)

// Set RELAY_TEST_DATABASE_URL to a disposable database to run these tests.
func newTestPostgres(t *testing.T) Store {
	t.Helper()
	url := os.Getenv("RELAY_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("RELAY_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := database.EnsurePostgresSchema(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("schema: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE room_messages, private_messages, accounts`); err != nil {
		pool.Close()
		t.Fatalf("truncate: %v", err)
	}

	s := NewPostgres(pool, nil)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresStore(t *testing.T) {
	runStoreSuite(t, newTestPostgres)
}
