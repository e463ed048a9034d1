package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// runStoreSuite exercises the behaviour every backend must share.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("room round trip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		msg, err := s.PersistRoomMessage(ctx, "general", "alice", "hi")
		if err != nil {
			t.Fatalf("PersistRoomMessage failed: %v", err)
		}
		if msg.Room != "general" || msg.FromIdentity != "alice" || msg.Text != "hi" {
			t.Errorf("PersistRoomMessage() = %+v, want general/alice/hi", msg)
		}
		if msg.PersistedAt.IsZero() {
			t.Error("PersistedAt is zero")
		}

		history, err := s.RecentRoomHistory(ctx, "general", 20)
		if err != nil {
			t.Fatalf("RecentRoomHistory failed: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("len(history) = %d, want 1", len(history))
		}
		if history[0].ID != msg.ID {
			t.Errorf("history[0].ID = %v, want %v", history[0].ID, msg.ID)
		}
		if !history[0].PersistedAt.Equal(msg.PersistedAt) {
			t.Errorf("history[0].PersistedAt = %v, want %v", history[0].PersistedAt, msg.PersistedAt)
		}
	})

	t.Run("room history is newest window oldest first", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i := 0; i < 25; i++ {
			if _, err := s.PersistRoomMessage(ctx, "sports", "bob", fmt.Sprintf("m%02d", i)); err != nil {
				t.Fatalf("PersistRoomMessage failed: %v", err)
			}
		}
		if _, err := s.PersistRoomMessage(ctx, "general", "bob", "elsewhere"); err != nil {
			t.Fatalf("PersistRoomMessage failed: %v", err)
		}

		history, err := s.RecentRoomHistory(ctx, "sports", 20)
		if err != nil {
			t.Fatalf("RecentRoomHistory failed: %v", err)
		}
		if len(history) != 20 {
			t.Fatalf("len(history) = %d, want 20", len(history))
		}
		if history[0].Text != "m05" || history[19].Text != "m24" {
			t.Errorf("history spans %q..%q, want m05..m24", history[0].Text, history[19].Text)
		}
	})

	t.Run("empty history", func(t *testing.T) {
		s := newStore(t)
		history, err := s.RecentRoomHistory(context.Background(), "covid19", 20)
		if err != nil {
			t.Fatalf("RecentRoomHistory failed: %v", err)
		}
		if history == nil || len(history) != 0 {
			t.Errorf("RecentRoomHistory() = %#v, want empty non-nil slice", history)
		}
	})

	t.Run("private history both directions", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		mustPrivate(t, s, "alice", "bob", "one")
		mustPrivate(t, s, "bob", "alice", "two")
		mustPrivate(t, s, "alice", "carol", "other pair")
		mustPrivate(t, s, "alice", "bob", "three")

		history, err := s.RecentPrivateHistory(ctx, "bob", "alice", 50)
		if err != nil {
			t.Fatalf("RecentPrivateHistory failed: %v", err)
		}
		var texts []string
		for _, m := range history {
			texts = append(texts, m.Text)
		}
		if fmt.Sprint(texts) != "[one two three]" {
			t.Errorf("history = %v, want [one two three]", texts)
		}

		limited, err := s.RecentPrivateHistory(ctx, "alice", "bob", 2)
		if err != nil {
			t.Fatalf("RecentPrivateHistory failed: %v", err)
		}
		if len(limited) != 2 || limited[0].Text != "two" {
			t.Errorf("limited history = %+v, want [two three]", limited)
		}
	})

	t.Run("rejects blank fields", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if _, err := s.PersistRoomMessage(ctx, "general", "alice", "  "); !errors.Is(err, ErrInvalidMessage) {
			t.Errorf("PersistRoomMessage(blank text) error = %v, want ErrInvalidMessage", err)
		}
		if _, err := s.PersistPrivateMessage(ctx, "alice", "", "hi"); !errors.Is(err, ErrInvalidMessage) {
			t.Errorf("PersistPrivateMessage(blank to) error = %v, want ErrInvalidMessage", err)
		}
	})

	t.Run("accounts", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		exists, err := s.AccountExists(ctx, "alice")
		if err != nil {
			t.Fatalf("AccountExists failed: %v", err)
		}
		if exists {
			t.Error("AccountExists(alice) = true before creation")
		}

		created, err := s.CreateAccounts(ctx, "alice", " bob ", "alice")
		if err != nil {
			t.Fatalf("CreateAccounts failed: %v", err)
		}
		if created != 2 {
			t.Errorf("CreateAccounts() = %d, want 2", created)
		}

		created, err = s.CreateAccounts(ctx, "bob", "carol")
		if err != nil {
			t.Fatalf("CreateAccounts failed: %v", err)
		}
		if created != 1 {
			t.Errorf("second CreateAccounts() = %d, want 1", created)
		}

		for _, id := range []string{"alice", "bob", "carol"} {
			if ok, _ := s.AccountExists(ctx, id); !ok {
				t.Errorf("AccountExists(%s) = false, want true", id)
			}
		}

		if _, err := s.CreateAccounts(ctx, ""); !errors.Is(err, ErrInvalidIdentity) {
			t.Errorf("CreateAccounts(blank) error = %v, want ErrInvalidIdentity", err)
		}
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		if err := s.Ping(context.Background()); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})
}

func mustPrivate(t *testing.T, s Store, from, to, text string) {
	t.Helper()
	msg, err := s.PersistPrivateMessage(context.Background(), from, to, text)
	if err != nil {
		t.Fatalf("PersistPrivateMessage failed: %v", err)
	}
	if msg.FromIdentity != from || msg.ToIdentity != to || msg.Text != text {
		t.Fatalf("PersistPrivateMessage() = %+v", msg)
	}
}
