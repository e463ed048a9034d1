package router

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/chat-relay/internal/model"
	"github.com/rickgao/chat-relay/internal/store"
)

const testTypingWindow = 50 * time.Millisecond

// recorded is one frame captured by a recorder.
type recorded struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// recorder is a Sender that keeps every frame it is given.
type recorder struct {
	mu     sync.Mutex
	frames []recorded
	reject bool
}

func (c *recorder) Send(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reject {
		return false
	}
	var f recorded
	if err := json.Unmarshal(frame, &f); err != nil {
		f.Type = "!invalid"
	}
	c.frames = append(c.frames, f)
	return true
}

func (c *recorder) all() []recorded {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]recorded(nil), c.frames...)
}

func (c *recorder) types() []string {
	var out []string
	for _, f := range c.all() {
		out = append(out, f.Type)
	}
	return out
}

func (c *recorder) ofType(eventType string) []recorded {
	var out []recorded
	for _, f := range c.all() {
		if f.Type == eventType {
			out = append(out, f)
		}
	}
	return out
}

func (c *recorder) count(eventType string) int {
	return len(c.ofType(eventType))
}

func (c *recorder) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

func payloadAs[T any](t *testing.T, f recorded) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(f.Payload, &v); err != nil {
		t.Fatalf("decode %s payload %s: %v", f.Type, f.Payload, err)
	}
	return v
}

// fakeStore wraps the memory store with call counters and failure switches.
type fakeStore struct {
	*store.Memory
	persistCalls atomic.Int32
	failPersist  atomic.Bool
	failHistory  atomic.Bool
}

var errStoreDown = errors.New("store down")

func (f *fakeStore) PersistRoomMessage(ctx context.Context, room, from, text string) (model.RoomMessage, error) {
	f.persistCalls.Add(1)
	if f.failPersist.Load() {
		return model.RoomMessage{}, errStoreDown
	}
	return f.Memory.PersistRoomMessage(ctx, room, from, text)
}

func (f *fakeStore) PersistPrivateMessage(ctx context.Context, from, to, text string) (model.PrivateMessage, error) {
	f.persistCalls.Add(1)
	if f.failPersist.Load() {
		return model.PrivateMessage{}, errStoreDown
	}
	return f.Memory.PersistPrivateMessage(ctx, from, to, text)
}

func (f *fakeStore) RecentRoomHistory(ctx context.Context, room string, limit int) ([]model.RoomMessage, error) {
	if f.failHistory.Load() {
		return nil, errStoreDown
	}
	return f.Memory.RecentRoomHistory(ctx, room, limit)
}

func (f *fakeStore) RecentPrivateHistory(ctx context.Context, a, b string, limit int) ([]model.PrivateMessage, error) {
	if f.failHistory.Load() {
		return nil, errStoreDown
	}
	return f.Memory.RecentPrivateHistory(ctx, a, b, limit)
}

// fakeDirectory is a fixed account set with an optional failure.
type fakeDirectory struct {
	mu       sync.Mutex
	accounts map[string]bool
	err      error
	lookups  []string
}

func (d *fakeDirectory) AccountExists(_ context.Context, identity string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups = append(d.lookups, identity)
	if d.err != nil {
		return false, d.err
	}
	return d.accounts[identity], nil
}

func (d *fakeDirectory) looked() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.lookups...)
}

type harness struct {
	t     *testing.T
	r     Router
	store *fakeStore
	dir   *fakeDirectory
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := DefaultConfig()
	cfg.TypingWindow = testTypingWindow

	h := &harness{
		t:     t,
		store: &fakeStore{Memory: store.NewMemory()},
		dir: &fakeDirectory{accounts: map[string]bool{
			"alice": true, "bob": true, "carol": true,
		}},
	}
	h.r = New(cfg, h.store, h.dir, nil)
	t.Cleanup(h.r.Close)
	return h
}

func (h *harness) connect() (uuid.UUID, *recorder) {
	id := uuid.New()
	out := &recorder{}
	h.r.Connect(id, out)
	return id, out
}

// do sends one client event with payload marshalled to JSON.
func (h *harness) do(id uuid.UUID, eventType string, payload any) {
	h.t.Helper()
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			h.t.Fatalf("marshal payload: %v", err)
		}
		raw = data
	}
	h.r.Handle(context.Background(), id, Event{Type: eventType, Payload: raw})
}

// client connects, registers identity, optionally joins room and clears the
// frames produced by setup.
func (h *harness) client(identity, room string) (uuid.UUID, *recorder) {
	id, out := h.connect()
	h.do(id, EventRegister, map[string]string{"identity": identity})
	if room != "" {
		h.do(id, EventJoinRoom, map[string]string{"room": room})
	}
	out.reset()
	return id, out
}

func (h *harness) roomMessage(id uuid.UUID, text string) {
	h.do(id, EventRoomMessage, map[string]string{"text": text})
}

func (h *harness) privateMessage(id uuid.UUID, to, text string) {
	h.do(id, EventPrivateMessage, map[string]string{"to_identity": to, "text": text})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func expectError(t *testing.T, out *recorder, kind Kind) {
	t.Helper()
	errs := out.ofType(EventError)
	if len(errs) != 1 {
		t.Fatalf("error frames = %d (%v), want 1", len(errs), out.types())
	}
	if got := payloadAs[Error](t, errs[0]); got.Kind != kind {
		t.Errorf("error kind = %q, want %q", got.Kind, kind)
	}
}

func expectNothing(t *testing.T, who string, out *recorder) {
	t.Helper()
	if frames := out.types(); len(frames) != 0 {
		t.Errorf("%s received %v, want nothing", who, frames)
	}
}
