package typing

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

const testWindow = 40 * time.Millisecond

// expiryRecorder confirms every expiry and counts the confirmed ones.
type expiryRecorder struct {
	d     *Debouncer
	mu    sync.Mutex
	fired []Key
	ch    chan Key
}

func newRecorded(window time.Duration) (*Debouncer, *expiryRecorder) {
	rec := &expiryRecorder{ch: make(chan Key, 16)}
	rec.d = New(window, func(exp Expiry) {
		if !rec.d.Expire(exp) {
			return
		}
		rec.mu.Lock()
		rec.fired = append(rec.fired, exp.Key)
		rec.mu.Unlock()
		rec.ch <- exp.Key
	})
	return rec.d, rec
}

func (r *expiryRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

func roomKey(conn uuid.UUID, room string) Key {
	return Key{Conn: conn, Target: Target{Kind: Room, Name: room}}
}

func TestStartEmitsOncePerBurst(t *testing.T) {
	d, rec := newRecorded(testWindow)
	key := roomKey(uuid.New(), "general")

	starts := 0
	for i := 0; i < 10; i++ {
		if d.Start(key) {
			starts++
		}
	}
	if starts != 1 {
		t.Errorf("starts = %d, want 1", starts)
	}

	select {
	case got := <-rec.ch:
		if got != key {
			t.Errorf("expired key = %+v, want %+v", got, key)
		}
	case <-time.After(time.Second):
		t.Fatal("timer did not expire")
	}

	time.Sleep(2 * testWindow)
	if rec.count() != 1 {
		t.Errorf("expiries = %d, want 1", rec.count())
	}
	if d.Len() != 0 {
		t.Error("key still active after expiry")
	}
}

func TestRefreshPostponesExpiry(t *testing.T) {
	d, rec := newRecorded(testWindow)
	key := roomKey(uuid.New(), "general")

	d.Start(key)
	for i := 0; i < 4; i++ {
		time.Sleep(testWindow / 2)
		if d.Start(key) {
			t.Errorf("refresh %d reported a new start", i)
		}
	}
	if rec.count() != 0 {
		t.Errorf("expiries = %d while refreshing, want 0", rec.count())
	}

	select {
	case <-rec.ch:
	case <-time.After(time.Second):
		t.Fatal("timer did not expire after refreshes stopped")
	}
}

func TestStopOwesExactlyOneStop(t *testing.T) {
	d, rec := newRecorded(testWindow)
	key := roomKey(uuid.New(), "general")

	if d.Stop(key) {
		t.Error("Stop() without start = true, want false")
	}

	d.Start(key)
	if !d.Stop(key) {
		t.Error("Stop() after start = false, want true")
	}
	if d.Stop(key) {
		t.Error("second Stop() = true, want false")
	}

	time.Sleep(2 * testWindow)
	if rec.count() != 0 {
		t.Errorf("expiries = %d after explicit stop, want 0", rec.count())
	}

	if !d.Start(key) {
		t.Error("Start() after stop = false, want true")
	}
}

func TestStopAll(t *testing.T) {
	d, rec := newRecorded(testWindow)
	a, b := uuid.New(), uuid.New()

	d.Start(roomKey(a, "general"))
	d.Start(Key{Conn: a, Target: Target{Kind: Private, Name: "bob"}})
	d.Start(roomKey(b, "general"))

	stopped := d.StopAll(a)
	if len(stopped) != 2 {
		t.Errorf("StopAll() returned %d keys, want 2", len(stopped))
	}
	for _, key := range stopped {
		if key.Conn != a {
			t.Errorf("StopAll() returned foreign key %+v", key)
		}
	}
	if d.Len() != 1 {
		t.Errorf("Len() = %d, want 1", d.Len())
	}

	select {
	case got := <-rec.ch:
		if got.Conn != b {
			t.Errorf("expired key for %v, want %v", got.Conn, b)
		}
	case <-time.After(time.Second):
		t.Fatal("remaining timer did not expire")
	}
}

func TestStaleExpiryIsRejected(t *testing.T) {
	d := New(time.Hour, nil)
	key := roomKey(uuid.New(), "general")

	d.Start(key)
	stale := Expiry{Key: key, gen: d.timers[key].gen}
	d.Start(key)

	if d.Expire(stale) {
		t.Error("Expire() with refreshed generation = true, want false")
	}
	if _, ok := d.timers[key]; !ok {
		t.Error("stale expiry removed a live timer")
	}

	fresh := Expiry{Key: key, gen: d.timers[key].gen}
	if !d.Expire(fresh) {
		t.Error("Expire() with current generation = false, want true")
	}
	d.Close()
}

func TestClose(t *testing.T) {
	d, rec := newRecorded(testWindow)
	key := roomKey(uuid.New(), "general")

	d.Start(key)
	d.Close()

	if d.Start(key) {
		t.Error("Start() after Close() = true, want false")
	}
	time.Sleep(2 * testWindow)
	if rec.count() != 0 {
		t.Errorf("expiries = %d after Close(), want 0", rec.count())
	}
}

func TestDefaultWindow(t *testing.T) {
	d := New(0, nil)
	if d.Window() != DefaultWindow {
		t.Errorf("Window() = %v, want %v", d.Window(), DefaultWindow)
	}
}

func TestKindString(t *testing.T) {
	if Room.String() != "room" || Private.String() != "private" || Kind(0).String() != "unknown" {
		t.Error("Kind.String() mismatch")
	}
}
