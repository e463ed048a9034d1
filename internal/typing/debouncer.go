package typing

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes room typing from private typing.
type Kind uint8

const (
	Room Kind = iota + 1
	Private
)

func (k Kind) String() string {
	switch k {
	case Room:
		return "room"
	case Private:
		return "private"
	default:
		return "unknown"
	}
}

// Target is what a connection is typing into: a room name or a recipient
// identity.
type Target struct {
	Kind Kind
	Name string
}

// Key identifies one typing timer.
type Key struct {
	Conn   uuid.UUID
	Target Target
}

// Expiry is handed to the expiry callback when a timer runs out.
type Expiry struct {
	Key Key
	gen uint64
}

// DefaultWindow is the inactivity window after which typing is considered
// stopped.
const DefaultWindow = 800 * time.Millisecond

type entry struct {
	timer *time.Timer
	gen   uint64
}

// Debouncer owns the typing timers. It is safe for concurrent use.
type Debouncer struct {
	window   time.Duration
	onExpire func(Expiry)

	mu     sync.Mutex
	timers map[Key]*entry
	gen    uint64
	closed bool
}

// New creates a debouncer. onExpire is called from the timer goroutine with no
// debouncer lock held.
func New(window time.Duration, onExpire func(Expiry)) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	if onExpire == nil {
		onExpire = func(Expiry) {}
	}
	return &Debouncer{
		window:   window,
		onExpire: onExpire,
		timers:   make(map[Key]*entry),
	}
}

// Window returns the inactivity window.
func (d *Debouncer) Window() time.Duration {
	return d.window
}

// Start records a typing signal for key and (re)arms its timer. It returns true
// when no timer was active, meaning a start event should be emitted.
func (d *Debouncer) Start(key Key) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}

	d.gen++
	gen := d.gen

	if e, ok := d.timers[key]; ok {
		e.timer.Stop()
		e.gen = gen
		e.timer = time.AfterFunc(d.window, d.fire(key, gen))
		return false
	}

	d.timers[key] = &entry{
		timer: time.AfterFunc(d.window, d.fire(key, gen)),
		gen:   gen,
	}
	return true
}

// Stop cancels the timer for key. It returns true when a timer was active,
// meaning a stop event is owed.
func (d *Debouncer) Stop(key Key) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.timers[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(d.timers, key)
	return true
}

// StopAll cancels every timer owned by conn and returns the keys that were
// active.
func (d *Debouncer) StopAll(conn uuid.UUID) []Key {
	d.mu.Lock()
	defer d.mu.Unlock()

	var stopped []Key
	for key, e := range d.timers {
		if key.Conn != conn {
			continue
		}
		e.timer.Stop()
		delete(d.timers, key)
		stopped = append(stopped, key)
	}
	return stopped
}

// Expire removes the timer named by exp if it has not been refreshed or
// stopped since it fired. It returns true when the caller should emit the
// synthetic stop.
func (d *Debouncer) Expire(exp Expiry) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.timers[exp.Key]
	if !ok || e.gen != exp.gen {
		return false
	}
	delete(d.timers, exp.Key)
	return true
}

// Len returns the number of live timers.
func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// Close cancels all timers. Later Starts are ignored.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, e := range d.timers {
		e.timer.Stop()
		delete(d.timers, key)
	}
	d.closed = true
}

func (d *Debouncer) fire(key Key, gen uint64) func() {
	return func() {
		d.onExpire(Expiry{Key: key, gen: gen})
	}
}
