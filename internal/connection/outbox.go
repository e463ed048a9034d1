package connection

import (
	"sync"
)

// Outbox is a per-connection FIFO of encoded frames. It starts small and
// doubles its capacity when 70% full, up to a fixed limit. Push never blocks.
type Outbox struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      [][]byte
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	limit    int
	closed   bool

	// Stats
	pushed   int64
	popped   int64
	rejected int64
	resizes  int
}

// NewOutbox creates an outbox holding initial frames, growable to limit.
func NewOutbox(initial, limit int) *Outbox {
	if initial < 1 {
		initial = 1
	}
	if limit < initial {
		limit = initial
	}
	b := &Outbox{
		buf:      make([][]byte, initial),
		capacity: initial,
		limit:    limit,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Push queues a frame. Returns false if the outbox is closed or full at its
// limit.
func (b *Outbox) Push(frame []byte) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	threshold := (b.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if b.count+1 >= threshold && b.capacity < b.limit {
		b.grow()
	}
	if b.count == b.capacity {
		b.rejected++
		return false
	}

	b.buf[b.tail] = frame
	b.tail = (b.tail + 1) % b.capacity
	b.count++
	b.pushed++

	b.cond.Signal()
	return true
}

// Pop removes and returns the oldest frame, blocking until one is queued or
// the outbox is closed. Frames queued before Close are still returned; false
// means closed and empty.
func (b *Outbox) Pop() ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 && !b.closed {
		b.cond.Wait()
	}
	if b.count == 0 {
		return nil, false
	}
	return b.take(), true
}

// TryPop returns the oldest frame without blocking.
func (b *Outbox) TryPop() ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil, false
	}
	return b.take(), true
}

// Close rejects further pushes and wakes a blocked Pop.
func (b *Outbox) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.cond.Broadcast()
}

// Len returns the number of queued frames.
func (b *Outbox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the current capacity.
func (b *Outbox) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity
}

// OutboxStats contains outbox statistics.
type OutboxStats struct {
	Count    int
	Capacity int
	Limit    int
	Pushed   int64
	Popped   int64
	Rejected int64
	Resizes  int
}

// Stats returns outbox statistics.
func (b *Outbox) Stats() OutboxStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return OutboxStats{
		Count:    b.count,
		Capacity: b.capacity,
		Limit:    b.limit,
		Pushed:   b.pushed,
		Popped:   b.popped,
		Rejected: b.rejected,
		Resizes:  b.resizes,
	}
}

// take pops the head. Must be called with lock held and count > 0.
func (b *Outbox) take() []byte {
	frame := b.buf[b.head]
	b.buf[b.head] = nil
	b.head = (b.head + 1) % b.capacity
	b.count--
	b.popped++
	return frame
}

// grow doubles the capacity, capped at limit. Must be called with lock held.
func (b *Outbox) grow() {
	newCapacity := min(b.capacity*2, b.limit)
	newBuf := make([][]byte, newCapacity)

	if b.count > 0 {
		if b.head < b.tail {
			copy(newBuf, b.buf[b.head:b.tail])
		} else {
			// Wrapped: [head...end) + [0...tail)
			n := copy(newBuf, b.buf[b.head:])
			copy(newBuf[n:], b.buf[:b.tail])
		}
	}

	b.buf = newBuf
	b.head = 0
	b.tail = b.count
	b.capacity = newCapacity
	b.resizes++
}
