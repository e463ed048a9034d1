package router

import (
	"sync"
	"sync/atomic"
)

// Stats contains runtime statistics.
type Stats struct {
	EventsReceived    int64          `json:"events_received"`
	UnknownEvents     int64          `json:"unknown_events"`
	MalformedEvents   int64          `json:"malformed_events"`
	MessagesPersisted int64          `json:"messages_persisted"`
	FramesDelivered   int64          `json:"frames_delivered"`
	FramesDropped     int64          `json:"frames_dropped"`
	ClientErrors      map[Kind]int64 `json:"client_errors"`
	Sessions          int            `json:"sessions"`
	Online            int            `json:"online"`
	Registered        int            `json:"registered"`
	TypingTimers      int            `json:"typing_timers"`
	Occupancy         map[string]int `json:"occupancy"`
}

// counters are updated without the router lock.
type counters struct {
	received  atomic.Int64
	unknown   atomic.Int64
	malformed atomic.Int64
	persisted atomic.Int64
	delivered atomic.Int64
	dropped   atomic.Int64

	errMu  sync.Mutex
	errors map[Kind]int64
}

func (c *counters) clientError(kind Kind) {
	c.errMu.Lock()
	if c.errors == nil {
		c.errors = make(map[Kind]int64)
	}
	c.errors[kind]++
	c.errMu.Unlock()
}

func (c *counters) snapshot() Stats {
	c.errMu.Lock()
	errs := make(map[Kind]int64, len(c.errors))
	for k, v := range c.errors {
		errs[k] = v
	}
	c.errMu.Unlock()

	return Stats{
		EventsReceived:    c.received.Load(),
		UnknownEvents:     c.unknown.Load(),
		MalformedEvents:   c.malformed.Load(),
		MessagesPersisted: c.persisted.Load(),
		FramesDelivered:   c.delivered.Load(),
		FramesDropped:     c.dropped.Load(),
		ClientErrors:      errs,
	}
}
