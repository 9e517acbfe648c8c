// Package events fans out state changes to subscribers such as websocket
// clients. Delivery is asynchronous and best effort; a bounded history lets a
// reconnecting client catch up by sequence number.
package events

import (
	"slices"
	"sync"

	"github.com/kdudkov/goutils/callback"
)

const (
	SessionOpen  = "session_open"
	SessionPark  = "session_park"
	Vote         = "vote"
	Proposal     = "proposal"
	Contribution = "contribution"
	Review       = "review"
	Identity     = "identity"
)

type Event struct {
	Seq    uint64 `json:"seq"`
	Type   string `json:"type"`
	Height int64  `json:"height"`
	Data   any    `json:"data,omitempty"`
}

// Bus numbers events and hands them to subscribers. A subscriber returning
// false is removed.
type Bus struct {
	cb *callback.Callback[*Event]

	mx      sync.Mutex
	seq     uint64
	history []*Event
	next    int
	full    bool
}

func NewBus(history int) *Bus {
	if history < 1 {
		history = 1
	}

	return &Bus{
		cb:      callback.New[*Event](),
		history: make([]*Event, history),
	}
}

func (b *Bus) Publish(typ string, height int64, data any) *Event {
	b.mx.Lock()
	b.seq++
	e := &Event{Seq: b.seq, Type: typ, Height: height, Data: data}
	b.history[b.next] = e
	b.next = (b.next + 1) % len(b.history)

	if b.next == 0 {
		b.full = true
	}
	b.mx.Unlock()

	b.cb.AddMessage(e)

	return e
}

func (b *Bus) Subscribe(name string, fn func(e *Event) bool) {
	b.cb.AddCallback(name, fn)
}

func (b *Bus) Unsubscribe(name string) {
	b.cb.RemoveCallback(name)
}

// Seq is the sequence number of the last published event.
func (b *Bus) Seq() uint64 {
	b.mx.Lock()
	defer b.mx.Unlock()

	return b.seq
}

// Since returns kept events with Seq > seq in publish order, limited to types
// when given.
func (b *Bus) Since(seq uint64, types ...string) []*Event {
	b.mx.Lock()
	defer b.mx.Unlock()

	var ordered []*Event

	if b.full {
		ordered = append(ordered, b.history[b.next:]...)
	}

	ordered = append(ordered, b.history[:b.next]...)

	res := make([]*Event, 0, len(ordered))

	for _, e := range ordered {
		if e.Seq <= seq {
			continue
		}

		if len(types) > 0 && !slices.Contains(types, e.Type) {
			continue
		}

		res = append(res, e)
	}

	return res
}
