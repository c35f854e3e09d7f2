// Package bus implements the named pub/sub channel fabric (spec.md §4.7):
// one bounded ring-buffer broadcast queue per channel name, with
// independent per-subscriber receive queues so a slow subscriber never
// blocks another or the publisher.
package bus

import (
	"context"
	"sync"

	"github.com/nodenestor/hiveminddb/internal/capability"
)

// DefaultCapacity is the default per-subscriber ring buffer size
// (spec.md §4.7).
const DefaultCapacity = 256

// Bus is a named pub/sub fabric. The zero value is not usable; use New.
type Bus struct {
	capacity int

	mu     sync.Mutex
	topics map[string]*topic
}

// New creates a Bus whose subscriber queues each hold up to capacity
// events before the oldest is dropped. capacity <= 0 uses DefaultCapacity.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{capacity: capacity, topics: make(map[string]*topic)}
}

type topic struct {
	mu   sync.Mutex
	subs map[uint64]*Receiver
	next uint64
}

// Publish enqueues event on the named channel. If a subscriber's queue is
// full, the oldest event in that subscriber's queue is dropped and its lag
// counter increments; the publisher never blocks (spec.md §4.7, §5).
func (b *Bus) Publish(name string, event capability.Event) {
	b.mu.Lock()
	t, ok := b.topics[name]
	b.mu.Unlock()
	if !ok {
		return // no subscribers ever existed for this channel; nothing to do
	}

	t.mu.Lock()
	recvs := make([]*Receiver, 0, len(t.subs))
	for _, r := range t.subs {
		recvs = append(recvs, r)
	}
	t.mu.Unlock()

	for _, r := range recvs {
		r.push(event)
	}
}

// Subscribe creates (if needed) the named channel's topic and returns a
// fresh Receiver that observes only events published after this call
// (spec.md §9, Open Question (d): the bus does not replay missed events to
// a reconnecting client — see DESIGN.md).
func (b *Bus) Subscribe(name string) *Receiver {
	b.mu.Lock()
	t, ok := b.topics[name]
	if !ok {
		t = &topic{subs: make(map[uint64]*Receiver)}
		b.topics[name] = t
	}
	b.mu.Unlock()

	t.mu.Lock()
	id := t.next
	t.next++
	r := newReceiver(b.capacity, func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	})
	t.subs[id] = r
	t.mu.Unlock()
	return r
}

// SubscriberCount returns how many live receivers are subscribed to name.
// Used for diagnostics (GET /status).
func (b *Bus) SubscriberCount(name string) int {
	b.mu.Lock()
	t, ok := b.topics[name]
	b.mu.Unlock()
	if !ok {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// CloseAll closes every receiver on every topic, waking any blocked
// Receive calls with ok=false. The server's Shutdown does not call it.
func (b *Bus) CloseAll() {
	b.mu.Lock()
	topics := make([]*topic, 0, len(b.topics))
	for _, t := range b.topics {
		topics = append(topics, t)
	}
	b.mu.Unlock()

	for _, t := range topics {
		t.mu.Lock()
		recvs := make([]*Receiver, 0, len(t.subs))
		for _, r := range t.subs {
			recvs = append(recvs, r)
		}
		t.mu.Unlock()
		for _, r := range recvs {
			r.Close()
		}
	}
}

// Received is one event delivered to a Receive call, annotated with how
// many events were dropped from this subscriber's queue (due to overflow)
// since its previous Receive.
type Received struct {
	Event capability.Event
	Lag   uint64
}

// Receiver is a single subscriber's view of a channel: a bounded FIFO of
// events plus a lag counter. Owned exclusively by the caller that
// subscribed (spec.md §5: "subscriber receivers are owned by the WS
// fan-out loop for that client").
type Receiver struct {
	mu       sync.Mutex
	buf      []capability.Event
	capacity int
	lag      uint64
	closed   bool
	notify   chan struct{}
	onClose  func()
}

func newReceiver(capacity int, onClose func()) *Receiver {
	return &Receiver{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
		onClose:  onClose,
	}
}

func (r *Receiver) push(event capability.Event) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if len(r.buf) >= r.capacity {
		r.buf = r.buf[1:]
		r.lag++
	}
	r.buf = append(r.buf, event)
	r.mu.Unlock()
	r.wake()
}

func (r *Receiver) wake() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Receive blocks until an event is available, the receiver is closed, or
// ctx is done. Within a single channel, events are delivered to a given
// subscriber in publish order (spec.md §8, "Bus ordering").
func (r *Receiver) Receive(ctx context.Context) (Received, bool) {
	for {
		r.mu.Lock()
		if len(r.buf) > 0 {
			ev := r.buf[0]
			r.buf = r.buf[1:]
			lag := r.lag
			r.lag = 0
			r.mu.Unlock()
			return Received{Event: ev, Lag: lag}, true
		}
		if r.closed {
			r.mu.Unlock()
			return Received{}, false
		}
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return Received{}, false
		case <-r.notify:
		}
	}
}

// Close releases this receiver; any blocked Receive returns ok=false, and
// the receiver is unregistered from its topic so future publishes skip it.
func (r *Receiver) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()
	r.wake()
	if r.onClose != nil {
		r.onClose()
	}
}
