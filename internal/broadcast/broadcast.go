// Package broadcast implements a bounded, lossy fan-out broadcaster with a
// single-slot "most recent" store for lag recovery — the Go equivalent of
// the spec's broadcast channel + watch-channel pairing used for the per-lobby
// bytes stream. Go has no native multi-consumer broadcast channel, so this
// generalizes the teacher's per-session chan []byte idiom
// (internal/network/session.go's sendQueue) from one fixed consumer to N
// dynamic subscribers sharing one latest-value slot.
package broadcast

import (
	"sync"
	"sync/atomic"
)

// defaultCapacity is the per-subscriber channel buffer size.
const defaultCapacity = 128

// Broadcaster fans out []byte messages to any number of subscribers. A
// subscriber that falls behind (its channel is full) has the drop recorded
// against its own Subscription and surfaced on the next message it actually
// receives, mirroring tokio::sync::broadcast's RecvError::Lagged(n) signal
// (see original_source/game_server/src/interface_adapters/net/client.rs) —
// the caller is expected to resync from Latest when told it lagged.
type Broadcaster struct {
	mu       sync.RWMutex
	subs     map[int]*Subscription
	nextID   int
	latest   []byte
	latestMu sync.RWMutex
	closed   bool
}

// New returns an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{subs: make(map[int]*Subscription)}
}

// Message is one delivery to a subscriber: the published bytes, plus how
// many prior publishes this subscriber missed because its channel was full.
type Message struct {
	Data   []byte
	Lagged uint64
}

// Subscription is a single subscriber's handle on the broadcaster.
type Subscription struct {
	id      int
	ch      chan Message
	b       *Broadcaster
	dropped atomic.Uint64
}

// Subscribe registers a new subscriber and returns its handle. If the
// broadcaster is already closed, the returned subscription's channel is
// closed immediately.
func (b *Broadcaster) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{id: -1, ch: make(chan Message, defaultCapacity), b: b}
	if b.closed {
		close(sub.ch)
		return sub
	}

	sub.id = b.nextID
	b.nextID++
	b.subs[sub.id] = sub
	return sub
}

// C returns the channel the subscriber should select on. A receive of a
// closed channel (zero Message, ok==false) signals the broadcaster is
// closed. A non-zero Message.Lagged means the subscriber fell behind and
// missed that many publishes since its last delivery — it should resync via
// the lobby's Latest instead of trusting the delta implied by this message.
func (s *Subscription) C() <-chan Message { return s.ch }

// Unsubscribe removes the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if sub, ok := s.b.subs[s.id]; ok {
		delete(s.b.subs, s.id)
		close(sub.ch)
	}
}

// Publish stores msg as the latest value and fans it out to every subscriber
// non-blockingly. A subscriber whose channel is full does not receive this
// message; the drop is counted against it and reported as Lagged on the
// next message that does get through.
func (b *Broadcaster) Publish(msg []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	b.latestMu.Lock()
	b.latest = msg
	b.latestMu.Unlock()

	for _, sub := range b.subs {
		lagged := sub.dropped.Load()
		select {
		case sub.ch <- Message{Data: msg, Lagged: lagged}:
			sub.dropped.Add(^(lagged - 1)) // subtract the count just reported
		default:
			sub.dropped.Add(1)
		}
	}
}

// Latest returns the most recently published message, or nil if none yet.
func (b *Broadcaster) Latest() []byte {
	b.latestMu.RLock()
	defer b.latestMu.RUnlock()
	return b.latest
}

// Close closes every subscriber channel and marks the broadcaster closed.
// Further Publish calls are no-ops.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
