// Package notify is the narrow channel between the detached sync agent and
// any open page contexts. The agent publishes the outcome of a
// reconciliation it ran on its own; pages update their observable state and
// badge counts from the message without re-running the work. Delivery is
// best-effort: a page that is not listening simply misses the message and
// catches up from the store on its next pass.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind tags a broadcast message.
type Kind string

const (
	// KindSyncComplete announces a reconciliation that pushed Count
	// mutations successfully.
	KindSyncComplete Kind = "sync-complete"

	// KindSyncError announces a reconciliation that failed; the queue was
	// left untouched.
	KindSyncError Kind = "sync-error"
)

// Message is one broadcast from the detached agent.
type Message struct {
	// ID uniquely identifies the message for dedup/tracing.
	ID string

	Kind   Kind
	Count  int
	Reason string
	At     time.Time
}

// NewMessage stamps a message with a fresh id and the current time.
func NewMessage(kind Kind, count int, reason string) Message {
	return Message{
		ID:     uuid.NewString(),
		Kind:   kind,
		Count:  count,
		Reason: reason,
		At:     time.Now().UTC(),
	}
}

// Broadcaster fans messages out to every current subscriber.
type Broadcaster interface {
	// Publish delivers msg to all subscribers. Slow subscribers are
	// skipped rather than blocking the publisher.
	Publish(msg Message)

	// Subscribe registers a listener. The returned cancel function
	// removes it and closes the channel.
	Subscribe() (<-chan Message, func())
}

// Bus is an in-process Broadcaster. The page and agent tasks own no shared
// mutable state besides the durable store; the bus carries only
// notifications, never data.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Message
	next int
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Message)}
}

func (b *Bus) Publish(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
			// Listener not keeping up: drop, delivery is best-effort.
		}
	}
}

func (b *Bus) Subscribe() (<-chan Message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Message, 8)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}
