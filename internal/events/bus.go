// Package events fans domain events out to live subscribers. Publication is
// fire-and-forget: with no subscribers an event is dropped, and a subscriber
// that falls behind loses its oldest undelivered events rather than blocking
// the publisher. Every new subscription starts with a Snapshot event built
// from the store's derived statuses.
package events

import (
	"sync"

	"github.com/RainbowCandyX/sserver-status/internal/models"
)

// subscriberBuffer is the per-subscriber queue depth. The next Snapshot or
// periodic tick corrects anything a slow consumer missed.
const subscriberBuffer = 64

// Bus is a multi-producer, multi-consumer broadcast channel of domain events.
type Bus struct {
	mu       sync.Mutex
	subs     map[*Subscriber]struct{}
	snapshot func() []models.ServerStatus
}

// Subscriber is one attached consumer. Events arrive on Events(); call Close
// when done to detach.
type Subscriber struct {
	bus *Bus
	ch  chan models.Event
}

// New creates a Bus. snapshot is invoked at every subscription to build the
// initial Snapshot event; it must be safe for concurrent use.
func New(snapshot func() []models.ServerStatus) *Bus {
	return &Bus{
		subs:     make(map[*Subscriber]struct{}),
		snapshot: snapshot,
	}
}

// Subscribe attaches a new consumer. The subscriber is registered and its
// Snapshot seeded under the same bus lock, so the snapshot-then-tail sequence
// has no gap and no duplicate: a concurrent Publish either lands before the
// registration (and is reflected in the snapshot) or after it (and is
// delivered as tail).
func (b *Bus) Subscribe() *Subscriber {
	sub := &Subscriber{bus: b, ch: make(chan models.Event, subscriberBuffer)}

	b.mu.Lock()
	defer b.mu.Unlock()
	sub.ch <- models.Event{Type: models.EventSnapshot, Statuses: b.snapshot()}
	b.subs[sub] = struct{}{}
	return sub
}

// Publish broadcasts an event to all current subscribers. It never blocks:
// a full subscriber queue sheds its oldest event to make room, and if the
// queue is still full the event is dropped for that subscriber.
func (b *Bus) Publish(ev models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- ev:
			default:
			}
		}
	}
}

// SubscriberCount returns the number of attached subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Events is the subscriber's receive channel. It is closed by Close.
func (s *Subscriber) Events() <-chan models.Event {
	return s.ch
}

// Close detaches the subscriber and closes its channel. Safe to call once.
func (s *Subscriber) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if _, ok := s.bus.subs[s]; !ok {
		return
	}
	delete(s.bus.subs, s)
	close(s.ch)
}
