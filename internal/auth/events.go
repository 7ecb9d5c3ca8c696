package auth

import (
	"sync"
	"time"
)

type EventType string

const (
	EventSignedIn  EventType = "signed_in"
	EventSignedOut EventType = "signed_out"
)

// Event is one change of a user's authentication state.
type Event struct {
	Type   EventType `json:"type"`
	UserID string    `json:"user_id"`
	At     time.Time `json:"at"`
}

const subscriberBuffer = 16

// Broker fans auth events out to per-user subscribers. A subscriber that
// falls behind loses events; publishers never block.
type Broker struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

type subscriber struct {
	userID string
	ch     chan Event
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[*subscriber]struct{})}
}

// Subscribe returns a channel of events for userID and a function that
// unsubscribes and closes the channel. The channel is also closed by Close.
func (b *Broker) Subscribe(userID string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &subscriber{userID: userID, ch: make(chan Event, subscriberBuffer)}
	if b.closed {
		close(s.ch)
		return s.ch, func() {}
	}
	b.subs[s] = struct{}{}

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[s]; ok {
				delete(b.subs, s)
				close(s.ch)
			}
		})
	}
}

// Publish delivers e to every subscriber of e.UserID.
func (b *Broker) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.subs {
		if s.userID != e.UserID {
			continue
		}
		select {
		case s.ch <- e:
		default:
		}
	}
}

// Close ends every subscription. Later Subscribe calls get a closed channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		close(s.ch)
		delete(b.subs, s)
	}
}
