package events

import (
	"sync"
)

// Bus fans engine lifecycle events out to in-process subscribers. Publishing
// never blocks the trading path: a subscriber that stops draining its channel
// loses events instead of stalling the engine.
type Bus struct {
	mu   sync.RWMutex
	subs map[Event]map[chan any]struct{}
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Event]map[chan any]struct{})}
}

// Subscribe registers a listener for one event and returns its channel plus
// an unsubscribe function. Unsubscribing closes the channel.
func (b *Bus) Subscribe(e Event, buffer int) (<-chan any, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan any, buffer)
	if b.subs[e] == nil {
		b.subs[e] = make(map[chan any]struct{})
	}
	b.subs[e][ch] = struct{}{}

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[e], ch)
			close(ch)
		})
	}

	return ch, unsub
}

// Publish delivers the payload to every subscriber of the event, dropping it
// for any subscriber whose buffer is full.
func (b *Bus) Publish(e Event, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[e] {
		select {
		case ch <- payload:
		default:
			// slow subscriber, drop
		}
	}
}
