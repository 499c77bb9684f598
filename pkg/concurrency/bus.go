package concurrency

import (
	"log/slog"
	"sync"
)

// DefaultEventBuffer is the per-subscriber buffer used when none is given.
const DefaultEventBuffer = 16

// EventBus multicasts discrete events. Nothing is cached: an event published
// before a subscriber attaches is never seen by it. Each subscriber receives
// events in publish order.
type EventBus[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]chan T
	nextID uint64
	buffer int
	closed bool
}

// NewEventBus creates a bus whose subscribers buffer up to buffer events.
func NewEventBus[T any](buffer int) *EventBus[T] {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &EventBus[T]{
		subs:   make(map[uint64]chan T),
		buffer: buffer,
	}
}

// Subscribe attaches a new subscriber.
func (b *EventBus[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// Publish delivers ev to every subscriber and returns how many received it. A
// subscriber whose buffer is full misses the event.
func (b *EventBus[T]) Publish(ev T) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	delivered := 0
	for id, ch := range b.subs {
		select {
		case ch <- ev:
			delivered++
		default:
			slog.Warn("Event subscriber is not keeping up, dropping event", "subscriber", id)
		}
	}
	return delivered
}

// Subscribers returns the number of attached subscribers.
func (b *EventBus[T]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close detaches every subscriber.
func (b *EventBus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
