package concurrency

import "sync"

// StateCell holds the latest value of some state and multicasts every change.
//
// New subscribers immediately receive the current value. A subscriber that
// falls behind only ever sees the newest value: stale values waiting in its
// channel are replaced, never queued. Update runs under the cell's lock, so
// changes are totally ordered and readers always observe a complete value.
type StateCell[T any] struct {
	mu     sync.Mutex
	value  T
	subs   map[uint64]chan T
	nextID uint64
	closed bool
}

// NewStateCell creates a cell holding initial.
func NewStateCell[T any](initial T) *StateCell[T] {
	return &StateCell[T]{
		value: initial,
		subs:  make(map[uint64]chan T),
	}
}

// Value returns the current value.
func (c *StateCell[T]) Value() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set replaces the current value and publishes it.
func (c *StateCell[T]) Set(v T) {
	c.Update(func(T) T { return v })
}

// Update computes the next value from the current one and publishes it. fn
// must not call back into the cell.
func (c *StateCell[T]) Update(fn func(T) T) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = fn(c.value)
	for _, ch := range c.subs {
		offerLatest(ch, c.value)
	}
	return c.value
}

// Subscribe returns a channel that receives the current value followed by
// every later change, and a function that detaches it. The channel is closed
// when the subscription is cancelled or the cell is closed.
func (c *StateCell[T]) Subscribe() (<-chan T, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan T, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	ch <- c.value

	id := c.nextID
	c.nextID++
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Close detaches every subscriber. The value stays readable.
func (c *StateCell[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

// offerLatest delivers v without blocking, dropping an undelivered older value.
// Callers hold the cell lock, so they are the only sender on ch.
func offerLatest[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
