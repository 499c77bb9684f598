package concurrency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrencyGuard_RejectsWhileBusy(t *testing.T) {
	guard := NewConcurrencyGuard()
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- guard.Execute(func() error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	assert.True(t, guard.Busy())
	assert.ErrorIs(t, guard.Execute(func() error { return nil }), ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, guard.Busy())
}

func TestConcurrencyGuard_ExecuteWithContext(t *testing.T) {
	guard := NewConcurrencyGuard()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := guard.ExecuteWithContext(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)

	boom := errors.New("boom")
	err = guard.ExecuteWithContext(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, guard.Busy())
}

func TestStateCell_ReplaysLatestToNewSubscribers(t *testing.T) {
	cell := NewStateCell(1)
	cell.Set(2)
	cell.Set(3)

	ch, cancel := cell.Subscribe()
	defer cancel()

	assert.Equal(t, 3, <-ch)
	assert.Equal(t, 3, cell.Value())
}

func TestStateCell_SlowSubscriberSeesNewestValue(t *testing.T) {
	cell := NewStateCell(0)
	ch, cancel := cell.Subscribe()
	defer cancel()

	for i := 1; i <= 10; i++ {
		cell.Set(i)
	}

	assert.Equal(t, 10, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected extra value %d", v)
	default:
	}
}

func TestStateCell_UpdateIsTotallyOrdered(t *testing.T) {
	cell := NewStateCell(0)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cell.Update(func(v int) int { return v + 1 })
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, cell.Value())
}

func TestStateCell_CancelClosesChannel(t *testing.T) {
	cell := NewStateCell("a")
	ch, cancel := cell.Subscribe()
	<-ch
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	cell.Set("b")
	assert.Equal(t, "b", cell.Value())
}

func TestEventBus_NotReplayed(t *testing.T) {
	bus := NewEventBus[string](4)
	assert.Equal(t, 0, bus.Publish("early"))

	ch, cancel := bus.Subscribe()
	defer cancel()

	assert.Equal(t, 1, bus.Publish("first"))
	assert.Equal(t, 1, bus.Publish("second"))

	assert.Equal(t, "first", <-ch)
	assert.Equal(t, "second", <-ch)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %q", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestEventBus_Multicast(t *testing.T) {
	bus := NewEventBus[int](1)
	a, cancelA := bus.Subscribe()
	b, cancelB := bus.Subscribe()
	defer cancelA()
	defer cancelB()

	assert.Equal(t, 2, bus.Subscribers())
	assert.Equal(t, 2, bus.Publish(7))
	assert.Equal(t, 7, <-a)
	assert.Equal(t, 7, <-b)

	bus.Close()
	_, ok := <-a
	assert.False(t, ok)
}
