package bus

import (
	"context"
	"testing"
	"time"

	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribeOrder(t *testing.T) {
	b := New(8)
	r := b.Subscribe("c")

	b.Publish("c", capability.Event{Kind: capability.EventMemoryAdded, Payload: 1})
	b.Publish("c", capability.Event{Kind: capability.EventMemoryAdded, Payload: 2})
	b.Publish("c", capability.Event{Kind: capability.EventMemoryAdded, Payload: 3})

	ctx := context.Background()
	for _, want := range []int{1, 2, 3} {
		got, ok := r.Receive(ctx)
		require.True(t, ok)
		require.Equal(t, want, got.Event.Payload)
	}
}

func TestSubscribeOnlySeesFutureEvents(t *testing.T) {
	b := New(8)
	b.Publish("c", capability.Event{Payload: "before"})
	r := b.Subscribe("c")
	b.Publish("c", capability.Event{Payload: "after"})

	got, ok := r.Receive(context.Background())
	require.True(t, ok)
	require.Equal(t, "after", got.Event.Payload)
}

func TestOverflowDropsOldestAndReportsLag(t *testing.T) {
	b := New(2)
	r := b.Subscribe("c")
	b.Publish("c", capability.Event{Payload: 1})
	b.Publish("c", capability.Event{Payload: 2})
	b.Publish("c", capability.Event{Payload: 3}) // drops 1

	got, ok := r.Receive(context.Background())
	require.True(t, ok)
	require.Equal(t, 2, got.Event.Payload)
	require.Equal(t, uint64(1), got.Lag)

	got, ok = r.Receive(context.Background())
	require.True(t, ok)
	require.Equal(t, 3, got.Event.Payload)
	require.Equal(t, uint64(0), got.Lag)
}

func TestReceiveBlocksUntilPublishOrClose(t *testing.T) {
	b := New(8)
	r := b.Subscribe("c")

	done := make(chan bool, 1)
	go func() {
		_, ok := r.Receive(context.Background())
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	r.Close()
	require.False(t, <-done)
}

func TestCloseAllWakesReceivers(t *testing.T) {
	b := New(8)
	r1 := b.Subscribe("a")
	r2 := b.Subscribe("b")

	results := make(chan bool, 2)
	go func() { _, ok := r1.Receive(context.Background()); results <- ok }()
	go func() { _, ok := r2.Receive(context.Background()); results <- ok }()

	time.Sleep(20 * time.Millisecond)
	b.CloseAll()

	require.False(t, <-results)
	require.False(t, <-results)
}

func TestReceiveRespectsContextCancellation(t *testing.T) {
	b := New(8)
	r := b.Subscribe("c")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, ok := r.Receive(ctx)
	require.False(t, ok)
}

func TestIndependentChannelsNoOrderingAcrossThem(t *testing.T) {
	b := New(8)
	ra := b.Subscribe("a")
	rb := b.Subscribe("b")
	b.Publish("a", capability.Event{Payload: "a1"})
	b.Publish("b", capability.Event{Payload: "b1"})

	gotA, _ := ra.Receive(context.Background())
	gotB, _ := rb.Receive(context.Background())
	require.Equal(t, "a1", gotA.Event.Payload)
	require.Equal(t, "b1", gotB.Event.Payload)
}
