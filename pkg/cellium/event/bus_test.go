package event

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBus_PublishSubscribe tests basic delivery.
func TestBus_PublishSubscribe(t *testing.T) {
	b := NewBus(BusConfig{})

	var gotName string
	var gotPayload map[string]any
	b.Subscribe("user.created", func(ctx context.Context, name string, payload map[string]any) error {
		gotName = name
		gotPayload = payload
		return nil
	})

	b.Publish(context.Background(), "user.created", map[string]any{"id": "1"})
	assert.Equal(t, "user.created", gotName)
	assert.Equal(t, map[string]any{"id": "1"}, gotPayload)
}

// TestBus_DeliveryOrder tests handlers run in subscription order.
func TestBus_DeliveryOrder(t *testing.T) {
	b := NewBus(BusConfig{})

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		b.Subscribe("tick", func(ctx context.Context, name string, payload map[string]any) error {
			order = append(order, i)
			return nil
		})
	}

	b.Publish(context.Background(), "tick", nil)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

// TestBus_HandlerFailureIsolation tests one failing handler does not
// suppress the others.
func TestBus_HandlerFailureIsolation(t *testing.T) {
	var failures []string
	b := NewBus(BusConfig{
		OnError: func(event, subscriber string, err error) {
			failures = append(failures, err.Error())
		},
	})

	var ran []string
	b.Subscribe("e", func(ctx context.Context, name string, payload map[string]any) error {
		ran = append(ran, "first")
		return nil
	})
	b.Subscribe("e", func(ctx context.Context, name string, payload map[string]any) error {
		return fmt.Errorf("middle broke")
	})
	b.Subscribe("e", func(ctx context.Context, name string, payload map[string]any) error {
		ran = append(ran, "last")
		return nil
	})

	b.Publish(context.Background(), "e", nil)
	assert.Equal(t, []string{"first", "last"}, ran)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "middle broke")
}

// TestBus_HandlerPanicIsolation tests a panicking handler is contained.
func TestBus_HandlerPanicIsolation(t *testing.T) {
	var failure error
	b := NewBus(BusConfig{
		OnError: func(event, subscriber string, err error) {
			failure = err
		},
	})

	ran := false
	b.Subscribe("e", func(ctx context.Context, name string, payload map[string]any) error {
		panic("handler exploded")
	})
	b.Subscribe("e", func(ctx context.Context, name string, payload map[string]any) error {
		ran = true
		return nil
	})

	assert.NotPanics(t, func() {
		b.Publish(context.Background(), "e", nil)
	})
	assert.True(t, ran)
	require.Error(t, failure)
	assert.Contains(t, failure.Error(), "handler exploded")
}

// TestBus_Unsubscribe tests removal and idempotency.
func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus(BusConfig{})

	count := 0
	sub := b.Subscribe("e", func(ctx context.Context, name string, payload map[string]any) error {
		count++
		return nil
	})

	b.Publish(context.Background(), "e", nil)
	b.Unsubscribe(sub)
	b.Publish(context.Background(), "e", nil)
	assert.Equal(t, 1, count)

	// unsubscribing again is a no-op
	b.Unsubscribe(sub)
	b.Unsubscribe(Subscription{})
	assert.Equal(t, 0, b.SubscriberCount("e"))
}

// TestBus_PublishNoSubscribers tests publishing into silence is fine.
func TestBus_PublishNoSubscribers(t *testing.T) {
	b := NewBus(BusConfig{})
	assert.NotPanics(t, func() {
		b.Publish(context.Background(), "nobody", map[string]any{"x": 1})
	})
}

// TestBus_SnapshotSemantics tests a subscriber added during delivery does
// not receive the in-flight publish.
func TestBus_SnapshotSemantics(t *testing.T) {
	b := NewBus(BusConfig{})

	lateRan := false
	b.Subscribe("e", func(ctx context.Context, name string, payload map[string]any) error {
		b.Subscribe("e", func(ctx context.Context, name string, payload map[string]any) error {
			lateRan = true
			return nil
		})
		return nil
	})

	b.Publish(context.Background(), "e", nil)
	assert.False(t, lateRan)

	b.Publish(context.Background(), "e", nil)
	assert.True(t, lateRan)
}

// TestBus_UnsubscribeDuringDelivery tests removing a later subscription
// mid-publish; the snapshot still delivers to it for the in-flight
// publish, not afterwards.
func TestBus_UnsubscribeDuringDelivery(t *testing.T) {
	b := NewBus(BusConfig{})

	var subs []Subscription
	count := 0
	b.Subscribe("e", func(ctx context.Context, name string, payload map[string]any) error {
		b.Unsubscribe(subs[1])
		return nil
	})
	subs = append(subs, Subscription{})
	subs = append(subs, b.Subscribe("e", func(ctx context.Context, name string, payload map[string]any) error {
		count++
		return nil
	}))

	b.Publish(context.Background(), "e", nil)
	b.Publish(context.Background(), "e", nil)
	assert.Equal(t, 1, count)
}

// TestBus_DropOwner tests all of an owner's subscriptions go at once.
func TestBus_DropOwner(t *testing.T) {
	b := NewBus(BusConfig{})

	count := 0
	handler := func(ctx context.Context, name string, payload map[string]any) error {
		count++
		return nil
	}
	b.SubscribeAs("calc", "a", handler)
	b.SubscribeAs("calc", "b", handler)
	b.SubscribeAs("other", "a", handler)

	b.DropOwner("calc")
	b.Publish(context.Background(), "a", nil)
	b.Publish(context.Background(), "b", nil)
	assert.Equal(t, 1, count)

	// empty owner is a no-op, not a wildcard
	b.DropOwner("")
	assert.Equal(t, 1, b.SubscriberCount("a"))
}

// TestBus_DeadLetterRecording tests failed deliveries land in the store.
func TestBus_DeadLetterRecording(t *testing.T) {
	store := NewMemoryStore(10)
	b := NewBus(BusConfig{DeadLetter: store})

	b.SubscribeAs("flaky", "e", func(ctx context.Context, name string, payload map[string]any) error {
		return fmt.Errorf("nope")
	})
	b.Publish(context.Background(), "e", map[string]any{"k": "v"})

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	failed, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "e", failed[0].Event)
	assert.Equal(t, "flaky", failed[0].Subscriber)
	assert.Equal(t, "nope", failed[0].ErrorMessage)
}

// TestBus_Close tests a closed bus ignores everything.
func TestBus_Close(t *testing.T) {
	b := NewBus(BusConfig{})

	count := 0
	b.Subscribe("e", func(ctx context.Context, name string, payload map[string]any) error {
		count++
		return nil
	})

	require.NoError(t, b.Close())
	b.Publish(context.Background(), "e", nil)
	assert.Equal(t, 0, count)

	sub := b.Subscribe("e", func(ctx context.Context, name string, payload map[string]any) error {
		return nil
	})
	assert.Equal(t, Subscription{}, sub)

	// closing twice is fine
	require.NoError(t, b.Close())
}

// TestBus_ConcurrentPublishSubscribe exercises the subscription table
// under parallel publishers and subscribers.
func TestBus_ConcurrentPublishSubscribe(t *testing.T) {
	b := NewBus(BusConfig{})

	var mu sync.Mutex
	total := 0
	handler := func(ctx context.Context, name string, payload map[string]any) error {
		mu.Lock()
		total++
		mu.Unlock()
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := b.Subscribe("e", handler)
			b.Unsubscribe(sub)
		}()
		go func() {
			defer wg.Done()
			b.Publish(context.Background(), "e", nil)
		}()
	}
	wg.Wait()
}
