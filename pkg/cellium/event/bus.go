package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Handler processes one event delivery. A handler's error is recorded and
// isolated; it never reaches the publisher.
type Handler func(ctx context.Context, name string, payload map[string]any) error

// Subscription is the handle returned by Subscribe, usable for
// Unsubscribe. The zero value is inert.
type Subscription struct {
	id    string
	event string
}

// Event returns the event name this subscription listens to.
func (s Subscription) Event() string {
	return s.event
}

// BusConfig configures bus behavior.
type BusConfig struct {
	// OnError is called when a handler returns an error or panics.
	OnError func(event, subscriber string, err error)

	// DeadLetter records failed deliveries, if set.
	DeadLetter Store

	// Logger for delivery diagnostics. Nil disables logging.
	Logger *slog.Logger
}

// Bus is the in-process publish/subscribe channel.
//
// Delivery is synchronous: Publish runs every matching handler on the
// caller's goroutine, in subscription order, and returns when the last
// handler finishes. One handler's failure does not prevent the others
// from running. The subscriber set is snapshotted when Publish begins, so
// a subscriber added during delivery does not receive that delivery.
type Bus struct {
	config BusConfig

	mu     sync.RWMutex
	subs   map[string][]*entry // event name -> handlers in subscription order
	byID   map[string]*entry
	closed bool
}

type entry struct {
	id    string
	event string
	owner string
	fn    Handler
}

// NewBus creates a new bus.
func NewBus(config BusConfig) *Bus {
	return &Bus{
		config: config,
		subs:   make(map[string][]*entry),
		byID:   make(map[string]*entry),
	}
}

// Subscribe registers a handler for an event name and returns its handle.
func (b *Bus) Subscribe(event string, fn Handler) Subscription {
	return b.SubscribeAs("", event, fn)
}

// SubscribeAs registers a handler on behalf of a named owner. All of an
// owner's subscriptions can be dropped at once with DropOwner; the kernel
// uses this to guarantee a torn-down cell is never invoked again.
func (b *Bus) SubscribeAs(owner, event string, fn Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || fn == nil {
		return Subscription{}
	}

	e := &entry{
		id:    uuid.New().String(),
		event: event,
		owner: owner,
		fn:    fn,
	}
	b.subs[event] = append(b.subs[event], e)
	b.byID[e.id] = e

	return Subscription{id: e.id, event: event}
}

// Unsubscribe removes a subscription. It is idempotent: unknown or
// already-removed handles are a no-op.
func (b *Bus) Unsubscribe(sub Subscription) {
	if sub.id == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.byID[sub.id]
	if !ok {
		return
	}
	delete(b.byID, sub.id)
	b.subs[e.event] = remove(b.subs[e.event], sub.id)
}

// DropOwner removes every subscription registered under owner.
func (b *Bus) DropOwner(owner string) {
	if owner == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for id, e := range b.byID {
		if e.owner != owner {
			continue
		}
		delete(b.byID, id)
		b.subs[e.event] = remove(b.subs[e.event], id)
	}
}

// Publish delivers payload to every handler currently subscribed to
// event, in subscription order, on the caller's goroutine. Handler
// failures are recorded and isolated. Publishing with no subscribers is
// not an error.
func (b *Bus) Publish(ctx context.Context, event string, payload map[string]any) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	snapshot := make([]*entry, len(b.subs[event]))
	copy(snapshot, b.subs[event])
	b.mu.RUnlock()

	for _, e := range snapshot {
		b.deliver(ctx, e, event, payload)
	}
}

// deliver runs one handler, converting a panic into a recorded failure.
func (b *Bus) deliver(ctx context.Context, e *entry, event string, payload map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			b.recordFailure(ctx, e, event, payload, &panicError{value: r})
		}
	}()

	if err := e.fn(ctx, event, payload); err != nil {
		b.recordFailure(ctx, e, event, payload, err)
	}
}

func (b *Bus) recordFailure(ctx context.Context, e *entry, event string, payload map[string]any, err error) {
	subscriber := e.owner
	if subscriber == "" {
		subscriber = e.id
	}

	if b.config.Logger != nil {
		b.config.Logger.Error("event handler failed",
			slog.String("event", event),
			slog.String("subscriber", subscriber),
			slog.String("error", err.Error()),
		)
	}

	if b.config.DeadLetter != nil {
		failed := NewFailedDelivery(event, subscriber, payload, err)
		if storeErr := b.config.DeadLetter.Record(ctx, failed); storeErr != nil && b.config.Logger != nil {
			b.config.Logger.Warn("dead letter record failed",
				slog.String("event", event),
				slog.String("error", storeErr.Error()),
			)
		}
	}

	if b.config.OnError != nil {
		b.config.OnError(event, subscriber, err)
	}
}

// SubscriberCount returns the number of handlers subscribed to event.
func (b *Bus) SubscriberCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[event])
}

// Close clears all subscriptions. Publish and Subscribe become no-ops.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.subs = make(map[string][]*entry)
	b.byID = make(map[string]*entry)
	return nil
}

func remove(list []*entry, id string) []*entry {
	for i, e := range list {
		if e.id == id {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

type panicError struct {
	value any
}

func (p *panicError) Error() string {
	return fmt.Sprintf("handler panic: %v", p.value)
}
