package event

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FailedDelivery captures one failed handler invocation for later
// inspection or manual replay. The bus records these; it never retries
// them itself — delivery stays fire-and-forget.
type FailedDelivery struct {
	ID           string    `json:"id"`
	Event        string    `json:"event"`
	Subscriber   string    `json:"subscriber"`
	Payload      []byte    `json:"payload"`
	ErrorMessage string    `json:"error_message"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewFailedDelivery builds a FailedDelivery record. The payload is
// serialized best-effort; an unserializable payload is stored empty.
func NewFailedDelivery(event, subscriber string, payload map[string]any, err error) *FailedDelivery {
	data, _ := json.Marshal(payload)
	return &FailedDelivery{
		ID:           uuid.New().String(),
		Event:        event,
		Subscriber:   subscriber,
		Payload:      data,
		ErrorMessage: err.Error(),
		OccurredAt:   time.Now(),
	}
}

// Store persists failed deliveries.
type Store interface {
	// Record adds a failed delivery.
	Record(ctx context.Context, failed *FailedDelivery) error

	// List returns up to limit failed deliveries, oldest first.
	List(ctx context.Context, limit int) ([]*FailedDelivery, error)

	// Acknowledge removes a failed delivery after it has been handled.
	Acknowledge(ctx context.Context, id string) error

	// Count returns the number of stored failures.
	Count(ctx context.Context) (int, error)

	// Close releases the store.
	Close() error
}

// MemoryStore is an in-memory Store, suitable for tests and hosts that
// only want the OnError hook with a bounded recent-failure window.
type MemoryStore struct {
	mu      sync.Mutex
	maxSize int
	records []*FailedDelivery
}

// DefaultMemoryStoreSize bounds the in-memory failure window.
const DefaultMemoryStoreSize = 1000

// NewMemoryStore creates an in-memory store holding at most maxSize
// records; the oldest are evicted first. maxSize <= 0 uses the default.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = DefaultMemoryStoreSize
	}
	return &MemoryStore{maxSize: maxSize}
}

// Record implements Store.
func (s *MemoryStore) Record(_ context.Context, failed *FailedDelivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, failed)
	if len(s.records) > s.maxSize {
		s.records = s.records[len(s.records)-s.maxSize:]
	}
	return nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, limit int) ([]*FailedDelivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]*FailedDelivery, limit)
	copy(out, s.records[:limit])
	return out, nil
}

// Acknowledge implements Store.
func (s *MemoryStore) Acknowledge(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.records {
		if r.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}
