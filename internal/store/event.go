package store

import (
	"context"
	"sync"

	"github.com/efreitasn/ledgerauction/internal/domain"
	"github.com/efreitasn/ledgerauction/internal/pubkey"
)

// EventStore is a thread-safe in-memory store of committed auction events,
// keyed by resource. Events are append-only and chronological.
type EventStore struct {
	mu     sync.RWMutex
	events map[pubkey.PublicKey][]domain.Event // resource → events (chronological)
}

// NewEventStore creates an empty EventStore.
func NewEventStore() *EventStore {
	return &EventStore{
		events: make(map[pubkey.PublicKey][]domain.Event),
	}
}

// Record appends an event to its resource's chronological list.
func (s *EventStore) Record(_ context.Context, ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[ev.Resource] = append(s.events[ev.Resource], ev)
	return nil
}

// ListByResource returns all events for a resource in chronological order.
// Returns an empty slice if no events exist for the resource.
func (s *EventStore) ListByResource(resource pubkey.PublicKey) []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.events[resource]
	result := make([]domain.Event, len(events))
	copy(result, events)
	return result
}
