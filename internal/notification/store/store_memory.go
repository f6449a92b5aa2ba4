package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"licensing/internal/notification"
	"licensing/pkg/platform/tx"
)

// InMemory keeps outbox rows in insertion order.
type InMemory struct {
	mu     sync.Mutex
	events []notification.Event
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(ctx context.Context, event notification.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.events {
			if s.events[i].ID == event.ID {
				s.events = append(s.events[:i], s.events[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (s *InMemory) FetchUnpublished(_ context.Context, limit int) ([]notification.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notification.Event
	for _, e := range s.events {
		if e.PublishedAt != nil {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemory) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for i := range s.events {
		if _, ok := set[s.events[i].ID]; ok && s.events[i].PublishedAt == nil {
			s.events[i].PublishedAt = &now
		}
	}
	return nil
}

// All returns a snapshot of every row, published or not.
func (s *InMemory) All() []notification.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notification.Event, len(s.events))
	copy(out, s.events)
	return out
}
