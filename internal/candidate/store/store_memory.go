package store

import (
	"context"
	"sync"
	"time"

	"licensing/internal/candidate/models"
	id "licensing/pkg/domain"
	"licensing/pkg/platform/sentinel"
	"licensing/pkg/platform/tx"
)

// InMemory is a map-backed candidate store.
type InMemory struct {
	mu         sync.RWMutex
	candidates map[id.CandidateID]*models.Candidate
	byEmail    map[string]id.CandidateID
}

func NewInMemory() *InMemory {
	return &InMemory{
		candidates: make(map[id.CandidateID]*models.Candidate),
		byEmail:    make(map[string]id.CandidateID),
	}
}

// CreateIfEmailAvailable inserts c unless its email is taken (sentinel.ErrConflict).
func (s *InMemory) CreateIfEmailAvailable(ctx context.Context, c *models.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[c.Email]; taken {
		return sentinel.ErrConflict
	}
	cp := *c
	s.candidates[c.ID] = &cp
	s.byEmail[c.Email] = c.ID
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.candidates, c.ID)
		delete(s.byEmail, c.Email)
	})
	return nil
}

func (s *InMemory) FindByID(_ context.Context, candidateID id.CandidateID) (*models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.candidates[candidateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cid, ok := s.byEmail[email]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.candidates[cid]
	return &cp, nil
}

func (s *InMemory) UpdatePhoto(_ context.Context, candidateID id.CandidateID, ref string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[candidateID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.PhotoRef = ref
	c.UpdatedAt = now
	return nil
}

func (s *InMemory) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.candidates), nil
}
