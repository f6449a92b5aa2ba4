package store

import (
	"context"
	"strings"
	"sync"

	"licensing/internal/staff/models"
	id "licensing/pkg/domain"
	"licensing/pkg/platform/sentinel"
)

// InMemory is a map-backed staff store.
type InMemory struct {
	mu      sync.RWMutex
	staff   map[id.StaffID]*models.Staff
	byEmail map[string]id.StaffID
}

func NewInMemory() *InMemory {
	return &InMemory{
		staff:   make(map[id.StaffID]*models.Staff),
		byEmail: make(map[string]id.StaffID),
	}
}

func (s *InMemory) CreateIfEmailAvailable(_ context.Context, st *models.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(st.Email)
	if _, taken := s.byEmail[key]; taken {
		return sentinel.ErrConflict
	}
	cp := *st
	s.staff[st.ID] = &cp
	s.byEmail[key] = st.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, staffID id.StaffID) (*models.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.staff[staffID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sid, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.staff[sid]
	return &cp, nil
}
