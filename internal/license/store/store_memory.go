package store

import (
	"context"
	"sync"
	"time"

	"licensing/internal/license/models"
	id "licensing/pkg/domain"
	"licensing/pkg/platform/sentinel"
	"licensing/pkg/platform/tx"
)

// InMemory keeps licenses in maps guarded by one mutex. The active and number
// indexes mirror the Postgres unique indexes so both stores fail the same way.
type InMemory struct {
	mu       sync.RWMutex
	licenses map[id.LicenseID]*models.License
	active   map[id.CandidateID]id.LicenseID
	numbers  map[string]id.LicenseID
}

func NewInMemory() *InMemory {
	return &InMemory{
		licenses: make(map[id.LicenseID]*models.License),
		active:   make(map[id.CandidateID]id.LicenseID),
		numbers:  make(map[string]id.LicenseID),
	}
}

// CreateIfAbsent inserts l unless the candidate already holds an active
// license (sentinel.ErrConflict) or the number is taken (models.ErrNumberTaken).
// The check and the insert happen under one lock.
func (s *InMemory) CreateIfAbsent(ctx context.Context, l *models.License) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.licenses[l.ID]; exists {
		return sentinel.ErrConflict
	}
	if _, taken := s.numbers[l.Number]; taken {
		return models.ErrNumberTaken
	}
	if l.Status == models.StatusActive {
		if _, held := s.active[l.CandidateID]; held {
			return sentinel.ErrConflict
		}
		s.active[l.CandidateID] = l.ID
	}
	cp := *l
	s.licenses[l.ID] = &cp
	s.numbers[l.Number] = l.ID
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.licenses, cp.ID)
		delete(s.numbers, cp.Number)
		if s.active[cp.CandidateID] == cp.ID {
			delete(s.active, cp.CandidateID)
		}
	})
	return nil
}

func (s *InMemory) FindByID(_ context.Context, licenseID id.LicenseID) (*models.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.licenses[licenseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *InMemory) FindActive(_ context.Context, candidateID id.CandidateID) (*models.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	licenseID, ok := s.active[candidateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.licenses[licenseID]
	return &cp, nil
}

// Latest returns the most recently issued license of a candidate in any status.
func (s *InMemory) Latest(_ context.Context, candidateID id.CandidateID) (*models.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.License
	for _, l := range s.licenses {
		if l.CandidateID != candidateID {
			continue
		}
		if latest == nil || l.IssuedAt.After(latest.IssuedAt) {
			latest = l
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *InMemory) FindByNumber(_ context.Context, number string) (*models.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	licenseID, ok := s.numbers[number]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.licenses[licenseID]
	return &cp, nil
}

// UpdateStatus stores l's status fields when the stored status still equals
// from (sentinel.ErrInvalidState otherwise).
func (s *InMemory) UpdateStatus(ctx context.Context, l *models.License, from models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.licenses[l.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Status != from {
		return sentinel.ErrInvalidState
	}
	previous := *current
	current.Status = l.Status
	current.RevokedAt = l.RevokedAt
	current.RevocationReason = l.RevocationReason
	if from == models.StatusActive && l.Status != models.StatusActive {
		delete(s.active, l.CandidateID)
	}
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.licenses[previous.ID] = &previous
		if previous.Status == models.StatusActive {
			s.active[previous.CandidateID] = previous.ID
		}
	})
	return nil
}

// CountActive counts licenses that are active and unexpired at now.
func (s *InMemory) CountActive(_ context.Context, now time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, licenseID := range s.active {
		if !s.licenses[licenseID].ExpiredAt(now) {
			n++
		}
	}
	return n, nil
}
