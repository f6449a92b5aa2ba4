package store

import (
	"context"
	"sync"
	"time"

	"licensing/internal/payment/models"
	id "licensing/pkg/domain"
	"licensing/pkg/platform/sentinel"
	"licensing/pkg/platform/tx"
)

// InMemory is a map-backed payment store. seq records insert order so
// Latest agrees with the Postgres store on submitted_at ties.
type InMemory struct {
	mu       sync.RWMutex
	payments map[id.PaymentID]*models.Payment
	seq      map[id.PaymentID]uint64
	next     uint64
}

func NewInMemory() *InMemory {
	return &InMemory{
		payments: make(map[id.PaymentID]*models.Payment),
		seq:      make(map[id.PaymentID]uint64),
	}
}

func (s *InMemory) Create(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.payments[p.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *p
	s.payments[p.ID] = &cp
	s.next++
	s.seq[p.ID] = s.next
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.payments, p.ID)
		delete(s.seq, p.ID)
	})
	return nil
}

func (s *InMemory) FindByID(_ context.Context, paymentID id.PaymentID) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// Latest returns the most recently submitted payment of a candidate. Equal
// submission times resolve to the later insert.
func (s *InMemory) Latest(_ context.Context, candidateID id.CandidateID) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Payment
	for _, p := range s.payments {
		if p.CandidateID != candidateID {
			continue
		}
		if latest == nil || p.SubmittedAt.After(latest.SubmittedAt) ||
			(p.SubmittedAt.Equal(latest.SubmittedAt) && s.seq[p.ID] > s.seq[latest.ID]) {
			latest = p
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

// UpdateReviewIfPending stores a verify or reject decision while the payment
// is still pending (sentinel.ErrInvalidState otherwise).
func (s *InMemory) UpdateReviewIfPending(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.payments[p.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Status != models.StatusPending {
		return sentinel.ErrInvalidState
	}
	previous := *current
	current.Status = p.Status
	current.VerifiedAt = p.VerifiedAt
	current.VerifiedBy = p.VerifiedBy
	current.RejectionReason = p.RejectionReason
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.payments[previous.ID] = &previous
	})
	return nil
}

func (s *InMemory) SetGateway(_ context.Context, paymentID id.PaymentID, token, redirect string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return sentinel.ErrNotFound
	}
	p.GatewayToken = token
	p.GatewayRedirect = redirect
	return nil
}

// ConsumeIfVerified links the payment to licenseID when it is verified, owned
// by candidateID and unused. A used payment is sentinel.ErrAlreadyUsed; any
// other mismatch is sentinel.ErrInvalidState.
func (s *InMemory) ConsumeIfVerified(ctx context.Context, paymentID id.PaymentID, candidateID id.CandidateID, licenseID id.LicenseID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return sentinel.ErrNotFound
	}
	switch {
	case p.IsConsumed():
		return sentinel.ErrAlreadyUsed
	case p.Status != models.StatusVerified, p.CandidateID != candidateID:
		return sentinel.ErrInvalidState
	}
	p.ConsumedByLicense = licenseID
	consumedAt := at
	p.ConsumedAt = &consumedAt
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if cur, ok := s.payments[paymentID]; ok && cur.ConsumedByLicense == licenseID {
			cur.ConsumedByLicense = id.LicenseID{}
			cur.ConsumedAt = nil
		}
	})
	return nil
}

func (s *InMemory) CountByStatus(_ context.Context, status models.Status) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.payments {
		if p.Status == status {
			n++
		}
	}
	return n, nil
}
