package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"licensing/internal/license/models"
	id "licensing/pkg/domain"
	"licensing/pkg/platform/sentinel"
	"licensing/pkg/platform/tx"
)

type InMemoryLicenseStoreSuite struct {
	suite.Suite
	store  *InMemory
	ctx    context.Context
	now    time.Time
	serial int64
}

func TestInMemoryLicenseStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryLicenseStoreSuite))
}

func (s *InMemoryLicenseStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	s.serial = 0
}

func (s *InMemoryLicenseStoreSuite) license(cid id.CandidateID) *models.License {
	s.serial++
	l, err := models.NewLicense(models.Issuance{
		CandidateID:   cid,
		Number:        models.FormatNumber("ID", 2025, s.serial),
		Class:         "B",
		IssuedBy:      id.NewStaffID(),
		PaymentID:     id.NewPaymentID(),
		IssuedAt:      s.now,
		ValidityYears: 10,
		Points:        12,
	})
	s.Require().NoError(err)
	return l
}

func (s *InMemoryLicenseStoreSuite) TestOneActivePerCandidate() {
	cid := id.NewCandidateID()
	first := s.license(cid)
	s.Require().NoError(s.store.CreateIfAbsent(s.ctx, first))

	err := s.store.CreateIfAbsent(s.ctx, s.license(cid))
	s.ErrorIs(err, sentinel.ErrConflict)

	active, err := s.store.FindActive(s.ctx, cid)
	s.Require().NoError(err)
	s.Equal(first.Number, active.Number)

	byNumber, err := s.store.FindByNumber(s.ctx, first.Number)
	s.Require().NoError(err)
	s.Equal(first.ID, byNumber.ID)
}

func (s *InMemoryLicenseStoreSuite) TestNumberCollision() {
	a := s.license(id.NewCandidateID())
	s.Require().NoError(s.store.CreateIfAbsent(s.ctx, a))

	b := s.license(id.NewCandidateID())
	b.Number = a.Number
	s.ErrorIs(s.store.CreateIfAbsent(s.ctx, b), models.ErrNumberTaken)

	_, err := s.store.FindActive(s.ctx, b.CandidateID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryLicenseStoreSuite) TestRollbackRemovesInsert() {
	runner := tx.NewShardedRunner(time.Second)
	l := s.license(id.NewCandidateID())

	err := runner.RunInTx(s.ctx, func(ctx context.Context) error {
		s.Require().NoError(s.store.CreateIfAbsent(ctx, l))
		return errors.New("later step failed")
	})
	s.Require().Error(err)

	_, err = s.store.FindByID(s.ctx, l.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByNumber(s.ctx, l.Number)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.NoError(s.store.CreateIfAbsent(s.ctx, l), "the active slot is free again")
}

func (s *InMemoryLicenseStoreSuite) TestRevocationFreesActiveSlot() {
	cid := id.NewCandidateID()
	l := s.license(cid)
	s.Require().NoError(s.store.CreateIfAbsent(s.ctx, l))

	revoked := *l
	s.Require().NoError(revoked.Revoke("fraud", s.now))
	s.Require().NoError(s.store.UpdateStatus(s.ctx, &revoked, models.StatusActive))
	s.ErrorIs(s.store.UpdateStatus(s.ctx, &revoked, models.StatusActive), sentinel.ErrInvalidState)

	_, err := s.store.FindActive(s.ctx, cid)
	s.ErrorIs(err, sentinel.ErrNotFound)

	next := s.license(cid)
	next.IssuedAt = s.now.Add(time.Hour)
	s.Require().NoError(s.store.CreateIfAbsent(s.ctx, next))

	latest, err := s.store.Latest(s.ctx, cid)
	s.Require().NoError(err)
	s.Equal(next.ID, latest.ID)
}

func (s *InMemoryLicenseStoreSuite) TestCountActiveSkipsExpired() {
	s.Require().NoError(s.store.CreateIfAbsent(s.ctx, s.license(id.NewCandidateID())))
	s.Require().NoError(s.store.CreateIfAbsent(s.ctx, s.license(id.NewCandidateID())))

	n, err := s.store.CountActive(s.ctx, s.now)
	s.Require().NoError(err)
	s.Equal(2, n)

	n, err = s.store.CountActive(s.ctx, s.now.AddDate(10, 0, 0))
	s.Require().NoError(err)
	s.Equal(0, n)
}

func (s *InMemoryLicenseStoreSuite) TestConcurrentCreateKeepsOne() {
	cid := id.NewCandidateID()
	const workers = 16
	var (
		wg      sync.WaitGroup
		created atomic.Int32
	)
	licenses := make([]*models.License, workers)
	for i := range licenses {
		licenses[i] = s.license(cid)
	}
	for _, l := range licenses {
		wg.Add(1)
		go func(l *models.License) {
			defer wg.Done()
			if s.store.CreateIfAbsent(s.ctx, l) == nil {
				created.Add(1)
			}
		}(l)
	}
	wg.Wait()
	s.Equal(int32(1), created.Load())
}
