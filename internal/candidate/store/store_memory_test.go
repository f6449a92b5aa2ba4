package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"licensing/internal/candidate/models"
	id "licensing/pkg/domain"
	"licensing/pkg/platform/sentinel"
	"licensing/pkg/platform/tx"
)

type InMemoryCandidateStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestInMemoryCandidateStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryCandidateStoreSuite))
}

func (s *InMemoryCandidateStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
}

func (s *InMemoryCandidateStoreSuite) newCandidate(email string) *models.Candidate {
	c, err := models.NewCandidate(id.NewCandidateID(), "Ana", email, "", s.now)
	s.Require().NoError(err)
	return c
}

func (s *InMemoryCandidateStoreSuite) TestCreateAndFind() {
	c := s.newCandidate("ana@example.com")
	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, c))

	got, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c.Email, got.Email)

	byEmail, err := s.store.FindByEmail(s.ctx, "ana@example.com")
	s.Require().NoError(err)
	s.Equal(c.ID, byEmail.ID)

	_, err = s.store.FindByID(s.ctx, id.NewCandidateID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryCandidateStoreSuite) TestDuplicateEmailConflicts() {
	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, s.newCandidate("dup@example.com")))
	err := s.store.CreateIfEmailAvailable(s.ctx, s.newCandidate("dup@example.com"))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *InMemoryCandidateStoreSuite) TestReturnedCopiesAreIsolated() {
	c := s.newCandidate("iso@example.com")
	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, c))
	got, _ := s.store.FindByID(s.ctx, c.ID)
	got.FullName = "mutated"
	again, _ := s.store.FindByID(s.ctx, c.ID)
	s.Equal("Ana", again.FullName)
}

func (s *InMemoryCandidateStoreSuite) TestRollbackRemovesInsert() {
	runner := tx.NewShardedRunner(time.Second)
	c := s.newCandidate("rolled@example.com")
	err := runner.RunInTx(s.ctx, func(ctx context.Context) error {
		s.Require().NoError(s.store.CreateIfEmailAvailable(ctx, c))
		return errors.New("abort")
	})
	s.Require().Error(err)
	_, err = s.store.FindByID(s.ctx, c.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func TestConcurrentRegistrationSameEmail(t *testing.T) {
	st := NewInMemory()
	now := time.Now()
	var created atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := models.NewCandidate(id.NewCandidateID(), "Racer", "race@example.com", "", now)
			require.NoError(t, err)
			if st.CreateIfEmailAvailable(context.Background(), c) == nil {
				created.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), created.Load())
	n, _ := st.Count(context.Background())
	assert.Equal(t, 1, n)
}
