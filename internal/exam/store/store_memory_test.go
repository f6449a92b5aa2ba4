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

	"licensing/internal/exam/models"
	id "licensing/pkg/domain"
	"licensing/pkg/platform/sentinel"
	"licensing/pkg/platform/tx"
)

type InMemoryExamStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestInMemoryExamStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryExamStoreSuite))
}

func (s *InMemoryExamStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
}

func (s *InMemoryExamStoreSuite) result(cid id.CandidateID, kind models.Kind, score int, at time.Time) *models.ExamResult {
	r, err := models.NewResult(cid, kind, score, 50, at, "", id.NewStaffID(), id.ScheduleID{})
	s.Require().NoError(err)
	return r
}

func (s *InMemoryExamStoreSuite) TestLatestResultByTakenAt() {
	cid := id.NewCandidateID()
	s.Require().NoError(s.store.AppendResult(s.ctx, s.result(cid, models.KindTheory, 90, s.now.Add(time.Hour))))
	// appended later but taken earlier
	s.Require().NoError(s.store.AppendResult(s.ctx, s.result(cid, models.KindTheory, 10, s.now)))

	latest, err := s.store.LatestResult(s.ctx, cid, models.KindTheory)
	s.Require().NoError(err)
	s.Equal(90, latest.Score)

	_, err = s.store.LatestResult(s.ctx, cid, models.KindPractical)
	s.ErrorIs(err, sentinel.ErrNotFound)

	all, err := s.store.ListResults(s.ctx, cid)
	s.Require().NoError(err)
	s.Len(all, 2)
	s.Equal(90, all[0].Score)
}

func (s *InMemoryExamStoreSuite) TestPassRateUsesLatestPerCandidate() {
	a, b := id.NewCandidateID(), id.NewCandidateID()
	s.Require().NoError(s.store.AppendResult(s.ctx, s.result(a, models.KindTheory, 20, s.now)))
	s.Require().NoError(s.store.AppendResult(s.ctx, s.result(a, models.KindTheory, 80, s.now.Add(time.Hour))))
	s.Require().NoError(s.store.AppendResult(s.ctx, s.result(b, models.KindTheory, 30, s.now)))

	passed, total, err := s.store.PassRate(s.ctx, models.KindTheory)
	s.Require().NoError(err)
	s.Equal(1, passed)
	s.Equal(2, total)
}

func (s *InMemoryExamStoreSuite) TestConditionalUpdate() {
	sch, err := models.NewSchedule(id.NewCandidateID(), models.KindTheory, s.now.Add(24*time.Hour), "", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateSchedule(s.ctx, sch))

	stale := *sch
	s.Require().NoError(sch.Approve(s.now))
	s.Require().NoError(s.store.UpdateScheduleIfUnchanged(s.ctx, sch, models.StatusScheduled, id.StaffID{}))

	s.Require().NoError(stale.Reject("late", s.now))
	err = s.store.UpdateScheduleIfUnchanged(s.ctx, &stale, models.StatusScheduled, id.StaffID{})
	s.ErrorIs(err, sentinel.ErrInvalidState)

	got, err := s.store.FindSchedule(s.ctx, sch.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, got.Status)
}

func (s *InMemoryExamStoreSuite) TestRollbackRestoresScheduleAndDropsResult() {
	runner := tx.NewShardedRunner(time.Second)
	sch, err := models.NewSchedule(id.NewCandidateID(), models.KindTheory, s.now.Add(time.Hour), "", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateSchedule(s.ctx, sch))

	err = runner.RunInTx(s.ctx, func(ctx context.Context) error {
		updated := *sch
		s.Require().NoError(updated.Approve(s.now))
		s.Require().NoError(s.store.UpdateScheduleIfUnchanged(ctx, &updated, models.StatusScheduled, id.StaffID{}))
		s.Require().NoError(s.store.AppendResult(ctx, s.result(sch.CandidateID, models.KindTheory, 60, s.now)))
		return errors.New("abort")
	})
	s.Require().Error(err)

	got, err := s.store.FindSchedule(s.ctx, sch.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusScheduled, got.Status)
	_, err = s.store.LatestResult(s.ctx, sch.CandidateID, models.KindTheory)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func TestConcurrentSelfAssignment(t *testing.T) {
	st := NewInMemory()
	ctx := context.Background()
	now := time.Now().UTC()
	sch, err := models.NewSchedule(id.NewCandidateID(), models.KindPractical, now.Add(time.Hour), "", now)
	require.NoError(t, err)
	require.NoError(t, sch.Approve(now))
	require.NoError(t, st.CreateSchedule(ctx, sch))

	var won atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cp, err := st.FindSchedule(ctx, sch.ID)
			require.NoError(t, err)
			prevExaminer := cp.ExaminerID
			if cp.AssignExaminer(id.NewStaffID(), now) != nil {
				return
			}
			if st.UpdateScheduleIfUnchanged(ctx, cp, models.StatusApproved, prevExaminer) == nil {
				won.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), won.Load())
}
