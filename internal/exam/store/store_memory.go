package store

import (
	"context"
	"sort"
	"sync"

	"licensing/internal/exam/models"
	id "licensing/pkg/domain"
	"licensing/pkg/platform/sentinel"
	"licensing/pkg/platform/tx"
)

// InMemory keeps schedules and the append-only result log in maps.
type InMemory struct {
	mu        sync.RWMutex
	schedules map[id.ScheduleID]*models.ExamSchedule
	results   map[id.CandidateID][]*models.ExamResult
}

func NewInMemory() *InMemory {
	return &InMemory{
		schedules: make(map[id.ScheduleID]*models.ExamSchedule),
		results:   make(map[id.CandidateID][]*models.ExamResult),
	}
}

func (s *InMemory) CreateSchedule(ctx context.Context, sch *models.ExamSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.schedules[sch.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *sch
	s.schedules[sch.ID] = &cp
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.schedules, sch.ID)
	})
	return nil
}

func (s *InMemory) FindSchedule(_ context.Context, scheduleID id.ScheduleID) (*models.ExamSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sch, ok := s.schedules[scheduleID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *sch
	return &cp, nil
}

// UpdateScheduleIfUnchanged replaces the stored schedule only while its status
// and examiner still equal the expected values (sentinel.ErrInvalidState otherwise).
func (s *InMemory) UpdateScheduleIfUnchanged(ctx context.Context, updated *models.ExamSchedule, status models.ScheduleStatus, examinerID id.StaffID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.schedules[updated.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Status != status || current.ExaminerID != examinerID {
		return sentinel.ErrInvalidState
	}
	previous := *current
	cp := *updated
	s.schedules[updated.ID] = &cp
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.schedules[previous.ID] = &previous
	})
	return nil
}

func (s *InMemory) ListSchedulesByCandidate(_ context.Context, candidateID id.CandidateID) ([]*models.ExamSchedule, error) {
	return s.filterSchedules(func(sch *models.ExamSchedule) bool { return sch.CandidateID == candidateID }), nil
}

func (s *InMemory) ListSchedulesByStatus(_ context.Context, status models.ScheduleStatus) ([]*models.ExamSchedule, error) {
	return s.filterSchedules(func(sch *models.ExamSchedule) bool { return sch.Status == status }), nil
}

func (s *InMemory) CountSchedulesByStatus(_ context.Context, status models.ScheduleStatus) (int, error) {
	return len(s.filterSchedules(func(sch *models.ExamSchedule) bool { return sch.Status == status })), nil
}

func (s *InMemory) filterSchedules(keep func(*models.ExamSchedule) bool) []*models.ExamSchedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ExamSchedule, 0)
	for _, sch := range s.schedules {
		if keep(sch) {
			cp := *sch
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotAt.Before(out[j].SlotAt) })
	return out
}

func (s *InMemory) AppendResult(ctx context.Context, r *models.ExamResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.results[r.CandidateID] = append(s.results[r.CandidateID], &cp)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.results[r.CandidateID]
		for i, existing := range list {
			if existing.ID == r.ID {
				s.results[r.CandidateID] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	})
	return nil
}

// LatestResult returns the result with the greatest TakenAt for the kind.
// Ties keep the later append.
func (s *InMemory) LatestResult(_ context.Context, candidateID id.CandidateID, kind models.Kind) (*models.ExamResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.ExamResult
	for _, r := range s.results[candidateID] {
		if r.Kind != kind {
			continue
		}
		if latest == nil || !r.TakenAt.Before(latest.TakenAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *InMemory) ListResults(_ context.Context, candidateID id.CandidateID) ([]*models.ExamResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ExamResult, 0, len(s.results[candidateID]))
	for _, r := range s.results[candidateID] {
		cp := *r
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TakenAt.After(out[j].TakenAt) })
	return out, nil
}

// PassRate counts, per candidate, whether the latest result of kind passed.
func (s *InMemory) PassRate(_ context.Context, kind models.Kind) (passed, total int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, list := range s.results {
		var latest *models.ExamResult
		for _, r := range list {
			if r.Kind == kind && (latest == nil || !r.TakenAt.Before(latest.TakenAt)) {
				latest = r
			}
		}
		if latest == nil {
			continue
		}
		total++
		if latest.Passed {
			passed++
		}
	}
	return passed, total, nil
}
