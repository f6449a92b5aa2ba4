package models

import (
	"strings"
	"time"

	id "licensing/pkg/domain"
	dErrors "licensing/pkg/domain-errors"
)

// ScheduleStatus is the lifecycle state of an exam booking.
type ScheduleStatus string

const (
	StatusScheduled ScheduleStatus = "scheduled"
	StatusApproved  ScheduleStatus = "approved"
	StatusRejected  ScheduleStatus = "rejected"
	StatusCompleted ScheduleStatus = "completed"
	StatusCancelled ScheduleStatus = "cancelled"
)

var scheduleTransitions = map[ScheduleStatus][]ScheduleStatus{
	StatusScheduled: {StatusApproved, StatusRejected},
	StatusApproved:  {StatusCompleted, StatusCancelled},
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s ScheduleStatus) CanTransitionTo(next ScheduleStatus) bool {
	for _, allowed := range scheduleTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist.
func (s ScheduleStatus) IsTerminal() bool {
	return len(scheduleTransitions[s]) == 0
}

func ParseScheduleStatus(s string) (ScheduleStatus, error) {
	st := ScheduleStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusScheduled, StatusApproved, StatusRejected, StatusCompleted, StatusCancelled:
		return st, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown schedule status")
}

// Window is the period around SlotAt in which a candidate may begin an exam.
type Window struct {
	OpensBefore time.Duration
	ClosesAfter time.Duration
}

// Contains reports whether now lies in [slot-OpensBefore, slot+ClosesAfter].
func (w Window) Contains(slot, now time.Time) bool {
	return !now.Before(slot.Add(-w.OpensBefore)) && !now.After(slot.Add(w.ClosesAfter))
}

// ExamSchedule is a booked exam slot.
//
// Transitions:
//
//	scheduled -> approved | rejected   (admin)
//	approved  -> completed             (assigned examiner grades)
//	approved  -> cancelled             (admin or owning candidate)
//
// rejected, completed and cancelled are terminal.
type ExamSchedule struct {
	ID           id.ScheduleID  `json:"id"`
	CandidateID  id.CandidateID `json:"candidate_id"`
	Kind         Kind           `json:"kind"`
	SlotAt       time.Time      `json:"slot_at"`
	Location     string         `json:"location,omitempty"`
	Status       ScheduleStatus `json:"status"`
	ExaminerID   id.StaffID     `json:"examiner_id"`
	AdminMessage string         `json:"admin_message,omitempty"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	ResultID     id.ResultID    `json:"result_id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewSchedule books a slot in the scheduled state.
func NewSchedule(candidateID id.CandidateID, kind Kind, slotAt time.Time, location string, now time.Time) (*ExamSchedule, error) {
	if slotAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "slot_at is required")
	}
	if slotAt.Before(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "slot_at must be in the future")
	}
	return &ExamSchedule{
		ID:          id.NewScheduleID(),
		CandidateID: candidateID,
		Kind:        kind,
		SlotAt:      slotAt.UTC(),
		Location:    strings.TrimSpace(location),
		Status:      StatusScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *ExamSchedule) transition(next ScheduleStatus, now time.Time) error {
	if !s.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvalidState, "schedule is "+string(s.Status)+", cannot become "+string(next))
	}
	s.Status = next
	s.UpdatedAt = now
	return nil
}

func (s *ExamSchedule) Approve(now time.Time) error {
	return s.transition(StatusApproved, now)
}

// Reject requires a reason, which is kept as the admin message.
func (s *ExamSchedule) Reject(reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return dErrors.New(dErrors.CodeValidation, "a rejection reason is required")
	}
	if err := s.transition(StatusRejected, now); err != nil {
		return err
	}
	s.AdminMessage = reason
	return nil
}

func (s *ExamSchedule) Cancel(now time.Time) error {
	return s.transition(StatusCancelled, now)
}

// AssignExaminer sets the examiner once; reassignment is not allowed.
func (s *ExamSchedule) AssignExaminer(examinerID id.StaffID, now time.Time) error {
	if s.Status != StatusApproved {
		return dErrors.New(dErrors.CodeInvalidState, "only approved schedules can be assigned")
	}
	if !s.ExaminerID.IsNil() {
		if s.ExaminerID == examinerID {
			return nil
		}
		return dErrors.New(dErrors.CodeConflict, "schedule already has an examiner")
	}
	s.ExaminerID = examinerID
	s.UpdatedAt = now
	return nil
}

// Begin records the candidate starting the exam inside the window.
func (s *ExamSchedule) Begin(candidateID id.CandidateID, now time.Time, w Window) error {
	if s.CandidateID != candidateID {
		return dErrors.New(dErrors.CodeForbidden, "schedule belongs to another candidate")
	}
	if s.Status != StatusApproved {
		return dErrors.New(dErrors.CodeInvalidState, "schedule is "+string(s.Status)+", not approved")
	}
	if !w.Contains(s.SlotAt, now) {
		return dErrors.New(dErrors.CodeOutOfWindow, "exam can only begin between "+
			s.SlotAt.Add(-w.OpensBefore).Format(time.RFC3339)+" and "+s.SlotAt.Add(w.ClosesAfter).Format(time.RFC3339))
	}
	if s.StartedAt == nil {
		started := now
		s.StartedAt = &started
		s.UpdatedAt = now
	}
	return nil
}

// Grade completes the schedule and produces its result. Only the assigned
// examiner may grade.
func (s *ExamSchedule) Grade(examinerID id.StaffID, score, threshold int, now time.Time) (*ExamResult, error) {
	if s.Status != StatusApproved {
		return nil, dErrors.New(dErrors.CodeInvalidState, "schedule is "+string(s.Status)+", not approved")
	}
	if s.ExaminerID.IsNil() || s.ExaminerID != examinerID {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the assigned examiner may grade this exam")
	}
	result, err := NewResult(s.CandidateID, s.Kind, score, threshold, now, s.Location, examinerID, s.ID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(StatusCompleted, now); err != nil {
		return nil, err
	}
	s.ResultID = result.ID
	return result, nil
}
