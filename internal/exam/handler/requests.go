package handler

import (
	"strings"
	"time"

	"licensing/internal/exam/models"
	dErrors "licensing/pkg/domain-errors"
)

// BookRequest is the body of POST /exams/schedules.
type BookRequest struct {
	CandidateID string    `json:"candidate_id" validate:"omitempty,uuid"`
	Kind        string    `json:"kind" validate:"required,oneof=theory practical"`
	SlotAt      time.Time `json:"slot_at" validate:"required"`
	Location    string    `json:"location" validate:"max=200"`
}

// AdminRequest carries the acting admin for approve.
type AdminRequest struct {
	AdminID string `json:"admin_id" validate:"omitempty,uuid"`
}

// RejectRequest is the body of POST /exams/schedules/{id}/reject.
type RejectRequest struct {
	AdminID string `json:"admin_id" validate:"omitempty,uuid"`
	Reason  string `json:"reason" validate:"required,max=1000"`
}

func (r *RejectRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

// CancelRequest names the cancelling candidate or admin.
type CancelRequest struct {
	ActorID string `json:"actor_id" validate:"omitempty,uuid"`
}

// ExaminerRequest is the body of POST /exams/schedules/{id}/assign.
type ExaminerRequest struct {
	ExaminerID string `json:"examiner_id" validate:"omitempty,uuid"`
}

// BeginRequest is the body of POST /exams/schedules/{id}/begin.
type BeginRequest struct {
	CandidateID string `json:"candidate_id" validate:"omitempty,uuid"`
}

// GradeRequest is the body of POST /exams/schedules/{id}/grade.
type GradeRequest struct {
	ExaminerID string `json:"examiner_id" validate:"omitempty,uuid"`
	Score      *int   `json:"score" validate:"required,min=0,max=100"`
}

// RecordResultRequest is the body of POST /exams/results.
type RecordResultRequest struct {
	AdminID     string    `json:"admin_id" validate:"omitempty,uuid"`
	CandidateID string    `json:"candidate_id" validate:"required,uuid"`
	Kind        string    `json:"kind" validate:"required,oneof=theory practical"`
	Score       *int      `json:"score" validate:"required,min=0,max=100"`
	TakenAt     time.Time `json:"taken_at"`
	Location    string    `json:"location" validate:"max=200"`
	ExaminerID  string    `json:"examiner_id" validate:"omitempty,uuid"`
}

// CandidateExamsResponse is the body of GET /candidates/{candidateID}/exams.
type CandidateExamsResponse struct {
	Schedules []*models.ExamSchedule `json:"schedules"`
	Results   []*models.ExamResult   `json:"results"`
}

// ScheduleListResponse is the body of GET /exams/schedules.
type ScheduleListResponse struct {
	Status    models.ScheduleStatus  `json:"status"`
	Schedules []*models.ExamSchedule `json:"schedules"`
}
