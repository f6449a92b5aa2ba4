package models

import (
	"strings"
	"time"

	id "licensing/pkg/domain"
	dErrors "licensing/pkg/domain-errors"
)

// Kind is the exam type.
type Kind string

const (
	KindTheory    Kind = "theory"
	KindPractical Kind = "practical"
)

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k != KindTheory && k != KindPractical {
		return "", dErrors.New(dErrors.CodeValidation, "kind must be theory or practical")
	}
	return k, nil
}

// ExamResult is an immutable, append-only exam outcome. For each candidate and
// kind the result with the latest TakenAt is authoritative.
type ExamResult struct {
	ID          id.ResultID    `json:"id"`
	CandidateID id.CandidateID `json:"candidate_id"`
	Kind        Kind           `json:"kind"`
	Score       int            `json:"score"`
	Passed      bool           `json:"passed"`
	TakenAt     time.Time      `json:"taken_at"`
	Location    string         `json:"location,omitempty"`
	ExaminerID  id.StaffID     `json:"examiner_id"`
	ScheduleID  id.ScheduleID  `json:"schedule_id"`
}

// NewResult validates the score and derives Passed from threshold.
func NewResult(candidateID id.CandidateID, kind Kind, score, threshold int, takenAt time.Time, location string, examinerID id.StaffID, scheduleID id.ScheduleID) (*ExamResult, error) {
	if score < 0 || score > 100 {
		return nil, dErrors.New(dErrors.CodeValidation, "score must be between 0 and 100")
	}
	return &ExamResult{
		ID:          id.NewResultID(),
		CandidateID: candidateID,
		Kind:        kind,
		Score:       score,
		Passed:      score >= threshold,
		TakenAt:     takenAt,
		Location:    strings.TrimSpace(location),
		ExaminerID:  examinerID,
		ScheduleID:  scheduleID,
	}, nil
}
