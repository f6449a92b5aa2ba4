package eligibility

import (
	"time"

	exammodels "licensing/internal/exam/models"
	paymentmodels "licensing/internal/payment/models"
	id "licensing/pkg/domain"
)

// Requirement names one precondition of license issuance.
type Requirement string

const (
	RequirementTheory    Requirement = "theory_exam_passed"
	RequirementPractical Requirement = "practical_exam_passed"
	RequirementPayment   Requirement = "payment_verified"
)

// ResultSnapshot is the part of the authoritative exam result a verdict shows.
type ResultSnapshot struct {
	ResultID id.ResultID     `json:"result_id"`
	Kind     exammodels.Kind `json:"kind"`
	Score    int             `json:"score"`
	Passed   bool            `json:"passed"`
	TakenAt  time.Time       `json:"taken_at"`
	Location string          `json:"location,omitempty"`
}

// Verdict is the outcome of an eligibility evaluation. Eligible holds exactly
// when all three requirement flags hold.
type Verdict struct {
	CandidateID     id.CandidateID  `json:"candidate_id"`
	TheoryPassed    bool            `json:"theory_passed"`
	PracticalPassed bool            `json:"practical_passed"`
	PaymentVerified bool            `json:"payment_verified"`
	Eligible        bool            `json:"eligible"`
	Theory          *ResultSnapshot `json:"theory,omitempty"`
	Practical       *ResultSnapshot `json:"practical,omitempty"`
	PaymentID       id.PaymentID    `json:"payment_id"`
	PaymentStatus   string          `json:"payment_status,omitempty"`
	Unmet           []Requirement   `json:"unmet"`
	EvaluatedAt     time.Time       `json:"evaluated_at"`
}

// Evidence is the raw input gathered for one evaluation. Nil fields mean the
// record does not exist.
type Evidence struct {
	Theory    *exammodels.ExamResult
	Practical *exammodels.ExamResult
	Payment   *paymentmodels.Payment
	Latencies EvidenceLatencies
}

// EvidenceLatencies records how long each source took.
type EvidenceLatencies struct {
	Theory    time.Duration
	Practical time.Duration
	Payment   time.Duration
}
