package eligibility

import (
	"time"

	exammodels "licensing/internal/exam/models"
	id "licensing/pkg/domain"
)

// Derive is the single eligibility rule.
func Derive(theoryPassed, practicalPassed, paymentVerified bool) bool {
	return theoryPassed && practicalPassed && paymentVerified
}

// BuildVerdict turns gathered evidence into a verdict. Missing records count
// as unmet requirements. Pure: no I/O, no clock.
func BuildVerdict(candidateID id.CandidateID, ev *Evidence, evaluatedAt time.Time) *Verdict {
	v := &Verdict{
		CandidateID: candidateID,
		Theory:      snapshot(ev.Theory),
		Practical:   snapshot(ev.Practical),
		Unmet:       []Requirement{},
		EvaluatedAt: evaluatedAt,
	}
	v.TheoryPassed = v.Theory != nil && v.Theory.Passed
	v.PracticalPassed = v.Practical != nil && v.Practical.Passed
	if ev.Payment != nil {
		v.PaymentID = ev.Payment.ID
		v.PaymentStatus = string(ev.Payment.Status)
		v.PaymentVerified = ev.Payment.Usable()
	}
	v.Eligible = Derive(v.TheoryPassed, v.PracticalPassed, v.PaymentVerified)

	if !v.TheoryPassed {
		v.Unmet = append(v.Unmet, RequirementTheory)
	}
	if !v.PracticalPassed {
		v.Unmet = append(v.Unmet, RequirementPractical)
	}
	if !v.PaymentVerified {
		v.Unmet = append(v.Unmet, RequirementPayment)
	}
	return v
}

func snapshot(r *exammodels.ExamResult) *ResultSnapshot {
	if r == nil {
		return nil
	}
	return &ResultSnapshot{
		ResultID: r.ID,
		Kind:     r.Kind,
		Score:    r.Score,
		Passed:   r.Passed,
		TakenAt:  r.TakenAt,
		Location: r.Location,
	}
}
