package handler

import (
	"strings"

	dErrors "licensing/pkg/domain-errors"
)

// SubmitRequest is the body of POST /payments.
type SubmitRequest struct {
	CandidateID string `json:"candidate_id" validate:"omitempty,uuid"`
	Amount      int64  `json:"amount" validate:"required,min=1"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
	Reference   string `json:"reference" validate:"max=200"`
}

// VerifyRequest is the body of POST /payments/{paymentID}/verify.
type VerifyRequest struct {
	AdminID string `json:"admin_id" validate:"omitempty,uuid"`
}

// RejectRequest is the body of POST /payments/{paymentID}/reject.
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
