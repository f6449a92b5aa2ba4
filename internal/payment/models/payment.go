package models

import (
	"strings"
	"time"

	id "licensing/pkg/domain"
	dErrors "licensing/pkg/domain-errors"
)

// Status is the review state of a payment.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

// DefaultCurrency applies when a submission names none.
const DefaultCurrency = "IDR"

// Payment is a licence fee submitted by a candidate and reviewed by an admin.
// A verified payment is consumed by at most one license.
type Payment struct {
	ID                id.PaymentID   `json:"id"`
	CandidateID       id.CandidateID `json:"candidate_id"`
	Amount            int64          `json:"amount"`
	Currency          string         `json:"currency"`
	Status            Status         `json:"status"`
	Reference         string         `json:"reference,omitempty"`
	SubmittedAt       time.Time      `json:"submitted_at"`
	VerifiedAt        *time.Time     `json:"verified_at,omitempty"`
	VerifiedBy        id.StaffID     `json:"verified_by"`
	RejectionReason   string         `json:"rejection_reason,omitempty"`
	ConsumedByLicense id.LicenseID   `json:"consumed_by_license"`
	ConsumedAt        *time.Time     `json:"consumed_at,omitempty"`
	GatewayToken      string         `json:"gateway_token,omitempty"`
	GatewayRedirect   string         `json:"gateway_redirect,omitempty"`
}

// NewPayment validates a submission and returns it pending.
func NewPayment(candidateID id.CandidateID, amount int64, currency, reference string, now time.Time) (*Payment, error) {
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	if len(currency) != 3 {
		return nil, dErrors.New(dErrors.CodeValidation, "currency must be a three-letter code")
	}
	return &Payment{
		ID:          id.NewPaymentID(),
		CandidateID: candidateID,
		Amount:      amount,
		Currency:    currency,
		Status:      StatusPending,
		Reference:   strings.TrimSpace(reference),
		SubmittedAt: now,
	}, nil
}

// IsConsumed reports whether a license already used this payment.
func (p *Payment) IsConsumed() bool {
	return !p.ConsumedByLicense.IsNil()
}

// Usable reports whether the payment can back a new license.
func (p *Payment) Usable() bool {
	return p.Status == StatusVerified && !p.IsConsumed()
}

// Verify marks a pending payment verified.
func (p *Payment) Verify(adminID id.StaffID, now time.Time) error {
	if p.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvalidState, "payment is already "+string(p.Status))
	}
	p.Status = StatusVerified
	p.VerifiedBy = adminID
	p.VerifiedAt = &now
	return nil
}

// Reject marks a pending payment rejected with a reason.
func (p *Payment) Reject(adminID id.StaffID, reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return dErrors.New(dErrors.CodeValidation, "a rejection reason is required")
	}
	if p.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvalidState, "payment is already "+string(p.Status))
	}
	p.Status = StatusRejected
	p.VerifiedBy = adminID
	p.VerifiedAt = &now
	p.RejectionReason = reason
	return nil
}
