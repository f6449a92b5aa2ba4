package models

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	id "licensing/pkg/domain"
	dErrors "licensing/pkg/domain-errors"
)

// Status is the stored lifecycle state of a license. Expiry is derived on
// read, so a stored license stays active until it is revoked or renewed.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"
)

// Class is the vehicle category a license covers.
type Class string

var validClasses = map[Class]struct{}{
	"A": {}, "A1": {}, "B": {}, "B1": {}, "B2": {}, "C": {}, "D": {}, "E": {},
}

// ParseClass normalises a requested class, falling back to def when empty.
func ParseClass(raw, def string) (Class, error) {
	c := Class(strings.ToUpper(strings.TrimSpace(raw)))
	if c == "" {
		c = Class(strings.ToUpper(strings.TrimSpace(def)))
	}
	if _, ok := validClasses[c]; !ok {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("license class %q is not recognised", raw))
	}
	return c, nil
}

// ErrNumberTaken is returned by stores when a generated number collides with
// an existing license.
var ErrNumberTaken = errors.New("license number already assigned")

const serialDigits = 8

var (
	serialSpace   = big.NewInt(100_000_000)
	numberPattern = regexp.MustCompile(`^DL-[A-Z]{2,6}-\d{4}-\d{8}$`)
)

// FormatNumber renders DL-<JUR>-<YYYY>-<8 digits>.
func FormatNumber(jurisdiction string, year int, serial int64) string {
	return fmt.Sprintf("DL-%s-%04d-%0*d", strings.ToUpper(jurisdiction), year, serialDigits, serial)
}

// ValidNumber reports whether s is a well formed license number.
func ValidNumber(s string) bool {
	return numberPattern.MatchString(s)
}

// NumberGenerator produces candidate license numbers. Uniqueness is enforced
// by the store; the generator only needs to spread values.
type NumberGenerator func(jurisdiction string, year int) (string, error)

// RandomNumber draws the serial from crypto/rand.
func RandomNumber(jurisdiction string, year int) (string, error) {
	n, err := rand.Int(rand.Reader, serialSpace)
	if err != nil {
		return "", fmt.Errorf("draw license serial: %w", err)
	}
	return FormatNumber(jurisdiction, year, n.Int64()), nil
}

// License is a driving license held by a candidate.
//
// Invariants:
//   - ExpiresAt = IssuedAt.AddDate(validityYears, 0, 0), both in UTC
//   - at most one license per candidate has Status active
//   - PaymentID names the verified payment consumed to fund it
type License struct {
	ID               id.LicenseID   `json:"id"`
	CandidateID      id.CandidateID `json:"candidate_id"`
	Number           string         `json:"number"`
	Class            Class          `json:"class"`
	IssuedAt         time.Time      `json:"issued_at"`
	ExpiresAt        time.Time      `json:"expires_at"`
	Status           Status         `json:"status"`
	Points           int            `json:"points"`
	IssuedBy         id.StaffID     `json:"issued_by"`
	AdminNotes       string         `json:"admin_notes,omitempty"`
	PaymentID        id.PaymentID   `json:"payment_id"`
	RevokedAt        *time.Time     `json:"revoked_at,omitempty"`
	RevocationReason string         `json:"revocation_reason,omitempty"`
}

// Issuance carries everything needed to mint a license.
type Issuance struct {
	CandidateID   id.CandidateID
	Number        string
	Class         Class
	IssuedBy      id.StaffID
	AdminNotes    string
	PaymentID     id.PaymentID
	IssuedAt      time.Time
	ValidityYears int
	Points        int
}

// NewLicense validates an issuance and returns an active license.
func NewLicense(in Issuance) (*License, error) {
	if in.CandidateID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "candidate_id is required")
	}
	if in.PaymentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "a funding payment is required")
	}
	if !ValidNumber(in.Number) {
		return nil, dErrors.New(dErrors.CodeValidation, "license number is malformed")
	}
	if in.ValidityYears <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "validity period must be positive")
	}
	if in.Points <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "initial points must be positive")
	}
	if in.IssuedAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "issue time is required")
	}
	issued := in.IssuedAt.UTC()
	return &License{
		ID:          id.NewLicenseID(),
		CandidateID: in.CandidateID,
		Number:      in.Number,
		Class:       in.Class,
		IssuedAt:    issued,
		ExpiresAt:   ExpiryFor(issued, in.ValidityYears),
		Status:      StatusActive,
		Points:      in.Points,
		IssuedBy:    in.IssuedBy,
		AdminNotes:  strings.TrimSpace(in.AdminNotes),
		PaymentID:   in.PaymentID,
	}, nil
}

// ExpiryFor adds whole calendar years in UTC. February 29 rolls to March 1
// in non-leap years, following time.AddDate normalisation.
func ExpiryFor(issuedAt time.Time, years int) time.Time {
	return issuedAt.UTC().AddDate(years, 0, 0)
}

// ExpiredAt reports whether the license has passed its expiry at now.
func (l *License) ExpiredAt(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// EffectiveStatus derives the status a caller observes at now.
func (l *License) EffectiveStatus(now time.Time) Status {
	if l.Status == StatusActive && l.ExpiredAt(now) {
		return StatusExpired
	}
	return l.Status
}

// AsOf returns a copy whose Status is the effective status at now.
func (l *License) AsOf(now time.Time) *License {
	cp := *l
	cp.Status = l.EffectiveStatus(now)
	return &cp
}

// Revoke ends an active license.
func (l *License) Revoke(reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return dErrors.New(dErrors.CodeValidation, "a revocation reason is required")
	}
	if l.Status != StatusActive {
		return dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("license is %s", l.Status))
	}
	at := now.UTC()
	l.Status = StatusRevoked
	l.RevokedAt = &at
	l.RevocationReason = reason
	return nil
}

// Expire records an elapsed license so a renewal can take the active slot.
func (l *License) Expire(now time.Time) error {
	if l.Status != StatusActive || !l.ExpiredAt(now) {
		return dErrors.New(dErrors.CodeInvalidState, "license has not expired")
	}
	l.Status = StatusExpired
	return nil
}
