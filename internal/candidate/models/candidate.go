package models

import (
	"strings"
	"time"

	id "licensing/pkg/domain"
	dErrors "licensing/pkg/domain-errors"
	"licensing/pkg/email"
)

const (
	maxNameLength     = 200
	maxPhotoRefLength = 2048
)

// Candidate is a citizen applying for a driving license.
//
// Invariants:
//   - FullName is non-empty and at most 200 characters
//   - Email is a syntactically valid address, stored lower-cased
//   - CreatedAt is immutable after construction
type Candidate struct {
	ID        id.CandidateID `json:"id"`
	FullName  string         `json:"full_name"`
	Email     string         `json:"email"`
	PhotoRef  string         `json:"photo_ref,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewCandidate validates and constructs a Candidate.
func NewCandidate(candidateID id.CandidateID, fullName, rawEmail, photoRef string, now time.Time) (*Candidate, error) {
	fullName = strings.TrimSpace(fullName)
	addr, err := NormalizeEmail(rawEmail)
	if err != nil {
		return nil, err
	}
	if fullName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "full name is required")
	}
	if len(fullName) > maxNameLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "full name must be at most 200 characters")
	}
	photoRef, err = NormalizePhotoRef(photoRef)
	if err != nil {
		return nil, err
	}
	return &Candidate{
		ID:        candidateID,
		FullName:  fullName,
		Email:     addr,
		PhotoRef:  photoRef,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NormalizeEmail trims, lower-cases and checks an address.
func NormalizeEmail(raw string) (string, error) {
	addr, err := email.Normalize(raw)
	if err != nil {
		return "", dErrors.New(dErrors.CodeInvariantViolation, err.Error())
	}
	return addr, nil
}

// NormalizePhotoRef accepts an empty ref, an http(s) URL or a gridfs:<id> ref.
func NormalizePhotoRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}
	if len(ref) > maxPhotoRefLength {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "photo reference is too long")
	}
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "gridfs:") {
		return ref, nil
	}
	return "", dErrors.New(dErrors.CodeInvariantViolation, "photo reference must be an http(s) URL or gridfs:<id>")
}

// ApplyPhoto replaces the photo reference.
func (c *Candidate) ApplyPhoto(ref string, now time.Time) error {
	ref, err := NormalizePhotoRef(ref)
	if err != nil {
		return err
	}
	c.PhotoRef = ref
	c.UpdatedAt = now
	return nil
}
