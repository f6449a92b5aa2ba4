package models

import (
	"strings"
	"time"

	id "licensing/pkg/domain"
	dErrors "licensing/pkg/domain-errors"
)

// Role is a staff member's permission level.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleExaminer Role = "examiner"
	// RoleCandidate is never stored on a Staff record; it appears only in tokens.
	RoleCandidate Role = "candidate"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleExaminer
}

// ParseRole validates a stored staff role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "role must be admin or examiner")
	}
	return r, nil
}

// Staff is an administrator or examiner. Admin and examiner ids in requests
// resolve to Staff records.
type Staff struct {
	ID           id.StaffID `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	PasswordHash string     `json:"-"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Can reports whether the staff member is active and holds role.
func (s *Staff) Can(role Role) bool {
	return s.Active && s.Role == role
}
