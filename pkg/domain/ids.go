// Package domain holds the typed identifiers shared by every module.
//
// IDs are distinct named types over uuid.UUID so a CandidateID can never be
// passed where a LicenseID is expected. Parse* functions are the only way to
// build an ID from untrusted input.
package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "licensing/pkg/domain-errors"
)

type (
	CandidateID uuid.UUID
	StaffID     uuid.UUID
	PaymentID   uuid.UUID
	LicenseID   uuid.UUID
	ScheduleID  uuid.UUID
	ResultID    uuid.UUID
)

const maxIDLength = 64

func parseUUID(field, s string) (uuid.UUID, error) {
	if s == "" || strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	if len(s) > maxIDLength || !utf8.ValidString(s) {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is malformed")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be the nil UUID")
	}
	return u, nil
}

func ParseCandidateID(s string) (CandidateID, error) {
	u, err := parseUUID("candidate_id", s)
	return CandidateID(u), err
}

func ParseStaffID(s string) (StaffID, error) {
	u, err := parseUUID("staff_id", s)
	return StaffID(u), err
}

func ParsePaymentID(s string) (PaymentID, error) {
	u, err := parseUUID("payment_id", s)
	return PaymentID(u), err
}

func ParseLicenseID(s string) (LicenseID, error) {
	u, err := parseUUID("license_id", s)
	return LicenseID(u), err
}

func ParseScheduleID(s string) (ScheduleID, error) {
	u, err := parseUUID("schedule_id", s)
	return ScheduleID(u), err
}

func ParseResultID(s string) (ResultID, error) {
	u, err := parseUUID("result_id", s)
	return ResultID(u), err
}

func NewCandidateID() CandidateID { return CandidateID(uuid.New()) }
func NewStaffID() StaffID         { return StaffID(uuid.New()) }
func NewPaymentID() PaymentID     { return PaymentID(uuid.New()) }
func NewLicenseID() LicenseID     { return LicenseID(uuid.New()) }
func NewScheduleID() ScheduleID   { return ScheduleID(uuid.New()) }
func NewResultID() ResultID       { return ResultID(uuid.New()) }

func (id CandidateID) String() string { return uuid.UUID(id).String() }
func (id StaffID) String() string     { return uuid.UUID(id).String() }
func (id PaymentID) String() string   { return uuid.UUID(id).String() }
func (id LicenseID) String() string   { return uuid.UUID(id).String() }
func (id ScheduleID) String() string  { return uuid.UUID(id).String() }
func (id ResultID) String() string    { return uuid.UUID(id).String() }

func (id CandidateID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id StaffID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id PaymentID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id LicenseID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ScheduleID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id ResultID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// Text marshalling keeps JSON output as plain UUID strings.

func (id CandidateID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id StaffID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id PaymentID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id LicenseID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id ScheduleID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id ResultID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }

func (id *CandidateID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = CandidateID(u)
	return err
}

func (id *StaffID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = StaffID(u)
	return err
}

func (id *PaymentID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = PaymentID(u)
	return err
}

func (id *LicenseID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = LicenseID(u)
	return err
}

func (id *ScheduleID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = ScheduleID(u)
	return err
}

func (id *ResultID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = ResultID(u)
	return err
}
