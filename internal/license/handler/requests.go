package handler

import (
	"strings"

	dErrors "licensing/pkg/domain-errors"
)

// IssueRequest is the body of POST /license/issue/{id}. The camelCase keys
// are accepted for clients of the legacy admin panel.
type IssueRequest struct {
	AdminID            string `json:"admin_id" validate:"omitempty,uuid"`
	AdminNotes         string `json:"admin_notes" validate:"max=2000"`
	LicenseClass       string `json:"license_class" validate:"max=4"`
	LegacyAdminID      string `json:"adminId" validate:"omitempty,uuid"`
	LegacyAdminNotes   string `json:"adminNotes" validate:"max=2000"`
	LegacyLicenseClass string `json:"licenseClass" validate:"max=4"`
}

// Validate folds the legacy keys into the canonical ones.
func (r *IssueRequest) Validate() error {
	var err error
	if r.AdminID, err = merge("admin_id", r.AdminID, r.LegacyAdminID); err != nil {
		return err
	}
	if r.LicenseClass, err = merge("license_class", r.LicenseClass, r.LegacyLicenseClass); err != nil {
		return err
	}
	if r.AdminNotes, err = merge("admin_notes", r.AdminNotes, r.LegacyAdminNotes); err != nil {
		return err
	}
	return nil
}

func merge(field, canonical, legacy string) (string, error) {
	canonical, legacy = strings.TrimSpace(canonical), strings.TrimSpace(legacy)
	switch {
	case canonical == "":
		return legacy, nil
	case legacy != "" && !strings.EqualFold(canonical, legacy):
		return "", dErrors.New(dErrors.CodeValidation, field+" is given twice with different values")
	default:
		return canonical, nil
	}
}

// RevokeRequest is the body of POST /license/{licenseID}/revoke.
type RevokeRequest struct {
	AdminID string `json:"admin_id" validate:"omitempty,uuid"`
	Reason  string `json:"reason" validate:"required,max=1000"`
}
