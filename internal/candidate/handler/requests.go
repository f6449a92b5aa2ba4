package handler

import (
	"encoding/json"
	"strings"

	"licensing/internal/candidate/models"
	dErrors "licensing/pkg/domain-errors"
)

// RegisterRequest is the body of POST /candidates. Legacy field spellings are
// accepted and folded by models.FromLegacy.
type RegisterRequest struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email,max=254"`
	PhotoRef string `json:"photo_ref" validate:"max=2048"`
}

// UnmarshalJSON routes the body through the legacy normaliser.
func (r *RegisterRequest) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	reg := models.FromLegacy(raw)
	r.FullName, r.Email, r.PhotoRef = reg.FullName, reg.Email, reg.PhotoRef
	return nil
}

func (r *RegisterRequest) Validate() error {
	r.FullName = strings.TrimSpace(r.FullName)
	if r.FullName == "" {
		return dErrors.New(dErrors.CodeValidation, "full_name is required")
	}
	return nil
}

func (r *RegisterRequest) ToRegistration() models.Registration {
	return models.Registration{FullName: r.FullName, Email: r.Email, PhotoRef: r.PhotoRef}
}

// UpdatePhotoRequest is the body of PUT /candidates/{candidateID}/photo.
type UpdatePhotoRequest struct {
	PhotoRef string `json:"photo_ref" validate:"max=2048"`
}
