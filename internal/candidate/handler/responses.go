package handler

import (
	"time"

	"licensing/internal/candidate/models"
)

type CandidateResponse struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	PhotoRef  string    `json:"photo_ref,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toResponse(c *models.Candidate) CandidateResponse {
	return CandidateResponse{
		ID:        c.ID.String(),
		FullName:  c.FullName,
		Email:     c.Email,
		PhotoRef:  c.PhotoRef,
		CreatedAt: c.CreatedAt,
	}
}
