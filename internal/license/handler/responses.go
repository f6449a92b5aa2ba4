package handler

import "licensing/internal/license/models"

// IssueResponse is the license plus whether this call created it.
type IssueResponse struct {
	*models.License
	WasCreated bool `json:"was_created"`
	// LegacyWasCreated mirrors WasCreated for the legacy admin panel.
	LegacyWasCreated bool `json:"wasCreated"`
}
