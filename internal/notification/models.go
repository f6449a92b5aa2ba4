// Package notification implements the transactional outbox that carries
// domain events to the notification topic.
package notification

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType names a domain event written to the outbox.
type EventType string

const (
	EventLicenseIssued   EventType = "license_issued"
	EventLicenseRevoked  EventType = "license_revoked"
	EventPaymentVerified EventType = "payment_verified"
	EventPaymentRejected EventType = "payment_rejected"
	EventExamApproved    EventType = "exam_approved"
	EventExamRejected    EventType = "exam_rejected"
	EventExamGraded      EventType = "exam_graded"
)

// Event is one outbox row.
type Event struct {
	ID          uuid.UUID       `json:"id"`
	Type        EventType       `json:"type"`
	AggregateID string          `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}
