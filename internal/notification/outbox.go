package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"licensing/pkg/requestcontext"
)

// Store appends outbox rows and lets the worker drain them.
type Store interface {
	Append(ctx context.Context, event Event) error
	FetchUnpublished(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Outbox is the write side used by domain services. Emit joins whatever
// transaction is bound to ctx.
type Outbox struct {
	store Store
}

func NewOutbox(store Store) *Outbox {
	return &Outbox{store: store}
}

// Emit appends an event with a JSON payload.
func (o *Outbox) Emit(ctx context.Context, eventType EventType, aggregateID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return o.store.Append(ctx, Event{
		ID:          uuid.New(),
		Type:        eventType,
		AggregateID: aggregateID,
		Payload:     body,
		CreatedAt:   requestcontext.Now(ctx).UTC(),
	})
}
