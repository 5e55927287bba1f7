// Package notify reconciles the computed reminder plan against whatever the
// notification delivery collaborator already has scheduled. It is the only
// part of the module that performs I/O.
package notify

import (
	"context"
	"time"
)

// Payload is the user-visible content handed to the delivery collaborator,
// JSON-encoded on the wire so transports stay interchangeable.
type Payload struct {
	Type     string    `json:"type"`
	EntityID string    `json:"entity_id"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	FireAt   time.Time `json:"fire_at"`
}

// Delivery is the notification collaborator. Once a reminder is handed over,
// delivery is its responsibility: the engine guarantees dedup and timing of
// the hand-off, not arrival. Timeouts, if any, belong behind this interface.
type Delivery interface {
	// Schedule registers a pending reminder under its dedupe key and returns
	// a collaborator-assigned delivery id.
	Schedule(ctx context.Context, dedupeKey string, fireAt time.Time, payload []byte) (string, error)

	// Cancel withdraws the pending reminder with the given dedupe key.
	Cancel(ctx context.Context, dedupeKey string) error

	// ListScheduled returns the dedupe keys of all currently pending
	// reminders.
	ListScheduled(ctx context.Context) ([]string, error)
}
