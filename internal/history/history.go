package history

import (
	"context"
	"time"

	"github.com/loykin/bgrun/internal/store"
)

// EventType defines the kind of lifecycle event.
type EventType string

const (
	EventStart EventType = "start"
	EventStop  EventType = "stop"
)

// Event represents a lifecycle event exported to external systems.
type Event struct {
	Type       EventType    `json:"type"`
	OccurredAt time.Time    `json:"occurred_at"`
	Record     store.Record `json:"record"`
}

// Sink is a destination for history events (audit/statistics systems).
// Implementations must be safe for concurrent use. Delivery is best-effort:
// the registry never fails an operation because a sink did.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}
