package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/baanfurniture/storefront-backend/pkg/enums"
)

// ActorRef is the user whose request produced the event. Nil for events
// raised by background jobs.
type ActorRef struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and published
// verbatim as the message body.
type PayloadEnvelope struct {
	Version     int                   `json:"version"`
	EventID     string                `json:"event_id"`
	EventType   enums.OutboxEventType `json:"event_type"`
	AggregateID uuid.UUID             `json:"aggregate_id"`
	OccurredAt  time.Time             `json:"occurred_at"`
	Actor       *ActorRef             `json:"actor,omitempty"`
	Data        json.RawMessage       `json:"data"`
}
