package director

import (
	"time"

	"github.com/google/uuid"

	"github.com/adrianhensler/botterverse/internal/store"
)

// BotEvent is an external happening the director may route to personas.
// Events are append-only history; the kind is an opaque category tag.
type BotEvent struct {
	ID        uuid.UUID      `json:"id"`
	Topic     string         `json:"topic"`
	Kind      string         `json:"kind"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewEvent builds an event stamped now. An empty kind becomes "generic".
func NewEvent(topic, kind string, payload map[string]any) BotEvent {
	if kind == "" {
		kind = "generic"
	}
	return BotEvent{
		ID:        uuid.New(),
		Topic:     topic,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

// ScheduledReaction is a pending humanized-delay response to an event.
// It is honored at most once and removed from the pending pool when taken.
type ScheduledReaction struct {
	Event       BotEvent
	PersonaID   uuid.UUID
	ScheduledAt time.Time
}

// Planned-post kinds, used for bookkeeping and metrics.
const (
	KindPost     = "post"
	KindReaction = "reaction"
	KindReply    = "reply"
	KindQuote    = "quote"
	KindDM       = "dm"
)

// PlannedPost is an action proposal: the post payload to persist plus the
// audit record of the generation that produced it. The director plans,
// the caller persists.
type PlannedPost struct {
	Post  store.PostCreate
	Kind  string
	Audit *store.AuditEntry
}
