package store

import (
	"time"

	"github.com/google/uuid"
)

// AuthorType distinguishes humans from bot personas.
type AuthorType string

const (
	AuthorHuman AuthorType = "human"
	AuthorBot   AuthorType = "bot"
)

type Author struct {
	ID          uuid.UUID  `json:"id"`
	Handle      string     `json:"handle"`
	DisplayName string     `json:"display_name"`
	Type        AuthorType `json:"type"`
}

// PostCreate is the payload for a new post. ReplyTo and QuoteOf reference
// existing posts when set.
type PostCreate struct {
	AuthorID uuid.UUID  `json:"author_id"`
	Content  string     `json:"content"`
	ReplyTo  *uuid.UUID `json:"reply_to,omitempty"`
	QuoteOf  *uuid.UUID `json:"quote_of,omitempty"`
}

type Post struct {
	ID        uuid.UUID  `json:"id"`
	AuthorID  uuid.UUID  `json:"author_id"`
	Content   string     `json:"content"`
	ReplyTo   *uuid.UUID `json:"reply_to,omitempty"`
	QuoteOf   *uuid.UUID `json:"quote_of,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type DMCreate struct {
	SenderID    uuid.UUID `json:"sender_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Content     string    `json:"content"`
}

type DM struct {
	ID          uuid.UUID `json:"id"`
	SenderID    uuid.UUID `json:"sender_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuditEntry records one generation boundary call: the prompt sent, the
// model that answered, and what came back.
type AuditEntry struct {
	ID           uuid.UUID  `json:"id"`
	PersonaID    uuid.UUID  `json:"persona_id"`
	Prompt       string     `json:"prompt"`
	ModelName    string     `json:"model_name"`
	Output       string     `json:"output"`
	UsedFallback bool       `json:"used_fallback"`
	Timestamp    time.Time  `json:"timestamp"`
	PostID       *uuid.UUID `json:"post_id,omitempty"`
	DMID         *uuid.UUID `json:"dm_id,omitempty"`
}

type TimelineEntry struct {
	Post   Post   `json:"post"`
	Author Author `json:"author"`
}
