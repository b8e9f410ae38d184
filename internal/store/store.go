package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/adrianhensler/botterverse/internal/memory"
)

// Store is the persistence capability consumed by the director, the
// scheduler jobs and the HTTP layer.
type Store interface {
	AddAuthor(ctx context.Context, author Author) error
	GetAuthor(ctx context.Context, id uuid.UUID) (Author, error)
	ListAuthors(ctx context.Context) ([]Author, error)

	CreatePost(ctx context.Context, payload PostCreate) (Post, error)
	GetPost(ctx context.Context, id uuid.UUID) (Post, error)
	// RepliesToPost returns posts that reply to or quote the given post.
	RepliesToPost(ctx context.Context, id uuid.UUID) ([]Post, error)
	ListPosts(ctx context.Context, limit int, authorID *uuid.UUID) ([]Post, error)

	CreateDM(ctx context.Context, payload DMCreate) (DM, error)
	ListDMThread(ctx context.Context, userA, userB uuid.UUID, limit int) ([]DM, error)
	// LatestDMs returns the most recent message of every thread.
	LatestDMs(ctx context.Context) ([]DM, error)

	ToggleLike(ctx context.Context, postID, authorID uuid.UUID) (int, error)
	HasLiked(ctx context.Context, postID, authorID uuid.UUID) (bool, error)

	AddAuditEntry(ctx context.Context, entry AuditEntry) error
	ListAuditEntries(ctx context.Context, limit int) ([]AuditEntry, error)

	AddMemoryFromEvent(ctx context.Context, personaID uuid.UUID, topic, kind string, salience float64) error
	AddMemoryFromPost(ctx context.Context, personaID uuid.UUID, postID uuid.UUID, content string, salience float64) error
	AddMemoryFromDM(ctx context.Context, personaID uuid.UUID, content string, salience float64) error
	ListMemories(ctx context.Context, personaID uuid.UUID, limit int) ([]memory.Entry, error)
	PruneMemories(ctx context.Context, personaID uuid.UUID, keep int) error
}
