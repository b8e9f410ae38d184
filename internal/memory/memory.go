package memory

import (
	"time"

	"github.com/google/uuid"
)

// Source tags where a memory came from.
type Source string

const (
	SourcePost    Source = "post"
	SourceDM      Source = "dm"
	SourceEvent   Source = "event"
	SourceSummary Source = "summary"
)

// Entry is one remembered fact in a persona's append-only memory log.
type Entry struct {
	ID        uuid.UUID
	PersonaID uuid.UUID
	Content   string
	Tags      []string
	Salience  float64
	CreatedAt time.Time
	Source    Source
}
