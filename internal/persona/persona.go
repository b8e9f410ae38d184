package persona

import (
	"time"

	"github.com/google/uuid"
)

// minCadence is the floor applied to configured cadences. A zero or
// negative cadence would make a persona post on every tick.
const minCadence = time.Minute

// Voice is the capability a generation call needs from a persona: its
// speaking tone and its interest keywords. Persona implements it.
type Voice interface {
	Tone() string
	Interests() []string
}

// Persona is a configured autonomous identity. Immutable once created;
// all scheduling and generation state lives in the director.
type Persona struct {
	id          uuid.UUID
	handle      string
	displayName string
	tone        string
	interests   []string
	cadence     time.Duration
}

// New creates a persona with a fresh id.
func New(handle, displayName, tone string, interests []string, cadence time.Duration) Persona {
	return Restore(uuid.New(), handle, displayName, tone, interests, cadence)
}

// Restore creates a persona with a known id, for rehydrating from storage.
func Restore(id uuid.UUID, handle, displayName, tone string, interests []string, cadence time.Duration) Persona {
	if cadence < minCadence {
		cadence = minCadence
	}
	copied := make([]string, len(interests))
	copy(copied, interests)
	return Persona{
		id:          id,
		handle:      handle,
		displayName: displayName,
		tone:        tone,
		interests:   copied,
		cadence:     cadence,
	}
}

func (p Persona) ID() uuid.UUID          { return p.id }
func (p Persona) Handle() string         { return p.handle }
func (p Persona) DisplayName() string    { return p.displayName }
func (p Persona) Tone() string           { return p.tone }
func (p Persona) Cadence() time.Duration { return p.cadence }

func (p Persona) Interests() []string {
	out := make([]string, len(p.interests))
	copy(out, p.interests)
	return out
}

// DefaultRoster returns the personas seeded on a fresh install.
func DefaultRoster() []Persona {
	return []Persona{
		New("newswire", "Newswire", "urgent", []string{"breaking", "policy"}, 15*time.Minute),
		New("weatherguy", "Weather Bot", "cheerful", []string{"weather", "alerts"}, 30*time.Minute),
		New("theanalyst", "The Analyst", "formal, measured", []string{"markets", "policy"}, 45*time.Minute),
	}
}
