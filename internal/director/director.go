// Package director is the decision engine: per tick it decides which
// persona acts, what kind of action it takes (new post, event reaction,
// reply, quote), and with what generation context. All mutable state sits
// behind one mutex; the lock is never held across model or network calls.
package director

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adrianhensler/botterverse/internal/memory"
	"github.com/adrianhensler/botterverse/internal/persona"
	"github.com/adrianhensler/botterverse/internal/tooling"
	"github.com/adrianhensler/botterverse/pkg/logging"
)

const (
	// Reaction delays are drawn from a window of 2-10 minutes chosen once
	// per event, so reactions land spread out rather than in a burst.
	reactionWindowMin = 2 * time.Minute
	reactionWindowMax = 10 * time.Minute

	// Cadence jitter factor: each gate check uses cadence * (1 ± 0.2).
	cadenceJitter = 0.2

	defaultQuoteChance = 0.3

	memoryContextSize   = 5
	memoryFetchLimit    = 50
	timelineSnippetSize = 5
)

// Config wires a Director. Personas are fixed for the director's lifetime.
type Config struct {
	Personas    []persona.Persona
	Routes      map[string][]string
	QuoteChance float64
	Tools       *tooling.Router
	Logger      logging.Logger
	Seed        int64
}

type Director struct {
	personas    []persona.Persona
	routes      map[string][]string
	quoteChance float64
	tools       *tooling.Router
	logger      logging.Logger
	ranker      memory.Ranker

	mu           sync.Mutex
	events       []BotEvent
	pending      []ScheduledReaction
	lastPostedAt map[uuid.UUID]time.Time
	replied      map[uuid.UUID]map[uuid.UUID]struct{}
	rng          *rand.Rand
}

func New(cfg Config) *Director {
	routes := cfg.Routes
	if routes == nil {
		routes = DefaultRoutes()
	}
	quoteChance := cfg.QuoteChance
	if quoteChance <= 0 || quoteChance >= 1 {
		quoteChance = defaultQuoteChance
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Director{
		personas:     cfg.Personas,
		routes:       routes,
		quoteChance:  quoteChance,
		tools:        cfg.Tools,
		logger:       cfg.Logger,
		ranker:       memory.NewRanker(),
		lastPostedAt: make(map[uuid.UUID]time.Time),
		replied:      make(map[uuid.UUID]map[uuid.UUID]struct{}),
		rng:          rand.New(rand.NewSource(seed)),
	}
}

// Personas returns the registered personas in registration order.
func (d *Director) Personas() []persona.Persona {
	out := make([]persona.Persona, len(d.personas))
	copy(out, d.personas)
	return out
}

func (d *Director) PersonaByID(id uuid.UUID) (persona.Persona, bool) {
	for _, p := range d.personas {
		if p.ID() == id {
			return p, true
		}
	}
	return persona.Persona{}, false
}

func (d *Director) PersonaByHandle(handle string) (persona.Persona, bool) {
	for _, p := range d.personas {
		if strings.EqualFold(p.Handle(), handle) {
			return p, true
		}
	}
	return persona.Persona{}, false
}

// RegisterEvent appends the event to history and schedules one reaction
// for every matching persona at CreatedAt + U(0, W).
func (d *Director) RegisterEvent(event BotEvent) {
	matched := d.matchPersonas(event)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.events = append(d.events, event)
	eventsRegisteredTotal.WithLabelValues(event.Kind).Inc()
	if len(matched) == 0 {
		return
	}

	window := reactionWindowMin +
		time.Duration(d.rng.Float64()*float64(reactionWindowMax-reactionWindowMin))
	for _, p := range matched {
		delay := time.Duration(d.rng.Float64() * float64(window))
		d.pending = append(d.pending, ScheduledReaction{
			Event:       event,
			PersonaID:   p.ID(),
			ScheduledAt: event.CreatedAt.Add(delay),
		})
		reactionsScheduledTotal.Inc()
	}

	if d.logger != nil {
		d.logger.WithFields(logging.Fields{
			"event_kind": event.Kind,
			"topic":      event.Topic,
			"reactions":  len(matched),
		}).Info("Event registered")
	}
}

// Events returns a copy of the event history.
func (d *Director) Events() []BotEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]BotEvent, len(d.events))
	copy(out, d.events)
	return out
}

// LatestTopic is the topic of the most recent event, or a neutral default.
func (d *Director) LatestTopic() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.latestTopicLocked()
}

func (d *Director) latestTopicLocked() string {
	if len(d.events) == 0 {
		return "the timeline"
	}
	return d.events[len(d.events)-1].Topic
}

// takeDueReactions extracts at most one due reaction per persona (earliest
// encountered wins); taken reactions leave the pending pool, the rest stay.
func (d *Director) takeDueReactions(now time.Time) map[uuid.UUID]ScheduledReaction {
	d.mu.Lock()
	defer d.mu.Unlock()

	due := make(map[uuid.UUID]ScheduledReaction)
	remaining := d.pending[:0]
	for _, reaction := range d.pending {
		if reaction.ScheduledAt.After(now) {
			remaining = append(remaining, reaction)
			continue
		}
		if _, taken := due[reaction.PersonaID]; taken {
			remaining = append(remaining, reaction)
			continue
		}
		due[reaction.PersonaID] = reaction
	}
	d.pending = remaining
	return due
}

// cadenceReady applies the jittered cadence gate. A persona that has never
// posted is always ready.
func (d *Director) cadenceReady(p persona.Persona, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	last, posted := d.lastPostedAt[p.ID()]
	if !posted {
		return true
	}
	jitter := 1 + (d.rng.Float64()*2-1)*cadenceJitter
	window := time.Duration(float64(p.Cadence()) * jitter)
	return now.Sub(last) >= window
}

// advanceLastPosted moves the persona's last-post marker forward, never back.
func (d *Director) advanceLastPosted(personaID uuid.UUID, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.lastPostedAt[personaID]; ok && existing.After(now) {
		return
	}
	d.lastPostedAt[personaID] = now
}

// LastPostedAt reports when the persona last posted through the director.
func (d *Director) LastPostedAt(personaID uuid.UUID) (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.lastPostedAt[personaID]
	return t, ok
}

func (d *Director) hasReplied(personaID, postID uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.replied[personaID][postID]
	return ok
}

func (d *Director) markReplied(personaID, postID uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.replied[personaID]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		d.replied[personaID] = set
	}
	set[postID] = struct{}{}
}

func (d *Director) isPersona(id uuid.UUID) bool {
	_, ok := d.PersonaByID(id)
	return ok
}

func (d *Director) roll() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Float64()
}
