package director

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "botterverse_director_ticks_total",
		Help: "Number of director planning ticks executed",
	})
	plannedPostsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botterverse_director_planned_posts_total",
		Help: "Planned posts by kind (post, reaction, reply, quote)",
	}, []string{"kind"})
	eventsRegisteredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botterverse_director_events_registered_total",
		Help: "Events registered with the director by kind",
	}, []string{"kind"})
	reactionsScheduledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "botterverse_director_reactions_scheduled_total",
		Help: "Persona reactions scheduled from registered events",
	})
	replyDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botterverse_director_reply_decisions_total",
		Help: "Reply decisions by outcome (yes, no)",
	}, []string{"outcome"})
	generationFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botterverse_director_generation_fallbacks_total",
		Help: "Generation degradations by step (provider, template)",
	}, []string{"step"})
)
