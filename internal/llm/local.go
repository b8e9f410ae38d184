package llm

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/adrianhensler/botterverse/internal/persona"
)

// LocalProviderName is the deterministic offline provider. It needs no
// network or credentials and never fails, so it is always a safe fallback.
const LocalProviderName = "local-stub"

// LocalModelName is the model name reported for locally generated text.
const LocalModelName = "local-stub"

var localTemplates = []string{
	"%[1]s - my take as someone who follows %[2]s.",
	"Watching %[1]s unfold. %[3]s",
	"Hot take: %[1]s. #thoughts",
	"Just saw: %[1]s. %[3]s",
	"Breaking: %[1]s. This matters for %[2]s watchers.",
	"%[3]s Can't ignore %[1]s today.",
	"Thread on %[1]s: %[3]s",
	"Quick thought on %[1]s from a %[2]s perspective.",
}

var localReactions = []string{
	"Interesting development.",
	"This changes things.",
	"Worth watching.",
	"Big if true.",
	"Not surprised.",
	"Didn't see that coming.",
	"Here we go again.",
	"Important context needed.",
}

// LocalAdapter fills persona templates with topic, interest and a canned
// reaction.
type LocalAdapter struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewLocalAdapter() *LocalAdapter {
	return &LocalAdapter{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewLocalAdapterWithSeed fixes the random source, for tests.
func NewLocalAdapterWithSeed(seed int64) *LocalAdapter {
	return &LocalAdapter{rng: rand.New(rand.NewSource(seed))}
}

func (a *LocalAdapter) Name() string { return LocalProviderName }

func (a *LocalAdapter) Usable() bool { return true }

func (a *LocalAdapter) Generate(_ context.Context, voice persona.Voice, genCtx Context, _ string, _ string) (string, Usage, error) {
	topic := genCtx.LatestEventTopic
	if topic == "" {
		topic = "the timeline"
	}
	interest := "current events"
	if interests := voice.Interests(); len(interests) > 0 {
		interest = interests[a.intn(len(interests))]
	}
	reaction := localReactions[a.intn(len(localReactions))]
	template := localTemplates[a.intn(len(localTemplates))]
	text := fmt.Sprintf(template, topic, interest, reaction)

	if snippet := firstSnippet(genCtx); snippet != "" && strings.Contains(template, "Watching") {
		text = text + " Seeing: " + snippet
	}
	return text, Usage{}, nil
}

func (a *LocalAdapter) intn(n int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.Intn(n)
}

func firstSnippet(genCtx Context) string {
	if len(genCtx.RecentTimelineSnippets) == 0 {
		return ""
	}
	return genCtx.RecentTimelineSnippets[0]
}
