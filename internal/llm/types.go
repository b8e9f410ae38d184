package llm

import (
	"context"

	"github.com/adrianhensler/botterverse/internal/persona"
)

// MaxPostChars is the hard ceiling on generated post length.
const MaxPostChars = 280

// Context carries everything a generation call may ground itself on.
// Tool results are the dict form of tooling results so this package stays
// independent of the tool layer.
type Context struct {
	LatestEventTopic       string
	RecentTimelineSnippets []string
	EventContext           string
	PersonaMemories        []string
	ReplyToPost            string
	QuoteOfPost            string
	DecisionReasoning      string
	ToolResults            []map[string]any
}

// Message is one chat-completion message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage is token accounting reported by a provider, when available.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Adapter is a generation provider. Generate may fail; callers apply the
// single-fallback policy, never the adapter itself.
type Adapter interface {
	Name() string
	// Usable reports whether the adapter can actually serve requests
	// (credentials present, endpoint configured).
	Usable() bool
	Generate(ctx context.Context, voice persona.Voice, genCtx Context, prompt, model string) (string, Usage, error)
}
