package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adrianhensler/botterverse/internal/persona"
	"github.com/adrianhensler/botterverse/pkg/logging"
)

const generateTimeout = 30 * time.Second

// FailureKind enumerates the degradation steps a generation call can take.
type FailureKind int

const (
	// FailureNone means the primary route answered.
	FailureNone FailureKind = iota
	// FailurePrimary means the primary provider failed and the fallback
	// route answered.
	FailurePrimary
	// FailureFallback means both providers failed and the deterministic
	// template was used.
	FailureFallback
)

// GenerationResult is the audited outcome of one generation call.
type GenerationResult struct {
	Output       string
	Prompt       string
	ModelName    string
	Tier         string
	Provider     string
	UsedFallback bool
	Failure      FailureKind
	Usage        Usage
}

// Client is the generation boundary: it routes a call, applies exactly one
// provider fallback, and degrades to a deterministic template so callers
// never see an error.
type Client struct {
	router *ModelRouter
	logger logging.Logger
}

func NewClient(router *ModelRouter, logger logging.Logger) *Client {
	return &Client{router: router, logger: logger}
}

// Router exposes the underlying model router for tool selection.
func (c *Client) Router() *ModelRouter { return c.router }

// GeneratePostWithAudit walks the three-step degradation chain:
// primary route, then one fallback-route attempt, then the template.
func (c *Client) GeneratePostWithAudit(ctx context.Context, voice persona.Voice, genCtx Context) GenerationResult {
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	prompt := BuildPrompt(voice, genCtx)
	primary := c.router.Route(voice)

	output, usage, err := c.attempt(ctx, primary, voice, genCtx, prompt)
	if err == nil {
		return GenerationResult{
			Output:    TruncateToLimit(output),
			Prompt:    prompt,
			ModelName: primary.Model,
			Tier:      primary.Tier,
			Provider:  primary.Provider,
			Failure:   FailureNone,
			Usage:     usage,
		}
	}
	c.logger.WithFields(logging.Fields{
		"provider": primary.Provider,
		"model":    primary.Model,
	}).WithError(err).Warn("Primary generation failed, trying fallback route")

	fallback := c.router.FallbackRoute(primary)
	output, usage, err = c.attempt(ctx, fallback, voice, genCtx, prompt)
	if err == nil {
		return GenerationResult{
			Output:       TruncateToLimit(output),
			Prompt:       prompt,
			ModelName:    fallback.Model,
			Tier:         fallback.Tier,
			Provider:     fallback.Provider,
			UsedFallback: true,
			Failure:      FailurePrimary,
			Usage:        usage,
		}
	}
	c.logger.WithFields(logging.Fields{
		"provider": fallback.Provider,
		"model":    fallback.Model,
	}).WithError(err).Error("Fallback generation failed, using deterministic template")

	return GenerationResult{
		Output:       TruncateToLimit(TemplateFallback(voice, genCtx)),
		Prompt:       prompt,
		ModelName:    fallback.Model,
		Tier:         fallback.Tier,
		Provider:     fallback.Provider,
		UsedFallback: true,
		Failure:      FailureFallback,
	}
}

// attempt runs one route; empty output counts as a failure.
func (c *Client) attempt(ctx context.Context, route Route, voice persona.Voice, genCtx Context, prompt string) (string, Usage, error) {
	adapter := c.router.AdapterFor(route.Provider)
	output, usage, err := adapter.Generate(ctx, voice, genCtx, prompt, route.Model)
	if err != nil {
		return "", Usage{}, err
	}
	if strings.TrimSpace(output) == "" {
		return "", Usage{}, fmt.Errorf("provider %s returned empty output", route.Provider)
	}
	return output, usage, nil
}

// TemplateFallback builds the always-available post from tone and topic.
func TemplateFallback(voice persona.Voice, genCtx Context) string {
	topic := genCtx.LatestEventTopic
	if topic == "" {
		topic = "the timeline"
	}
	return fmt.Sprintf("[%s] Thoughts on %s.", voice.Tone(), topic)
}

// TruncateToLimit caps text at MaxPostChars, preferring a word boundary.
func TruncateToLimit(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxPostChars {
		return text
	}
	truncated := runes[:MaxPostChars-1]
	lastSpace := -1
	for i, r := range truncated {
		if r == ' ' {
			lastSpace = i
		}
	}
	if lastSpace > MaxPostChars/2 {
		truncated = truncated[:lastSpace]
	}
	return strings.TrimRight(string(truncated), " ") + "…"
}
