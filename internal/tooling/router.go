package tooling

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/adrianhensler/botterverse/internal/llm"
	"github.com/adrianhensler/botterverse/internal/persona"
	"github.com/adrianhensler/botterverse/pkg/logging"
)

const toolSelectionTimeout = 8 * time.Second

// Router decides whether a generation needs a tool and runs it. With the
// local provider active, selection is keyword heuristics; otherwise a cheap
// model call picks from the registered schemas.
type Router struct {
	registry *Registry
	logger   logging.Logger
}

func NewRouter(registry *Registry, logger logging.Logger) *Router {
	return &Router{registry: registry, logger: logger}
}

// Registry exposes the underlying tool registry for catalog introspection.
func (r *Router) Registry() *Registry { return r.registry }

// RouteAndExecute selects at most one tool for this generation, executes it,
// and returns the results in context form. No tool selected means an empty
// slice, never an error.
func (r *Router) RouteAndExecute(ctx context.Context, voice persona.Voice, genCtx llm.Context, models *llm.ModelRouter) []map[string]any {
	if len(r.registry.List()) == 0 {
		return nil
	}
	route := models.EconomyRoute()
	adapter := models.AdapterFor(route.Provider)

	call := r.selectToolCall(ctx, voice, genCtx, adapter, route)
	if call == nil {
		return nil
	}

	result := r.registry.Dispatch(ctx, *call)
	if !result.Success && r.logger != nil {
		r.logger.WithFields(logging.Fields{
			"tool":  result.Name,
			"error": result.Error,
		}).Warn("Tool invocation failed")
	}
	return []map[string]any{result.AsMap()}
}

func (r *Router) selectToolCall(ctx context.Context, voice persona.Voice, genCtx llm.Context, adapter llm.Adapter, route llm.Route) *Call {
	if route.Provider == llm.LocalProviderName {
		return r.heuristicToolCall(genCtx)
	}

	prompt := buildToolSelectionPrompt(genCtx, r.registry.List())
	selCtx, cancel := context.WithTimeout(ctx, toolSelectionTimeout)
	defer cancel()
	response, _, err := adapter.Generate(selCtx, voice, genCtx, prompt, route.Model)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logging.Fields{"error": err.Error()}).Warn("Tool selection call failed")
		}
		return nil
	}
	return r.parseToolSelection(response)
}

var (
	urlPattern      = regexp.MustCompile(`https?://\S+`)
	weatherPattern  = regexp.MustCompile(`weather[^.?!]*?\b(?:in|for|at)\s+([a-z][a-z\s,'\-]{1,60})`)
	newsKeywords    = []string{"news", "headline", "headlines", "breaking", "latest on"}
	trailingDropSet = map[string]struct{}{
		"today": {}, "tomorrow": {}, "tonight": {}, "now": {}, "later": {},
		"this": {}, "week": {}, "weekend": {}, "morning": {}, "afternoon": {}, "evening": {},
	}
)

// heuristicToolCall matches keywords over the assembled context text.
// Checked in order: time, weather, bare URL, news.
func (r *Router) heuristicToolCall(genCtx llm.Context) *Call {
	text := strings.ToLower(strings.Join([]string{
		genCtx.LatestEventTopic,
		genCtx.EventContext,
		genCtx.ReplyToPost,
		genCtx.QuoteOfPost,
		strings.Join(genCtx.RecentTimelineSnippets, " "),
	}, " "))

	if r.registry.Has("current_time") && (strings.Contains(text, "time") || strings.Contains(text, "date")) {
		return &Call{Name: "current_time", Input: map[string]any{}}
	}

	if r.registry.Has("get_weather") {
		if match := weatherPattern.FindStringSubmatch(text); match != nil {
			if location := stripTrailingTemporalWords(match[1]); location != "" {
				return &Call{Name: "get_weather", Input: map[string]any{"location": location}}
			}
		}
	}

	if r.registry.Has("http_get_json") {
		if match := urlPattern.FindString(text); match != "" {
			return &Call{Name: "http_get_json", Input: map[string]any{"url": strings.TrimRight(match, ".,;:!?)")}}
		}
	}

	if r.registry.Has("news_search") {
		for _, keyword := range newsKeywords {
			if strings.Contains(text, keyword) {
				query := enrichNewsQuery(strings.TrimSpace(genCtx.LatestEventTopic))
				return &Call{Name: "news_search", Input: map[string]any{"query": query, "limit": 3}}
			}
		}
	}
	return nil
}

// enrichNewsQuery pads a very short or generic query with the current date
// so the upstream search has something to bite on.
func enrichNewsQuery(query string) string {
	generic := map[string]struct{}{"": {}, "news": {}, "headlines": {}, "the timeline": {}}
	if _, isGeneric := generic[strings.ToLower(query)]; isGeneric || len(query) < 8 {
		date := time.Now().UTC().Format("January 2 2006")
		if query == "" {
			return "top stories " + date
		}
		return query + " " + date
	}
	return query
}

func stripTrailingTemporalWords(location string) string {
	words := strings.Fields(strings.TrimSpace(strings.Trim(location, ",.")))
	for len(words) > 0 {
		last := strings.Trim(strings.ToLower(words[len(words)-1]), ",.")
		if _, drop := trailingDropSet[last]; !drop {
			break
		}
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

func buildToolSelectionPrompt(genCtx llm.Context, schemas []Schema) string {
	var builder strings.Builder
	builder.WriteString("You can optionally call one tool before composing a post.\n")
	builder.WriteString("Available tools:\n")
	for _, schema := range schemas {
		encoded, err := json.Marshal(schema.Input)
		if err != nil {
			encoded = []byte("{}")
		}
		fmt.Fprintf(&builder, "- %s: %s schema=%s\n", schema.Name, schema.Description, encoded)
	}
	fmt.Fprintf(&builder, "\nContext topic: %s\n", genCtx.LatestEventTopic)
	if genCtx.ReplyToPost != "" {
		fmt.Fprintf(&builder, "Replying to: %s\n", genCtx.ReplyToPost)
	}
	builder.WriteString("\nRespond with JSON only: ")
	builder.WriteString(`{"tool_name": "<name or null>", "tool_input": {...}}`)
	builder.WriteString("\nUse null when no tool is needed.")
	return builder.String()
}

// parseToolSelection reads the model's choice permissively. Anything that
// does not name a registered tool means no tool.
func (r *Router) parseToolSelection(response string) *Call {
	content := llm.ExtractJSONBlock(response)

	var payload struct {
		ToolName  any            `json:"tool_name"`
		ToolInput map[string]any `json:"tool_input"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil
	}
	name, ok := payload.ToolName.(string)
	if !ok {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "null":
		return nil
	}
	if !r.registry.Has(name) {
		return nil
	}
	input := payload.ToolInput
	if input == nil {
		input = map[string]any{}
	}
	return &Call{Name: name, Input: input}
}
