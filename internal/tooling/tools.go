package tooling

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adrianhensler/botterverse/internal/integrations"
)

const maxFetchBodyBytes = 1 << 20 // 1 MiB

// DefaultRegistryConfig wires the built-in tools. News and weather tools are
// only registered when their client carries credentials, so the heuristic
// router never selects a tool that cannot run.
type DefaultRegistryConfig struct {
	Guard   *EgressGuard
	News    *integrations.NewsClient
	Weather *integrations.WeatherClient
}

// NewDefaultRegistry builds the standard tool set: current_time,
// http_get_json, and (when configured) get_weather and news_search.
func NewDefaultRegistry(cfg DefaultRegistryConfig) *Registry {
	guard := cfg.Guard
	if guard == nil {
		guard = NewEgressGuard()
	}

	registry := NewRegistry()
	registry.Register(Schema{
		Name:        "current_time",
		Description: "Get the current UTC time.",
		Input: InputSchema{
			Type:       "object",
			Properties: map[string]Property{},
			Required:   []string{},
		},
	}, currentTimeHandler)

	registry.Register(Schema{
		Name:        "http_get_json",
		Description: "Fetch JSON data from a public URL via HTTP GET.",
		Input: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"url":       {Type: "string", Description: "Absolute http(s) URL to fetch."},
				"timeout_s": {Type: "integer", Description: "Request timeout in seconds (default 10)."},
			},
			Required: []string{"url"},
		},
	}, httpGetJSONHandler(guard))

	if cfg.Weather != nil && cfg.Weather.Configured() {
		registry.Register(Schema{
			Name:        "get_weather",
			Description: "Get current weather conditions for a location.",
			Input: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"location": {Type: "string", Description: "City name, optionally with country code."},
				},
				Required: []string{"location"},
			},
		}, weatherHandler(cfg.Weather))
	}

	if cfg.News != nil && cfg.News.Configured() {
		registry.Register(Schema{
			Name:        "news_search",
			Description: "Search recent news articles for a topic.",
			Input: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"query": {Type: "string", Description: "Free-text search query."},
					"limit": {Type: "integer", Description: "Max articles to return (1-5)."},
				},
				Required: []string{"query"},
			},
		}, newsHandler(cfg.News))
	}

	return registry
}

func currentTimeHandler(ctx context.Context, input map[string]any) (any, error) {
	now := time.Now().UTC()
	return map[string]any{
		"utc":      now.Format(time.RFC3339),
		"weekday":  now.Weekday().String(),
		"date":     now.Format("2006-01-02"),
		"time_utc": now.Format("15:04"),
	}, nil
}

func httpGetJSONHandler(guard *EgressGuard) Handler {
	return func(ctx context.Context, input map[string]any) (any, error) {
		rawURL, _ := input["url"].(string)
		parsed, err := guard.ValidateURL(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("unsafe url: %w", err)
		}

		timeout := 10 * time.Second
		if seconds, ok := asInt(input["timeout_s"]); ok && seconds > 0 && seconds <= 30 {
			timeout = time.Duration(seconds) * time.Second
		}
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, parsed.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := guard.Client().Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch failed: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("unexpected status %s", resp.Status)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		var payload any
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("response is not valid json: %w", err)
		}
		return map[string]any{
			"status_code": resp.StatusCode,
			"url":         parsed.String(),
			"json":        payload,
		}, nil
	}
}

func weatherHandler(client *integrations.WeatherClient) Handler {
	return func(ctx context.Context, input map[string]any) (any, error) {
		location, _ := input["location"].(string)
		observation, err := client.Current(ctx, location)
		if err != nil {
			return nil, err
		}
		return observation.AsMap(), nil
	}
}

func newsHandler(client *integrations.NewsClient) Handler {
	return func(ctx context.Context, input map[string]any) (any, error) {
		query, _ := input["query"].(string)
		limit := 3
		if n, ok := asInt(input["limit"]); ok {
			limit = n
		}
		headlines, err := client.Search(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		output := make([]map[string]any, 0, len(headlines))
		for _, headline := range headlines {
			output = append(output, headline.AsMap())
		}
		return output, nil
	}
}

// asInt tolerates the numeric shapes JSON decoding and handwritten maps
// both produce.
func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
