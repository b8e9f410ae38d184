package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/adrianhensler/botterverse/internal/persona"
)

// OpenRouterProviderName is the networked chat-completions provider.
const OpenRouterProviderName = "openrouter"

const defaultOpenRouterURL = "https://openrouter.ai/api/v1"

// OpenRouterAdapter talks to the OpenRouter chat-completions API.
type OpenRouterAdapter struct {
	client *http.Client
	apiKey string
	apiURL string
}

type OpenRouterConfig struct {
	APIKey  string
	APIURL  string
	Timeout time.Duration
}

func NewOpenRouterAdapter(cfg OpenRouterConfig) *OpenRouterAdapter {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultOpenRouterURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenRouterAdapter{
		client: &http.Client{Timeout: timeout},
		apiKey: cfg.APIKey,
		apiURL: apiURL,
	}
}

func (a *OpenRouterAdapter) Name() string { return OpenRouterProviderName }

func (a *OpenRouterAdapter) Usable() bool { return a.apiKey != "" }

func (a *OpenRouterAdapter) Generate(ctx context.Context, voice persona.Voice, genCtx Context, prompt, model string) (string, Usage, error) {
	if a.apiKey == "" {
		return "", Usage{}, errors.New("openrouter: api key is not set")
	}
	if model == "" {
		return "", Usage{}, errors.New("openrouter: model is required")
	}

	// Purpose-built prompts (reply decisions, tool selection) carry their
	// own full instructions and must reach the model verbatim; only an
	// empty prompt falls back to the standard post-writing message pair.
	messages := []Message{{Role: "user", Content: prompt}}
	if strings.TrimSpace(prompt) == "" {
		messages = BuildMessages(voice, genCtx)
	}

	reqBody := openRouterRequest{
		Model:    model,
		Messages: messages,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", Usage{}, fmt.Errorf("openrouter: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", Usage{}, fmt.Errorf("openrouter: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", Usage{}, fmt.Errorf("openrouter: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return "", Usage{}, fmt.Errorf("openrouter: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var parsed openRouterResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", Usage{}, fmt.Errorf("openrouter: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", Usage{}, errors.New("openrouter: response has no choices")
	}
	return parsed.Choices[0].Message.Content, parsed.Usage, nil
}

type openRouterRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type openRouterResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}
