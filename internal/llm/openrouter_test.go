package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenRouterGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req openRouterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "openai/gpt-4o-mini" {
			t.Errorf("unexpected model %s", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("expected system+user messages, got %+v", req.Messages)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "generated text"}},
			},
			"usage": map[string]int{"prompt_tokens": 30, "completion_tokens": 12},
		})
	}))
	defer server.Close()

	adapter := NewOpenRouterAdapter(OpenRouterConfig{APIKey: "test-key", APIURL: server.URL})
	output, usage, err := adapter.Generate(context.Background(), casualPersona(), Context{LatestEventTopic: "rain"}, "", "openai/gpt-4o-mini")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if output != "generated text" {
		t.Fatalf("unexpected output %q", output)
	}
	if usage.PromptTokens != 30 || usage.CompletionTokens != 12 {
		t.Fatalf("unexpected usage %+v", usage)
	}
}

func TestOpenRouterSendsSuppliedPrompt(t *testing.T) {
	const decisionPrompt = `Should this persona reply? Respond with JSON only: {"should_reply": true|false, "reasoning": "..."}`

	var captured openRouterRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": `{"should_reply": true, "reasoning": "on topic"}`}},
			},
		})
	}))
	defer server.Close()

	adapter := NewOpenRouterAdapter(OpenRouterConfig{APIKey: "test-key", APIURL: server.URL})
	if _, _, err := adapter.Generate(context.Background(), casualPersona(), Context{LatestEventTopic: "rain"}, decisionPrompt, "openai/gpt-4o-mini"); err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(captured.Messages) != 1 || captured.Messages[0].Role != "user" {
		t.Fatalf("expected the prompt as a single user message, got %+v", captured.Messages)
	}
	if captured.Messages[0].Content != decisionPrompt {
		t.Fatalf("prompt not sent verbatim: %q", captured.Messages[0].Content)
	}
}

func TestOpenRouterGenerateErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	adapter := NewOpenRouterAdapter(OpenRouterConfig{APIKey: "test-key", APIURL: server.URL})
	if _, _, err := adapter.Generate(context.Background(), casualPersona(), Context{}, "", "some/model"); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}

func TestOpenRouterRequiresAPIKey(t *testing.T) {
	adapter := NewOpenRouterAdapter(OpenRouterConfig{})
	if adapter.Usable() {
		t.Fatal("adapter without key must not be usable")
	}
	if _, _, err := adapter.Generate(context.Background(), casualPersona(), Context{}, "", "some/model"); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestLocalAdapterNeverFails(t *testing.T) {
	adapter := NewLocalAdapterWithSeed(7)
	for i := 0; i < 10; i++ {
		output, _, err := adapter.Generate(context.Background(), casualPersona(), Context{LatestEventTopic: "storms"}, "", "")
		if err != nil {
			t.Fatalf("local adapter errored: %v", err)
		}
		if output == "" {
			t.Fatal("local adapter returned empty output")
		}
	}
}
