package integrations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestValidateNewsQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{"plain query", "city budget vote", false},
		{"punctuation allowed", "what's next: rates?", false},
		{"empty", "  ", true},
		{"too long", strings.Repeat("x", 201), true},
		{"control characters", "hello\x00world", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateNewsQuery(tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateNewsQuery(%q) error = %v, wantErr %v", tt.query, err, tt.wantErr)
			}
		})
	}
}

func TestValidateWeatherLocation(t *testing.T) {
	if _, err := ValidateWeatherLocation("Halifax NS"); err != nil {
		t.Fatalf("expected valid location, got %v", err)
	}
	if _, err := ValidateWeatherLocation(""); err == nil {
		t.Fatal("expected error for empty location")
	}
	if _, err := ValidateWeatherLocation(strings.Repeat("x", 101)); err == nil {
		t.Fatal("expected error for oversized location")
	}
}

func TestNewsSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/everything" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "transit strike" {
			t.Errorf("unexpected query %q", got)
		}
		_, _ = w.Write([]byte(`{"articles": [
			{"title": "Transit strike enters day two", "url": "https://example.com/a", "source": {"name": "Wire"}, "publishedAt": "2026-08-29T08:00:00Z"},
			{"title": "", "url": "https://example.com/b", "source": {"name": ""}, "publishedAt": ""}
		]}`))
	}))
	defer server.Close()

	client := NewNewsClient(NewsConfig{APIKey: "key", BaseURL: server.URL})
	headlines, err := client.Search(context.Background(), "transit strike", 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(headlines) != 2 {
		t.Fatalf("expected 2 headlines, got %d", len(headlines))
	}
	if headlines[1].Title != "News headline" {
		t.Fatalf("expected default title for empty article, got %q", headlines[1].Title)
	}
}

func TestNewsSearchWithoutKey(t *testing.T) {
	client := NewNewsClient(NewsConfig{})
	if _, err := client.Search(context.Background(), "anything", 3); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestTopHeadlinesProducesEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/top-headlines" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"articles": [{"title": "Storm front moves in", "url": "https://example.com/s", "source": {"name": "Wire"}, "publishedAt": "2026-08-29T09:00:00Z"}]}`))
	}))
	defer server.Close()

	client := NewNewsClient(NewsConfig{APIKey: "key", BaseURL: server.URL})
	events, err := client.TopHeadlines(context.Background(), "us", 3)
	if err != nil {
		t.Fatalf("top headlines: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Kind != "news" || events[0].ExternalID != "news:https://example.com/s" {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestWeatherCurrent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "Halifax,CA" {
			t.Errorf("unexpected location %q", got)
		}
		_, _ = w.Write([]byte(`{
			"weather": [{"description": "light rain"}],
			"main": {"temp": 14.2, "feels_like": 12.9, "humidity": 88},
			"wind": {"speed": 6.1},
			"dt": 1756450000
		}`))
	}))
	defer server.Close()

	client := NewWeatherClient(WeatherConfig{APIKey: "key", BaseURL: server.URL})
	observation, err := client.Current(context.Background(), "Halifax,CA")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if observation.Summary != "light rain" || observation.Humidity != 88 {
		t.Fatalf("unexpected observation: %+v", observation)
	}

	events, err := client.CurrentAsEvent(context.Background(), "Halifax,CA")
	if err != nil {
		t.Fatalf("current as event: %v", err)
	}
	if len(events) != 1 || events[0].Kind != "weather" {
		t.Fatalf("unexpected events: %+v", events)
	}
	if !strings.Contains(events[0].Topic, "light rain") {
		t.Fatalf("expected summary in topic, got %q", events[0].Topic)
	}
}

func TestWeatherUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewWeatherClient(WeatherConfig{APIKey: "bad", BaseURL: server.URL})
	if _, err := client.Current(context.Background(), "Halifax,CA"); err == nil {
		t.Fatal("expected error on upstream failure")
	}
}
