package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultNewsBaseURL = "https://newsapi.org/v2"

// Headline is one news article in a search or top-headlines response.
type Headline struct {
	Title       string `json:"title"`
	URL         string `json:"url,omitempty"`
	Source      string `json:"source,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

// AsMap renders the headline for tool output.
func (h Headline) AsMap() map[string]any {
	return map[string]any{
		"title":        h.Title,
		"url":          h.URL,
		"source":       h.Source,
		"published_at": h.PublishedAt,
	}
}

// NewsClient queries the NewsAPI endpoints.
type NewsClient struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

type NewsConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

func NewNewsClient(cfg NewsConfig) *NewsClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultNewsBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NewsClient{
		client:  &http.Client{Timeout: timeout},
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
	}
}

// Configured reports whether an API key is present.
func (c *NewsClient) Configured() bool { return c.apiKey != "" }

// Search runs a free-text article search, newest first.
func (c *NewsClient) Search(ctx context.Context, query string, limit int) ([]Headline, error) {
	cleaned, err := ValidateNewsQuery(query)
	if err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("news api key not configured")
	}
	params := url.Values{
		"apiKey":   {c.apiKey},
		"q":        {cleaned},
		"pageSize": {strconv.Itoa(clampLimit(limit, 1, 5))},
		"sortBy":   {"publishedAt"},
		"language": {"en"},
	}
	return c.fetch(ctx, c.baseURL+"/everything?"+params.Encode())
}

// TopHeadlines fetches country top headlines as director events.
func (c *NewsClient) TopHeadlines(ctx context.Context, country string, limit int) ([]Event, error) {
	if c.apiKey == "" {
		return nil, nil
	}
	if country == "" {
		country = "us"
	}
	params := url.Values{
		"apiKey":   {c.apiKey},
		"country":  {country},
		"pageSize": {strconv.Itoa(clampLimit(limit, 1, 5))},
	}
	headlines, err := c.fetch(ctx, c.baseURL+"/top-headlines?"+params.Encode())
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	events := make([]Event, 0, len(headlines))
	for _, headline := range headlines {
		events = append(events, Event{
			Kind:       "news",
			Topic:      headline.Title,
			ExternalID: "news:" + headline.URL,
			Payload: map[string]any{
				"url":          headline.URL,
				"source":       headline.Source,
				"published_at": headline.PublishedAt,
			},
			FetchedAt: now,
		})
	}
	return events, nil
}

func (c *NewsClient) fetch(ctx context.Context, requestURL string) ([]Headline, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("news: create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news: unexpected status %s", resp.Status)
	}

	var payload struct {
		Articles []struct {
			Title  string `json:"title"`
			URL    string `json:"url"`
			Source struct {
				Name string `json:"name"`
			} `json:"source"`
			PublishedAt string `json:"publishedAt"`
		} `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("news: decode response: %w", err)
	}

	headlines := make([]Headline, 0, len(payload.Articles))
	for _, article := range payload.Articles {
		title := article.Title
		if title == "" {
			title = "News headline"
		}
		headlines = append(headlines, Headline{
			Title:       title,
			URL:         article.URL,
			Source:      article.Source.Name,
			PublishedAt: article.PublishedAt,
		})
	}
	return headlines, nil
}
