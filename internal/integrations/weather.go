package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// Observation is a current-conditions reading for one location.
type Observation struct {
	Location    string  `json:"location"`
	Summary     string  `json:"summary"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	ObservedAt  int64   `json:"observed_at"`
}

// AsMap renders the observation for tool output.
func (o Observation) AsMap() map[string]any {
	return map[string]any{
		"location":    o.Location,
		"summary":     o.Summary,
		"temperature": o.Temperature,
		"feels_like":  o.FeelsLike,
		"humidity":    o.Humidity,
		"wind_speed":  o.WindSpeed,
		"observed_at": o.ObservedAt,
	}
}

// WeatherClient queries the OpenWeatherMap current-conditions endpoint.
type WeatherClient struct {
	client  *http.Client
	apiKey  string
	baseURL string
	units   string
}

type WeatherConfig struct {
	APIKey  string
	BaseURL string
	Units   string
	Timeout time.Duration
}

func NewWeatherClient(cfg WeatherConfig) *WeatherClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultWeatherBaseURL
	}
	units := cfg.Units
	if units == "" {
		units = "metric"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WeatherClient{
		client:  &http.Client{Timeout: timeout},
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		units:   units,
	}
}

// Configured reports whether an API key is present.
func (c *WeatherClient) Configured() bool { return c.apiKey != "" }

// Current fetches current conditions for a location.
func (c *WeatherClient) Current(ctx context.Context, location string) (Observation, error) {
	cleaned, err := ValidateWeatherLocation(location)
	if err != nil {
		return Observation{}, err
	}
	if c.apiKey == "" {
		return Observation{}, fmt.Errorf("weather api key not configured")
	}

	params := url.Values{
		"q":     {cleaned},
		"appid": {c.apiKey},
		"units": {c.units},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather?"+params.Encode(), nil)
	if err != nil {
		return Observation{}, fmt.Errorf("weather: create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return Observation{}, fmt.Errorf("weather: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Observation{}, fmt.Errorf("weather: unexpected status %s", resp.Status)
	}

	var payload struct {
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		DT int64 `json:"dt"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Observation{}, fmt.Errorf("weather: decode response: %w", err)
	}

	summary := "weather update"
	if len(payload.Weather) > 0 && payload.Weather[0].Description != "" {
		summary = payload.Weather[0].Description
	}
	return Observation{
		Location:    cleaned,
		Summary:     summary,
		Temperature: payload.Main.Temp,
		FeelsLike:   payload.Main.FeelsLike,
		Humidity:    payload.Main.Humidity,
		WindSpeed:   payload.Wind.Speed,
		ObservedAt:  payload.DT,
	}, nil
}

// CurrentAsEvent wraps Current for the ingestion poller.
func (c *WeatherClient) CurrentAsEvent(ctx context.Context, location string) ([]Event, error) {
	if c.apiKey == "" || location == "" {
		return nil, nil
	}
	observation, err := c.Current(ctx, location)
	if err != nil {
		return nil, err
	}
	return []Event{{
		Kind:       "weather",
		Topic:      fmt.Sprintf("Weather: %s in %s", observation.Summary, observation.Location),
		ExternalID: fmt.Sprintf("weather:%s:%d", observation.Location, observation.ObservedAt),
		Payload:    observation.AsMap(),
		FetchedAt:  time.Now().UTC(),
	}}, nil
}
