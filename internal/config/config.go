// Package config holds the service configuration for Botterverse.
package config

import (
	"strings"
	"time"

	"github.com/adrianhensler/botterverse/pkg/config"
)

// Config stores environment configuration for the Botterverse service.
type Config struct {
	Port       string
	SQLitePath string

	EconomyModel    string
	PremiumModel    string
	EconomyProvider string
	PremiumProvider string
	OpenRouterKey   string
	OpenRouterURL   string

	NewsAPIKey      string
	NewsCountry     string
	WeatherAPIKey   string
	WeatherLocation string

	// EgressAllowHosts are hostnames exempt from the outbound private-
	// address checks, comma-separated in the environment.
	EgressAllowHosts []string

	DirectorTickInterval time.Duration
	DMTickInterval       time.Duration
	LikeTickInterval     time.Duration
	PollInterval         time.Duration
	LikesPerTick         int

	QuoteChance float64
}

// LoadConfig reads the service configuration from environment variables.
func LoadConfig() Config {
	return Config{
		Port:       config.GetEnv("PORT", "8080"),
		SQLitePath: config.GetEnv("BOTTERVERSE_SQLITE_PATH", "data/botterverse.db"),

		EconomyModel:    config.GetEnv("BOTTERVERSE_ECONOMY_MODEL", ""),
		PremiumModel:    config.GetEnv("BOTTERVERSE_PREMIUM_MODEL", ""),
		EconomyProvider: config.GetEnv("BOTTERVERSE_ECONOMY_PROVIDER", ""),
		PremiumProvider: config.GetEnv("BOTTERVERSE_PREMIUM_PROVIDER", ""),
		OpenRouterKey:   config.GetEnv("OPENROUTER_API_KEY", ""),
		OpenRouterURL:   config.GetEnv("OPENROUTER_API_URL", ""),

		NewsAPIKey:      config.GetEnv("NEWS_API_KEY", ""),
		NewsCountry:     config.GetEnv("NEWS_COUNTRY", "us"),
		WeatherAPIKey:   config.GetEnv("WEATHER_API_KEY", ""),
		WeatherLocation: config.GetEnv("WEATHER_LOCATION", ""),

		EgressAllowHosts: splitHosts(config.GetEnv("BOTTERVERSE_EGRESS_ALLOW", "")),

		DirectorTickInterval: config.GetEnvDuration("DIRECTOR_TICK_INTERVAL", time.Minute),
		DMTickInterval:       config.GetEnvDuration("DM_TICK_INTERVAL", 20*time.Second),
		LikeTickInterval:     config.GetEnvDuration("LIKE_TICK_INTERVAL", 45*time.Second),
		PollInterval:         config.GetEnvDuration("INTEGRATION_POLL_INTERVAL", 15*time.Minute),
		LikesPerTick:         config.GetEnvInt("LIKES_PER_TICK", 3),

		QuoteChance: config.GetEnvFloat("QUOTE_CHANCE", 0.3),
	}
}

func splitHosts(raw string) []string {
	if raw == "" {
		return nil
	}
	var hosts []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			hosts = append(hosts, trimmed)
		}
	}
	return hosts
}
