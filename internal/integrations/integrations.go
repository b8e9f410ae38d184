// Package integrations turns external feeds (news, weather) into events the
// director can route to personas, and backs the corresponding tools.
package integrations

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Event is a normalized feed item. ExternalID deduplicates repeat fetches
// of the same upstream item.
type Event struct {
	Kind       string
	Topic      string
	ExternalID string
	Payload    map[string]any
	FetchedAt  time.Time
}

var newsQueryPattern = regexp.MustCompile(`^[\w\s,.'"\-:?!&/()]{2,}$`)

// ValidateNewsQuery rejects empty, oversized or suspicious search queries
// before they reach the upstream API.
func ValidateNewsQuery(query string) (string, error) {
	cleaned := strings.TrimSpace(query)
	if cleaned == "" {
		return "", fmt.Errorf("query is required")
	}
	if len(cleaned) > 200 {
		return "", fmt.Errorf("query is too long")
	}
	if !newsQueryPattern.MatchString(cleaned) {
		return "", fmt.Errorf("query contains invalid characters")
	}
	return cleaned, nil
}

// ValidateWeatherLocation bounds the location string handed to the weather API.
func ValidateWeatherLocation(location string) (string, error) {
	cleaned := strings.TrimSpace(location)
	if cleaned == "" {
		return "", fmt.Errorf("location is required")
	}
	if len(cleaned) > 100 {
		return "", fmt.Errorf("location is too long")
	}
	return cleaned, nil
}

func clampLimit(limit, min, max int) int {
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}
