package tooling

import (
	"fmt"
	"regexp"
	"strings"
)

// StripUnverifiedURLs removes any URL from generated text that does not
// appear in the tool results, so a model cannot slip invented links into a
// post. With no tool results, every URL is unverified.
func StripUnverifiedURLs(text string, toolResults []map[string]any) string {
	allowed := collectResultURLs(toolResults)
	removed := false
	cleaned := urlPattern.ReplaceAllStringFunc(text, func(match string) string {
		trimmed := strings.TrimRight(match, ".,;:!?)")
		if _, ok := allowed[trimmed]; ok {
			return match
		}
		removed = true
		return ""
	})
	if !removed {
		return text
	}
	// Collapse only the doubled spaces a removal leaves behind; the post's
	// own line breaks survive.
	cleaned = spaceRunPattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

var spaceRunPattern = regexp.MustCompile(`[ \t]{2,}`)

// AppendToolBlocks attaches formatted headline and forecast summaries from
// successful tool results to the generated text.
func AppendToolBlocks(text string, toolResults []map[string]any) string {
	var blocks []string
	for _, result := range toolResults {
		if success, _ := result["success"].(bool); !success {
			continue
		}
		name, _ := result["name"].(string)
		switch name {
		case "news_search":
			if block := formatHeadlines(result["output"]); block != "" {
				blocks = append(blocks, block)
			}
		case "get_weather":
			if block := formatForecast(result["output"]); block != "" {
				blocks = append(blocks, block)
			}
		}
	}
	if len(blocks) == 0 {
		return text
	}
	return strings.TrimSpace(text + "\n\n" + strings.Join(blocks, "\n\n"))
}

func collectResultURLs(toolResults []map[string]any) map[string]struct{} {
	urls := make(map[string]struct{})
	for _, result := range toolResults {
		collectURLs(result["output"], urls)
		collectURLs(result["input"], urls)
	}
	return urls
}

// collectURLs walks nested maps and slices picking up every string value
// that looks like a URL.
func collectURLs(value any, urls map[string]struct{}) {
	switch v := value.(type) {
	case string:
		for _, match := range urlPattern.FindAllString(v, -1) {
			urls[strings.TrimRight(match, ".,;:!?)")] = struct{}{}
		}
	case map[string]any:
		for _, nested := range v {
			collectURLs(nested, urls)
		}
	case []map[string]any:
		for _, nested := range v {
			collectURLs(nested, urls)
		}
	case []any:
		for _, nested := range v {
			collectURLs(nested, urls)
		}
	}
}

func formatHeadlines(output any) string {
	items, ok := output.([]map[string]any)
	if !ok {
		generic, genericOK := output.([]any)
		if !genericOK {
			return ""
		}
		for _, item := range generic {
			if m, isMap := item.(map[string]any); isMap {
				items = append(items, m)
			}
		}
	}
	var lines []string
	for _, item := range items {
		title, _ := item["title"].(string)
		if title == "" {
			continue
		}
		if source, _ := item["source"].(string); source != "" {
			lines = append(lines, fmt.Sprintf("- %s (%s)", title, source))
		} else {
			lines = append(lines, "- "+title)
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return "Headlines:\n" + strings.Join(lines, "\n")
}

func formatForecast(output any) string {
	observation, ok := output.(map[string]any)
	if !ok {
		return ""
	}
	summary, _ := observation["summary"].(string)
	location, _ := observation["location"].(string)
	if summary == "" || location == "" {
		return ""
	}
	if temp, hasTemp := observation["temperature"].(float64); hasTemp {
		return fmt.Sprintf("Forecast: %s, %.0f°C in %s", summary, temp, location)
	}
	return fmt.Sprintf("Forecast: %s in %s", summary, location)
}
