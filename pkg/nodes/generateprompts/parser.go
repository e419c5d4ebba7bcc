package generateprompts

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	codeFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

	// Greedy so a ']' inside an element cannot truncate the span; trailing
	// prose after the final ']' still falls through to the line-based tier.
	arraySpanPattern = regexp.MustCompile(`(?s)\[.*\]`)

	enumerationPattern = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s+`)
)

// minBarePromptLength filters model chatter ("Sure!", "Here you go:") out of
// the line-based tier. Enumerated or quoted lines are kept regardless of
// length since the marker already identifies them as list items.
const minBarePromptLength = 20

// ParsePrompts extracts prompt strings from a model response using three
// fallback tiers: strict JSON array after stripping code fences, the first
// bracketed span parsed as JSON, then line-based extraction.
func ParsePrompts(content string) []string {
	if prompts := parseJSONArray(stripCodeFences(content)); len(prompts) > 0 {
		return prompts
	}

	if span := arraySpanPattern.FindString(content); span != "" {
		if prompts := parseJSONArray(span); len(prompts) > 0 {
			return prompts
		}
	}

	return parseLines(content)
}

func stripCodeFences(content string) string {
	if match := codeFencePattern.FindStringSubmatch(content); match != nil {
		return match[1]
	}

	return strings.TrimSpace(content)
}

func parseJSONArray(content string) []string {
	var raw []any

	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil
	}

	prompts := make([]string, 0, len(raw))

	for _, item := range raw {
		if prompt, ok := item.(string); ok && strings.TrimSpace(prompt) != "" {
			prompts = append(prompts, strings.TrimSpace(prompt))
		}
	}

	return prompts
}

func parseLines(content string) []string {
	var prompts []string

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		marked := enumerationPattern.MatchString(trimmed)
		stripped := enumerationPattern.ReplaceAllString(trimmed, "")
		stripped = strings.TrimSuffix(stripped, ",")

		quoted := len(stripped) >= 2 && (stripped[0] == '"' || stripped[0] == '\'')
		stripped = strings.Trim(stripped, `"'`)
		stripped = strings.TrimSpace(stripped)

		if stripped == "" {
			continue
		}

		if !marked && !quoted && len(stripped) < minBarePromptLength {
			continue
		}

		prompts = append(prompts, stripped)
	}

	return prompts
}
