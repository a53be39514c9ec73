package caption

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// stripFences removes a ```json ... ``` wrapper if present.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}
	end := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}
	return strings.Join(lines[1:end], "\n")
}

// parseResult extracts the first JSON object from a model reply.
func parseResult(raw string) (Result, error) {
	var result Result
	text := stripFences(raw)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return result, fmt.Errorf("no JSON object in response: %q", truncate(raw, 120))
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &result); err != nil {
		return result, fmt.Errorf("failed to parse caption JSON: %w", err)
	}
	return result, nil
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
