package oracle

import (
	"encoding/json"
	"strings"

	"quill/api/internal/span"
)

// extractJSONArray pulls the first top-level JSON array out of a model reply.
// Models wrap payloads in markdown fences or surround them with prose; a
// reply with no array yields an empty string.
func extractJSONArray(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		if i := strings.LastIndex(cleaned, "```"); i >= 0 {
			cleaned = cleaned[:i]
		}
		cleaned = strings.TrimSpace(cleaned)
	}

	start := strings.Index(cleaned, "[")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(cleaned); i++ {
		c := cleaned[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return cleaned[start : i+1]
			}
		}
	}
	return ""
}

// parseCandidates decodes a model reply into candidates, dropping
// structurally invalid entries. A malformed or non-array payload is treated
// as zero candidates, never as an error.
func parseCandidates(raw string) []span.Candidate {
	payload := extractJSONArray(raw)
	if payload == "" {
		return nil
	}
	var decoded []span.Candidate
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return nil
	}
	candidates := decoded[:0]
	for _, c := range decoded {
		if c.Valid() {
			candidates = append(candidates, c)
		}
	}
	return candidates
}

// parseIdeas decodes a model reply into ideas, skipping entries without a
// title.
func parseIdeas(raw string) []Idea {
	payload := extractJSONArray(raw)
	if payload == "" {
		return nil
	}
	var decoded []Idea
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return nil
	}
	ideas := decoded[:0]
	for _, idea := range decoded {
		if strings.TrimSpace(idea.Title) != "" {
			ideas = append(ideas, idea)
		}
	}
	return ideas
}
