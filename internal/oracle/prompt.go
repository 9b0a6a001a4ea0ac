package oracle

import (
	"fmt"
	"strings"
)

const suggestSystemPrompt = `You are a writing assistant. Review the user's text and propose corrections for spelling, grammar, clarity, conciseness and passive voice.

Respond with a JSON array only. Each element:
{
  "kind": "spelling" | "grammar" | "clarity" | "conciseness" | "passive-voice",
  "originalText": "the exact text as it appears in the document",
  "context": "8-20 surrounding words containing originalText, when the phrase repeats",
  "replacement": "the corrected text",
  "explanation": "one short sentence",
  "confidence": 0.0-1.0
}

Quote originalText verbatim from the document. Do not invent corrections for text that does not exist. Return [] when nothing needs fixing.`

const ideasSystemPrompt = `You are a writing assistant that brainstorms article ideas.

Respond with a JSON array only. Each element:
{
  "title": "a working title",
  "summary": "two or three sentences describing the angle"
}`

func buildSuggestUserPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString("Review the following document:\n\n")
	sb.WriteString(text)
	return sb.String()
}

func buildIdeasUserPrompt(topic string, count int) string {
	if count <= 0 {
		count = 5
	}
	return fmt.Sprintf("Propose %d content ideas about: %s", count, topic)
}
