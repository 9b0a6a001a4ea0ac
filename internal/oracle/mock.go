package oracle

import (
	"context"
	"fmt"
	"strings"

	"quill/api/internal/span"
)

// Mock is a deterministic stand-in for the hosted model, used in tests and
// keyless development. It flags a small fixed vocabulary of common mistakes.
type Mock struct{}

var mockFixes = []struct {
	wrong       string
	replacement string
	kind        string
}{
	{"teh", "the", "spelling"},
	{"recieve", "receive", "spelling"},
	{"alot", "a lot", "spelling"},
	{"could of", "could have", "grammar"},
	{"very unique", "unique", "conciseness"},
}

func (Mock) SuggestEdits(_ context.Context, text string) ([]span.Candidate, error) {
	var candidates []span.Candidate
	for _, fix := range mockFixes {
		count := strings.Count(text, fix.wrong)
		for i := 0; i < count; i++ {
			candidates = append(candidates, span.Candidate{
				Kind:        fix.kind,
				Snippet:     fix.wrong,
				Replacement: fix.replacement,
				Explanation: fmt.Sprintf("%q should be %q", fix.wrong, fix.replacement),
				Confidence:  0.9,
			})
		}
	}
	return candidates, nil
}

func (Mock) GenerateIdeas(_ context.Context, topic string, count int) ([]Idea, error) {
	if count <= 0 {
		count = 5
	}
	ideas := make([]Idea, 0, count)
	for i := 1; i <= count; i++ {
		ideas = append(ideas, Idea{
			Title:   fmt.Sprintf("Idea %d: %s", i, topic),
			Summary: fmt.Sprintf("A placeholder angle on %s for local development.", topic),
		})
	}
	return ideas, nil
}
