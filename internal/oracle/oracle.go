// Package oracle calls the hosted language model and parses its JSON output
// into location candidates. The model is an opaque external collaborator:
// everything downstream assumes parsing already happened here.
package oracle

import (
	"context"

	"quill/api/internal/span"
)

// Idea is a generated content idea for the writing assistant.
type Idea struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Client is the language-model oracle. Implementations must return zero
// candidates, not an error, when the model answers with an empty or
// non-actionable payload.
type Client interface {
	SuggestEdits(ctx context.Context, text string) ([]span.Candidate, error)
	GenerateIdeas(ctx context.Context, topic string, count int) ([]Idea, error)
}
