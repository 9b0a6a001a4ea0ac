package span

import (
	"sort"
	"strings"
)

// Chunk is a disjoint substring of a document, typically one sentence,
// carrying the absolute byte offset of its first character.
type Chunk struct {
	Text   string
	Offset int
}

const leadingWhitespace = " \t\r\n"

// SplitSentences splits a document into chunks after each sentence-ending
// punctuation mark. A chunk includes its terminator; any whitespace that
// follows belongs to the next chunk and is compensated for by ResolveChunk.
// A document with no terminators is returned as a single chunk.
func SplitSentences(document string) []Chunk {
	var chunks []Chunk
	start := 0
	for i := 0; i < len(document); i++ {
		switch document[i] {
		case '.', '!', '?':
			chunks = append(chunks, Chunk{Text: document[start : i+1], Offset: start})
			start = i + 1
		}
	}
	if start < len(document) {
		chunks = append(chunks, Chunk{Text: document[start:], Offset: start})
	}
	if len(chunks) == 0 && document != "" {
		chunks = append(chunks, Chunk{Text: document, Offset: 0})
	}
	return chunks
}

// ResolveChunk locates candidates against a single chunk and re-bases the
// resulting offsets into the coordinate space of the full document. The chunk
// is analyzed with its own fresh claimed-offset set; leading whitespace is
// stripped before matching and added back into the shift.
func ResolveChunk(c Chunk, candidates []Candidate) []ResolvedSpan {
	trimmed := strings.TrimLeft(c.Text, leadingWhitespace)
	shift := c.Offset + (len(c.Text) - len(trimmed))
	spans := Locate(trimmed, candidates)
	for i := range spans {
		spans[i].Start += shift
		spans[i].End += shift
	}
	return spans
}

// SortSpans orders spans by ascending start offset. Completion order of
// concurrent chunk analyses is arbitrary, so the merged result must be
// re-sorted before use.
func SortSpans(spans []ResolvedSpan) {
	sort.Slice(spans, func(i, j int) bool {
		return spans[i].Start < spans[j].Start
	})
}
