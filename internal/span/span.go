// Package span resolves model-proposed text snippets to exact character
// offsets inside a source document.
package span

import "strings"

// Candidate is a proposed correction emitted by the language-model oracle,
// prior to location. Kind, Replacement, Explanation and Confidence are opaque
// payload passed through unchanged.
type Candidate struct {
	Kind        string  `json:"kind"`
	Snippet     string  `json:"originalText"`
	Context     string  `json:"context,omitempty"`
	Replacement string  `json:"replacement"`
	Explanation string  `json:"explanation,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
}

// Valid reports whether the candidate carries the fields required before
// matching is attempted. Invalid candidates are dropped silently.
func (c Candidate) Valid() bool {
	return c.Kind != "" && c.Snippet != "" && c.Replacement != ""
}

// ResolvedSpan is a candidate successfully mapped to document offsets.
// Start and End are half-open byte offsets; MatchedText is always the literal
// document substring at [Start, End), never the oracle's snippet verbatim.
type ResolvedSpan struct {
	Start       int       `json:"start"`
	End         int       `json:"end"`
	MatchedText string    `json:"matchedText"`
	Candidate   Candidate `json:"candidate"`
}

// Pass tracks claimed start offsets across one resolution pass over one
// document. Each pass owns its own set; a Pass must not be shared across
// concurrent chunk analyses.
type Pass struct {
	document string
	claimed  map[int]struct{}
}

// NewPass starts a resolution pass over document.
func NewPass(document string) *Pass {
	return &Pass{
		document: document,
		claimed:  make(map[int]struct{}),
	}
}

// Resolve locates a single candidate, claiming the chosen start offset so a
// repeated phrase is never assigned to the same location twice. A not-found
// outcome is normal control flow, not an error.
func (p *Pass) Resolve(c Candidate) (ResolvedSpan, bool) {
	if !c.Valid() {
		return ResolvedSpan{}, false
	}
	start, matched, ok := p.resolve(c.Snippet, c.Context, 0)
	if !ok {
		return ResolvedSpan{}, false
	}
	p.claimed[start] = struct{}{}
	return ResolvedSpan{
		Start:       start,
		End:         start + len(matched),
		MatchedText: matched,
		Candidate:   c,
	}, true
}

// resolve runs the fallback tiers in strict order: context-anchored search,
// boundary-checked direct search, whitespace-trim retry, relaxed direct
// search. The trim retry recurses once (depth cap 1) so a padded snippet is
// matched in its trimmed form before the relaxed tier can claim the padded
// form verbatim.
func (p *Pass) resolve(snippet, context string, depth int) (int, string, bool) {
	if len(context) > len(snippet) {
		if start, ok := p.contextSearch(snippet, context); ok {
			return start, p.document[start : start+len(snippet)], true
		}
	}
	if start, ok := p.directSearch(snippet, true); ok {
		return start, p.document[start : start+len(snippet)], true
	}
	if depth == 0 {
		if trimmed := strings.TrimSpace(snippet); trimmed != "" && trimmed != snippet {
			if start, matched, ok := p.resolve(trimmed, context, 1); ok {
				return start, matched, true
			}
		}
	}
	if start, ok := p.directSearch(snippet, false); ok {
		return start, p.document[start : start+len(snippet)], true
	}
	return 0, "", false
}

// contextSearch scans document occurrences of context left to right and
// translates the snippet's position inside the context string to an absolute
// offset. The first unclaimed, boundary-valid translation wins.
func (p *Pass) contextSearch(snippet, context string) (int, bool) {
	rel := strings.Index(context, snippet)
	if rel < 0 {
		return 0, false
	}
	from := 0
	for {
		i := strings.Index(p.document[from:], context)
		if i < 0 {
			return 0, false
		}
		start := from + i + rel
		if !p.isClaimed(start) && p.hasWordBoundaries(start, start+len(snippet)) {
			return start, true
		}
		from = from + i + 1
	}
}

// directSearch scans document occurrences of snippet left to right and
// returns the first unclaimed one, optionally requiring word boundaries on
// both sides so "cat" does not match inside "category".
func (p *Pass) directSearch(snippet string, checkBoundary bool) (int, bool) {
	from := 0
	for {
		i := strings.Index(p.document[from:], snippet)
		if i < 0 {
			return 0, false
		}
		start := from + i
		if !p.isClaimed(start) {
			if !checkBoundary || p.hasWordBoundaries(start, start+len(snippet)) {
				return start, true
			}
		}
		from = start + 1
	}
}

func (p *Pass) isClaimed(start int) bool {
	_, ok := p.claimed[start]
	return ok
}

func (p *Pass) hasWordBoundaries(start, end int) bool {
	return p.isBoundary(start-1) && p.isBoundary(end)
}

// isBoundary reports whether the byte at pos is absent (out of range) or
// outside the alphanumeric class [A-Za-z0-9].
func (p *Pass) isBoundary(pos int) bool {
	if pos < 0 || pos >= len(p.document) {
		return true
	}
	return !isAlnum(p.document[pos])
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// Locate resolves candidates in input order against document, so earlier
// candidates get first claim on ambiguous positions. Candidates that cannot
// be located are dropped from the output.
func Locate(document string, candidates []Candidate) []ResolvedSpan {
	pass := NewPass(document)
	spans := make([]ResolvedSpan, 0, len(candidates))
	for _, c := range candidates {
		if resolved, ok := pass.Resolve(c); ok {
			spans = append(spans, resolved)
		}
	}
	return spans
}
