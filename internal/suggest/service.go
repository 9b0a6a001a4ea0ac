// Package suggest runs oracle-backed document analysis and resolves the
// returned candidates to exact document offsets.
package suggest

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"quill/api/internal/cache"
	"quill/api/internal/oracle"
	"quill/api/internal/span"
)

// Mode selects how a document is presented to the oracle.
type Mode string

const (
	// ModeDocument sends the whole document in one oracle call.
	ModeDocument Mode = "document"
	// ModeSentences sends one concurrent oracle call per sentence and
	// re-bases the per-sentence offsets into document coordinates.
	ModeSentences Mode = "sentences"
)

// Valid reports whether m is a known analysis mode.
func (m Mode) Valid() bool {
	return m == ModeDocument || m == ModeSentences
}

// Service coordinates oracle calls, span resolution and result caching.
// The cache may be nil; analysis then always goes to the oracle.
type Service struct {
	oracle oracle.Client
	cache  *cache.AnalysisCache
}

// New creates an analysis service. analysisCache may be nil.
func New(client oracle.Client, analysisCache *cache.AnalysisCache) *Service {
	return &Service{oracle: client, cache: analysisCache}
}

// Analyze resolves suggestions for text using the requested mode. Results
// are served from cache when the exact text was analyzed before.
func (s *Service) Analyze(ctx context.Context, text string, mode Mode) ([]span.ResolvedSpan, error) {
	if text == "" {
		return []span.ResolvedSpan{}, nil
	}

	key := cache.Key(text, string(mode))
	if s.cache != nil {
		if spans, ok, err := s.cache.Get(ctx, key); err != nil {
			log.Printf("suggest: cache read failed, analyzing fresh: %v", err)
		} else if ok {
			return spans, nil
		}
	}

	var spans []span.ResolvedSpan
	var err error
	switch mode {
	case ModeSentences:
		spans, err = s.analyzeBySentence(ctx, text)
	default:
		spans, err = s.analyzeDocument(ctx, text)
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, key, spans); err != nil {
			log.Printf("suggest: cache write failed: %v", err)
		}
	}
	return spans, nil
}

// analyzeDocument runs one oracle call and one resolution pass over the
// whole document.
func (s *Service) analyzeDocument(ctx context.Context, text string) ([]span.ResolvedSpan, error) {
	candidates, err := s.oracle.SuggestEdits(ctx, text)
	if err != nil {
		return nil, err
	}
	return span.Locate(text, candidates), nil
}

// analyzeBySentence splits the document into sentence chunks, analyzes each
// chunk with its own oracle call and claimed-offset set, then merges the
// re-based spans. A failed chunk contributes an empty span list; the other
// chunks proceed normally.
func (s *Service) analyzeBySentence(ctx context.Context, text string) ([]span.ResolvedSpan, error) {
	chunks := span.SplitSentences(text)
	results := make([][]span.ResolvedSpan, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			candidates, err := s.oracle.SuggestEdits(ctx, chunk.Text)
			if err != nil {
				log.Printf("suggest: chunk at offset %d failed: %v", chunk.Offset, err)
				return nil
			}
			results[i] = span.ResolveChunk(chunk, candidates)
			return nil
		})
	}
	_ = g.Wait()

	merged := make([]span.ResolvedSpan, 0)
	for _, spans := range results {
		merged = append(merged, spans...)
	}
	span.SortSpans(merged)
	return merged, nil
}
