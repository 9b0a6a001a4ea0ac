package span

import (
	"strings"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	document := "First sentence. Second one! Third?"
	chunks := SplitSentences(document)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	want := []Chunk{
		{Text: "First sentence.", Offset: 0},
		{Text: " Second one!", Offset: 15},
		{Text: " Third?", Offset: 27},
	}
	for i, w := range want {
		if chunks[i] != w {
			t.Errorf("chunk %d: got %+v, want %+v", i, chunks[i], w)
		}
	}
	if joined := strings.Join([]string{chunks[0].Text, chunks[1].Text, chunks[2].Text}, ""); joined != document {
		t.Errorf("chunks do not reassemble the document: %q", joined)
	}
}

func TestSplitSentencesNoTerminator(t *testing.T) {
	chunks := SplitSentences("no terminator here")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "no terminator here" || chunks[0].Offset != 0 {
		t.Errorf("got %+v", chunks[0])
	}
}

func TestSplitSentencesEmpty(t *testing.T) {
	if chunks := SplitSentences(""); len(chunks) != 0 {
		t.Errorf("expected no chunks for empty document, got %d", len(chunks))
	}
}

func TestChunkRebaseRoundTrip(t *testing.T) {
	document := "First sentence. Second sentence with cat."
	chunks := SplitSentences(document)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	var all []ResolvedSpan
	for _, chunk := range chunks {
		all = append(all, ResolveChunk(chunk, []Candidate{candidate("cat")})...)
	}
	SortSpans(all)

	if len(all) != 1 {
		t.Fatalf("expected cat to resolve in exactly one chunk, got %d spans", len(all))
	}
	wantStart := strings.Index(document, "cat")
	if all[0].Start != wantStart || all[0].End != wantStart+3 {
		t.Errorf("got [%d,%d), want [%d,%d)", all[0].Start, all[0].End, wantStart, wantStart+3)
	}
	if document[all[0].Start:all[0].End] != all[0].MatchedText {
		t.Errorf("re-based span does not address the original document: %q", all[0].MatchedText)
	}
}

func TestResolveChunkTrimOffset(t *testing.T) {
	chunk := Chunk{Text: "   leading space here.", Offset: 10}
	spans := ResolveChunk(chunk, []Candidate{candidate("leading")})
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Start != 13 || spans[0].End != 20 {
		t.Errorf("got [%d,%d), want [13,20)", spans[0].Start, spans[0].End)
	}
}

func TestSortSpans(t *testing.T) {
	spans := []ResolvedSpan{
		{Start: 30, End: 33},
		{Start: 5, End: 8},
		{Start: 17, End: 20},
	}
	SortSpans(spans)
	for i := 1; i < len(spans); i++ {
		if spans[i-1].Start > spans[i].Start {
			t.Fatalf("spans not sorted at %d: %+v", i, spans)
		}
	}
}
