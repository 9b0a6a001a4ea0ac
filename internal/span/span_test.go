package span

import "testing"

func candidate(snippet string) Candidate {
	return Candidate{Kind: "grammar", Snippet: snippet, Replacement: "x"}
}

func mustResolve(t *testing.T, pass *Pass, c Candidate) ResolvedSpan {
	t.Helper()
	resolved, ok := pass.Resolve(c)
	if !ok {
		t.Fatalf("Resolve(%q) returned not-found", c.Snippet)
	}
	return resolved
}

func TestLeftmostFirstTieBreak(t *testing.T) {
	document := "cat cat cat"
	spans := Locate(document, []Candidate{candidate("cat"), candidate("cat"), candidate("cat")})
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}
	want := [][2]int{{0, 3}, {4, 7}, {8, 11}}
	for i, w := range want {
		if spans[i].Start != w[0] || spans[i].End != w[1] {
			t.Errorf("span %d: got [%d,%d), want [%d,%d)", i, spans[i].Start, spans[i].End, w[0], w[1])
		}
	}
}

func TestWordBoundaryRejection(t *testing.T) {
	document := "category cat"
	spans := Locate(document, []Candidate{candidate("cat")})
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Start != 9 || spans[0].End != 12 {
		t.Errorf("got [%d,%d), want [9,12)", spans[0].Start, spans[0].End)
	}
}

func TestContextDisambiguation(t *testing.T) {
	document := "I saw a bat. I saw a cat near the bat."
	c := candidate("bat")
	c.Context = "near the bat."
	pass := NewPass(document)
	resolved := mustResolve(t, pass, c)

	firstBat := 8
	if resolved.Start == firstBat {
		t.Fatalf("context search matched the first occurrence at %d", firstBat)
	}
	if document[resolved.Start:resolved.End] != "bat" {
		t.Errorf("matched %q, want %q", document[resolved.Start:resolved.End], "bat")
	}
	if resolved.Start != 34 {
		t.Errorf("got start %d, want 34", resolved.Start)
	}
}

func TestTrimmedFallback(t *testing.T) {
	document := "Hello world"
	pass := NewPass(document)
	resolved := mustResolve(t, pass, candidate(" world"))
	if resolved.Start != 6 || resolved.End != 11 {
		t.Errorf("got [%d,%d), want [6,11)", resolved.Start, resolved.End)
	}
	if resolved.MatchedText != "world" {
		t.Errorf("got matched text %q, want %q", resolved.MatchedText, "world")
	}
}

func TestExhaustionReturnsNotFound(t *testing.T) {
	document := "cat"
	pass := NewPass(document)
	first := mustResolve(t, pass, candidate("cat"))
	if first.Start != 0 || first.End != 3 {
		t.Errorf("first: got [%d,%d), want [0,3)", first.Start, first.End)
	}
	if _, ok := pass.Resolve(candidate("cat")); ok {
		t.Error("second resolve should return not-found, document has one occurrence")
	}
}

func TestRelaxedSearchRecoversPunctuationAdjacency(t *testing.T) {
	// "cat," abuts a comma; boundary-checked direct search accepts it anyway
	// because ',' is not alphanumeric. A snippet that itself ends mid-token
	// only resolves through the relaxed tier.
	document := "concatenate strings"
	pass := NewPass(document)
	resolved := mustResolve(t, pass, candidate("concat"))
	if resolved.Start != 0 || resolved.End != 6 {
		t.Errorf("got [%d,%d), want [0,6)", resolved.Start, resolved.End)
	}
}

func TestNoOverlapInvariant(t *testing.T) {
	document := "the quick brown fox jumps over the lazy dog near the old oak"
	candidates := []Candidate{
		candidate("the"),
		candidate("the"),
		candidate("the"),
		candidate("quick brown"),
		candidate("o"),
	}
	spans := Locate(document, candidates)
	for i := range spans {
		if document[spans[i].Start:spans[i].End] != spans[i].MatchedText {
			t.Errorf("fidelity: span %d matched text %q != document slice %q",
				i, spans[i].MatchedText, document[spans[i].Start:spans[i].End])
		}
		for j := range spans {
			if i != j && spans[i].Start == spans[j].Start {
				t.Errorf("spans %d and %d share start offset %d", i, j, spans[i].Start)
			}
		}
	}
}

func TestContextShorterThanSnippetIgnored(t *testing.T) {
	document := "alpha beta alpha"
	c := candidate("alpha beta")
	c.Context = "beta"
	pass := NewPass(document)
	resolved := mustResolve(t, pass, c)
	if resolved.Start != 0 {
		t.Errorf("got start %d, want 0 (context tier skipped)", resolved.Start)
	}
}

func TestContextOccurrenceAlreadyClaimed(t *testing.T) {
	document := "fix the code. fix the code."
	first := candidate("code")
	first.Context = "fix the code."
	second := candidate("code")
	second.Context = "fix the code."

	pass := NewPass(document)
	a := mustResolve(t, pass, first)
	b := mustResolve(t, pass, second)
	if a.Start != 8 {
		t.Errorf("first: got start %d, want 8", a.Start)
	}
	if b.Start != 22 {
		t.Errorf("second: got start %d, want 22 (next context occurrence)", b.Start)
	}
}

func TestStructurallyInvalidCandidateDropped(t *testing.T) {
	document := "some text"
	cases := []Candidate{
		{Kind: "grammar", Replacement: "x"}, // missing snippet
		{Snippet: "text", Replacement: "x"}, // missing kind
		{Kind: "grammar", Snippet: "text"},  // missing replacement
	}
	for i, c := range cases {
		if _, ok := NewPass(document).Resolve(c); ok {
			t.Errorf("case %d: invalid candidate was resolved", i)
		}
	}
}

func TestEmptyDocument(t *testing.T) {
	if spans := Locate("", []Candidate{candidate("cat")}); len(spans) != 0 {
		t.Errorf("expected no spans on empty document, got %d", len(spans))
	}
}

func TestTrimRetryKeepsContext(t *testing.T) {
	document := "a dog barked. a dog slept."
	c := candidate(" dog")
	c.Context = "a dog slept."
	pass := NewPass(document)
	resolved := mustResolve(t, pass, c)
	if resolved.MatchedText != "dog" {
		t.Errorf("got matched text %q, want %q", resolved.MatchedText, "dog")
	}
	if resolved.Start != 16 {
		t.Errorf("got start %d, want 16 (context applies after trim)", resolved.Start)
	}
}
