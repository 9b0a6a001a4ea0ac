package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"testing"

	"quill/api/internal/config"
	"quill/api/internal/oracle"
	"quill/api/internal/revision"
	"quill/api/internal/search"
	"quill/api/internal/span"
	"quill/api/internal/store"
	"quill/api/internal/suggest"
)

type fakeStore struct {
	listDocumentsFn             func(context.Context) ([]store.Document, error)
	getDocumentFn               func(context.Context, string) (store.Document, error)
	insertDocumentFn            func(context.Context, store.Document) error
	updateDocumentFn            func(context.Context, string, string, string, string, string) error
	deleteDocumentFn            func(context.Context, string) error
	listTagsFn                  func(context.Context) ([]store.Tag, error)
	insertTagFn                 func(context.Context, store.Tag) error
	listDocumentTagsFn          func(context.Context, string) ([]store.Tag, error)
	replacePendingSuggestionsFn func(context.Context, string, []store.Suggestion) error
	listSuggestionsFn           func(context.Context, string, string) ([]store.Suggestion, error)
	getSuggestionFn             func(context.Context, string, string) (store.Suggestion, error)
	updateSuggestionStatusFn    func(context.Context, string, string) error
	insertIdeaFn                func(context.Context, store.Idea) error
	listIdeasFn                 func(context.Context, int) ([]store.Idea, error)
	pingFn                      func(context.Context) error
}

func (f *fakeStore) ListDocuments(ctx context.Context) ([]store.Document, error) {
	if f.listDocumentsFn != nil {
		return f.listDocumentsFn(ctx)
	}
	return nil, nil
}

func (f *fakeStore) GetDocument(ctx context.Context, documentID string) (store.Document, error) {
	if f.getDocumentFn != nil {
		return f.getDocumentFn(ctx, documentID)
	}
	return store.Document{}, sql.ErrNoRows
}

func (f *fakeStore) InsertDocument(ctx context.Context, item store.Document) error {
	if f.insertDocumentFn != nil {
		return f.insertDocumentFn(ctx, item)
	}
	return nil
}

func (f *fakeStore) UpdateDocument(ctx context.Context, documentID, title, body, status, updatedBy string) error {
	if f.updateDocumentFn != nil {
		return f.updateDocumentFn(ctx, documentID, title, body, status, updatedBy)
	}
	return nil
}

func (f *fakeStore) DeleteDocument(ctx context.Context, documentID string) error {
	if f.deleteDocumentFn != nil {
		return f.deleteDocumentFn(ctx, documentID)
	}
	return nil
}

func (f *fakeStore) ListTags(ctx context.Context) ([]store.Tag, error) {
	if f.listTagsFn != nil {
		return f.listTagsFn(ctx)
	}
	return nil, nil
}

func (f *fakeStore) InsertTag(ctx context.Context, item store.Tag) error {
	if f.insertTagFn != nil {
		return f.insertTagFn(ctx, item)
	}
	return nil
}

func (f *fakeStore) DeleteTag(context.Context, string) error { return nil }

func (f *fakeStore) AssignTag(context.Context, string, string) error { return nil }

func (f *fakeStore) UnassignTag(context.Context, string, string) error { return nil }

func (f *fakeStore) ListDocumentTags(ctx context.Context, documentID string) ([]store.Tag, error) {
	if f.listDocumentTagsFn != nil {
		return f.listDocumentTagsFn(ctx, documentID)
	}
	return nil, nil
}

func (f *fakeStore) ReplacePendingSuggestions(ctx context.Context, documentID string, items []store.Suggestion) error {
	if f.replacePendingSuggestionsFn != nil {
		return f.replacePendingSuggestionsFn(ctx, documentID, items)
	}
	return nil
}

func (f *fakeStore) ListSuggestions(ctx context.Context, documentID, status string) ([]store.Suggestion, error) {
	if f.listSuggestionsFn != nil {
		return f.listSuggestionsFn(ctx, documentID, status)
	}
	return nil, nil
}

func (f *fakeStore) GetSuggestion(ctx context.Context, documentID, suggestionID string) (store.Suggestion, error) {
	if f.getSuggestionFn != nil {
		return f.getSuggestionFn(ctx, documentID, suggestionID)
	}
	return store.Suggestion{}, sql.ErrNoRows
}

func (f *fakeStore) UpdateSuggestionStatus(ctx context.Context, suggestionID, status string) error {
	if f.updateSuggestionStatusFn != nil {
		return f.updateSuggestionStatusFn(ctx, suggestionID, status)
	}
	return nil
}

func (f *fakeStore) InsertIdea(ctx context.Context, item store.Idea) error {
	if f.insertIdeaFn != nil {
		return f.insertIdeaFn(ctx, item)
	}
	return nil
}

func (f *fakeStore) ListIdeas(ctx context.Context, limit int) ([]store.Idea, error) {
	if f.listIdeasFn != nil {
		return f.listIdeasFn(ctx, limit)
	}
	return nil, nil
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

type fakeRevisions struct {
	ensureFn    func(string, revision.Content, string) error
	commitFn    func(string, revision.Content, string, string) (store.CommitInfo, error)
	getHeadFn   func(string) (revision.Content, store.CommitInfo, error)
	getByHashFn func(string, string) (revision.Content, store.CommitInfo, error)
	historyFn   func(string, int) ([]store.CommitInfo, error)
}

func (f *fakeRevisions) EnsureDocumentRepo(documentID string, initial revision.Content, author string) error {
	if f.ensureFn != nil {
		return f.ensureFn(documentID, initial, author)
	}
	return nil
}

func (f *fakeRevisions) Commit(documentID string, content revision.Content, author, message string) (store.CommitInfo, error) {
	if f.commitFn != nil {
		return f.commitFn(documentID, content, author, message)
	}
	return store.CommitInfo{Hash: "abc1234"}, nil
}

func (f *fakeRevisions) GetHead(documentID string) (revision.Content, store.CommitInfo, error) {
	if f.getHeadFn != nil {
		return f.getHeadFn(documentID)
	}
	return revision.Content{}, store.CommitInfo{}, nil
}

func (f *fakeRevisions) GetByHash(documentID, hash string) (revision.Content, store.CommitInfo, error) {
	if f.getByHashFn != nil {
		return f.getByHashFn(documentID, hash)
	}
	return revision.Content{}, store.CommitInfo{}, errors.New("unknown hash")
}

func (f *fakeRevisions) History(documentID string, limit int) ([]store.CommitInfo, error) {
	if f.historyFn != nil {
		return f.historyFn(documentID, limit)
	}
	return nil, nil
}

type fakeAnalyzer struct {
	analyzeFn func(context.Context, string, suggest.Mode) ([]span.ResolvedSpan, error)
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, text string, mode suggest.Mode) ([]span.ResolvedSpan, error) {
	if f.analyzeFn != nil {
		return f.analyzeFn(ctx, text, mode)
	}
	return nil, nil
}

type fakeIdeas struct {
	generateFn func(context.Context, string, int) ([]oracle.Idea, error)
}

func (f *fakeIdeas) GenerateIdeas(ctx context.Context, topic string, count int) ([]oracle.Idea, error) {
	if f.generateFn != nil {
		return f.generateFn(ctx, topic, count)
	}
	return nil, nil
}

type fakeSearch struct {
	searchFn    func(search.Query) search.Response
	indexedDocs []search.DocumentRecord
	indexedIdea []search.IdeaRecord
	deletedDocs []string
}

func (f *fakeSearch) Search(q search.Query) search.Response {
	if f.searchFn != nil {
		return f.searchFn(q)
	}
	return search.Response{Results: []search.Result{}, Query: q.Text}
}

func (f *fakeSearch) IndexDocument(doc search.DocumentRecord) {
	f.indexedDocs = append(f.indexedDocs, doc)
}

func (f *fakeSearch) IndexIdea(i search.IdeaRecord) {
	f.indexedIdea = append(f.indexedIdea, i)
}

func (f *fakeSearch) DeleteDocument(id string) {
	f.deletedDocs = append(f.deletedDocs, id)
}

func (f *fakeSearch) ReindexAllFromPG(context.Context) {}

func newTestService(fs *fakeStore, fr *fakeRevisions, fa *fakeAnalyzer, fi *fakeIdeas, fse *fakeSearch) *Service {
	return &Service{
		cfg:       config.Config{},
		store:     fs,
		revisions: fr,
		analyzer:  fa,
		ideas:     fi,
		search:    fse,
	}
}

func pendingCat(body string) store.Suggestion {
	start := strings.Index(body, "cat")
	return store.Suggestion{
		ID:          "sug_1",
		DocumentID:  "doc-1",
		Kind:        "grammar",
		MatchedText: "cat",
		Replacement: "dog",
		StartPos:    start,
		EndPos:      start + 3,
		Status:      "pending",
	}
}

func TestAnalyzeReplacesPendingSuggestions(t *testing.T) {
	var replaced []store.Suggestion
	fs := &fakeStore{
		getDocumentFn: func(_ context.Context, id string) (store.Document, error) {
			return store.Document{ID: id, Title: "Doc", Body: "a cat sat", Status: "Draft"}, nil
		},
		replacePendingSuggestionsFn: func(_ context.Context, documentID string, items []store.Suggestion) error {
			replaced = items
			return nil
		},
		listSuggestionsFn: func(context.Context, string, string) ([]store.Suggestion, error) {
			return replaced, nil
		},
	}
	fa := &fakeAnalyzer{
		analyzeFn: func(_ context.Context, text string, mode suggest.Mode) ([]span.ResolvedSpan, error) {
			if mode != suggest.ModeSentences {
				t.Fatalf("expected default sentences mode, got %s", mode)
			}
			return []span.ResolvedSpan{{
				Start:       2,
				End:         5,
				MatchedText: "cat",
				Candidate:   span.Candidate{Kind: "grammar", Snippet: "cat", Replacement: "dog", Confidence: 0.9},
			}}, nil
		},
	}
	svc := newTestService(fs, &fakeRevisions{}, fa, &fakeIdeas{}, &fakeSearch{})

	payload, err := svc.Analyze(context.Background(), "doc-1", "")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if len(replaced) != 1 {
		t.Fatalf("expected 1 stored suggestion, got %d", len(replaced))
	}
	if replaced[0].Status != "pending" {
		t.Errorf("stored status = %q, want pending", replaced[0].Status)
	}
	if !strings.HasPrefix(replaced[0].ID, "sug_") {
		t.Errorf("stored ID = %q, want sug_ prefix", replaced[0].ID)
	}
	if replaced[0].StartPos != 2 || replaced[0].EndPos != 5 {
		t.Errorf("stored offsets = [%d,%d), want [2,5)", replaced[0].StartPos, replaced[0].EndPos)
	}

	items, ok := payload["suggestions"].([]map[string]any)
	if !ok || len(items) != 1 {
		t.Fatalf("unexpected suggestions payload: %v", payload["suggestions"])
	}
	if items[0]["matchedText"] != "cat" {
		t.Errorf("payload matchedText = %v, want cat", items[0]["matchedText"])
	}
}

func TestAnalyzeRejectsUnknownMode(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeRevisions{}, &fakeAnalyzer{}, &fakeIdeas{}, &fakeSearch{})

	_, err := svc.Analyze(context.Background(), "doc-1", "paragraphs")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Status != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", domainErr.Status)
	}
}

func TestAcceptSuggestionSplicesBody(t *testing.T) {
	body := "a cat sat"
	var updatedBody string
	var committedMessage string
	var resolvedStatus string
	fs := &fakeStore{
		getDocumentFn: func(_ context.Context, id string) (store.Document, error) {
			return store.Document{ID: id, Title: "Doc", Body: body, Status: "Draft"}, nil
		},
		getSuggestionFn: func(context.Context, string, string) (store.Suggestion, error) {
			return pendingCat(body), nil
		},
		updateDocumentFn: func(_ context.Context, _, _, newBody, _, _ string) error {
			updatedBody = newBody
			return nil
		},
		updateSuggestionStatusFn: func(_ context.Context, _, status string) error {
			resolvedStatus = status
			return nil
		},
	}
	fr := &fakeRevisions{
		commitFn: func(_ string, _ revision.Content, _, message string) (store.CommitInfo, error) {
			committedMessage = message
			return store.CommitInfo{Hash: "abc1234"}, nil
		},
	}
	fse := &fakeSearch{}
	svc := newTestService(fs, fr, &fakeAnalyzer{}, &fakeIdeas{}, fse)

	if _, err := svc.AcceptSuggestion(context.Background(), "doc-1", "sug_1", "Avery"); err != nil {
		t.Fatalf("AcceptSuggestion() error = %v", err)
	}

	if updatedBody != "a dog sat" {
		t.Errorf("updated body = %q, want %q", updatedBody, "a dog sat")
	}
	if committedMessage != "Accept grammar suggestion" {
		t.Errorf("commit message = %q", committedMessage)
	}
	if resolvedStatus != "accepted" {
		t.Errorf("suggestion status = %q, want accepted", resolvedStatus)
	}
	if len(fse.indexedDocs) != 1 {
		t.Errorf("expected search reindex after accept, got %d calls", len(fse.indexedDocs))
	}
}

func TestAcceptSuggestionRelocatesMovedSpan(t *testing.T) {
	// The body gained a prefix after analysis, so the stored offsets point at
	// the wrong bytes but the matched text still exists further right.
	staleSuggestion := pendingCat("a cat sat")
	body := "so a cat sat"
	var updatedBody string
	fs := &fakeStore{
		getDocumentFn: func(_ context.Context, id string) (store.Document, error) {
			return store.Document{ID: id, Title: "Doc", Body: body, Status: "Draft"}, nil
		},
		getSuggestionFn: func(context.Context, string, string) (store.Suggestion, error) {
			return staleSuggestion, nil
		},
		updateDocumentFn: func(_ context.Context, _, _, newBody, _, _ string) error {
			updatedBody = newBody
			return nil
		},
	}
	svc := newTestService(fs, &fakeRevisions{}, &fakeAnalyzer{}, &fakeIdeas{}, &fakeSearch{})

	if _, err := svc.AcceptSuggestion(context.Background(), "doc-1", "sug_1", "Avery"); err != nil {
		t.Fatalf("AcceptSuggestion() error = %v", err)
	}
	if updatedBody != "so a dog sat" {
		t.Errorf("updated body = %q, want %q", updatedBody, "so a dog sat")
	}
}

func TestAcceptSuggestionStaleWhenTextGone(t *testing.T) {
	staleSuggestion := pendingCat("a cat sat")
	fs := &fakeStore{
		getDocumentFn: func(_ context.Context, id string) (store.Document, error) {
			return store.Document{ID: id, Title: "Doc", Body: "completely rewritten", Status: "Draft"}, nil
		},
		getSuggestionFn: func(context.Context, string, string) (store.Suggestion, error) {
			return staleSuggestion, nil
		},
	}
	svc := newTestService(fs, &fakeRevisions{}, &fakeAnalyzer{}, &fakeIdeas{}, &fakeSearch{})

	_, err := svc.AcceptSuggestion(context.Background(), "doc-1", "sug_1", "Avery")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Code != "SUGGESTION_STALE" {
		t.Errorf("code = %q, want SUGGESTION_STALE", domainErr.Code)
	}
	if domainErr.Status != http.StatusConflict {
		t.Errorf("status = %d, want 409", domainErr.Status)
	}
}

func TestAcceptSuggestionAlreadyResolved(t *testing.T) {
	resolved := pendingCat("a cat sat")
	resolved.Status = "accepted"
	fs := &fakeStore{
		getSuggestionFn: func(context.Context, string, string) (store.Suggestion, error) {
			return resolved, nil
		},
	}
	svc := newTestService(fs, &fakeRevisions{}, &fakeAnalyzer{}, &fakeIdeas{}, &fakeSearch{})

	_, err := svc.AcceptSuggestion(context.Background(), "doc-1", "sug_1", "Avery")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Code != "SUGGESTION_RESOLVED" {
		t.Errorf("code = %q, want SUGGESTION_RESOLVED", domainErr.Code)
	}
}

func TestDismissSuggestion(t *testing.T) {
	var resolvedStatus string
	fs := &fakeStore{
		getDocumentFn: func(_ context.Context, id string) (store.Document, error) {
			return store.Document{ID: id, Body: "a cat sat"}, nil
		},
		getSuggestionFn: func(context.Context, string, string) (store.Suggestion, error) {
			return pendingCat("a cat sat"), nil
		},
		updateSuggestionStatusFn: func(_ context.Context, _, status string) error {
			resolvedStatus = status
			return nil
		},
	}
	svc := newTestService(fs, &fakeRevisions{}, &fakeAnalyzer{}, &fakeIdeas{}, &fakeSearch{})

	if _, err := svc.DismissSuggestion(context.Background(), "doc-1", "sug_1"); err != nil {
		t.Fatalf("DismissSuggestion() error = %v", err)
	}
	if resolvedStatus != "dismissed" {
		t.Errorf("suggestion status = %q, want dismissed", resolvedStatus)
	}
}

func TestUpdateDocumentCommitsOnlyOnChange(t *testing.T) {
	commits := 0
	fs := &fakeStore{
		getDocumentFn: func(_ context.Context, id string) (store.Document, error) {
			return store.Document{ID: id, Title: "Doc", Body: "same body", Status: "Draft"}, nil
		},
	}
	fr := &fakeRevisions{
		commitFn: func(string, revision.Content, string, string) (store.CommitInfo, error) {
			commits++
			return store.CommitInfo{Hash: "abc1234"}, nil
		},
	}
	svc := newTestService(fs, fr, &fakeAnalyzer{}, &fakeIdeas{}, &fakeSearch{})

	if _, err := svc.UpdateDocument(context.Background(), "doc-1", "Doc", "same body", "Draft", "Avery"); err != nil {
		t.Fatalf("UpdateDocument() error = %v", err)
	}
	if commits != 0 {
		t.Errorf("expected no commit for unchanged content, got %d", commits)
	}

	if _, err := svc.UpdateDocument(context.Background(), "doc-1", "Doc", "new body", "Draft", "Avery"); err != nil {
		t.Fatalf("UpdateDocument() error = %v", err)
	}
	if commits != 1 {
		t.Errorf("expected 1 commit for changed content, got %d", commits)
	}
}

func TestUpdateDocumentRejectsUnknownStatus(t *testing.T) {
	fs := &fakeStore{
		getDocumentFn: func(_ context.Context, id string) (store.Document, error) {
			return store.Document{ID: id, Title: "Doc", Body: "body", Status: "Draft"}, nil
		},
	}
	svc := newTestService(fs, &fakeRevisions{}, &fakeAnalyzer{}, &fakeIdeas{}, &fakeSearch{})

	_, err := svc.UpdateDocument(context.Background(), "doc-1", "Doc", "body", "Published", "Avery")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Status != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", domainErr.Status)
	}
}

func TestCreateTagRequiresName(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeRevisions{}, &fakeAnalyzer{}, &fakeIdeas{}, &fakeSearch{})

	_, err := svc.CreateTag(context.Background(), "   ", "")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
}

func TestGenerateIdeasPersistsAndIndexes(t *testing.T) {
	var inserted []store.Idea
	fs := &fakeStore{
		insertIdeaFn: func(_ context.Context, item store.Idea) error {
			inserted = append(inserted, item)
			return nil
		},
	}
	fi := &fakeIdeas{
		generateFn: func(_ context.Context, topic string, count int) ([]oracle.Idea, error) {
			return []oracle.Idea{
				{Title: "Opening hooks", Summary: "Three ways to start an essay about " + topic},
				{Title: "Counterarguments", Summary: "Anticipating objections"},
			}, nil
		},
	}
	fse := &fakeSearch{}
	svc := newTestService(fs, &fakeRevisions{}, &fakeAnalyzer{}, fi, fse)

	payload, err := svc.GenerateIdeas(context.Background(), "  remote work  ", 2)
	if err != nil {
		t.Fatalf("GenerateIdeas() error = %v", err)
	}

	if len(inserted) != 2 {
		t.Fatalf("expected 2 persisted ideas, got %d", len(inserted))
	}
	if inserted[0].Topic != "remote work" {
		t.Errorf("topic = %q, want trimmed %q", inserted[0].Topic, "remote work")
	}
	if len(fse.indexedIdea) != 2 {
		t.Errorf("expected 2 indexed ideas, got %d", len(fse.indexedIdea))
	}
	if payload["topic"] != "remote work" {
		t.Errorf("payload topic = %v", payload["topic"])
	}
}

func TestGenerateIdeasRequiresTopic(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeRevisions{}, &fakeAnalyzer{}, &fakeIdeas{}, &fakeSearch{})

	_, err := svc.GenerateIdeas(context.Background(), "", 5)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
}

func TestDeleteDocumentRemovesFromSearch(t *testing.T) {
	fs := &fakeStore{
		getDocumentFn: func(_ context.Context, id string) (store.Document, error) {
			return store.Document{ID: id}, nil
		},
	}
	fse := &fakeSearch{}
	svc := newTestService(fs, &fakeRevisions{}, &fakeAnalyzer{}, &fakeIdeas{}, fse)

	if err := svc.DeleteDocument(context.Background(), "doc-1"); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}
	if len(fse.deletedDocs) != 1 || fse.deletedDocs[0] != "doc-1" {
		t.Errorf("expected search delete for doc-1, got %v", fse.deletedDocs)
	}
}

func TestSearchRejectsUnknownType(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeRevisions{}, &fakeAnalyzer{}, &fakeIdeas{}, &fakeSearch{})

	_, err := svc.Search(context.Background(), "query", "thread", "", 20, 0)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
}
