package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"quill/api/internal/config"
	"quill/api/internal/export"
	"quill/api/internal/oracle"
	"quill/api/internal/revision"
	"quill/api/internal/search"
	"quill/api/internal/span"
	"quill/api/internal/store"
	"quill/api/internal/suggest"
	"quill/api/internal/util"
)

var allowedDocumentStatuses = map[string]struct{}{
	"Draft":     {},
	"In review": {},
	"Final":     {},
}

type dataStore interface {
	ListDocuments(context.Context) ([]store.Document, error)
	GetDocument(context.Context, string) (store.Document, error)
	InsertDocument(context.Context, store.Document) error
	UpdateDocument(context.Context, string, string, string, string, string) error
	DeleteDocument(context.Context, string) error
	ListTags(context.Context) ([]store.Tag, error)
	InsertTag(context.Context, store.Tag) error
	DeleteTag(context.Context, string) error
	AssignTag(context.Context, string, string) error
	UnassignTag(context.Context, string, string) error
	ListDocumentTags(context.Context, string) ([]store.Tag, error)
	ReplacePendingSuggestions(context.Context, string, []store.Suggestion) error
	ListSuggestions(context.Context, string, string) ([]store.Suggestion, error)
	GetSuggestion(context.Context, string, string) (store.Suggestion, error)
	UpdateSuggestionStatus(context.Context, string, string) error
	InsertIdea(context.Context, store.Idea) error
	ListIdeas(context.Context, int) ([]store.Idea, error)
	Ping(ctx context.Context) error
}

type revisionService interface {
	EnsureDocumentRepo(string, revision.Content, string) error
	Commit(string, revision.Content, string, string) (store.CommitInfo, error)
	GetHead(string) (revision.Content, store.CommitInfo, error)
	GetByHash(string, string) (revision.Content, store.CommitInfo, error)
	History(string, int) ([]store.CommitInfo, error)
}

type analyzer interface {
	Analyze(ctx context.Context, text string, mode suggest.Mode) ([]span.ResolvedSpan, error)
}

type ideaOracle interface {
	GenerateIdeas(ctx context.Context, topic string, count int) ([]oracle.Idea, error)
}

type searchService interface {
	Search(q search.Query) search.Response
	IndexDocument(doc search.DocumentRecord)
	IndexIdea(i search.IdeaRecord)
	DeleteDocument(id string)
	ReindexAllFromPG(ctx context.Context)
}

type Service struct {
	cfg       config.Config
	store     dataStore
	revisions revisionService
	analyzer  analyzer
	ideas     ideaOracle
	search    searchService
	exporter  *export.Service
}

func New(cfg config.Config, dataStore *store.PostgresStore, revisions *revision.Service, analyzer *suggest.Service, ideas oracle.Client, searchSvc *search.Service) *Service {
	s := &Service{
		cfg:       cfg,
		store:     dataStore,
		revisions: revisions,
		analyzer:  analyzer,
		ideas:     ideas,
		search:    searchSvc,
	}
	s.exporter = export.NewService(&exportStore{service: s})
	return s
}

func (s *Service) Bootstrap(ctx context.Context) error {
	documents, err := s.store.ListDocuments(ctx)
	if err != nil {
		return err
	}
	if len(documents) > 0 {
		return nil
	}

	seeds := []struct {
		ID    string
		Title string
		Body  string
	}{
		{
			ID:    "doc-welcome",
			Title: "Welcome to Quill",
			Body:  "Quill reads your draft and suggests precise edits. Every suggestion is anchored to the exact text it applies to. Run an analysis to see it in action.",
		},
		{
			ID:    "doc-sample-essay",
			Title: "Sample Essay",
			Body:  "Writing is rewriting. The first draft exists so that teh second draft can be better. Good prose is not born, it is revised into being.",
		},
	}

	for _, seed := range seeds {
		if err := s.store.InsertDocument(ctx, store.Document{
			ID:        seed.ID,
			Title:     seed.Title,
			Body:      seed.Body,
			Status:    "Draft",
			UpdatedBy: "Quill",
		}); err != nil {
			return err
		}
		if err := s.revisions.EnsureDocumentRepo(seed.ID, revision.Content{Title: seed.Title, Body: seed.Body}, "Quill"); err != nil {
			return err
		}
		s.search.IndexDocument(search.DocumentRecord{ID: seed.ID, Title: seed.Title, Body: seed.Body, Status: "Draft"})
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) ListDocuments(ctx context.Context) ([]map[string]any, error) {
	documents, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(documents))
	for _, doc := range documents {
		pending, err := s.store.ListSuggestions(ctx, doc.ID, "pending")
		if err != nil {
			return nil, err
		}
		tags, err := s.store.ListDocumentTags(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		items = append(items, map[string]any{
			"id":                 doc.ID,
			"title":              doc.Title,
			"status":             doc.Status,
			"updatedBy":          doc.UpdatedBy,
			"updatedAt":          doc.UpdatedAt.Format(time.RFC3339),
			"pendingSuggestions": len(pending),
			"tags":               tagItems(tags),
		})
	}
	return items, nil
}

func (s *Service) GetDocument(ctx context.Context, documentID string) (map[string]any, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	tags, err := s.store.ListDocumentTags(ctx, documentID)
	if err != nil {
		return nil, err
	}
	suggestions, err := s.store.ListSuggestions(ctx, documentID, "pending")
	if err != nil {
		return nil, err
	}
	return s.documentPayload(doc, tags, suggestions), nil
}

func (s *Service) CreateDocument(ctx context.Context, title, body, userName string) (map[string]any, error) {
	documentTitle := strings.TrimSpace(title)
	if documentTitle == "" {
		documentTitle = "Untitled Document"
	}
	documentID := "doc-" + util.NewID("")[:10]

	if err := s.store.InsertDocument(ctx, store.Document{
		ID:        documentID,
		Title:     documentTitle,
		Body:      body,
		Status:    "Draft",
		UpdatedBy: userName,
	}); err != nil {
		return nil, err
	}
	if err := s.revisions.EnsureDocumentRepo(documentID, revision.Content{Title: documentTitle, Body: body}, userName); err != nil {
		return nil, err
	}
	s.search.IndexDocument(search.DocumentRecord{ID: documentID, Title: documentTitle, Body: body, Status: "Draft"})

	return s.GetDocument(ctx, documentID)
}

func (s *Service) UpdateDocument(ctx context.Context, documentID, title, body, status, userName string) (map[string]any, error) {
	current, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	nextTitle := firstNonBlank(title, current.Title)
	nextBody := body
	nextStatus := firstNonBlank(status, current.Status)
	if _, ok := allowedDocumentStatuses[nextStatus]; !ok {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Unknown document status", map[string]any{"status": nextStatus})
	}

	if err := s.store.UpdateDocument(ctx, documentID, nextTitle, nextBody, nextStatus, userName); err != nil {
		return nil, err
	}

	next := revision.Content{Title: nextTitle, Body: nextBody}
	if revision.HasChanges(revision.Content{Title: current.Title, Body: current.Body}, next) {
		if _, err := s.revisions.Commit(documentID, next, userName, "Update document"); err != nil {
			return nil, err
		}
	}

	s.search.IndexDocument(search.DocumentRecord{ID: documentID, Title: nextTitle, Body: nextBody, Status: nextStatus})

	return s.GetDocument(ctx, documentID)
}

func (s *Service) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	s.search.DeleteDocument(documentID)
	return nil
}

// Analyze runs the oracle over the current document body and replaces the
// pending suggestion set with the freshly resolved spans. Accepted and
// dismissed suggestions are left untouched.
func (s *Service) Analyze(ctx context.Context, documentID, mode string) (map[string]any, error) {
	analysisMode := suggest.Mode(strings.TrimSpace(mode))
	if analysisMode == "" {
		analysisMode = suggest.ModeSentences
	}
	if !analysisMode.Valid() {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Unknown analysis mode", map[string]any{"mode": mode})
	}

	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	spans, err := s.analyzer.Analyze(ctx, doc.Body, analysisMode)
	if err != nil {
		return nil, fmt.Errorf("analyze document %s: %w", documentID, err)
	}

	suggestions := make([]store.Suggestion, 0, len(spans))
	for _, resolved := range spans {
		suggestions = append(suggestions, store.Suggestion{
			ID:          util.NewID("sug"),
			DocumentID:  documentID,
			Kind:        resolved.Candidate.Kind,
			MatchedText: resolved.MatchedText,
			Replacement: resolved.Candidate.Replacement,
			Explanation: resolved.Candidate.Explanation,
			Confidence:  resolved.Candidate.Confidence,
			StartPos:    resolved.Start,
			EndPos:      resolved.End,
			Status:      "pending",
		})
	}
	if err := s.store.ReplacePendingSuggestions(ctx, documentID, suggestions); err != nil {
		return nil, err
	}

	stored, err := s.store.ListSuggestions(ctx, documentID, "pending")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"documentId":  documentID,
		"mode":        string(analysisMode),
		"suggestions": suggestionItems(stored),
	}, nil
}

func (s *Service) ListSuggestions(ctx context.Context, documentID, status string) (map[string]any, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	suggestions, err := s.store.ListSuggestions(ctx, documentID, status)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"documentId":  documentID,
		"suggestions": suggestionItems(suggestions),
	}, nil
}

// AcceptSuggestion applies a pending suggestion to the current body. The
// stored offsets are validated against the body first; if the text has moved
// since analysis the span is relocated with a fresh single-candidate pass,
// and the suggestion is rejected as stale when the text is gone entirely.
func (s *Service) AcceptSuggestion(ctx context.Context, documentID, suggestionID, userName string) (map[string]any, error) {
	suggestion, err := s.store.GetSuggestion(ctx, documentID, suggestionID)
	if err != nil {
		return nil, err
	}
	if suggestion.Status != "pending" {
		return nil, domainError(http.StatusConflict, "SUGGESTION_RESOLVED", "Suggestion has already been resolved", map[string]any{"status": suggestion.Status})
	}

	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	start, end := suggestion.StartPos, suggestion.EndPos
	if !offsetsMatch(doc.Body, start, end, suggestion.MatchedText) {
		relocated := span.Locate(doc.Body, []span.Candidate{{
			Kind:        suggestion.Kind,
			Snippet:     suggestion.MatchedText,
			Replacement: suggestion.Replacement,
		}})
		if len(relocated) == 0 {
			return nil, domainError(http.StatusConflict, "SUGGESTION_STALE", "The suggested text no longer appears in the document", nil)
		}
		start, end = relocated[0].Start, relocated[0].End
	}

	nextBody := doc.Body[:start] + suggestion.Replacement + doc.Body[end:]
	if err := s.store.UpdateDocument(ctx, documentID, doc.Title, nextBody, doc.Status, userName); err != nil {
		return nil, err
	}
	message := fmt.Sprintf("Accept %s suggestion", suggestion.Kind)
	if _, err := s.revisions.Commit(documentID, revision.Content{Title: doc.Title, Body: nextBody}, userName, message); err != nil {
		return nil, err
	}
	if err := s.store.UpdateSuggestionStatus(ctx, suggestionID, "accepted"); err != nil {
		return nil, err
	}
	s.search.IndexDocument(search.DocumentRecord{ID: documentID, Title: doc.Title, Body: nextBody, Status: doc.Status})

	return s.GetDocument(ctx, documentID)
}

func (s *Service) DismissSuggestion(ctx context.Context, documentID, suggestionID string) (map[string]any, error) {
	suggestion, err := s.store.GetSuggestion(ctx, documentID, suggestionID)
	if err != nil {
		return nil, err
	}
	if suggestion.Status != "pending" {
		return nil, domainError(http.StatusConflict, "SUGGESTION_RESOLVED", "Suggestion has already been resolved", map[string]any{"status": suggestion.Status})
	}
	if err := s.store.UpdateSuggestionStatus(ctx, suggestionID, "dismissed"); err != nil {
		return nil, err
	}
	return s.ListSuggestions(ctx, documentID, "pending")
}

func (s *Service) ListTags(ctx context.Context) ([]map[string]any, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	return tagItems(tags), nil
}

func (s *Service) CreateTag(ctx context.Context, name, color string) (map[string]any, error) {
	tagName := strings.TrimSpace(name)
	if tagName == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Tag name is required", nil)
	}
	tag := store.Tag{
		ID:    util.NewID("tag"),
		Name:  tagName,
		Color: firstNonBlank(color, "#888888"),
	}
	if err := s.store.InsertTag(ctx, tag); err != nil {
		return nil, err
	}
	return map[string]any{"id": tag.ID, "name": tag.Name, "color": tag.Color}, nil
}

func (s *Service) DeleteTag(ctx context.Context, tagID string) error {
	return s.store.DeleteTag(ctx, tagID)
}

func (s *Service) AssignTag(ctx context.Context, documentID, tagID string) (map[string]any, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	if err := s.store.AssignTag(ctx, documentID, tagID); err != nil {
		return nil, err
	}
	tags, err := s.store.ListDocumentTags(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"documentId": documentID, "tags": tagItems(tags)}, nil
}

func (s *Service) UnassignTag(ctx context.Context, documentID, tagID string) (map[string]any, error) {
	if err := s.store.UnassignTag(ctx, documentID, tagID); err != nil {
		return nil, err
	}
	tags, err := s.store.ListDocumentTags(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"documentId": documentID, "tags": tagItems(tags)}, nil
}

func (s *Service) GenerateIdeas(ctx context.Context, topic string, count int) (map[string]any, error) {
	trimmedTopic := strings.TrimSpace(topic)
	if trimmedTopic == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Topic is required", nil)
	}
	if count <= 0 {
		count = 5
	}
	if count > 20 {
		count = 20
	}

	generated, err := s.ideas.GenerateIdeas(ctx, trimmedTopic, count)
	if err != nil {
		return nil, fmt.Errorf("generate ideas for %q: %w", trimmedTopic, err)
	}

	items := make([]map[string]any, 0, len(generated))
	for _, idea := range generated {
		record := store.Idea{
			ID:      util.NewID("idea"),
			Topic:   trimmedTopic,
			Title:   idea.Title,
			Summary: idea.Summary,
		}
		if err := s.store.InsertIdea(ctx, record); err != nil {
			return nil, err
		}
		s.search.IndexIdea(search.IdeaRecord{ID: record.ID, Topic: record.Topic, Title: record.Title, Summary: record.Summary})
		items = append(items, map[string]any{
			"id":      record.ID,
			"topic":   record.Topic,
			"title":   record.Title,
			"summary": record.Summary,
		})
	}

	return map[string]any{"topic": trimmedTopic, "ideas": items}, nil
}

func (s *Service) ListIdeas(ctx context.Context, limit int) ([]map[string]any, error) {
	ideas, err := s.store.ListIdeas(ctx, limit)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(ideas))
	for _, idea := range ideas {
		items = append(items, map[string]any{
			"id":        idea.ID,
			"topic":     idea.Topic,
			"title":     idea.Title,
			"summary":   idea.Summary,
			"createdAt": idea.CreatedAt.Format(time.RFC3339),
		})
	}
	return items, nil
}

func (s *Service) Search(ctx context.Context, query, filterType, filterStatus string, limit, offset int) (search.Response, error) {
	if filterType != "" {
		rtyp := search.ResultType(filterType)
		if rtyp != search.ResultDocument && rtyp != search.ResultIdea {
			return search.Response{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Unknown result type", map[string]any{"type": filterType})
		}
	}
	return s.search.Search(search.Query{
		Text:         query,
		FilterType:   search.ResultType(filterType),
		FilterStatus: filterStatus,
		Limit:        limit,
		Offset:       offset,
	}), nil
}

func (s *Service) History(ctx context.Context, documentID string) (map[string]any, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	commits, err := s.revisions.History(documentID, 50)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(commits))
	for _, item := range commits {
		items = append(items, map[string]any{
			"hash":    item.Hash,
			"message": strings.TrimSpace(item.Message),
			"author":  item.Author,
			"meta":    fmt.Sprintf("%s · %s", item.Author, relative(item.CreatedAt)),
		})
	}
	return map[string]any{
		"documentId": documentID,
		"commits":    items,
	}, nil
}

func (s *Service) GetVersion(ctx context.Context, documentID, hash string) (map[string]any, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	content, info, err := s.revisions.GetByHash(documentID, hash)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "VERSION_NOT_FOUND", "Revision not found", map[string]any{"hash": hash})
	}
	return map[string]any{
		"documentId": documentID,
		"hash":       info.Hash,
		"message":    strings.TrimSpace(info.Message),
		"author":     info.Author,
		"createdAt":  info.CreatedAt.Format(time.RFC3339),
		"title":      content.Title,
		"body":       content.Body,
	}, nil
}

func (s *Service) Export(ctx context.Context, req export.Request) (*export.Result, error) {
	return s.exporter.Export(ctx, req)
}

func (s *Service) ReindexSearch(ctx context.Context) {
	s.search.ReindexAllFromPG(ctx)
}

// exportStore adapts the app's data access to what the exporter needs.
type exportStore struct {
	service *Service
}

func (e *exportStore) GetDocumentInfo(ctx context.Context, id string) (export.DocumentInfo, error) {
	doc, err := e.service.store.GetDocument(ctx, id)
	if err != nil {
		return export.DocumentInfo{}, err
	}
	return export.DocumentInfo{
		ID:        doc.ID,
		Title:     doc.Title,
		Status:    doc.Status,
		UpdatedBy: doc.UpdatedBy,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (e *exportStore) GetDocumentContent(ctx context.Context, documentID, version string) (string, string, error) {
	if version == "" || version == "latest" {
		doc, err := e.service.store.GetDocument(ctx, documentID)
		if err != nil {
			return "", "", err
		}
		return doc.Title, doc.Body, nil
	}
	content, _, err := e.service.revisions.GetByHash(documentID, version)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", export.ErrContentUnavailable, version)
	}
	return content.Title, content.Body, nil
}

func (e *exportStore) ListPendingSuggestions(ctx context.Context, documentID string) ([]export.Suggestion, error) {
	suggestions, err := e.service.store.ListSuggestions(ctx, documentID, "pending")
	if err != nil {
		return nil, err
	}
	items := make([]export.Suggestion, 0, len(suggestions))
	for _, item := range suggestions {
		items = append(items, export.Suggestion{
			Kind:        item.Kind,
			MatchedText: item.MatchedText,
			Replacement: item.Replacement,
			Explanation: item.Explanation,
			CreatedAt:   item.CreatedAt,
		})
	}
	return items, nil
}

func (s *Service) documentPayload(doc store.Document, tags []store.Tag, suggestions []store.Suggestion) map[string]any {
	return map[string]any{
		"id":          doc.ID,
		"title":       doc.Title,
		"body":        doc.Body,
		"status":      doc.Status,
		"updatedBy":   doc.UpdatedBy,
		"createdAt":   doc.CreatedAt.Format(time.RFC3339),
		"updatedAt":   doc.UpdatedAt.Format(time.RFC3339),
		"tags":        tagItems(tags),
		"suggestions": suggestionItems(suggestions),
	}
}

func suggestionItems(suggestions []store.Suggestion) []map[string]any {
	items := make([]map[string]any, 0, len(suggestions))
	for _, item := range suggestions {
		payload := map[string]any{
			"id":          item.ID,
			"kind":        item.Kind,
			"matchedText": item.MatchedText,
			"replacement": item.Replacement,
			"explanation": item.Explanation,
			"confidence":  item.Confidence,
			"start":       item.StartPos,
			"end":         item.EndPos,
			"status":      item.Status,
		}
		if item.ResolvedAt != nil {
			payload["resolvedAt"] = item.ResolvedAt.Format(time.RFC3339)
		}
		items = append(items, payload)
	}
	return items
}

func tagItems(tags []store.Tag) []map[string]any {
	items := make([]map[string]any, 0, len(tags))
	for _, tag := range tags {
		items = append(items, map[string]any{
			"id":    tag.ID,
			"name":  tag.Name,
			"color": tag.Color,
		})
	}
	return items
}

func offsetsMatch(body string, start, end int, matchedText string) bool {
	if start < 0 || end > len(body) || start >= end {
		return false
	}
	return body[start:end] == matchedText
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func relative(value time.Time) string {
	minutes := int(time.Since(value).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm ago", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh ago", hours)
	}
	days := hours / 24
	return fmt.Sprintf("%dd ago", days)
}
