package export

import (
	"context"
	"fmt"
	"time"
)

// DataStore defines the data access the exporter needs
type DataStore interface {
	GetDocumentInfo(ctx context.Context, id string) (DocumentInfo, error)
	GetDocumentContent(ctx context.Context, documentID, version string) (string, string, error)
	ListPendingSuggestions(ctx context.Context, documentID string) ([]Suggestion, error)
}

// DocumentInfo holds basic document metadata
type DocumentInfo struct {
	ID        string
	Title     string
	Status    string
	UpdatedBy string
	UpdatedAt time.Time
}

// Service provides document export functionality
type Service struct {
	store DataStore
}

// NewService creates a new export service
func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	docInfo, err := s.store.GetDocumentInfo(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	// Title and body come from the requested revision, metadata from the store.
	title, body, err := s.store.GetDocumentContent(ctx, req.DocumentID, req.Version)
	if err != nil {
		return nil, fmt.Errorf("get document content: %w", err)
	}
	if title == "" {
		title = docInfo.Title
	}

	data := TemplateData{
		Title:       title,
		Paragraphs:  splitParagraphs(body),
		Author:      docInfo.UpdatedBy,
		Status:      docInfo.Status,
		UpdatedAt:   docInfo.UpdatedAt,
		Suggestions: []Suggestion{},
	}

	if req.IncludeSuggestions {
		suggestions, err := s.store.ListPendingSuggestions(ctx, req.DocumentID)
		if err != nil {
			return nil, fmt.Errorf("list pending suggestions: %w", err)
		}
		data.Suggestions = suggestions
	}

	html, err := RenderDocumentHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatPDF:
		return exportPDF(html, title)
	case FormatDOCX:
		return exportDOCX(html, title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}
