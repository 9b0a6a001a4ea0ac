package store

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Documents

func (s *PostgresStore) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, body, status, updated_by_name, created_at, updated_at
		FROM documents
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		var item Document
		if err := rows.Scan(&item.ID, &item.Title, &item.Body, &item.Status, &item.UpdatedBy, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (Document, error) {
	var item Document
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, body, status, updated_by_name, created_at, updated_at
		FROM documents
		WHERE id=$1
	`, documentID).Scan(&item.ID, &item.Title, &item.Body, &item.Status, &item.UpdatedBy, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Document{}, err
	}
	return item, nil
}

func (s *PostgresStore) InsertDocument(ctx context.Context, item Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, body, status, updated_by_name)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, item.ID, item.Title, item.Body, item.Status, item.UpdatedBy)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateDocument(ctx context.Context, documentID, title, body, status, updatedBy string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET title=$2, body=$3, status=$4, updated_by_name=$5, updated_at=NOW()
		WHERE id=$1
	`, documentID, title, body, status, updatedBy)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id=$1`, documentID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Tags

func (s *PostgresStore) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, color, created_at
		FROM tags
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	items := make([]Tag, 0)
	for rows.Next() {
		var item Tag
		if err := rows.Scan(&item.ID, &item.Name, &item.Color, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertTag(ctx context.Context, item Tag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, name, color)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`, item.ID, item.Name, item.Color)
	if err != nil {
		return fmt.Errorf("insert tag: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteTag(ctx context.Context, tagID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id=$1`, tagID)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return nil
}

func (s *PostgresStore) AssignTag(ctx context.Context, documentID, tagID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO document_tags (document_id, tag_id)
		VALUES ($1, $2)
		ON CONFLICT (document_id, tag_id) DO NOTHING
	`, documentID, tagID)
	if err != nil {
		return fmt.Errorf("assign tag: %w", err)
	}
	return nil
}

func (s *PostgresStore) UnassignTag(ctx context.Context, documentID, tagID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM document_tags WHERE document_id=$1 AND tag_id=$2
	`, documentID, tagID)
	if err != nil {
		return fmt.Errorf("unassign tag: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDocumentTags(ctx context.Context, documentID string) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.color, t.created_at
		FROM tags t
		JOIN document_tags dt ON dt.tag_id = t.id
		WHERE dt.document_id=$1
		ORDER BY t.name ASC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document tags: %w", err)
	}
	defer rows.Close()

	items := make([]Tag, 0)
	for rows.Next() {
		var item Tag
		if err := rows.Scan(&item.ID, &item.Name, &item.Color, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document tag: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document tags: %w", err)
	}
	return items, nil
}

// Suggestions

// ReplacePendingSuggestions atomically swaps a document's pending
// suggestions for a fresh analysis batch. Accepted and dismissed rows are
// untouched.
func (s *PostgresStore) ReplacePendingSuggestions(ctx context.Context, documentID string, items []Suggestion) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin suggestions tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM suggestions WHERE document_id=$1 AND status='pending'
	`, documentID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear pending suggestions: %w", err)
	}

	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO suggestions (id, document_id, kind, matched_text, replacement, explanation, confidence, start_pos, end_pos, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending')
		`, item.ID, item.DocumentID, item.Kind, item.MatchedText, item.Replacement, item.Explanation, item.Confidence, item.StartPos, item.EndPos); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert suggestion: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit suggestions tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSuggestions(ctx context.Context, documentID, status string) ([]Suggestion, error) {
	query := `
		SELECT id, document_id, kind, matched_text, replacement, explanation, confidence, start_pos, end_pos, status, created_at, resolved_at
		FROM suggestions
		WHERE document_id=$1
	`
	args := []any{documentID}
	if status != "" {
		query += ` AND status=$2`
		args = append(args, status)
	}
	query += ` ORDER BY start_pos ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	items := make([]Suggestion, 0)
	for rows.Next() {
		var item Suggestion
		if err := rows.Scan(&item.ID, &item.DocumentID, &item.Kind, &item.MatchedText, &item.Replacement, &item.Explanation, &item.Confidence, &item.StartPos, &item.EndPos, &item.Status, &item.CreatedAt, &item.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suggestions: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetSuggestion(ctx context.Context, documentID, suggestionID string) (Suggestion, error) {
	var item Suggestion
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, kind, matched_text, replacement, explanation, confidence, start_pos, end_pos, status, created_at, resolved_at
		FROM suggestions
		WHERE document_id=$1 AND id=$2
	`, documentID, suggestionID).Scan(&item.ID, &item.DocumentID, &item.Kind, &item.MatchedText, &item.Replacement, &item.Explanation, &item.Confidence, &item.StartPos, &item.EndPos, &item.Status, &item.CreatedAt, &item.ResolvedAt)
	if err != nil {
		return Suggestion{}, err
	}
	return item, nil
}

func (s *PostgresStore) UpdateSuggestionStatus(ctx context.Context, suggestionID, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE suggestions SET status=$2, resolved_at=NOW() WHERE id=$1
	`, suggestionID, status)
	if err != nil {
		return fmt.Errorf("update suggestion status: %w", err)
	}
	return nil
}

// Ideas

func (s *PostgresStore) InsertIdea(ctx context.Context, item Idea) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ideas (id, topic, title, summary)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, item.ID, item.Topic, item.Title, item.Summary)
	if err != nil {
		return fmt.Errorf("insert idea: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListIdeas(ctx context.Context, limit int) ([]Idea, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, topic, title, summary, created_at
		FROM ideas
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list ideas: %w", err)
	}
	defer rows.Close()

	items := make([]Idea, 0)
	for rows.Next() {
		var item Idea
		if err := rows.Scan(&item.ID, &item.Topic, &item.Title, &item.Summary, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan idea: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ideas: %w", err)
	}
	return items, nil
}
