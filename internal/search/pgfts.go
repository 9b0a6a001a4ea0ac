package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across documents and ideas using
// plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultDocument {
		docWhere := "d.fts @@ " + tsQuery
		if q.FilterStatus != "" {
			docWhere += fmt.Sprintf(" AND d.status = $%d", argN)
			args = append(args, q.FilterStatus)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'document'::text AS type, d.id, d.title,
				ts_headline('english', coalesce(d.body, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				d.status,
				ts_rank(d.fts, %s) AS rank
			FROM documents d
			WHERE %s`, tsQuery, tsQuery, docWhere))
	}

	if q.FilterType == "" || q.FilterType == ResultIdea {
		ideaWhere := "i.fts @@ " + tsQuery
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'idea'::text AS type, i.id, i.title,
				ts_headline('english', coalesce(i.summary, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				''::text AS status,
				ts_rank(i.fts, %s) AS rank
			FROM ideas i
			WHERE %s`, tsQuery, tsQuery, ideaWhere))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, status
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.Status); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]DocumentRecord, []IdeaRecord, error) {
	docRows, err := p.db.QueryContext(ctx, `
		SELECT id, title, body, status
		FROM documents
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load documents: %w", err)
	}
	defer docRows.Close()

	documents := make([]DocumentRecord, 0)
	for docRows.Next() {
		var d DocumentRecord
		if err := docRows.Scan(&d.ID, &d.Title, &d.Body, &d.Status); err != nil {
			return nil, nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, d)
	}
	if err := docRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate documents: %w", err)
	}

	ideaRows, err := p.db.QueryContext(ctx, `
		SELECT id, topic, title, summary
		FROM ideas
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load ideas: %w", err)
	}
	defer ideaRows.Close()

	ideas := make([]IdeaRecord, 0)
	for ideaRows.Next() {
		var i IdeaRecord
		if err := ideaRows.Scan(&i.ID, &i.Topic, &i.Title, &i.Summary); err != nil {
			return nil, nil, fmt.Errorf("scan idea: %w", err)
		}
		ideas = append(ideas, i)
	}
	if err := ideaRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate ideas: %w", err)
	}

	return documents, ideas, nil
}
