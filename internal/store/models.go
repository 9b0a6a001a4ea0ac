package store

import "time"

type Document struct {
	ID        string
	Title     string
	Body      string
	Status    string
	UpdatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Tag struct {
	ID        string
	Name      string
	Color     string
	CreatedAt time.Time
}

// Suggestion is a persisted resolved span. Offsets address the document body
// as it was at analysis time; acceptance re-verifies them against the
// current body.
type Suggestion struct {
	ID          string
	DocumentID  string
	Kind        string
	MatchedText string
	Replacement string
	Explanation string
	Confidence  float64
	StartPos    int
	EndPos      int
	Status      string // "pending", "accepted", "dismissed"
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}

type Idea struct {
	ID        string
	Topic     string
	Title     string
	Summary   string
	CreatedAt time.Time
}

// CommitInfo describes one revision of a document's content history.
type CommitInfo struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}
