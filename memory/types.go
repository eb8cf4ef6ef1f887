// Package memory implements the unified memory store: item CRUD over a
// local SQLite file, a full-text shadow index kept in lockstep on every
// write, and hybrid lexical+vector retrieval.
package memory

// Item is a single retrievable unit of memory. The scoping keys are all
// optional; empty means unscoped.
type Item struct {
	ID        string
	TenantID  string
	PersonaID string
	ProjectID string
	ContactID string

	// Type is a free-form tag such as "memory", "task" or "note".
	Type    string
	Content string

	Metadata map[string]string
	// Lineage describes provenance, e.g. source conversation or tool.
	Lineage map[string]string

	Importance float64
	Pinned     bool
	TTLSeconds *int64

	AccessCount  int64
	LastAccessed int64
	CreatedAt    int64
	UpdatedAt    int64
}

// SearchRequest carries a query plus optional scoping filters.
type SearchRequest struct {
	Query     string
	TenantID  string
	PersonaID string
	ProjectID string
	ContactID string
	Type      string
	Limit     int
}

// SearchResult is one ranked hit. Score is 0..1, higher is more relevant.
type SearchResult struct {
	ID           string
	Content      string
	Type         string
	Metadata     map[string]string
	Score        float64
	LastAccessed int64
}

// Stats summarizes the store contents.
type Stats struct {
	TotalItems        int64
	ByType            map[string]int64
	TotalAccessCount  int64
	AverageImportance float64
}
