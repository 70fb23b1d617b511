// Package search provides org-scoped full-text search over documents and
// templates, backed by Meilisearch with a PostgreSQL FTS fallback.
package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultDocument ResultType = "document"
	ResultTemplate ResultType = "template"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type           ResultType `json:"type"`
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Snippet        string     `json:"snippet"`
	OrganizationID string     `json:"organizationId"`
}

// Query describes a search request. OrganizationID is mandatory for every
// role below superadmin; UserID additionally restricts document hits to the
// caller's own documents.
type Query struct {
	Text           string
	FilterType     ResultType // empty = all types
	OrganizationID string
	UserID         string
	RequiredRole   string // restricts template hits, empty = any
	Limit          int
	Offset         int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// DocumentRecord is the data indexed for a document.
type DocumentRecord struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Content        string `json:"content"`
	OrganizationID string `json:"organizationId"`
	UserID         string `json:"userId"`
}

// TemplateRecord is the data indexed for a template.
type TemplateRecord struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	Subtype        string `json:"subtype"`
	OrganizationID string `json:"organizationId"`
	RequiredRole   string `json:"requiredRole"`
	Status         string `json:"status"`
}
