// Package search implements the cross-entity search aggregator behind the
// dashboard command palette. Each record type (contracts, documents, tasks,
// work orders, sales orders, cached external tasks) is exposed as a Source;
// the Aggregator fans out to the sources in scope, scores and snippets each
// hit locally, and assembles one paginated envelope.
package search

import "context"

// SourceType identifies one backing record type.
type SourceType string

const (
	SourceContracts     SourceType = "contracts"
	SourceDocuments     SourceType = "documents"
	SourceTasks         SourceType = "tasks"
	SourceWorkOrders    SourceType = "work_orders"
	SourceSalesOrders   SourceType = "sales_orders"
	SourceExternalTasks SourceType = "external_tasks"
)

// ScopeAll targets every source.
const ScopeAll = "all"

// ValidScope reports whether scope names "all" or a known source.
func ValidScope(scope string) bool {
	switch scope {
	case ScopeAll,
		string(SourceContracts), string(SourceDocuments), string(SourceTasks),
		string(SourceWorkOrders), string(SourceSalesOrders), string(SourceExternalTasks):
		return true
	}
	return false
}

// Filters are the cross-source filter switches. Status applies to contracts
// only; the other adapters ignore it.
type Filters struct {
	IncludeArchived   bool
	IncludeHistorical bool
	Status            string
}

// Query is one immutable search request.
type Query struct {
	Text    string
	Scope   string // "all" or a SourceType value
	Filters Filters
	Page    int // 1-based
	Limit   int // clamped to [1,100] by the HTTP layer
}

// InScope reports whether a source should be queried for this request.
func (q Query) InScope(t SourceType) bool {
	return q.Scope == "" || q.Scope == ScopeAll || q.Scope == string(t)
}

// Field is one searchable field of a hit, in declared weight order.
type Field struct {
	Name    string // column / attribute name
	Display string // user-facing name reported as matchedField
	Value   string
}

// Hit is a matched record as returned by a Source, before scoring.
type Hit struct {
	ID        string
	Fields    []Field // ordered; declared weight order, not display order
	Primary   string  // Name of the primary display field
	Magnitude float64 // associated numeric value (contract size etc.), 0 if none
	URL       string
	Subtitle  string
	Metadata  map[string]any
}

// FieldValue returns the value of the named field, or "" if absent.
func (h Hit) FieldValue(name string) string {
	for _, f := range h.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// Source is one backing record type and the logic to query it.
type Source interface {
	Type() SourceType
	// Search returns the page of raw hits at offset/limit together with the
	// exact total number of matching records.
	Search(ctx context.Context, q Query, offset, limit int) ([]Hit, int, error)
}

// Result is a scored hit returned to the caller.
type Result struct {
	ID             string         `json:"id"`
	Type           SourceType     `json:"type"`
	Title          string         `json:"title"`
	Subtitle       string         `json:"subtitle,omitempty"`
	URL            string         `json:"url,omitempty"`
	MatchedField   string         `json:"matchedField"`
	MatchedText    string         `json:"matchedText,omitempty"`
	RelevanceScore int            `json:"relevanceScore"`
	Metadata       map[string]any `json:"sourceMetadata,omitempty"`
}

// Pagination describes the page window of an envelope.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

// Envelope is the complete response for one search request.
type Envelope struct {
	Query      string                  `json:"query"`
	Scope      string                  `json:"scope"`
	Message    string                  `json:"message,omitempty"`
	Results    map[SourceType][]Result `json:"results"`
	Totals     map[SourceType]int      `json:"totals"`
	GrandTotal int                     `json:"grandTotal"`
	Pagination Pagination              `json:"pagination"`
}
