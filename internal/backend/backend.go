// Package backend defines the vendor-neutral contract against the hosted
// search index. All orchestration components depend on Client and nothing
// else; concrete stores live in subpackages.
package backend

import "context"

// Target selects which ranking of the product index a query runs against.
// The primary target ranks by relevance; the others mirror the index's
// alternate ranking configurations.
type Target string

// Index targets.
const (
	TargetPrimary    Target = "primary"
	TargetPriceAsc   Target = "price_asc"
	TargetPriceDesc  Target = "price_desc"
	TargetRatingDesc Target = "rating_desc"
)

// IsValid checks if the target is one of the supported values.
func (t Target) IsValid() bool {
	return t == TargetPrimary || t == TargetPriceAsc || t == TargetPriceDesc || t == TargetRatingDesc
}

// TagFilter is an exact-match filter on a tag field.
type TagFilter struct {
	Field string
	Value string
}

// RangeFilter is a numeric range filter. A nil bound leaves that side open;
// the backend's own open-range semantics apply.
type RangeFilter struct {
	Field string
	Min   *float64
	Max   *float64
}

// Request is a fully built index query. Filters combine with logical AND.
type Request struct {
	Target   Target
	Query    string // "" means match all
	Tags     []TagFilter
	Ranges   []RangeFilter
	Facets   []string // facet fields to aggregate counts for
	Page     int      // zero-based
	PageSize int
}

// Hit is one raw index record, keyed by stored field name. Fields the
// backend did not return are simply absent.
type Hit map[string]string

// Response is the raw outcome of one index query. Hit order is the
// backend's ranking order and must be preserved downstream.
type Response struct {
	Hits        []Hit
	Total       int
	FacetCounts map[string]map[string]int
}

// Client is the single capability the orchestration layer consumes.
type Client interface {
	// Search executes an index query.
	Search(ctx context.Context, req *Request) (*Response, error)

	// FacetCounts enumerates value→count for one facet field across the
	// whole index, independent of any free-text query.
	FacetCounts(ctx context.Context, target Target, facet string) (map[string]int, error)
}
