package results

import "github.com/fakestore/storesearch/internal/domain/catalog"

// Page is one page of search results plus the facet aggregates that were
// computed alongside it. Created fresh on every query and never mutated;
// a session replaces its page wholesale.
type Page struct {
	Products []catalog.Product         `json:"products"`
	Total    int                       `json:"total"`
	Facets   map[string]map[string]int `json:"facets"`
	Page     int                       `json:"page"`
	PageSize int                       `json:"pageSize"`
}
