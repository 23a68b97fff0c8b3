// Package query translates a validated search intent into the request
// shape the backend expects. Pure transformation; no I/O.
package query

import (
	"fmt"

	"github.com/fakestore/storesearch/internal/backend"
	"github.com/fakestore/storesearch/internal/domain"
	"github.com/fakestore/storesearch/internal/domain/catalog"
	"github.com/fakestore/storesearch/internal/domain/intent"
)

// facetFields are the refinement facets requested on every query; the UI's
// category and brand refinement lists need live counts.
var facetFields = []string{catalog.FieldCategory, catalog.FieldBrand}

// Build turns an intent into a backend request. Absent optional filters are
// omitted entirely, never emitted as match-any. An out-of-range intent is
// rejected before any request exists.
func Build(it intent.Intent) (*backend.Request, error) {
	if it.Page() < 0 {
		return nil, fmt.Errorf("%w: negative page index %d", domain.ErrInvalidIntent, it.Page())
	}
	if it.PageSize() <= 0 || it.PageSize() > intent.MaxPageSize {
		return nil, fmt.Errorf("%w: page size must be in 1..%d, got %d",
			domain.ErrInvalidIntent, intent.MaxPageSize, it.PageSize())
	}

	req := &backend.Request{
		Target:   targetFor(it.Sort()),
		Query:    it.Query(),
		Facets:   facetFields,
		Page:     it.Page(),
		PageSize: it.PageSize(),
	}

	if c := it.Category(); c != "" {
		req.Tags = append(req.Tags, backend.TagFilter{Field: catalog.FieldCategory, Value: c})
	}
	if b := it.Brand(); b != "" {
		req.Tags = append(req.Tags, backend.TagFilter{Field: catalog.FieldBrand, Value: b})
	}
	if p := it.Price(); p != nil && (p.Min != nil || p.Max != nil) {
		req.Ranges = append(req.Ranges, backend.RangeFilter{
			Field: catalog.FieldPrice,
			Min:   p.Min,
			Max:   p.Max,
		})
	}

	return req, nil
}

// targetFor maps a sort mode to its index target. Unknown or empty sort
// falls back to the relevance-ranked primary target.
func targetFor(s intent.Sort) backend.Target {
	switch s {
	case intent.SortPriceAsc:
		return backend.TargetPriceAsc
	case intent.SortPriceDesc:
		return backend.TargetPriceDesc
	case intent.SortRatingDesc:
		return backend.TargetRatingDesc
	default:
		return backend.TargetPrimary
	}
}
