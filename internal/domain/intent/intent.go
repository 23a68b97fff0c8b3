package intent

import (
	"fmt"

	"github.com/fakestore/storesearch/internal/domain"
)

// Intent parameter limits.
const (
	// MaxQueryLength is the maximum allowed free-text query length.
	MaxQueryLength  = 512
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Sort is the result ordering the user asked for.
type Sort string

// Sort mode constants. Each non-relevance mode maps to a dedicated
// ranking target on the backend.
const (
	SortRelevance  Sort = "relevance"
	SortPriceAsc   Sort = "price_asc"
	SortPriceDesc  Sort = "price_desc"
	SortRatingDesc Sort = "rating_desc"
)

// IsValid checks if the sort is one of the supported values.
func (s Sort) IsValid() bool {
	return s == SortRelevance || s == SortPriceAsc || s == SortPriceDesc || s == SortRatingDesc
}

// PriceRange is an optional price window. A nil bound leaves that side open.
type PriceRange struct {
	Min *float64
	Max *float64
}

// Intent is the complete, validated description of what the user wants to
// see: free text, filters, sort, and pagination.
type Intent struct {
	query    string
	category string
	brand    string
	price    *PriceRange
	sort     Sort
	page     int
	pageSize int
}

// Default returns the session-start intent: browse all, first page,
// relevance order.
func Default() Intent {
	return Intent{sort: SortRelevance, pageSize: DefaultPageSize}
}

// New validates and creates an Intent. An empty query with no filters is
// valid and means "browse all". Zero sort defaults to relevance; zero
// pageSize defaults to DefaultPageSize.
func New(query, category, brand string, price *PriceRange, sort Sort, page, pageSize int) (Intent, error) {
	if sort == "" {
		sort = SortRelevance
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	it := Intent{
		query:    query,
		category: category,
		brand:    brand,
		price:    price,
		sort:     sort,
		page:     page,
		pageSize: pageSize,
	}
	if err := it.validate(); err != nil {
		return Intent{}, err
	}
	return it, nil
}

func (it *Intent) validate() error {
	if len(it.query) > MaxQueryLength {
		return fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidIntent, MaxQueryLength)
	}
	if !it.sort.IsValid() {
		return fmt.Errorf("%w: unknown sort %q", domain.ErrInvalidIntent, it.sort)
	}
	if it.page < 0 {
		return fmt.Errorf("%w: negative page index %d", domain.ErrInvalidIntent, it.page)
	}
	if it.pageSize <= 0 || it.pageSize > MaxPageSize {
		return fmt.Errorf("%w: page size must be in 1..%d, got %d", domain.ErrInvalidIntent, MaxPageSize, it.pageSize)
	}
	if p := it.price; p != nil {
		if p.Min != nil && *p.Min < 0 {
			return fmt.Errorf("%w: negative price bound", domain.ErrInvalidIntent)
		}
		if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
			return fmt.Errorf("%w: price min %g exceeds max %g", domain.ErrInvalidIntent, *p.Min, *p.Max)
		}
	}
	return nil
}

// Query returns the free-text query ("" means match all).
func (it Intent) Query() string { return it.query }

// Category returns the selected category id ("" means none).
func (it Intent) Category() string { return it.category }

// Brand returns the selected brand ("" means none).
func (it Intent) Brand() string { return it.brand }

// Price returns the price range (nil means unbounded).
func (it Intent) Price() *PriceRange { return it.price }

// Sort returns the sort mode.
func (it Intent) Sort() Sort { return it.sort }

// Page returns the zero-based page index.
func (it Intent) Page() int { return it.page }

// PageSize returns the page size.
func (it Intent) PageSize() int { return it.pageSize }

// Partial is a sparse intent update. Nil fields are left untouched.
// Setting Category or Brand to the empty string clears that filter;
// ClearPrice drops the price range.
type Partial struct {
	Query      *string
	Category   *string
	Brand      *string
	Price      *PriceRange
	ClearPrice bool
	Sort       *Sort
	Page       *int
	PageSize   *int
}

// Merge applies the partial to the current intent and validates the result.
// Any change to category, brand, or price resets the page index to 0, since
// changing the result set invalidates prior pagination. On validation
// failure the receiver is unusable and the error wraps ErrInvalidIntent.
func (it Intent) Merge(p Partial) (Intent, error) {
	next := it

	if p.Query != nil {
		next.query = *p.Query
	}
	if p.Category != nil {
		next.category = *p.Category
	}
	if p.Brand != nil {
		next.brand = *p.Brand
	}
	if p.ClearPrice {
		next.price = nil
	} else if p.Price != nil {
		r := *p.Price
		next.price = &r
	}
	if p.Sort != nil {
		next.sort = *p.Sort
	}
	if p.Page != nil {
		next.page = *p.Page
	}
	if p.PageSize != nil {
		next.pageSize = *p.PageSize
	}

	if filtersChanged(it, next) {
		next.page = 0
	}

	if err := next.validate(); err != nil {
		return Intent{}, err
	}
	return next, nil
}

func filtersChanged(prev, next Intent) bool {
	if prev.category != next.category || prev.brand != next.brand {
		return true
	}
	return !priceEqual(prev.price, next.price)
}

func priceEqual(a, b *PriceRange) bool {
	if a == nil || b == nil {
		return a == b
	}
	return boundEqual(a.Min, b.Min) && boundEqual(a.Max, b.Max)
}

func boundEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
