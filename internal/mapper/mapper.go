// Package mapper normalizes raw index hits into the canonical view models
// the UI consumes. Partial records degrade to field defaults; only a hit
// without its id is dropped.
package mapper

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fakestore/storesearch/internal/backend"
	"github.com/fakestore/storesearch/internal/domain/catalog"
	"github.com/fakestore/storesearch/internal/domain/results"
	"github.com/fakestore/storesearch/internal/metrics"
)

// Mapper converts backend hits into products and categories.
type Mapper struct {
	logger *zap.Logger
}

// New creates a mapper. A nil logger disables diagnostics.
func New(logger *zap.Logger) *Mapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mapper{logger: logger}
}

// Products maps raw hits in backend order. A hit missing its id is dropped
// and recorded as a malformed-record diagnostic; it never aborts the page.
// The mapper must not re-sort: ranking is the backend's responsibility.
func (m *Mapper) Products(hits []backend.Hit) []catalog.Product {
	products := make([]catalog.Product, 0, len(hits))
	for _, hit := range hits {
		id := hit[catalog.FieldID]
		if id == "" {
			metrics.MalformedRecordsTotal.Inc()
			m.logger.Debug("dropping hit without id", zap.Any("fields", hit))
			continue
		}
		products = append(products, product(id, hit))
	}
	return products
}

// Page assembles a result page from a backend response and the pagination
// that produced it.
func (m *Mapper) Page(resp *backend.Response, page, pageSize int) *results.Page {
	return &results.Page{
		Products: m.Products(resp.Hits),
		Total:    resp.Total,
		Facets:   resp.FacetCounts,
		Page:     page,
		PageSize: pageSize,
	}
}

// Category builds a category aggregate from a representative record. When
// the record carries no category id, one is synthesized from the name, or
// the fallback id is used, so Category.ID is always present.
func (m *Mapper) Category(hit backend.Hit, fallbackID string, fallbackCount int) catalog.Category {
	id := hit[catalog.FieldCategory]
	name := hit[catalog.FieldName]
	if id == "" {
		if name != "" {
			id = catalog.Slugify(name)
		} else {
			id = fallbackID
		}
	}
	if name == "" {
		name = id
	}

	slugVal := hit["slug"]
	if slugVal == "" {
		slugVal = catalog.Slugify(name)
	}

	count := fallbackCount
	if raw, ok := hit["productCount"]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			count = n
		}
	}

	return catalog.Category{
		ID:           id,
		Name:         name,
		Slug:         slugVal,
		Description:  hit[catalog.FieldDescription],
		ProductCount: count,
	}
}

func product(id string, hit backend.Hit) catalog.Product {
	return catalog.Product{
		ID:          id,
		Name:        hit[catalog.FieldName],
		Description: hit[catalog.FieldDescription],
		Price:       floatField(hit, catalog.FieldPrice),
		Category:    hit[catalog.FieldCategory],
		Brand:       hit[catalog.FieldBrand],
		Image:       hit[catalog.FieldImage],
		Rating:      floatField(hit, catalog.FieldRating),
		Reviews:     intField(hit, catalog.FieldReviews),
		InStock:     hit[catalog.FieldInStock] == "true",
		Tags:        tagsField(hit, catalog.FieldTags),
		CreatedAt:   timeField(hit, catalog.FieldCreatedAt),
		UpdatedAt:   timeField(hit, catalog.FieldUpdatedAt),
	}
}

func floatField(hit backend.Hit, field string) float64 {
	v, err := strconv.ParseFloat(hit[field], 64)
	if err != nil {
		return 0
	}
	return v
}

func intField(hit backend.Hit, field string) int {
	v, err := strconv.Atoi(hit[field])
	if err != nil {
		return 0
	}
	return v
}

func tagsField(hit backend.Hit, field string) []string {
	raw := hit[field]
	if raw == "" {
		return nil
	}
	return strings.Split(raw, catalog.TagSeparator)
}

func timeField(hit backend.Hit, field string) time.Time {
	t, err := time.Parse(time.RFC3339, hit[field])
	if err != nil {
		return time.Time{}
	}
	return t
}
