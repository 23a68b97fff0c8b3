package redisearch

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/fakestore/storesearch/internal/backend"
	"github.com/fakestore/storesearch/internal/domain/catalog"
)

// UpsertProducts stores a batch of product records in a single DoMulti
// round-trip. Used by the catalog seeder; the serving path never writes.
func (s *Store) UpsertProducts(ctx context.Context, products []catalog.Product) error {
	if len(products) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, 0, len(products))
	for i := range products {
		fields := productFields(&products[i])
		cmd := s.b().Hset().Key(s.recordKey(products[i].ID)).FieldValue()
		for k, v := range fields {
			cmd = cmd.FieldValue(k, v)
		}
		cmds = append(cmds, cmd.Build())
	}

	for _, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &backend.Error{Op: backend.OpHSet, Err: err}
		}
	}
	return nil
}

// productFields flattens a product into the stored hash record.
func productFields(p *catalog.Product) map[string]string {
	return map[string]string{
		catalog.FieldID:          p.ID,
		catalog.FieldName:        p.Name,
		catalog.FieldDescription: p.Description,
		catalog.FieldPrice:       strconv.FormatFloat(p.Price, 'f', -1, 64),
		catalog.FieldCategory:    p.Category,
		catalog.FieldBrand:       p.Brand,
		catalog.FieldImage:       p.Image,
		catalog.FieldRating:      strconv.FormatFloat(p.Rating, 'f', -1, 64),
		catalog.FieldReviews:     strconv.Itoa(p.Reviews),
		catalog.FieldInStock:     strconv.FormatBool(p.InStock),
		catalog.FieldTags:        strings.Join(p.Tags, catalog.TagSeparator),
		catalog.FieldCreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
		catalog.FieldUpdatedAt:   p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
