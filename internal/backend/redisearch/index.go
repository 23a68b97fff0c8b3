package redisearch

import (
	"context"
	"errors"

	"github.com/fakestore/storesearch/internal/backend"
	"github.com/fakestore/storesearch/internal/domain/catalog"
)

// Sentinel errors for index lifecycle operations.
var (
	ErrIndexExists   = errors.New("redisearch: index already exists")
	ErrIndexNotFound = errors.New("redisearch: index not found")
)

type fieldType string

const (
	fieldText    fieldType = "TEXT"
	fieldTag     fieldType = "TAG"
	fieldNumeric fieldType = "NUMERIC"
)

type indexField struct {
	name         string
	typ          fieldType
	tagSeparator string
	sortable     bool
}

// productSchema is the index schema for catalog product records.
// Searchable text mirrors the hosted index settings (name, description,
// brand, category searchable; category and brand facetable); price and
// rating are sortable to back the alternate ranking targets.
func productSchema() []indexField {
	return []indexField{
		{name: catalog.FieldName, typ: fieldText},
		{name: catalog.FieldDescription, typ: fieldText},
		{name: catalog.FieldCategory, typ: fieldTag},
		{name: catalog.FieldBrand, typ: fieldTag},
		{name: catalog.FieldTags, typ: fieldTag, tagSeparator: catalog.TagSeparator},
		{name: catalog.FieldInStock, typ: fieldTag},
		{name: catalog.FieldPrice, typ: fieldNumeric, sortable: true},
		{name: catalog.FieldRating, typ: fieldNumeric, sortable: true},
		{name: catalog.FieldReviews, typ: fieldNumeric, sortable: true},
	}
}

// EnsureIndex creates the product index if it does not exist yet.
func (s *Store) EnsureIndex(ctx context.Context) error {
	err := s.createIndex(ctx, productSchema())
	if errors.Is(err, ErrIndexExists) {
		return nil
	}
	return err
}

// DropIndex removes the product index (records are kept).
func (s *Store) DropIndex(ctx context.Context) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(s.ftIndexName()).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return ErrIndexNotFound
		}
		return &backend.Error{Op: backend.OpDropIndex, Err: err}
	}
	return nil
}

func (s *Store) createIndex(ctx context.Context, fields []indexField) error {
	args := []string{
		s.ftIndexName(),
		"ON", "HASH",
		"PREFIX", "1", s.keyPrefix + s.indexName + ":",
		"SCHEMA",
	}
	for i := range fields {
		args = append(args, buildFieldArgs(&fields[i])...)
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return ErrIndexExists
		}
		return &backend.Error{Op: backend.OpCreateIndex, Err: err}
	}
	return nil
}

func buildFieldArgs(f *indexField) []string {
	args := []string{f.name, string(f.typ)}
	if f.typ == fieldTag && f.tagSeparator != "" {
		args = append(args, "SEPARATOR", f.tagSeparator)
	}
	if f.sortable {
		args = append(args, "SORTABLE")
	}
	return args
}

// Count returns the number of indexed records via FT.SEARCH with LIMIT 0 0.
func (s *Store) Count(ctx context.Context) (int, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").Args(s.ftIndexName(), "*", "LIMIT", "0", "0").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return 0, &backend.Error{Op: backend.OpSearch, Err: err}
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, errors.New("parse count: " + err.Error())
	}
	return int(total), nil
}
