package redisearch

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/fakestore/storesearch/internal/backend"
	"github.com/fakestore/storesearch/internal/domain"
	"github.com/fakestore/storesearch/internal/domain/catalog"
)

// sortClause returns the SORTBY field and direction for a target.
// The primary target keeps the engine's relevance ranking.
func sortClause(t backend.Target) (field, dir string, ok bool) {
	switch t {
	case backend.TargetPriceAsc:
		return catalog.FieldPrice, "ASC", true
	case backend.TargetPriceDesc:
		return catalog.FieldPrice, "DESC", true
	case backend.TargetRatingDesc:
		return catalog.FieldRating, "DESC", true
	default:
		return "", "", false
	}
}

// Search runs an FT.SEARCH for the request and an FT.AGGREGATE per
// requested facet, scoped to the same query and filters.
func (s *Store) Search(ctx context.Context, req *backend.Request) (*backend.Response, error) {
	if req.PageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive")
	}
	if req.Page < 0 {
		return nil, fmt.Errorf("page must not be negative")
	}

	queryStr := buildQuery(req.Query, req.Tags, req.Ranges)

	args := []string{s.ftIndexName(), queryStr}

	if field, dir, ok := sortClause(req.Target); ok {
		args = append(args, "SORTBY", field, dir)
	}

	offset := req.Page * req.PageSize
	args = append(args,
		"LIMIT", strconv.Itoa(offset), strconv.Itoa(req.PageSize),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, &backend.Error{Op: backend.OpSearch, Err: err})
	}

	resp, err := parseSearchResult(raw)
	if err != nil {
		return nil, err
	}

	if len(req.Facets) > 0 {
		resp.FacetCounts = make(map[string]map[string]int, len(req.Facets))
		for _, facet := range req.Facets {
			counts, err := s.aggregateCounts(ctx, queryStr, facet)
			if err != nil {
				return nil, err
			}
			resp.FacetCounts[facet] = counts
		}
	}

	return resp, nil
}

// FacetCounts enumerates value→count for one facet over the whole index.
func (s *Store) FacetCounts(ctx context.Context, _ backend.Target, facet string) (map[string]int, error) {
	if facet == "" {
		return nil, fmt.Errorf("facet field is required")
	}
	return s.aggregateCounts(ctx, "*", facet)
}

// maxFacetValues bounds GROUPBY output; facet fields here are
// low-cardinality (categories, brands).
const maxFacetValues = 1000

func (s *Store) aggregateCounts(ctx context.Context, queryStr, facet string) (map[string]int, error) {
	args := []string{
		s.ftIndexName(), queryStr,
		"GROUPBY", "1", "@" + facet,
		"REDUCE", "COUNT", "0", "AS", "count",
		"LIMIT", "0", strconv.Itoa(maxFacetValues),
		"DIALECT", "2",
	}

	cmd := s.b().Arbitrary("FT.AGGREGATE").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, &backend.Error{Op: backend.OpAggregate, Err: err})
	}

	return parseAggregateCounts(raw, facet)
}

// --- Query building ---

// buildQuery assembles the FT.SEARCH query string: filter clauses ANDed with
// the escaped free-text part. Empty everything yields the match-all query.
func buildQuery(text string, tags []backend.TagFilter, ranges []backend.RangeFilter) string {
	var parts []string

	for _, t := range tags {
		parts = append(parts, buildTagFilter(t.Field, t.Value))
	}
	for _, r := range ranges {
		parts = append(parts, buildNumericFilter(r))
	}

	if trimmed := strings.TrimSpace(text); trimmed != "" {
		parts = append(parts, "("+escapeQuery(trimmed)+")")
	}

	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

func buildTagFilter(key, value string) string {
	return fmt.Sprintf("@%s:{%s}", key, tagEscaper.Replace(value))
}

func buildNumericFilter(r backend.RangeFilter) string {
	minBound := "-inf"
	maxBound := "+inf"
	if r.Min != nil {
		minBound = fmt.Sprintf("%g", *r.Min)
	}
	if r.Max != nil {
		maxBound = fmt.Sprintf("%g", *r.Max)
	}
	return fmt.Sprintf("@%s:[%s %s]", r.Field, minBound, maxBound)
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

// --- Result parsing ---

func parseSearchResult(raw []rueidis.RedisMessage) (*backend.Response, error) {
	if len(raw) == 0 {
		return &backend.Response{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &backend.Response{}, nil
	}

	// Size by the page actually returned; total counts the whole match set.
	hits := make([]backend.Hit, 0, len(raw)/2)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		hits = append(hits, parseFieldPairs(fields))
	}

	return &backend.Response{Total: int(total), Hits: hits}, nil
}

func parseAggregateCounts(raw []rueidis.RedisMessage, facet string) (map[string]int, error) {
	counts := make(map[string]int)
	if len(raw) == 0 {
		return counts, nil
	}

	// 1-stride after total: [total, row1, row2, ...], each row a field-pair array.
	for i := 1; i < len(raw); i++ {
		row, err := raw[i].ToArray()
		if err != nil {
			continue
		}
		fields := parseFieldPairs(row)
		value, ok := fields[facet]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(fields["count"])
		if err != nil {
			continue
		}
		counts[value] = n
	}

	return counts, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}
