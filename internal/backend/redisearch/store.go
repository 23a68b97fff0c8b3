// Package redisearch implements backend.Client over a RediSearch-capable
// Redis or Valkey instance via rueidis.
package redisearch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/fakestore/storesearch/internal/backend"
	"github.com/fakestore/storesearch/internal/domain"
)

// Compile-time check: Store implements backend.Client.
var _ backend.Client = (*Store)(nil)

// Config holds connection and index parameters.
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	IndexName string // logical index name, e.g. "products"
	KeyPrefix string // record key prefix, e.g. "fakestore:"
}

// Store talks to the index over rueidis.
type Store struct {
	client    rueidis.Client
	indexName string
	keyPrefix string
}

// NewStore creates a store and connects the client.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	if cfg.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client, indexName: cfg.IndexName, keyPrefix: cfg.KeyPrefix}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, &backend.Error{Op: backend.OpPing, Err: err})
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for search backend: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// ftIndexName returns the FT index name for this store.
func (s *Store) ftIndexName() string {
	return s.keyPrefix + s.indexName + ":idx"
}

// recordKey returns the storage key for a product id.
func (s *Store) recordKey(id string) string {
	return s.keyPrefix + s.indexName + ":" + id
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// isRedisErr checks if err is a server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
