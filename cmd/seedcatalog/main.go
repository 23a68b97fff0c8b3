// Command seedcatalog generates a synthetic product catalog and uploads it
// into the search index through a bounded worker pool.
package main

import (
	"context"
	"flag"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fakestore/storesearch/internal/backend/redisearch"
	"github.com/fakestore/storesearch/internal/config"
	"github.com/fakestore/storesearch/internal/domain/catalog"
	logpkg "github.com/fakestore/storesearch/internal/logger"
)

func main() {
	count := flag.Int("count", 1000, "number of products to generate")
	workers := flag.Int("workers", 4, "number of upload workers")
	batchSize := flag.Int("batch", 100, "products per upload batch")
	drop := flag.Bool("drop", false, "drop and recreate the index first")
	flag.Parse()

	// Matches the storefront's dotenv convention; absence is fine.
	_ = godotenv.Load(".env.local")

	env := config.GetEnv()
	cfg := config.MustLoad(env)

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	store, err := redisearch.NewStore(redisearch.Config{
		Addrs:     cfg.Database.Addrs,
		Password:  cfg.Database.Password,
		IndexName: cfg.Index.Name,
		KeyPrefix: cfg.Index.KeyPrefix,
	})
	if err != nil {
		logger.Fatal("Failed to create store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Search backend not ready", zap.Error(err))
	}

	if *drop {
		if err := store.DropIndex(ctx); err != nil && err != redisearch.ErrIndexNotFound {
			logger.Fatal("Failed to drop index", zap.Error(err))
		}
	}
	if err := store.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to create index", zap.Error(err))
	}

	products := generateProducts(*count)
	logger.Info("Generated catalog", zap.Int("products", len(products)))

	processed, failed := upload(ctx, store, logger, products, *workers, *batchSize)

	total, err := store.Count(ctx)
	if err != nil {
		logger.Warn("Failed to count indexed records", zap.Error(err))
	}

	logger.Info("Seed complete",
		zap.Int64("processed", processed),
		zap.Int64("failed", failed),
		zap.Int("indexed_total", total),
	)
}

// upload fans batches out to workers. Each batch is one pipelined upsert.
func upload(
	ctx context.Context,
	store *redisearch.Store,
	logger *zap.Logger,
	products []catalog.Product,
	workers, batchSize int,
) (processed, failed int64) {
	batches := make(chan []catalog.Product, workers*2)
	var wg sync.WaitGroup
	var okCount, failCount atomic.Int64

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for batch := range batches {
				if err := store.UpsertProducts(ctx, batch); err != nil {
					failCount.Add(int64(len(batch)))
					logger.Warn("Batch upload failed",
						zap.Int("worker", workerID),
						zap.Int("batch_size", len(batch)),
						zap.Error(err),
					)
					continue
				}
				okCount.Add(int64(len(batch)))
			}
		}(i)
	}

	for start := 0; start < len(products); start += batchSize {
		end := start + batchSize
		if end > len(products) {
			end = len(products)
		}
		batches <- products[start:end]
	}
	close(batches)
	wg.Wait()

	return okCount.Load(), failCount.Load()
}
