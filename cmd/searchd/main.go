package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fakestore/storesearch/internal/backend/redisearch"
	"github.com/fakestore/storesearch/internal/config"
	logpkg "github.com/fakestore/storesearch/internal/logger"
	"github.com/fakestore/storesearch/internal/mapper"
	"github.com/fakestore/storesearch/internal/metrics"
	"github.com/fakestore/storesearch/internal/suggest"
	chiTransport "github.com/fakestore/storesearch/internal/transport/chi"
	"github.com/fakestore/storesearch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting storesearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// rueidis speaks to both Redis and Valkey; the driver setting only
	// names which one the deployment runs.
	store, err := redisearch.NewStore(redisearch.Config{
		Addrs:     cfg.Database.Addrs,
		Password:  cfg.Database.Password,
		IndexName: cfg.Index.Name,
		KeyPrefix: cfg.Index.KeyPrefix,
	})
	if err != nil {
		logger.Fatal("Failed to create search backend store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Search backend not ready", zap.Error(err))
	}
	logger.Info("Connected to search backend")

	metrics.RegisterSearchMetrics()

	m := mapper.New(logger)
	suggester := suggest.New(store, logger, suggest.Options{
		Debounce:       time.Duration(cfg.Suggest.DebounceMs) * time.Millisecond,
		MaxSuggestions: cfg.Suggest.MaxSuggestions,
		PoolSize:       cfg.Suggest.PoolSize,
	})
	defer suggester.Stop()

	server := chiTransport.NewServer(store, m, suggester, store, logger, cfg.Auth.APIKeys)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	logger.Info("Server stopped")
}
