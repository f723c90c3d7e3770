// Package main provides the DPP engine API server entrypoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dpp-comply/dpp-engine/internal/cache"
	"github.com/dpp-comply/dpp-engine/internal/config"
	"github.com/dpp-comply/dpp-engine/internal/corpus"
	"github.com/dpp-comply/dpp-engine/internal/llm"
	"github.com/dpp-comply/dpp-engine/internal/observability"
	"github.com/dpp-comply/dpp-engine/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "dpp-engine",
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("database", cfg.Database.Driver).
		Str("cache", cfg.Cache.Driver).
		Str("assist", cfg.Assist.Backend).
		Msg("Starting DPP engine API")

	entries, err := corpus.Load(cfg.Corpus.Dir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.Corpus.Dir).Msg("Failed to load regulatory corpus")
	}
	logger.Info().Int("entries", len(entries)).Msg("Regulatory corpus loaded")

	db, err := storage.Open(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := storage.EnsureSchema(context.Background(), db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ensure schema")
	}

	var cacheClient cache.Client
	if cfg.Cache.Driver == "redis" {
		cacheClient, err = cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to redis")
		}
	} else {
		cacheClient = cache.NewMemoryClient(cfg.Cache.MaxEntries)
	}
	defer cacheClient.Close()

	var completer llm.Completer
	if cfg.AssistEnabled() {
		completer = llm.NewClient(llm.Config{
			APIKey:      cfg.Assist.OpenAI.APIKey,
			Model:       cfg.Assist.OpenAI.Model,
			BaseURL:     cfg.Assist.OpenAI.BaseURL,
			Temperature: cfg.Assist.OpenAI.Temperature,
			Timeout:     cfg.Assist.OpenAI.Timeout,
		})
		logger.Info().Str("model", cfg.Assist.OpenAI.Model).Msg("Assisted paths enabled")
	} else if cfg.Assist.Backend == "openai" {
		logger.Warn().Msg("Assist backend is openai but no API key is set, using rules")
	}

	router := NewRouter(logger, AppConfig{
		RequestTimeout: cfg.Server.ReadTimeout,
		CacheTTL:       cfg.Cache.TTL,
		AssistTimeout:  cfg.Assist.OpenAI.Timeout,
	}, entries, db, cacheClient, completer)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("Server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	logger.Info().Msg("Server stopped")
}
