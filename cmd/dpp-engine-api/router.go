// Package main provides the API router setup.
package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dpp-comply/dpp-engine/cmd/dpp-engine-api/handlers"
	"github.com/dpp-comply/dpp-engine/cmd/dpp-engine-api/middleware"
	"github.com/dpp-comply/dpp-engine/internal/assistant"
	"github.com/dpp-comply/dpp-engine/internal/cache"
	"github.com/dpp-comply/dpp-engine/internal/corpus"
	"github.com/dpp-comply/dpp-engine/internal/insight"
	"github.com/dpp-comply/dpp-engine/internal/llm"
	"github.com/dpp-comply/dpp-engine/internal/observability"
	"github.com/dpp-comply/dpp-engine/internal/standardize"
	"github.com/dpp-comply/dpp-engine/internal/storage"
)

// AppConfig holds the wiring inputs for the router.
type AppConfig struct {
	RequestTimeout time.Duration
	CacheTTL       time.Duration
	AssistTimeout  time.Duration
}

// NewRouter creates the main API router with all routes configured.
// completer may be nil, which disables the assisted paths.
func NewRouter(
	logger *observability.Logger,
	cfg AppConfig,
	entries []corpus.Entry,
	db storage.DB,
	cacheClient cache.Client,
	completer llm.Completer,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"dpp-engine"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ready"}`))
	})

	standardizer := standardize.New(logger, entries)
	generator := insight.New(logger)
	qa := assistant.New(logger)
	if completer != nil {
		standardizer = standardizer.WithCompleter(completer, cfg.AssistTimeout)
		generator = generator.WithCompleter(completer, cfg.AssistTimeout)
		qa = qa.WithCompleter(completer, cfg.AssistTimeout)
	}

	productHandler := handlers.NewProductHandler(
		logger,
		standardizer,
		generator,
		qa,
		storage.NewPassportRepository(db),
		storage.NewRawSubmissionRepository(db),
		cacheClient,
		cfg.CacheTTL,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Post("/process", productHandler.Process)
			r.Get("/", productHandler.List)

			r.Route("/{productID}", func(r chi.Router) {
				r.Get("/passport", productHandler.GetPassport)
				r.Get("/compliance", productHandler.GetCompliance)
				r.Get("/insights", productHandler.GetInsights)
				r.Post("/qa", productHandler.Ask)
			})
		})
	})

	return r
}
