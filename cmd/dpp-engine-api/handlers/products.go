// Package handlers provides HTTP handlers for the DPP engine API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dpp-comply/dpp-engine/internal/assistant"
	"github.com/dpp-comply/dpp-engine/internal/cache"
	"github.com/dpp-comply/dpp-engine/internal/compliance"
	"github.com/dpp-comply/dpp-engine/internal/insight"
	"github.com/dpp-comply/dpp-engine/internal/observability"
	"github.com/dpp-comply/dpp-engine/internal/passport"
	"github.com/dpp-comply/dpp-engine/internal/standardize"
	"github.com/dpp-comply/dpp-engine/internal/storage"
)

// ProductHandler handles product processing and passport retrieval.
type ProductHandler struct {
	logger       *observability.Logger
	standardizer *standardize.Standardizer
	generator    *insight.Generator
	assistant    *assistant.Assistant
	passports    *storage.PassportRepository
	submissions  *storage.RawSubmissionRepository
	cache        cache.Client
	cacheTTL     time.Duration
}

// NewProductHandler creates a new product handler.
func NewProductHandler(
	logger *observability.Logger,
	standardizer *standardize.Standardizer,
	generator *insight.Generator,
	qa *assistant.Assistant,
	passports *storage.PassportRepository,
	submissions *storage.RawSubmissionRepository,
	cacheClient cache.Client,
	cacheTTL time.Duration,
) *ProductHandler {
	return &ProductHandler{
		logger:       logger,
		standardizer: standardizer,
		generator:    generator,
		assistant:    qa,
		passports:    passports,
		submissions:  submissions,
		cache:        cacheClient,
		cacheTTL:     cacheTTL,
	}
}

// ProcessResponseDTO is the response for a processed submission.
type ProcessResponseDTO struct {
	Message   string                           `json:"message"`
	ProductID string                           `json:"product_id"`
	DPP       *passport.DigitalProductPassport `json:"dpp"`
}

// ProductSummaryDTO is one entry in the product listing.
type ProductSummaryDTO struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
}

// ListResponseDTO is the product listing response.
type ListResponseDTO struct {
	Products []ProductSummaryDTO `json:"products"`
}

// QARequestDTO is a question about a stored passport.
type QARequestDTO struct {
	Question string `json:"question"`
}

// QAResponseDTO carries the assistant's answer.
type QAResponseDTO struct {
	ProductID string `json:"product_id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
}

// Process handles POST /api/v1/products/process.
func (h *ProductHandler) Process(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.WithOperation("process")

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	payload, err := json.Marshal(raw)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "could not store submission", err.Error())
		return
	}
	// Every submission is kept, including reprocessing of the same
	// product, so the id is always freshly assigned.
	sub := &storage.RawSubmission{Payload: payload}
	if err := h.submissions.Save(ctx, sub); err != nil {
		log.Error().Err(err).Msg("Failed to store raw submission")
		h.writeError(w, http.StatusInternalServerError, "could not store submission", "")
		return
	}

	dpp, err := h.standardizer.Standardize(ctx, raw)
	if err != nil {
		if passport.IsValidationError(err) {
			h.writeError(w, http.StatusBadRequest, "could not standardize this input", err.Error())
			return
		}
		log.Error().Err(err).Msg("Standardization failed")
		h.writeError(w, http.StatusInternalServerError, "processing failed", "")
		return
	}

	document, err := json.Marshal(dpp)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "could not store passport", err.Error())
		return
	}
	rec := &storage.PassportRecord{
		ProductID:   dpp.ProductID,
		ProductName: dpp.ProductName,
		Document:    document,
	}
	log = log.WithProduct(dpp.ProductID)
	if err := h.passports.Save(ctx, rec); err != nil {
		log.Error().Err(err).Msg("Failed to store passport")
		h.writeError(w, http.StatusInternalServerError, "could not store passport", "")
		return
	}

	if err := h.cache.DeleteByPrefix(ctx, cache.ProductPrefix(dpp.ProductID)); err != nil {
		log.Warn().Err(err).Msg("Cache invalidation failed")
	}

	log.Info().
		Int("materials", len(dpp.MaterialsComposition)).
		Msg("Product processed")

	h.writeJSON(w, ProcessResponseDTO{
		Message:   "processed",
		ProductID: dpp.ProductID,
		DPP:       dpp,
	})
}

// List handles GET /api/v1/products.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.passports.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list passports")
		h.writeError(w, http.StatusInternalServerError, "could not list products", "")
		return
	}

	resp := ListResponseDTO{Products: make([]ProductSummaryDTO, 0, len(records))}
	for _, rec := range records {
		resp.Products = append(resp.Products, ProductSummaryDTO{
			ProductID:   rec.ProductID,
			ProductName: rec.ProductName,
		})
	}
	h.writeJSON(w, resp)
}

// GetPassport handles GET /api/v1/products/{productID}/passport.
func (h *ProductHandler) GetPassport(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	key := cache.PassportKey(productID)

	if cached, err := h.cache.Get(r.Context(), key); err == nil {
		h.writeCached(w, cached)
		return
	}

	dpp, ok := h.loadPassport(w, r, productID)
	if !ok {
		return
	}
	h.writeAndCache(w, r, key, dpp)
}

// GetCompliance handles GET /api/v1/products/{productID}/compliance.
func (h *ProductHandler) GetCompliance(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	key := cache.ComplianceKey(productID)

	if cached, err := h.cache.Get(r.Context(), key); err == nil {
		h.writeCached(w, cached)
		return
	}

	dpp, ok := h.loadPassport(w, r, productID)
	if !ok {
		return
	}
	h.writeAndCache(w, r, key, compliance.Evaluate(dpp))
}

// GetInsights handles GET /api/v1/products/{productID}/insights.
func (h *ProductHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	key := cache.InsightKey(productID)

	if cached, err := h.cache.Get(r.Context(), key); err == nil {
		h.writeCached(w, cached)
		return
	}

	dpp, ok := h.loadPassport(w, r, productID)
	if !ok {
		return
	}
	h.writeAndCache(w, r, key, h.generator.Generate(r.Context(), dpp))
}

// Ask handles POST /api/v1/products/{productID}/qa. Answers are not
// cached: questions are free text.
func (h *ProductHandler) Ask(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	var req QARequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Question == "" {
		h.writeError(w, http.StatusBadRequest, "question is required", "")
		return
	}

	dpp, ok := h.loadPassport(w, r, productID)
	if !ok {
		return
	}

	answer := h.assistant.Answer(r.Context(), dpp, req.Question)
	h.writeJSON(w, QAResponseDTO{
		ProductID: productID,
		Question:  req.Question,
		Answer:    answer,
	})
}

// loadPassport fetches and decodes a stored passport, writing the error
// response itself when that fails.
func (h *ProductHandler) loadPassport(w http.ResponseWriter, r *http.Request, productID string) (*passport.DigitalProductPassport, bool) {
	log := h.logger.WithProduct(productID)

	rec, err := h.passports.GetByID(r.Context(), productID)
	if errors.Is(err, storage.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "DPP not found", "")
		return nil, false
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to load passport")
		h.writeError(w, http.StatusInternalServerError, "could not load passport", "")
		return nil, false
	}

	var dpp passport.DigitalProductPassport
	if err := json.Unmarshal(rec.Document, &dpp); err != nil {
		log.Error().Err(err).Msg("Stored passport is corrupt")
		h.writeError(w, http.StatusInternalServerError, "could not load passport", "")
		return nil, false
	}
	return &dpp, true
}

func (h *ProductHandler) writeAndCache(w http.ResponseWriter, r *http.Request, key string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
		h.writeError(w, http.StatusInternalServerError, "encoding failed", "")
		return
	}
	if err := h.cache.Set(r.Context(), key, body, h.cacheTTL); err != nil {
		h.logger.Warn().Err(err).Str("key", key).Msg("Cache set failed")
	}
	h.writeCached(w, body)
}

func (h *ProductHandler) writeCached(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (h *ProductHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *ProductHandler) writeError(w http.ResponseWriter, status int, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]string{
		"error":   message,
		"message": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	json.NewEncoder(w).Encode(resp)
}
