package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpp-comply/dpp-engine/internal/cache"
	"github.com/dpp-comply/dpp-engine/internal/corpus"
	"github.com/dpp-comply/dpp-engine/internal/observability"
	"github.com/dpp-comply/dpp-engine/internal/passport"
	"github.com/dpp-comply/dpp-engine/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.EnsureSchema(context.Background(), db))

	router := NewRouter(
		observability.Nop(),
		AppConfig{
			RequestTimeout: 10 * time.Second,
			CacheTTL:       time.Minute,
		},
		corpus.Builtin(),
		db,
		cache.NewMemoryClient(100),
		nil,
	)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHealthEndpoints(t *testing.T) {
	server := newTestServer(t)

	for _, path := range []string{"/health", "/ready"} {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestProcessAndRetrieveFlow(t *testing.T) {
	server := newTestServer(t)

	raw := map[string]any{
		"product_id":   "ecophone-x1",
		"product_name": "EcoPhone X1",
		"manufacturer": "GreenTech",
		"description":  "Aluminium 60% Glass 40%. Recycled content 25%. Footprint 2.4 kg CO2e.",
		"repair_score": 8,
		"suppliers":    []string{"MillA", "MillB"},
	}

	resp := postJSON(t, server.URL+"/api/v1/products/process", raw)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var processed struct {
		Message   string                           `json:"message"`
		ProductID string                           `json:"product_id"`
		DPP       *passport.DigitalProductPassport `json:"dpp"`
	}
	decodeBody(t, resp, &processed)
	assert.Equal(t, "processed", processed.Message)
	assert.Equal(t, "ecophone-x1", processed.ProductID)
	require.NotNil(t, processed.DPP)
	assert.Equal(t, 25.0, processed.DPP.RecycledContentPercentage)
	assert.Equal(t, "8", processed.DPP.RepairScore)

	// Listing includes the product.
	resp, err := http.Get(server.URL + "/api/v1/products")
	require.NoError(t, err)
	var listing struct {
		Products []struct {
			ProductID   string `json:"product_id"`
			ProductName string `json:"product_name"`
		} `json:"products"`
	}
	decodeBody(t, resp, &listing)
	require.Len(t, listing.Products, 1)
	assert.Equal(t, "EcoPhone X1", listing.Products[0].ProductName)

	// Stored passport round-trips, twice to exercise the cache.
	for i := 0; i < 2; i++ {
		resp, err = http.Get(server.URL + "/api/v1/products/ecophone-x1/passport")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var dpp passport.DigitalProductPassport
		decodeBody(t, resp, &dpp)
		assert.Equal(t, "GreenTech", dpp.Manufacturer)
		assert.Equal(t, 2.4, dpp.CO2FootprintKg)
	}

	// Compliance report.
	resp, err = http.Get(server.URL + "/api/v1/products/ecophone-x1/compliance")
	require.NoError(t, err)
	var report struct {
		ProductID string   `json:"product_id"`
		Status    string   `json:"status"`
		Issues    []string `json:"issues"`
		Warnings  []string `json:"warnings"`
	}
	decodeBody(t, resp, &report)
	assert.Equal(t, "ecophone-x1", report.ProductID)
	assert.Equal(t, passport.StatusCompliant, report.Status)
	assert.Empty(t, report.Issues)
	assert.Empty(t, report.Warnings)

	// Insights.
	resp, err = http.Get(server.URL + "/api/v1/products/ecophone-x1/insights")
	require.NoError(t, err)
	var insights struct {
		Summary string  `json:"summary"`
		Score   float64 `json:"score"`
	}
	decodeBody(t, resp, &insights)
	assert.Equal(t, 70.0, insights.Score)
	assert.Contains(t, insights.Summary, "EcoPhone X1")

	// Q&A.
	resp = postJSON(t, server.URL+"/api/v1/products/ecophone-x1/qa", map[string]string{
		"question": "What is the CO2 footprint?",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var qa struct {
		Answer string `json:"answer"`
	}
	decodeBody(t, resp, &qa)
	assert.Contains(t, qa.Answer, "2.4")
}

func TestReprocessInvalidatesCachedViews(t *testing.T) {
	server := newTestServer(t)

	raw := map[string]any{
		"product_id":   "p-1",
		"product_name": "Widget",
		"description":  "Steel 100%. Recycled 30%.",
	}
	resp := postJSON(t, server.URL+"/api/v1/products/process", raw)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Prime the cache.
	resp, err := http.Get(server.URL + "/api/v1/products/p-1/passport")
	require.NoError(t, err)
	var before passport.DigitalProductPassport
	decodeBody(t, resp, &before)

	raw["product_name"] = "Widget v2"
	resp = postJSON(t, server.URL+"/api/v1/products/process", raw)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(server.URL + "/api/v1/products/p-1/passport")
	require.NoError(t, err)
	var after passport.DigitalProductPassport
	decodeBody(t, resp, &after)
	assert.Equal(t, "Widget v2", after.ProductName)
}

func TestGetPassportNotFound(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/products/missing/passport")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "DPP not found", body["error"])
}

func TestProcessRejectsBadInput(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/v1/products/process", map[string]any{
		"product_id": 42,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "could not standardize this input", body["error"])
}

func TestQARequiresQuestion(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/v1/products/process", map[string]any{"product_id": "p-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/api/v1/products/p-1/qa", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
