package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevin12369/smart-stock-insider/internal/config"
	"github.com/kevin12369/smart-stock-insider/internal/modules/optimization"
)

func testRouter() chi.Router {
	cfg := config.DefaultEngineConfig()
	cfg.MonteCarloSimulations = 0
	service := optimization.NewService(cfg, zerolog.Nop())
	h := NewHandler(service, zerolog.Nop())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func testAssets() []optimization.Asset {
	return []optimization.Asset{
		{Symbol: "AAPL", Name: "Apple", ExpectedReturn: 0.12, Volatility: 0.25, Category: "tech"},
		{Symbol: "BND", Name: "Bond ETF", ExpectedReturn: 0.04, Volatility: 0.06, Category: "bond"},
	}
}

func postJSON(t *testing.T, r chi.Router, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandleOptimize(t *testing.T) {
	rec := postJSON(t, testRouter(), "/optimize", OptimizeRequest{
		Assets: testAssets(),
		Method: "maximum_sharpe",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result optimization.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))

	sum := 0.0
	for _, w := range result.Weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	assert.Equal(t, optimization.MethodMaximumSharpe, result.Method)
}

func TestHandleOptimize_UnknownMethod(t *testing.T) {
	rec := postJSON(t, testRouter(), "/optimize", OptimizeRequest{
		Assets: testAssets(),
		Method: "quantum",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleOptimize_InfeasibleConstraints(t *testing.T) {
	rec := postJSON(t, testRouter(), "/optimize", OptimizeRequest{
		Assets:      testAssets(),
		Method:      "equal_weight",
		Constraints: &optimization.Constraints{MinWeight: 0.8, MaxWeight: 1.0},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleOptimize_SingleAsset(t *testing.T) {
	rec := postJSON(t, testRouter(), "/optimize", OptimizeRequest{
		Assets: testAssets()[:1],
		Method: "equal_weight",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleEfficientFrontier(t *testing.T) {
	rec := postJSON(t, testRouter(), "/efficient-frontier", FrontierRequest{
		Assets:    testAssets(),
		NumPoints: 10,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		EfficientFrontier []optimization.FrontierPoint `json:"efficient_frontier"`
		NumPortfolios     int                          `json:"num_portfolios"`
		AssetSymbols      []string                     `json:"asset_symbols"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, 10, resp.NumPortfolios)
	assert.Len(t, resp.EfficientFrontier, 10)
	assert.Equal(t, []string{"AAPL", "BND"}, resp.AssetSymbols)
}

func TestHandleMethods(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/methods", nil)
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Methods       map[string]methodDescription `json:"methods"`
		DefaultMethod string                       `json:"default_method"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Len(t, resp.Methods, len(optimization.Methods()))
	assert.Equal(t, "markowitz", resp.DefaultMethod)
}
