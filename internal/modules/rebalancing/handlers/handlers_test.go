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
	"github.com/kevin12369/smart-stock-insider/internal/modules/rebalancing"
)

func testRouter() chi.Router {
	planner := rebalancing.NewPlanner(config.DefaultEngineConfig(), zerolog.Nop())
	h := NewHandler(planner, zerolog.Nop())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestHandleRebalance(t *testing.T) {
	body, err := json.Marshal(RebalanceRequest{
		CurrentWeights: map[string]float64{"AAPL": 0.50, "MSFT": 0.30, "BND": 0.20},
		TargetWeights:  map[string]float64{"AAPL": 0.40, "MSFT": 0.35, "BND": 0.25},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/rebalance", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.InDelta(t, 0.10, resp["turnover"].(float64), 1e-9)
	assert.Equal(t, true, resp["needs_rebalancing"])

	plan := resp["rebalancing_plan"].(map[string]interface{})
	assert.Contains(t, plan["assets_to_sell"], "AAPL")
	assert.Contains(t, plan["assets_to_buy"], "MSFT")
}

func TestHandleRebalance_EmptyTarget(t *testing.T) {
	body, err := json.Marshal(RebalanceRequest{
		CurrentWeights: map[string]float64{"AAPL": 1.0},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/rebalance", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRebalance_InvalidBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/rebalance", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
