package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tributary-ai/model-selector/internal/registry"
	"github.com/tributary-ai/model-selector/internal/scenario"
	"github.com/tributary-ai/model-selector/internal/selection"
	"github.com/tributary-ai/model-selector/internal/strategy"
	"github.com/tributary-ai/model-selector/internal/types"
)

func newTestServer(t *testing.T) (*Server, *registry.Registry) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	reg := registry.NewRegistry(logger)
	store := scenario.NewStore(logger)
	strategies := map[types.StrategyKind]strategy.Strategy{
		types.StrategyCost:     strategy.NewCostOptimized(strategy.CostConfig{}, logger),
		types.StrategyQuality:  strategy.NewQualityOptimized(strategy.QualityConfig{}, logger),
		types.StrategyLatency:  strategy.NewLatencyOptimized(strategy.LatencyConfig{}, logger),
		types.StrategyBalanced: strategy.NewBalanced(logger),
	}
	selector := selection.NewSelector(store, strategies, logger)

	srv, err := NewServer(reg, store, selector, &ServerConfig{Port: "8080"}, logger)
	require.NoError(t, err)
	return srv, reg
}

func seedTestCatalog(t *testing.T, reg *registry.Registry) {
	t.Helper()

	quality := func(v float64) *float64 { return &v }
	backends := []types.BackendInfo{
		{Name: "gpt-4o", Provider: "openai", InputCostPer1K: 0.005, OutputCostPer1K: 0.015, LatencyMs: 1800, Available: true, QualityScore: quality(9)},
		{Name: "gpt-4o-mini", Provider: "openai", InputCostPer1K: 0.00015, OutputCostPer1K: 0.0006, LatencyMs: 900, Available: true, QualityScore: quality(7)},
		{Name: "claude-3-haiku", Provider: "anthropic", InputCostPer1K: 0.00025, OutputCostPer1K: 0.00125, LatencyMs: 700, Available: true, QualityScore: quality(6)},
		{Name: "ollama", Provider: "local", LatencyMs: 400, Available: true},
	}
	for _, b := range backends {
		require.NoError(t, reg.Register(b))
	}
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleSelect(t *testing.T) {
	srv, reg := newTestServer(t)
	seedTestCatalog(t, reg)
	router := srv.setupRoutes()

	rec := doJSON(t, router, "POST", "/v1/select", map[string]interface{}{
		"scenario": "general",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var winner types.BackendInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &winner))
	assert.NotEmpty(t, winner.Name)
}

func TestHandleSelect_MissingScenario(t *testing.T) {
	srv, reg := newTestServer(t)
	seedTestCatalog(t, reg)
	router := srv.setupRoutes()

	rec := doJSON(t, router, "POST", "/v1/select", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSelect_EmptyCatalog(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.setupRoutes()

	rec := doJSON(t, router, "POST", "/v1/select", map[string]interface{}{
		"scenario": "general",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleSelectForScenario(t *testing.T) {
	srv, reg := newTestServer(t)
	seedTestCatalog(t, reg)
	router := srv.setupRoutes()

	rec := doJSON(t, router, "POST", "/v1/select/scenario", map[string]interface{}{
		"scenario": "resume_parsing",
		"agent_context": map[string]interface{}{
			"workflow_step": "parse",
			"agent_id":      "agent-1",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// resume_parsing is cost-driven and ollama is free.
	var winner types.BackendInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &winner))
	assert.Equal(t, "ollama", winner.Name)
}

func TestHandleSelectWithFallback(t *testing.T) {
	srv, reg := newTestServer(t)
	seedTestCatalog(t, reg)
	router := srv.setupRoutes()

	rec := doJSON(t, router, "POST", "/v1/select/fallback", map[string]interface{}{
		"scenario": "resume_parsing",
		"exclude":  []string{"gpt-4o-mini"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var winner types.BackendInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &winner))
	assert.Equal(t, "claude-3-haiku", winner.Name)
}

func TestHandleListModels(t *testing.T) {
	srv, reg := newTestServer(t)
	seedTestCatalog(t, reg)
	router := srv.setupRoutes()

	rec := doJSON(t, router, "GET", "/v1/models", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Models         []types.BackendInfo `json:"models"`
		Count          int                 `json:"count"`
		AvailableCount int                 `json:"available_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 4, response.Count)
	assert.Equal(t, 4, response.AvailableCount)
	assert.Len(t, response.Models, 4)
}

func TestHandleRegisterModel(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.setupRoutes()

	rec := doJSON(t, router, "POST", "/v1/models", map[string]interface{}{
		"name":               "mistral-7b",
		"provider":           "local",
		"input_cost_per_1k":  0.0,
		"output_cost_per_1k": 0.0,
		"latency_ms":         350,
		"available":          true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created types.BackendInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "mistral-7b", created.Name)
	assert.Equal(t, 1.0, created.SuccessRate)
	assert.Equal(t, types.HealthHealthy, created.Health)

	// Duplicate registration conflicts.
	rec = doJSON(t, router, "POST", "/v1/models", map[string]interface{}{
		"name":     "mistral-7b",
		"provider": "local",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleRegisterModel_Invalid(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.setupRoutes()

	// Missing provider fails request validation.
	rec := doJSON(t, router, "POST", "/v1/models", map[string]interface{}{
		"name": "incomplete",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Quality score outside the 1-10 scale.
	rec = doJSON(t, router, "POST", "/v1/models", map[string]interface{}{
		"name":          "overrated",
		"provider":      "test",
		"quality_score": 42,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetModel(t *testing.T) {
	srv, reg := newTestServer(t)
	seedTestCatalog(t, reg)
	router := srv.setupRoutes()

	rec := doJSON(t, router, "GET", "/v1/models/gpt-4o", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var model types.BackendInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &model))
	assert.Equal(t, "openai", model.Provider)

	rec = doJSON(t, router, "GET", "/v1/models/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSetAvailability(t *testing.T) {
	srv, reg := newTestServer(t)
	seedTestCatalog(t, reg)
	router := srv.setupRoutes()

	rec := doJSON(t, router, "PUT", "/v1/models/gpt-4o/availability", map[string]interface{}{
		"available": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var model types.BackendInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &model))
	assert.False(t, model.Available)
	assert.Equal(t, types.StatusInactive, model.Status)

	// The field is required, not defaulted.
	rec = doJSON(t, router, "PUT", "/v1/models/gpt-4o/availability", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, "PUT", "/v1/models/missing/availability", map[string]interface{}{
		"available": true,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleUpdateMetrics(t *testing.T) {
	srv, reg := newTestServer(t)
	seedTestCatalog(t, reg)
	router := srv.setupRoutes()

	rec := doJSON(t, router, "PUT", "/v1/models/gpt-4o/metrics", map[string]interface{}{
		"latency_ms":   950,
		"success_rate": 0.92,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var model types.BackendInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &model))
	assert.Equal(t, 950.0, model.LatencyMs)
	assert.Equal(t, 0.92, model.SuccessRate)

	// Success rate outside [0,1] is rejected.
	rec = doJSON(t, router, "PUT", "/v1/models/gpt-4o/metrics", map[string]interface{}{
		"success_rate": 1.5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSetHealth(t *testing.T) {
	srv, reg := newTestServer(t)
	seedTestCatalog(t, reg)
	router := srv.setupRoutes()

	rec := doJSON(t, router, "PUT", "/v1/models/gpt-4o/health", map[string]interface{}{
		"health": "unhealthy",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var model types.BackendInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &model))
	assert.Equal(t, types.HealthUnhealthy, model.Health)
	assert.False(t, model.Available)

	rec = doJSON(t, router, "PUT", "/v1/models/gpt-4o/health", map[string]interface{}{
		"health": "sideways",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleScenarios(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.setupRoutes()

	rec := doJSON(t, router, "GET", "/v1/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Scenarios map[string]types.ScenarioConfig `json:"scenarios"`
		Count     int                             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 7, response.Count)
	assert.Contains(t, response.Scenarios, "resume_parsing")

	rec = doJSON(t, router, "GET", "/v1/scenarios/resume_parsing", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cfg types.ScenarioConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, types.StrategyCost, cfg.Strategy)

	rec = doJSON(t, router, "GET", "/v1/scenarios/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleUpdateScenario(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.setupRoutes()

	rec := doJSON(t, router, "PUT", "/v1/scenarios/general", map[string]interface{}{
		"strategy":       "latency",
		"primary_models": []string{"claude-3-haiku"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var cfg types.ScenarioConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, types.StrategyLatency, cfg.Strategy)
	assert.Equal(t, []string{"claude-3-haiku"}, cfg.PrimaryModels)

	// Bad weights are rejected.
	rec = doJSON(t, router, "PUT", "/v1/scenarios/general", map[string]interface{}{
		"weights": map[string]float64{"quality": 0.9, "cost": 0.9, "latency": 0.9},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, "PUT", "/v1/scenarios/unknown", map[string]interface{}{
		"strategy": "cost",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleResetScenarios(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.setupRoutes()

	rec := doJSON(t, router, "PUT", "/v1/scenarios/general", map[string]interface{}{
		"strategy": "cost",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "POST", "/v1/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "GET", "/v1/scenarios/general", nil)
	var cfg types.ScenarioConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, types.StrategyBalanced, cfg.Strategy)
}

func TestHandleDecisions(t *testing.T) {
	srv, reg := newTestServer(t)
	seedTestCatalog(t, reg)
	router := srv.setupRoutes()

	// Generate a few decisions.
	for i := 0; i < 3; i++ {
		rec := doJSON(t, router, "POST", "/v1/select", map[string]interface{}{
			"scenario": "general",
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, router, "GET", "/v1/decisions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Decisions []types.SelectionDecision `json:"decisions"`
		Count     int                       `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 3, response.Count)

	rec = doJSON(t, router, "GET", "/v1/decisions?limit=2", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 2, response.Count)

	rec = doJSON(t, router, "GET", "/v1/decisions?limit=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, "DELETE", "/v1/decisions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "GET", "/v1/decisions", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 0, response.Count)
}

func TestHandleStatistics(t *testing.T) {
	srv, reg := newTestServer(t)
	seedTestCatalog(t, reg)
	router := srv.setupRoutes()

	rec := doJSON(t, router, "POST", "/v1/select/scenario", map[string]interface{}{
		"scenario": "resume_parsing",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "GET", "/v1/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats types.SelectionStatistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalSelections)
	assert.Contains(t, stats.ByScenario, "resume_parsing")

	rec = doJSON(t, router, "GET", "/v1/statistics?start=not-a-time", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, "GET", fmt.Sprintf("/v1/statistics?start=%s", "2020-01-01T00:00:00Z"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleHealthCheck(t *testing.T) {
	srv, reg := newTestServer(t)
	router := srv.setupRoutes()

	// Empty catalog counts as healthy; there is nothing to be degraded about.
	rec := doJSON(t, router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	seedTestCatalog(t, reg)
	rec = doJSON(t, router, "GET", "/v1/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// All backends down flips the service to degraded.
	for _, b := range reg.ListAll() {
		require.NoError(t, reg.SetAvailability(b.Name, false))
	}
	rec = doJSON(t, router, "GET", "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
}

func TestContentTypeMiddleware(t *testing.T) {
	srv, reg := newTestServer(t)
	seedTestCatalog(t, reg)
	router := srv.setupRoutes()

	req := httptest.NewRequest("POST", "/v1/select", bytes.NewReader([]byte(`{"scenario":"general"}`)))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
