package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/tributary-ai/model-selector/internal/registry"
	"github.com/tributary-ai/model-selector/internal/scenario"
	"github.com/tributary-ai/model-selector/internal/selection"
	"github.com/tributary-ai/model-selector/internal/strategy"
	"github.com/tributary-ai/model-selector/internal/types"
)

// Request payloads

type selectRequest struct {
	Scenario     string   `json:"scenario" validate:"required"`
	MaxCost      *float64 `json:"max_cost" validate:"omitempty,gt=0"`
	MaxLatencyMs *float64 `json:"max_latency_ms" validate:"omitempty,gt=0"`
}

type scenarioSelectRequest struct {
	Scenario     string              `json:"scenario" validate:"required"`
	AgentContext *types.AgentContext `json:"agent_context"`
}

type fallbackSelectRequest struct {
	Scenario     string              `json:"scenario" validate:"required"`
	Exclude      []string            `json:"exclude"`
	AgentContext *types.AgentContext `json:"agent_context"`
}

type registerModelRequest struct {
	Name            string   `json:"name" validate:"required"`
	Provider        string   `json:"provider" validate:"required"`
	Family          string   `json:"family"`
	ContextWindow   int      `json:"context_window" validate:"gte=0"`
	InputCostPer1K  float64  `json:"input_cost_per_1k" validate:"gte=0"`
	OutputCostPer1K float64  `json:"output_cost_per_1k" validate:"gte=0"`
	LatencyMs       float64  `json:"latency_ms" validate:"gte=0"`
	Available       bool     `json:"available"`
	QualityScore    *float64 `json:"quality_score" validate:"omitempty,gte=1,lte=10"`
}

type availabilityRequest struct {
	Available *bool `json:"available" validate:"required"`
}

type metricsRequest struct {
	LatencyMs   *float64 `json:"latency_ms" validate:"omitempty,gte=0"`
	SuccessRate *float64 `json:"success_rate" validate:"omitempty,gte=0,lte=1"`
}

type healthRequest struct {
	Health string `json:"health" validate:"required,oneof=healthy degraded unhealthy"`
}

// Selection handlers

// handleSelect runs the generic selection path over the full catalog.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	sctx := &types.SelectionContext{
		Scenario:     req.Scenario,
		MaxCost:      req.MaxCost,
		MaxLatencyMs: req.MaxLatencyMs,
	}

	winner, err := s.selector.SelectModel(s.registry.ListAll(), req.Scenario, sctx)
	if err != nil {
		s.writeSelectionError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, winner)
}

// handleSelectForScenario runs the scenario-aware path. The mapping store's
// backend table is refreshed from the registry first so recommendations
// reflect the current catalog.
func (s *Server) handleSelectForScenario(w http.ResponseWriter, r *http.Request) {
	var req scenarioSelectRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	available := s.registry.ListAll()
	s.store.RegisterAvailableBackends(available)

	winner, err := s.selector.SelectModelForScenario(types.Scenario(req.Scenario), available, req.AgentContext)
	if err != nil {
		s.writeSelectionError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, winner)
}

func (s *Server) handleSelectWithFallback(w http.ResponseWriter, r *http.Request) {
	var req fallbackSelectRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	available := s.registry.ListAll()
	s.store.RegisterAvailableBackends(available)

	winner, err := s.selector.SelectWithFallback(types.Scenario(req.Scenario), available, req.Exclude, req.AgentContext)
	if err != nil {
		s.writeSelectionError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, winner)
}

// Registry handlers

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	models := s.registry.ListAll()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"models":          models,
		"count":           s.registry.Count(),
		"available_count": s.registry.AvailableCount(),
	})
}

func (s *Server) handleRegisterModel(w http.ResponseWriter, r *http.Request) {
	var req registerModelRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	err := s.registry.Register(types.BackendInfo{
		Name:            req.Name,
		Provider:        req.Provider,
		Family:          req.Family,
		ContextWindow:   req.ContextWindow,
		InputCostPer1K:  req.InputCostPer1K,
		OutputCostPer1K: req.OutputCostPer1K,
		LatencyMs:       req.LatencyMs,
		Available:       req.Available,
		QualityScore:    req.QualityScore,
	})
	if err != nil {
		if errors.Is(err, registry.ErrDuplicateName) {
			s.writeErrorResponse(w, http.StatusConflict, err.Error())
			return
		}
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	model, err := s.registry.Get(req.Name)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, model)
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	model, err := s.registry.Get(name)
	if err != nil {
		s.writeErrorResponse(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, model)
}

func (s *Server) handleSetAvailability(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req availabilityRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	if err := s.registry.SetAvailability(name, *req.Available); err != nil {
		s.writeRegistryError(w, err)
		return
	}
	model, _ := s.registry.Get(name)
	s.writeJSON(w, http.StatusOK, model)
}

func (s *Server) handleUpdateMetrics(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req metricsRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	update := types.MetricsUpdate{LatencyMs: req.LatencyMs, SuccessRate: req.SuccessRate}
	if err := s.registry.UpdateMetrics(name, update); err != nil {
		s.writeRegistryError(w, err)
		return
	}
	model, _ := s.registry.Get(name)
	s.writeJSON(w, http.StatusOK, model)
}

func (s *Server) handleSetHealth(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req healthRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	if err := s.registry.SetHealth(name, req.Health); err != nil {
		s.writeRegistryError(w, err)
		return
	}
	model, _ := s.registry.Get(name)
	s.writeJSON(w, http.StatusOK, model)
}

// Scenario handlers

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	configs := make(map[types.Scenario]*types.ScenarioConfig)
	for _, sc := range s.store.Scenarios() {
		if cfg, err := s.store.GetConfig(sc); err == nil {
			configs[sc] = cfg
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"scenarios": configs,
		"count":     len(configs),
	})
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	sc := types.Scenario(mux.Vars(r)["scenario"])

	cfg, err := s.store.GetConfig(sc)
	if err != nil {
		s.writeErrorResponse(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleUpdateScenario(w http.ResponseWriter, r *http.Request) {
	sc := types.Scenario(mux.Vars(r)["scenario"])

	var update types.ScenarioConfigUpdate
	if !s.decodeAndValidate(w, r, &update) {
		return
	}

	if err := s.store.UpdateConfig(sc, update); err != nil {
		switch {
		case errors.Is(err, scenario.ErrScenarioNotFound):
			s.writeErrorResponse(w, http.StatusNotFound, err.Error())
		case errors.Is(err, scenario.ErrInvalidWeights):
			s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		default:
			s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	cfg, _ := s.store.GetConfig(sc)
	s.writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleResetScenarios(w http.ResponseWriter, r *http.Request) {
	s.store.ResetToDefaults()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "reset",
		"timestamp": time.Now().Unix(),
	})
}

// Observability handlers

func (s *Server) handleGetDecisions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid limit: %s", raw))
			return
		}
		limit = parsed
	}

	decisions := s.selector.GetSelectionLog(limit)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"decisions": decisions,
		"count":     len(decisions),
	})
}

func (s *Server) handleClearDecisions(w http.ResponseWriter, r *http.Request) {
	s.selector.ClearSelectionLog()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "cleared",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleGetStatistics(w http.ResponseWriter, r *http.Request) {
	var start, end *time.Time

	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid start time: %s", raw))
			return
		}
		start = &parsed
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid end time: %s", raw))
			return
		}
		end = &parsed
	}

	s.writeJSON(w, http.StatusOK, s.selector.GetSelectionStatistics(start, end))
}

// handleHealthCheck reports service health and catalog counts.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	total := s.registry.Count()
	available := s.registry.AvailableCount()

	status := "healthy"
	statusCode := http.StatusOK
	if total > 0 && available == 0 {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	s.writeJSON(w, statusCode, map[string]interface{}{
		"status":           status,
		"models":           total,
		"available_models": available,
		"timestamp":        time.Now().Unix(),
	})
}

// Error mapping

func (s *Server) writeRegistryError(w http.ResponseWriter, err error) {
	if errors.Is(err, registry.ErrBackendNotFound) {
		s.writeErrorResponse(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
}

func (s *Server) writeSelectionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, selection.ErrNoModelsAvailable),
		errors.Is(err, selection.ErrFallbackExhausted),
		errors.Is(err, strategy.ErrNoCandidates):
		s.writeErrorResponse(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
	}
}
