package types

import (
	"time"
)

// SelectionContext carries per-call bounds into a strategy. Nil fields mean
// "no bound"; strategies fall back to their configured defaults.
type SelectionContext struct {
	Scenario     string   `json:"scenario,omitempty"`
	MaxCost      *float64 `json:"max_cost,omitempty"`
	MaxLatencyMs *float64 `json:"max_latency_ms,omitempty"`
}

// AgentContext is optional caller-supplied context attached to a decision
// for workflow-level observability.
type AgentContext struct {
	WorkflowStep string  `json:"workflow_step,omitempty"`
	AgentID      string  `json:"agent_id,omitempty"`
	Improvement  float64 `json:"improvement,omitempty"`
}

// FallbackEvent records that the top choice was unavailable and which
// backend actually served. Always embedded in a SelectionDecision.
type FallbackEvent struct {
	OriginalModel  string   `json:"original_model"`
	FallbackModel  string   `json:"fallback_model"`
	ExcludedModels []string `json:"excluded_models,omitempty"`
}

// SelectionDecision is an immutable audit record appended to the selector's
// decision log for every selection.
type SelectionDecision struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Scenario  string    `json:"scenario"`

	SelectedModel string `json:"selected_model"`
	Provider      string `json:"provider"`

	AvailableModelsCount int    `json:"available_models_count"`
	StrategyUsed         string `json:"strategy_used"`

	ModelCost        float64 `json:"model_cost"`
	ModelLatencyMs   float64 `json:"model_latency_ms"`
	ModelSuccessRate float64 `json:"model_success_rate"`

	AgentContext *AgentContext  `json:"agent_context,omitempty"`
	Fallback     *FallbackEvent `json:"fallback,omitempty"`
}
