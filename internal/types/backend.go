package types

import (
	"time"
)

// Backend health states
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// Backend status values derived from availability
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// BackendInfo describes a callable language-model backend: identity,
// capability, pricing, and observed performance. Registry reads hand out
// copies, never references into the catalog.
type BackendInfo struct {
	Name     string `json:"name" yaml:"name"`
	Provider string `json:"provider" yaml:"provider"`
	Family   string `json:"family,omitempty" yaml:"family,omitempty"`

	// Capability attributes
	ContextWindow int `json:"context_window,omitempty" yaml:"context_window,omitempty"`

	// Cost per 1K tokens, split by direction
	InputCostPer1K  float64 `json:"input_cost_per_1k" yaml:"input_cost_per_1k"`
	OutputCostPer1K float64 `json:"output_cost_per_1k" yaml:"output_cost_per_1k"`

	// Performance attributes
	LatencyMs   float64 `json:"latency_ms" yaml:"latency_ms"`
	SuccessRate float64 `json:"success_rate" yaml:"success_rate"` // rolling, in [0,1]

	Available bool   `json:"available" yaml:"available"`
	Status    string `json:"status" yaml:"status"` // "active" or "inactive"
	Health    string `json:"health" yaml:"health"`

	// Optional quality rating on a 1-10 scale; nil when unrated
	QualityScore *float64 `json:"quality_score,omitempty" yaml:"quality_score,omitempty"`

	LastHealthCheck time.Time `json:"last_health_check" yaml:"-"`
}

// TotalCostPer1K returns the combined input+output token cost, the figure
// the cost strategy minimizes.
func (b *BackendInfo) TotalCostPer1K() float64 {
	return b.InputCostPer1K + b.OutputCostPer1K
}

// QualifiedName returns the "provider:name" form used by scenario configs
// to disambiguate backends served by multiple providers.
func (b *BackendInfo) QualifiedName() string {
	if b.Provider == "" {
		return b.Name
	}
	return b.Provider + ":" + b.Name
}

// MetricsUpdate is a partial update to a backend's performance attributes.
// Nil fields are left untouched.
type MetricsUpdate struct {
	LatencyMs   *float64 `json:"latency_ms,omitempty"`
	SuccessRate *float64 `json:"success_rate,omitempty"`
}
