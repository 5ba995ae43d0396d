package types

import (
	"time"
)

// SelectionStatistics is a derived aggregate over a time-bounded slice of
// the decision log. It is recomputed on demand and never stored.
type SelectionStatistics struct {
	TotalSelections int                       `json:"total_selections"`
	ByScenario      map[string]*ScenarioStats `json:"by_scenario"`
	ByModel         map[string]*ModelStats    `json:"by_model"`
	ByStrategy      map[string]int            `json:"by_strategy"`

	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`
}

// ScenarioStats aggregates decisions for one scenario.
type ScenarioStats struct {
	Selections        int            `json:"selections"`
	ModelDistribution map[string]int `json:"model_distribution"`
	AvgCost           float64        `json:"avg_cost"`
	AvgLatencyMs      float64        `json:"avg_latency_ms"`
	SuccessRate       float64        `json:"success_rate"`
}

// ModelStats aggregates decisions for one backend.
type ModelStats struct {
	Selections     int      `json:"selections"`
	Scenarios      []string `json:"scenarios"`
	AvgCost        float64  `json:"avg_cost"`
	AvgLatencyMs   float64  `json:"avg_latency_ms"`
	AvgSuccessRate float64  `json:"avg_success_rate"`
}
