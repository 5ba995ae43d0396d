package types

import (
	"fmt"
	"math"
)

// Scenario is a named usage context. The set is closed and versioned with
// the callers; unknown values fail config lookups with ErrScenarioNotFound.
type Scenario string

const (
	ScenarioResumeParsing       Scenario = "resume_parsing"
	ScenarioResumeOptimization  Scenario = "resume_optimization"
	ScenarioInterviewGeneration Scenario = "interview_generation"
	ScenarioMatchCalculation    Scenario = "match_calculation"
	ScenarioAgentAnalyze        Scenario = "agent_analyze"
	ScenarioAgentOptimize       Scenario = "agent_optimize"
	ScenarioGeneral             Scenario = "general"
)

// AllScenarios lists every scenario shipped with a default config.
func AllScenarios() []Scenario {
	return []Scenario{
		ScenarioResumeParsing,
		ScenarioResumeOptimization,
		ScenarioInterviewGeneration,
		ScenarioMatchCalculation,
		ScenarioAgentAnalyze,
		ScenarioAgentOptimize,
		ScenarioGeneral,
	}
}

// StrategyKind identifies a selection strategy.
type StrategyKind string

const (
	StrategyCost     StrategyKind = "cost"
	StrategyQuality  StrategyKind = "quality"
	StrategyLatency  StrategyKind = "latency"
	StrategyBalanced StrategyKind = "balanced"
)

// WeightSumTolerance is the allowed deviation of a weight triple from 1.0.
const WeightSumTolerance = 1e-4

// Weights is the quality/cost/latency trade-off triple carried by a scenario
// config. Each component lies in [0,1] and the triple sums to 1.0 within
// WeightSumTolerance.
type Weights struct {
	Quality float64 `json:"quality" yaml:"quality"`
	Cost    float64 `json:"cost" yaml:"cost"`
	Latency float64 `json:"latency" yaml:"latency"`
}

// Validate checks the range and sum invariants.
func (w Weights) Validate() error {
	for _, c := range []struct {
		name  string
		value float64
	}{
		{"quality", w.Quality},
		{"cost", w.Cost},
		{"latency", w.Latency},
	} {
		if c.value < 0 || c.value > 1 {
			return fmt.Errorf("weight %s=%.4f outside [0,1]", c.name, c.value)
		}
	}
	sum := w.Quality + w.Cost + w.Latency
	if math.Abs(sum-1.0) > WeightSumTolerance {
		return fmt.Errorf("weights sum to %.6f, want 1.0", sum)
	}
	return nil
}

// ScenarioConfig maps a scenario to its selection policy: strategy kind,
// ranked model lists, and trade-off weights. The scenario identifier itself
// is immutable once registered.
type ScenarioConfig struct {
	Scenario       Scenario     `json:"scenario" yaml:"scenario"`
	Strategy       StrategyKind `json:"strategy" yaml:"strategy"`
	PrimaryModels  []string     `json:"primary_models" yaml:"primary_models"`
	FallbackModels []string     `json:"fallback_models" yaml:"fallback_models"`
	Weights        Weights      `json:"weights" yaml:"weights"`

	MinQualityScore *float64 `json:"min_quality_score,omitempty" yaml:"min_quality_score,omitempty"`
	MaxLatencyMs    *float64 `json:"max_latency_ms,omitempty" yaml:"max_latency_ms,omitempty"`
}

// Clone returns a deep copy so callers cannot corrupt stored state.
func (c *ScenarioConfig) Clone() *ScenarioConfig {
	out := *c
	out.PrimaryModels = append([]string(nil), c.PrimaryModels...)
	out.FallbackModels = append([]string(nil), c.FallbackModels...)
	if c.MinQualityScore != nil {
		v := *c.MinQualityScore
		out.MinQualityScore = &v
	}
	if c.MaxLatencyMs != nil {
		v := *c.MaxLatencyMs
		out.MaxLatencyMs = &v
	}
	return &out
}

// Validate checks the invariants every stored config must satisfy.
func (c *ScenarioConfig) Validate() error {
	if c.Scenario == "" {
		return fmt.Errorf("scenario identifier is empty")
	}
	switch c.Strategy {
	case StrategyCost, StrategyQuality, StrategyLatency, StrategyBalanced:
	default:
		return fmt.Errorf("unknown strategy kind %q", c.Strategy)
	}
	if len(c.PrimaryModels) == 0 {
		return fmt.Errorf("scenario %s has no primary models", c.Scenario)
	}
	if len(c.FallbackModels) == 0 {
		return fmt.Errorf("scenario %s has no fallback models", c.Scenario)
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("scenario %s: %w", c.Scenario, err)
	}
	return nil
}

// ScenarioConfigUpdate is a partial update applied by the mapping store.
// Nil fields are left untouched; the scenario identifier cannot be changed.
type ScenarioConfigUpdate struct {
	Strategy        *StrategyKind `json:"strategy,omitempty"`
	PrimaryModels   []string      `json:"primary_models,omitempty"`
	FallbackModels  []string      `json:"fallback_models,omitempty"`
	Weights         *Weights      `json:"weights,omitempty"`
	MinQualityScore *float64      `json:"min_quality_score,omitempty"`
	MaxLatencyMs    *float64      `json:"max_latency_ms,omitempty"`
}
