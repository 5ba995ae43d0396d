package scenario

import (
	"github.com/tributary-ai/model-selector/internal/types"
)

func floatPtr(v float64) *float64 { return &v }

// DefaultConfigs returns the built-in scenario configuration set. Every
// entry satisfies the store invariants: non-empty primary and fallback
// lists and a valid weight triple.
func DefaultConfigs() map[types.Scenario]*types.ScenarioConfig {
	return map[types.Scenario]*types.ScenarioConfig{
		types.ScenarioResumeParsing: {
			Scenario:       types.ScenarioResumeParsing,
			Strategy:       types.StrategyCost,
			PrimaryModels:  []string{"gpt-4o-mini", "claude-3-haiku"},
			FallbackModels: []string{"gpt-3.5-turbo", "ollama"},
			Weights:        types.Weights{Quality: 0.2, Cost: 0.5, Latency: 0.3},
			MaxLatencyMs:   floatPtr(8000),
		},
		types.ScenarioResumeOptimization: {
			Scenario:        types.ScenarioResumeOptimization,
			Strategy:        types.StrategyQuality,
			PrimaryModels:   []string{"gpt-4o", "claude-3-5-sonnet"},
			FallbackModels:  []string{"gpt-4o-mini", "claude-3-haiku"},
			Weights:         types.Weights{Quality: 0.6, Cost: 0.2, Latency: 0.2},
			MinQualityScore: floatPtr(7),
		},
		types.ScenarioInterviewGeneration: {
			Scenario:        types.ScenarioInterviewGeneration,
			Strategy:        types.StrategyQuality,
			PrimaryModels:   []string{"claude-3-5-sonnet", "gpt-4o"},
			FallbackModels:  []string{"gpt-4o-mini"},
			Weights:         types.Weights{Quality: 0.5, Cost: 0.25, Latency: 0.25},
			MinQualityScore: floatPtr(6),
		},
		types.ScenarioMatchCalculation: {
			Scenario:       types.ScenarioMatchCalculation,
			Strategy:       types.StrategyLatency,
			PrimaryModels:  []string{"gpt-4o-mini", "gpt-3.5-turbo"},
			FallbackModels: []string{"claude-3-haiku", "ollama"},
			Weights:        types.Weights{Quality: 0.2, Cost: 0.3, Latency: 0.5},
			MaxLatencyMs:   floatPtr(3000),
		},
		types.ScenarioAgentAnalyze: {
			Scenario:       types.ScenarioAgentAnalyze,
			Strategy:       types.StrategyBalanced,
			PrimaryModels:  []string{"gpt-4o-mini", "claude-3-haiku"},
			FallbackModels: []string{"gpt-3.5-turbo"},
			Weights:        types.Weights{Quality: 0.34, Cost: 0.33, Latency: 0.33},
		},
		types.ScenarioAgentOptimize: {
			Scenario:        types.ScenarioAgentOptimize,
			Strategy:        types.StrategyQuality,
			PrimaryModels:   []string{"gpt-4o", "claude-3-5-sonnet"},
			FallbackModels:  []string{"gpt-4o-mini"},
			Weights:         types.Weights{Quality: 0.55, Cost: 0.2, Latency: 0.25},
			MinQualityScore: floatPtr(7),
		},
		types.ScenarioGeneral: {
			Scenario:       types.ScenarioGeneral,
			Strategy:       types.StrategyBalanced,
			PrimaryModels:  []string{"gpt-4o-mini"},
			FallbackModels: []string{"gpt-3.5-turbo", "ollama"},
			Weights:        types.Weights{Quality: 0.34, Cost: 0.33, Latency: 0.33},
		},
	}
}
