package scenario

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/model-selector/internal/types"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestDefaultConfigs_AllScenariosValid(t *testing.T) {
	defaults := DefaultConfigs()

	for _, sc := range types.AllScenarios() {
		cfg, ok := defaults[sc]
		if !ok {
			t.Errorf("Scenario %s has no default config", sc)
			continue
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Default config for %s is invalid: %v", sc, err)
		}
	}

	if len(defaults) != len(types.AllScenarios()) {
		t.Errorf("Expected %d default configs, got %d", len(types.AllScenarios()), len(defaults))
	}
}

func TestStore_GetConfig(t *testing.T) {
	store := NewStore(testLogger())

	cfg, err := store.GetConfig(types.ScenarioResumeParsing)
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if cfg.Strategy != types.StrategyCost {
		t.Errorf("Expected cost strategy for resume_parsing, got %s", cfg.Strategy)
	}

	_, err = store.GetConfig(types.Scenario("unknown"))
	if !errors.Is(err, ErrScenarioNotFound) {
		t.Errorf("Expected ErrScenarioNotFound, got %v", err)
	}
}

func TestStore_GetConfig_ReturnsCopy(t *testing.T) {
	store := NewStore(testLogger())

	cfg, _ := store.GetConfig(types.ScenarioGeneral)
	cfg.PrimaryModels[0] = "mutated"
	cfg.Strategy = types.StrategyLatency

	fresh, _ := store.GetConfig(types.ScenarioGeneral)
	if fresh.PrimaryModels[0] == "mutated" {
		t.Error("Mutating a returned config should not affect stored state")
	}
	if fresh.Strategy != types.StrategyBalanced {
		t.Errorf("Stored strategy should be unchanged, got %s", fresh.Strategy)
	}
}

func TestStore_UpdateConfig(t *testing.T) {
	store := NewStore(testLogger())

	strat := types.StrategyLatency
	err := store.UpdateConfig(types.ScenarioGeneral, types.ScenarioConfigUpdate{
		Strategy:      &strat,
		PrimaryModels: []string{"claude-3-haiku"},
		Weights:       &types.Weights{Quality: 0.1, Cost: 0.3, Latency: 0.6},
	})
	if err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	cfg, _ := store.GetConfig(types.ScenarioGeneral)
	if cfg.Strategy != types.StrategyLatency {
		t.Errorf("Expected latency strategy, got %s", cfg.Strategy)
	}
	if len(cfg.PrimaryModels) != 1 || cfg.PrimaryModels[0] != "claude-3-haiku" {
		t.Errorf("Unexpected primary models: %v", cfg.PrimaryModels)
	}
	if cfg.Weights.Latency != 0.6 {
		t.Errorf("Expected latency weight 0.6, got %f", cfg.Weights.Latency)
	}
	// Omitted fields keep their defaults.
	if len(cfg.FallbackModels) == 0 {
		t.Error("Fallback models should be untouched by a partial update")
	}
}

func TestStore_UpdateConfig_InvalidWeightsRejectedAtomically(t *testing.T) {
	store := NewStore(testLogger())

	before, _ := store.GetConfig(types.ScenarioGeneral)

	err := store.UpdateConfig(types.ScenarioGeneral, types.ScenarioConfigUpdate{
		PrimaryModels: []string{"should-not-land"},
		Weights:       &types.Weights{Quality: 0.8, Cost: 0.8, Latency: 0.8},
	})
	if !errors.Is(err, ErrInvalidWeights) {
		t.Fatalf("Expected ErrInvalidWeights, got %v", err)
	}

	// A rejected update leaves the whole config untouched, including the
	// otherwise valid fields of the same update.
	after, _ := store.GetConfig(types.ScenarioGeneral)
	if after.PrimaryModels[0] != before.PrimaryModels[0] {
		t.Error("Rejected update must not partially apply")
	}
}

func TestStore_UpdateConfig_UnknownStrategy(t *testing.T) {
	store := NewStore(testLogger())

	bad := types.StrategyKind("fastest")
	err := store.UpdateConfig(types.ScenarioGeneral, types.ScenarioConfigUpdate{Strategy: &bad})
	if err == nil {
		t.Error("Expected error for unknown strategy kind")
	}
}

func TestStore_UpdateConfig_UnknownScenario(t *testing.T) {
	store := NewStore(testLogger())

	err := store.UpdateConfig(types.Scenario("unknown"), types.ScenarioConfigUpdate{})
	if !errors.Is(err, ErrScenarioNotFound) {
		t.Errorf("Expected ErrScenarioNotFound, got %v", err)
	}
}

func TestStore_Projections(t *testing.T) {
	store := NewStore(testLogger())

	primary, err := store.GetPrimaryModels(types.ScenarioResumeParsing)
	if err != nil {
		t.Fatalf("GetPrimaryModels failed: %v", err)
	}
	if len(primary) != 2 || primary[0] != "gpt-4o-mini" {
		t.Errorf("Unexpected primary models: %v", primary)
	}

	fallback, err := store.GetFallbackModels(types.ScenarioResumeParsing)
	if err != nil {
		t.Fatalf("GetFallbackModels failed: %v", err)
	}
	if len(fallback) != 2 || fallback[1] != "ollama" {
		t.Errorf("Unexpected fallback models: %v", fallback)
	}

	strat, err := store.GetStrategy(types.ScenarioMatchCalculation)
	if err != nil {
		t.Fatalf("GetStrategy failed: %v", err)
	}
	if strat != types.StrategyLatency {
		t.Errorf("Expected latency strategy, got %s", strat)
	}

	weights, err := store.GetWeights(types.ScenarioResumeOptimization)
	if err != nil {
		t.Fatalf("GetWeights failed: %v", err)
	}
	if weights.Quality != 0.6 {
		t.Errorf("Expected quality weight 0.6, got %f", weights.Quality)
	}
}

func TestStore_GetRecommendedModels(t *testing.T) {
	store := NewStore(testLogger())

	store.RegisterAvailableBackends([]types.BackendInfo{
		{Name: "gpt-4o-mini", Provider: "openai", Available: true},
		{Name: "gpt-3.5-turbo", Provider: "openai", Available: false},
		{Name: "ollama", Provider: "local", Available: true},
	})

	// resume_parsing recommends gpt-4o-mini, claude-3-haiku, gpt-3.5-turbo,
	// ollama; claude-3-haiku is not registered at all.
	recommended, err := store.GetRecommendedModels(types.ScenarioResumeParsing)
	if err != nil {
		t.Fatalf("GetRecommendedModels failed: %v", err)
	}
	want := []string{"gpt-4o-mini", "gpt-3.5-turbo", "ollama"}
	if len(recommended) != len(want) {
		t.Fatalf("Expected %v, got %v", want, recommended)
	}
	for i, name := range want {
		if recommended[i] != name {
			t.Errorf("Position %d: expected %s, got %s", i, name, recommended[i])
		}
	}

	available, err := store.GetAvailableRecommendedModels(types.ScenarioResumeParsing)
	if err != nil {
		t.Fatalf("GetAvailableRecommendedModels failed: %v", err)
	}
	wantAvailable := []string{"gpt-4o-mini", "ollama"}
	if len(available) != len(wantAvailable) {
		t.Fatalf("Expected %v, got %v", wantAvailable, available)
	}
	for i, name := range wantAvailable {
		if available[i] != name {
			t.Errorf("Position %d: expected %s, got %s", i, name, available[i])
		}
	}
}

func TestStore_GetRecommendedModels_QualifiedEntries(t *testing.T) {
	store := NewStore(testLogger())

	store.RegisterAvailableBackends([]types.BackendInfo{
		{Name: "gpt-4o", Provider: "openai", Available: true},
	})

	// A scenario entry may carry a provider qualifier.
	if err := store.UpdateConfig(types.ScenarioGeneral, types.ScenarioConfigUpdate{
		PrimaryModels: []string{"openai:gpt-4o"},
	}); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	recommended, err := store.GetRecommendedModels(types.ScenarioGeneral)
	if err != nil {
		t.Fatalf("GetRecommendedModels failed: %v", err)
	}
	if len(recommended) == 0 || recommended[0] != "gpt-4o" {
		t.Errorf("Qualified entry should resolve to bare name, got %v", recommended)
	}
}

func TestStore_RegisterAvailableBackends_Replaces(t *testing.T) {
	store := NewStore(testLogger())

	store.RegisterAvailableBackends([]types.BackendInfo{
		{Name: "gpt-4o-mini", Provider: "openai", Available: true},
	})
	store.RegisterAvailableBackends([]types.BackendInfo{
		{Name: "ollama", Provider: "local", Available: true},
	})

	recommended, _ := store.GetRecommendedModels(types.ScenarioResumeParsing)
	for _, name := range recommended {
		if name == "gpt-4o-mini" {
			t.Error("Second registration should replace the table, not merge into it")
		}
	}
}

func TestStore_ResetToDefaults(t *testing.T) {
	store := NewStore(testLogger())

	strat := types.StrategyCost
	store.UpdateConfig(types.ScenarioGeneral, types.ScenarioConfigUpdate{Strategy: &strat})

	store.ResetToDefaults()

	cfg, _ := store.GetConfig(types.ScenarioGeneral)
	if cfg.Strategy != types.StrategyBalanced {
		t.Errorf("Expected defaults restored, got strategy %s", cfg.Strategy)
	}
}

func TestStore_Scenarios(t *testing.T) {
	store := NewStore(testLogger())

	scenarios := store.Scenarios()
	if len(scenarios) != len(types.AllScenarios()) {
		t.Errorf("Expected %d scenarios, got %d", len(types.AllScenarios()), len(scenarios))
	}
}
