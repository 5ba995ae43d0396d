package selection

import (
	"time"

	"github.com/tributary-ai/model-selector/internal/types"
)

// GetSelectionStatistics folds the decision log into per-scenario,
// per-backend, and per-strategy aggregates. Nil bounds mean unbounded; a
// decision is included when start <= timestamp <= end. The aggregate is
// recomputed on every call, never cached.
func (s *Selector) GetSelectionStatistics(start, end *time.Time) *types.SelectionStatistics {
	s.mu.RLock()
	decisions := make([]types.SelectionDecision, len(s.log))
	copy(decisions, s.log)
	s.mu.RUnlock()

	stats := &types.SelectionStatistics{
		ByScenario:  make(map[string]*types.ScenarioStats),
		ByModel:     make(map[string]*types.ModelStats),
		ByStrategy:  make(map[string]int),
		PeriodStart: start,
		PeriodEnd:   end,
	}

	type scenarioSums struct {
		cost      float64
		latency   float64
		successes float64
	}
	type modelSums struct {
		cost        float64
		latency     float64
		successRate float64
		scenarios   map[string]bool
	}
	scenarioAcc := make(map[string]*scenarioSums)
	modelAcc := make(map[string]*modelSums)

	for _, d := range decisions {
		if start != nil && d.Timestamp.Before(*start) {
			continue
		}
		if end != nil && d.Timestamp.After(*end) {
			continue
		}

		stats.TotalSelections++
		stats.ByStrategy[d.StrategyUsed]++

		sc, ok := stats.ByScenario[d.Scenario]
		if !ok {
			sc = &types.ScenarioStats{ModelDistribution: make(map[string]int)}
			stats.ByScenario[d.Scenario] = sc
			scenarioAcc[d.Scenario] = &scenarioSums{}
		}
		sc.Selections++
		sc.ModelDistribution[d.SelectedModel]++
		acc := scenarioAcc[d.Scenario]
		acc.cost += d.ModelCost
		acc.latency += d.ModelLatencyMs
		acc.successes += d.ModelSuccessRate

		ms, ok := stats.ByModel[d.SelectedModel]
		if !ok {
			ms = &types.ModelStats{}
			stats.ByModel[d.SelectedModel] = ms
			modelAcc[d.SelectedModel] = &modelSums{scenarios: make(map[string]bool)}
		}
		ms.Selections++
		macc := modelAcc[d.SelectedModel]
		macc.cost += d.ModelCost
		macc.latency += d.ModelLatencyMs
		macc.successRate += d.ModelSuccessRate
		macc.scenarios[d.Scenario] = true
	}

	for name, sc := range stats.ByScenario {
		acc := scenarioAcc[name]
		n := float64(sc.Selections)
		sc.AvgCost = acc.cost / n
		sc.AvgLatencyMs = acc.latency / n
		sc.SuccessRate = acc.successes / n
	}

	for name, ms := range stats.ByModel {
		macc := modelAcc[name]
		n := float64(ms.Selections)
		ms.AvgCost = macc.cost / n
		ms.AvgLatencyMs = macc.latency / n
		ms.AvgSuccessRate = macc.successRate / n
		ms.Scenarios = make([]string, 0, len(macc.scenarios))
		for scName := range macc.scenarios {
			ms.Scenarios = append(ms.Scenarios, scName)
		}
	}

	return stats
}
