package strategy

import (
	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/model-selector/internal/types"
)

// CostOptimized picks the candidate with the lowest combined token cost
// among those meeting the configured quality threshold.
type CostOptimized struct {
	minQualityThreshold float64
	lowCostModels       []string
	logger              *logrus.Logger
}

// CostConfig configures the cost-optimized strategy.
type CostConfig struct {
	// MinQualityThreshold partitions candidates before cost comparison.
	// Candidates without a quality rating are treated as passing.
	MinQualityThreshold float64 `yaml:"min_quality_threshold"`

	// LowCostModels is a ranking of models known to be cheap, consulted
	// only when no candidate carries pricing data. Matched with the same
	// hyphen-boundary rules as the quality ranking.
	LowCostModels []string `yaml:"low_cost_models"`
}

// NewCostOptimized creates a cost-optimized strategy.
func NewCostOptimized(cfg CostConfig, logger *logrus.Logger) *CostOptimized {
	if len(cfg.LowCostModels) == 0 {
		cfg.LowCostModels = []string{"gpt-4o-mini", "claude-3-haiku", "gpt-3.5-turbo", "llama3", "mistral"}
	}
	return &CostOptimized{
		minQualityThreshold: cfg.MinQualityThreshold,
		lowCostModels:       cfg.LowCostModels,
		logger:              logger,
	}
}

// Name implements Strategy.
func (s *CostOptimized) Name() string { return "cost_optimized" }

// SelectModel implements Strategy.
func (s *CostOptimized) SelectModel(candidates []types.BackendInfo, sctx *types.SelectionContext) (types.BackendInfo, error) {
	if len(candidates) == 0 {
		return types.BackendInfo{}, ErrNoCandidates
	}

	// Partition by quality threshold; unrated candidates pass.
	qualifying := make([]types.BackendInfo, 0, len(candidates))
	for _, c := range candidates {
		if c.QualityScore == nil || *c.QualityScore >= s.minQualityThreshold {
			qualifying = append(qualifying, c)
		}
	}
	if len(qualifying) == 0 {
		qualifying = candidates
	}

	// Apply the caller's cost bound only if it leaves something to pick.
	if sctx != nil && sctx.MaxCost != nil {
		within := make([]types.BackendInfo, 0, len(qualifying))
		for _, c := range qualifying {
			if c.TotalCostPer1K() <= *sctx.MaxCost {
				within = append(within, c)
			}
		}
		if len(within) > 0 {
			qualifying = within
		}
	}

	// Without pricing data, fall back to the configured low-cost ranking.
	if allUnpriced(qualifying) {
		for _, entry := range s.lowCostModels {
			for _, c := range qualifying {
				if matchesModelName(c.Name, entry) {
					return c, nil
				}
			}
		}
	}

	best := qualifying[0]
	for _, c := range qualifying[1:] {
		if c.TotalCostPer1K() < best.TotalCostPer1K() {
			best = c
		}
	}

	s.logger.WithFields(logrus.Fields{
		"strategy": s.Name(),
		"selected": best.Name,
		"cost":     best.TotalCostPer1K(),
	}).Debug("Cost-optimized selection")

	return best, nil
}

func allUnpriced(candidates []types.BackendInfo) bool {
	for _, c := range candidates {
		if c.TotalCostPer1K() > 0 {
			return false
		}
	}
	return true
}
