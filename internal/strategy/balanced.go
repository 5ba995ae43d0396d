package strategy

import (
	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/model-selector/internal/types"
)

// Score term weights for the balanced strategy.
const (
	balancedCostWeight        = 0.4
	balancedLatencyWeight     = 0.3
	balancedReliabilityWeight = 0.3
)

// Balanced scores candidates on normalized cost, normalized latency, and
// failure rate, and picks the lowest score.
type Balanced struct {
	logger *logrus.Logger
}

// NewBalanced creates a balanced strategy.
func NewBalanced(logger *logrus.Logger) *Balanced {
	return &Balanced{logger: logger}
}

// Name implements Strategy.
func (s *Balanced) Name() string { return "balanced" }

// SelectModel implements Strategy. Cost and latency are normalized by the
// maximum observed in the candidate set; ties go to the earlier candidate.
func (s *Balanced) SelectModel(candidates []types.BackendInfo, sctx *types.SelectionContext) (types.BackendInfo, error) {
	if len(candidates) == 0 {
		return types.BackendInfo{}, ErrNoCandidates
	}

	maxCost, maxLatency := 0.0, 0.0
	for _, c := range candidates {
		if c.TotalCostPer1K() > maxCost {
			maxCost = c.TotalCostPer1K()
		}
		if c.LatencyMs > maxLatency {
			maxLatency = c.LatencyMs
		}
	}
	if maxCost == 0 {
		maxCost = 1
	}
	if maxLatency == 0 {
		maxLatency = 1
	}

	best := candidates[0]
	bestScore := s.score(best, maxCost, maxLatency)
	for _, c := range candidates[1:] {
		if score := s.score(c, maxCost, maxLatency); score < bestScore {
			best = c
			bestScore = score
		}
	}

	s.logger.WithFields(logrus.Fields{
		"strategy": s.Name(),
		"selected": best.Name,
		"score":    bestScore,
	}).Debug("Balanced selection")

	return best, nil
}

func (s *Balanced) score(c types.BackendInfo, maxCost, maxLatency float64) float64 {
	return balancedCostWeight*(c.TotalCostPer1K()/maxCost) +
		balancedLatencyWeight*(c.LatencyMs/maxLatency) +
		balancedReliabilityWeight*(1-c.SuccessRate)
}
