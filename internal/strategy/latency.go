package strategy

import (
	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/model-selector/internal/types"
)

// LatencyOptimized picks the lowest-latency candidate within an effective
// latency bound.
type LatencyOptimized struct {
	defaultMaxLatencyMs float64
	logger              *logrus.Logger
}

// LatencyConfig configures the latency-optimized strategy.
type LatencyConfig struct {
	// DefaultMaxLatencyMs is the threshold used when the selection context
	// carries no latency bound.
	DefaultMaxLatencyMs float64 `yaml:"default_max_latency_ms"`
}

// NewLatencyOptimized creates a latency-optimized strategy.
func NewLatencyOptimized(cfg LatencyConfig, logger *logrus.Logger) *LatencyOptimized {
	if cfg.DefaultMaxLatencyMs <= 0 {
		cfg.DefaultMaxLatencyMs = 5000
	}
	return &LatencyOptimized{defaultMaxLatencyMs: cfg.DefaultMaxLatencyMs, logger: logger}
}

// Name implements Strategy.
func (s *LatencyOptimized) Name() string { return "latency_optimized" }

// SelectModel implements Strategy. When no candidate fits the effective
// bound, the global minimum-latency candidate is returned with a warning
// rather than failing the call.
func (s *LatencyOptimized) SelectModel(candidates []types.BackendInfo, sctx *types.SelectionContext) (types.BackendInfo, error) {
	if len(candidates) == 0 {
		return types.BackendInfo{}, ErrNoCandidates
	}

	bound := s.defaultMaxLatencyMs
	if sctx != nil && sctx.MaxLatencyMs != nil {
		bound = *sctx.MaxLatencyMs
	}

	within := make([]types.BackendInfo, 0, len(candidates))
	for _, c := range candidates {
		if c.LatencyMs <= bound {
			within = append(within, c)
		}
	}

	pool := within
	if len(pool) == 0 {
		pool = candidates
	}

	best := pool[0]
	for _, c := range pool[1:] {
		if c.LatencyMs < best.LatencyMs {
			best = c
		}
	}

	if len(within) == 0 {
		s.logger.WithFields(logrus.Fields{
			"strategy":     s.Name(),
			"selected":     best.Name,
			"latency_ms":   best.LatencyMs,
			"threshold_ms": bound,
		}).Warn("All backends exceed latency threshold, using global minimum")
	} else {
		s.logger.WithFields(logrus.Fields{
			"strategy":   s.Name(),
			"selected":   best.Name,
			"latency_ms": best.LatencyMs,
		}).Debug("Latency-optimized selection")
	}

	return best, nil
}
