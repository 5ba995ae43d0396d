package strategy

import (
	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/model-selector/internal/types"
)

// QualityOptimized picks the candidate with the highest position in a
// configured quality ranking. Later position means higher quality.
type QualityOptimized struct {
	ranking []string
	logger  *logrus.Logger
}

// QualityConfig configures the quality-optimized strategy.
type QualityConfig struct {
	// Ranking orders models from lowest to highest quality.
	Ranking []string `yaml:"ranking"`
}

// NewQualityOptimized creates a quality-optimized strategy.
func NewQualityOptimized(cfg QualityConfig, logger *logrus.Logger) *QualityOptimized {
	if len(cfg.Ranking) == 0 {
		cfg.Ranking = []string{
			"llama3",
			"mistral",
			"gpt-3.5-turbo",
			"claude-3-haiku",
			"gpt-4o-mini",
			"claude-3-5-sonnet",
			"gpt-4o",
		}
	}
	return &QualityOptimized{ranking: cfg.Ranking, logger: logger}
}

// Name implements Strategy.
func (s *QualityOptimized) Name() string { return "quality_optimized" }

// SelectModel implements Strategy. It scans the ranking from highest to
// lowest quality and returns the first candidate that matches; if no ranked
// entry matches any candidate, the first candidate wins. Degrading to an
// unranked candidate is policy, not an error.
func (s *QualityOptimized) SelectModel(candidates []types.BackendInfo, sctx *types.SelectionContext) (types.BackendInfo, error) {
	if len(candidates) == 0 {
		return types.BackendInfo{}, ErrNoCandidates
	}

	for i := len(s.ranking) - 1; i >= 0; i-- {
		entry := s.ranking[i]
		for _, c := range candidates {
			if matchesModelName(c.Name, entry) {
				s.logger.WithFields(logrus.Fields{
					"strategy": s.Name(),
					"selected": c.Name,
					"rank":     i,
				}).Debug("Quality-optimized selection")
				return c, nil
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"strategy": s.Name(),
		"selected": candidates[0].Name,
	}).Debug("No ranked candidate available, using first candidate")

	return candidates[0], nil
}
