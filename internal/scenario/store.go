// Package scenario owns the scenario-to-model mapping configuration: which
// backends a scenario prefers, which strategy picks among them, and the
// quality/cost/latency weighting. Updates are validated before they touch
// stored state.
package scenario

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/model-selector/internal/types"
)

var (
	// ErrScenarioNotFound is returned by operations on an unregistered
	// scenario.
	ErrScenarioNotFound = errors.New("scenario not found")

	// ErrInvalidWeights is returned when a weight triple fails the range
	// or sum invariant.
	ErrInvalidWeights = errors.New("invalid scenario weights")
)

// Store is the in-memory scenario mapping store. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	configs map[types.Scenario]*types.ScenarioConfig

	// Lookup table of currently registered backends, keyed by both
	// "provider:name" and bare name. The bare key is only set by the first
	// claimant so provider collisions cannot silently overwrite each other.
	available map[string]types.BackendInfo

	logger *logrus.Logger
}

// NewStore creates a store populated with the built-in defaults.
func NewStore(logger *logrus.Logger) *Store {
	return &Store{
		configs:   DefaultConfigs(),
		available: make(map[string]types.BackendInfo),
		logger:    logger,
	}
}

// GetConfig returns a deep copy of the scenario's config.
func (s *Store) GetConfig(sc types.Scenario) (*types.ScenarioConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, exists := s.configs[sc]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrScenarioNotFound, sc)
	}
	return cfg.Clone(), nil
}

// UpdateConfig applies a validated partial update. A supplied weight triple
// is checked against the range and sum invariants before anything is merged,
// so a rejected update leaves the prior config unchanged. The scenario
// identifier itself is immutable.
func (s *Store) UpdateConfig(sc types.Scenario, update types.ScenarioConfigUpdate) error {
	if update.Weights != nil {
		if err := update.Weights.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidWeights, err)
		}
	}
	if update.Strategy != nil {
		switch *update.Strategy {
		case types.StrategyCost, types.StrategyQuality, types.StrategyLatency, types.StrategyBalanced:
		default:
			return fmt.Errorf("unknown strategy kind %q", *update.Strategy)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, exists := s.configs[sc]
	if !exists {
		return fmt.Errorf("%w: %s", ErrScenarioNotFound, sc)
	}

	if update.Strategy != nil {
		cfg.Strategy = *update.Strategy
	}
	if len(update.PrimaryModels) > 0 {
		cfg.PrimaryModels = append([]string(nil), update.PrimaryModels...)
	}
	if len(update.FallbackModels) > 0 {
		cfg.FallbackModels = append([]string(nil), update.FallbackModels...)
	}
	if update.Weights != nil {
		cfg.Weights = *update.Weights
	}
	if update.MinQualityScore != nil {
		v := *update.MinQualityScore
		cfg.MinQualityScore = &v
	}
	if update.MaxLatencyMs != nil {
		v := *update.MaxLatencyMs
		cfg.MaxLatencyMs = &v
	}

	s.logger.WithField("scenario", sc).Info("Scenario config updated")
	return nil
}

// GetPrimaryModels returns the scenario's primary model list.
func (s *Store) GetPrimaryModels(sc types.Scenario) ([]string, error) {
	cfg, err := s.GetConfig(sc)
	if err != nil {
		return nil, err
	}
	return cfg.PrimaryModels, nil
}

// GetFallbackModels returns the scenario's fallback model list.
func (s *Store) GetFallbackModels(sc types.Scenario) ([]string, error) {
	cfg, err := s.GetConfig(sc)
	if err != nil {
		return nil, err
	}
	return cfg.FallbackModels, nil
}

// GetStrategy returns the scenario's strategy kind.
func (s *Store) GetStrategy(sc types.Scenario) (types.StrategyKind, error) {
	cfg, err := s.GetConfig(sc)
	if err != nil {
		return "", err
	}
	return cfg.Strategy, nil
}

// GetWeights returns the scenario's weight triple.
func (s *Store) GetWeights(sc types.Scenario) (types.Weights, error) {
	cfg, err := s.GetConfig(sc)
	if err != nil {
		return types.Weights{}, err
	}
	return cfg.Weights, nil
}

// RegisterAvailableBackends replaces the internal backend lookup table.
func (s *Store) RegisterAvailableBackends(backends []types.BackendInfo) {
	table := make(map[string]types.BackendInfo, len(backends)*2)
	for _, b := range backends {
		table[b.QualifiedName()] = b
		if _, claimed := table[b.Name]; !claimed {
			table[b.Name] = b
		}
	}

	s.mu.Lock()
	s.available = table
	s.mu.Unlock()

	s.logger.WithField("count", len(backends)).Debug("Available backends registered")
}

// GetRecommendedModels returns the bare names of registered backends whose
// bare name or "provider:name" appears in the scenario's primary or
// fallback list, in recommendation order.
func (s *Store) GetRecommendedModels(sc types.Scenario) ([]string, error) {
	return s.recommendedModels(sc, false)
}

// GetAvailableRecommendedModels is GetRecommendedModels narrowed to
// backends whose availability flag is currently true.
func (s *Store) GetAvailableRecommendedModels(sc types.Scenario) ([]string, error) {
	return s.recommendedModels(sc, true)
}

func (s *Store) recommendedModels(sc types.Scenario, onlyAvailable bool) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, exists := s.configs[sc]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrScenarioNotFound, sc)
	}

	var out []string
	seen := make(map[string]bool)
	for _, entry := range append(append([]string(nil), cfg.PrimaryModels...), cfg.FallbackModels...) {
		backend, known := s.available[entry]
		if !known {
			continue
		}
		if onlyAvailable && !backend.Available {
			continue
		}
		if !seen[backend.Name] {
			seen[backend.Name] = true
			out = append(out, backend.Name)
		}
	}
	return out, nil
}

// ResetToDefaults restores the built-in configuration set for every
// scenario.
func (s *Store) ResetToDefaults() {
	s.mu.Lock()
	s.configs = DefaultConfigs()
	s.mu.Unlock()

	s.logger.Info("Scenario configs reset to defaults")
}

// Scenarios returns the identifiers of every registered scenario.
func (s *Store) Scenarios() []types.Scenario {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Scenario, 0, len(s.configs))
	for sc := range s.configs {
		out = append(out, sc)
	}
	return out
}
