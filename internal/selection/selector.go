// Package selection wires the registry view, the scenario mapping store,
// and the strategies together: it resolves a scenario to a strategy and a
// filtered candidate set, walks an explicit fallback chain when the
// preferred backend is unavailable, and appends every decision to an
// in-memory log.
package selection

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/model-selector/internal/scenario"
	"github.com/tributary-ai/model-selector/internal/strategy"
	"github.com/tributary-ai/model-selector/internal/types"
)

var (
	// ErrNoModelsAvailable is returned when the selector has literally
	// nothing to pick from, available or not.
	ErrNoModelsAvailable = errors.New("no models available")

	// ErrFallbackExhausted is returned when the fallback chain and the
	// raw-candidate fallback both fail.
	ErrFallbackExhausted = errors.New("fallback chain exhausted")
)

// universalFallback is the hard-coded last resort appended to every
// fallback chain.
const universalFallback = "ollama"

// maxCostPlaceholder is the constant cost bound injected into the selection
// context whenever a scenario carries a minimum quality score. It was never
// wired to a real cost policy and gates nothing with current catalogs;
// preserved as-is.
const maxCostPlaceholder = 1.0

// defaultLogLimit bounds GetSelectionLog reads when the caller passes no
// limit.
const defaultLogLimit = 100

// Selector orchestrates scenario-aware model selection. Safe for
// concurrent use; the decision log is guarded separately from the injected
// stores.
type Selector struct {
	store              *scenario.Store
	strategies         map[types.StrategyKind]strategy.Strategy
	scenarioStrategies map[string]strategy.Strategy
	defaultStrategy    strategy.Strategy

	mu  sync.RWMutex
	log []types.SelectionDecision

	logger *logrus.Logger
}

// NewSelector creates a selector over the given mapping store and strategy
// set. A balanced strategy is always present as the generic default.
func NewSelector(store *scenario.Store, strategies map[types.StrategyKind]strategy.Strategy, logger *logrus.Logger) *Selector {
	if strategies == nil {
		strategies = make(map[types.StrategyKind]strategy.Strategy)
	}
	if _, ok := strategies[types.StrategyBalanced]; !ok {
		strategies[types.StrategyBalanced] = strategy.NewBalanced(logger)
	}
	return &Selector{
		store:              store,
		strategies:         strategies,
		scenarioStrategies: make(map[string]strategy.Strategy),
		defaultStrategy:    strategies[types.StrategyBalanced],
		logger:             logger,
	}
}

// RegisterScenarioStrategy binds a strategy directly to a scenario
// identifier for the generic SelectModel path.
func (s *Selector) RegisterScenarioStrategy(scenarioID string, strat strategy.Strategy) {
	s.mu.Lock()
	s.scenarioStrategies[scenarioID] = strat
	s.mu.Unlock()
}

// SelectModel is the generic selection path: filter to available backends,
// resolve a strategy bound to the scenario (falling back to balanced), pick
// a winner, and record the decision.
//
// When every candidate is unavailable but at least one exists, the first
// raw candidate is returned as a caller-visible degraded mode rather than
// an error.
func (s *Selector) SelectModel(available []types.BackendInfo, scenarioID string, sctx *types.SelectionContext) (types.BackendInfo, error) {
	usable := filterAvailable(available)
	if len(usable) == 0 {
		if len(available) == 0 {
			return types.BackendInfo{}, ErrNoModelsAvailable
		}
		winner := available[0]
		s.logger.WithFields(logrus.Fields{
			"scenario": scenarioID,
			"selected": winner.Name,
		}).Warn("No available backend, degrading to first candidate")
		s.recordDecision(winner, scenarioID, len(available), "degraded", nil, nil)
		return winner, nil
	}

	strat := s.strategyForScenario(scenarioID)
	winner, err := strat.SelectModel(usable, sctx)
	if err != nil {
		return types.BackendInfo{}, fmt.Errorf("strategy %s failed: %w", strat.Name(), err)
	}

	s.recordDecision(winner, scenarioID, len(usable), strat.Name(), nil, nil)
	return winner, nil
}

// SelectModelForScenario is the scenario-aware path: it narrows the
// candidates to the scenario's recommended backends, applies the strategy
// registered for the scenario's strategy kind, and records the decision.
// Any failure along the richer path is caught and retried through the
// generic SelectModel path; only the retry's own failure propagates.
func (s *Selector) SelectModelForScenario(sc types.Scenario, available []types.BackendInfo, actx *types.AgentContext) (types.BackendInfo, error) {
	winner, err := s.selectForScenario(sc, available, actx)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"scenario": sc,
			"error":    err.Error(),
		}).Warn("Scenario selection failed, retrying via generic path")
		return s.SelectModel(available, string(sc), nil)
	}
	return winner, nil
}

func (s *Selector) selectForScenario(sc types.Scenario, available []types.BackendInfo, actx *types.AgentContext) (types.BackendInfo, error) {
	cfg, err := s.store.GetConfig(sc)
	if err != nil {
		return types.BackendInfo{}, err
	}

	recommended := append(append([]string(nil), cfg.PrimaryModels...), cfg.FallbackModels...)
	subset := make([]types.BackendInfo, 0, len(available))
	for _, c := range available {
		if matchesRecommended(c, recommended) {
			subset = append(subset, c)
		}
	}
	if len(subset) == 0 {
		subset = available
	}

	strat, ok := s.strategies[cfg.Strategy]
	if !ok {
		return s.SelectModel(available, string(sc), nil)
	}

	usable := filterAvailable(subset)
	if len(usable) == 0 {
		if len(subset) == 0 {
			return types.BackendInfo{}, ErrNoModelsAvailable
		}
		winner := subset[0]
		s.recordDecision(winner, string(sc), len(subset), "degraded", actx, nil)
		return winner, nil
	}

	sctx := &types.SelectionContext{Scenario: string(sc)}
	if cfg.MaxLatencyMs != nil {
		v := *cfg.MaxLatencyMs
		sctx.MaxLatencyMs = &v
	}
	if cfg.MinQualityScore != nil {
		// Stand-in cost bound; see maxCostPlaceholder.
		v := maxCostPlaceholder
		sctx.MaxCost = &v
	}

	winner, err := strat.SelectModel(usable, sctx)
	if err != nil {
		return types.BackendInfo{}, fmt.Errorf("strategy %s failed: %w", strat.Name(), err)
	}

	s.recordDecision(winner, string(sc), len(usable), strat.Name(), actx, nil)
	return winner, nil
}

// SelectWithFallback walks the scenario's explicit fallback chain
// (primary models, then fallback models, then the universal last resort),
// skipping excluded names, and returns the first available match. A
// non-primary winner always carries a FallbackEvent for observability.
func (s *Selector) SelectWithFallback(sc types.Scenario, available []types.BackendInfo, excludeNames []string, actx *types.AgentContext) (types.BackendInfo, error) {
	var chain []string
	var firstPrimary string

	cfg, err := s.store.GetConfig(sc)
	if err != nil {
		// Missing config degrades to the universal last resort.
		s.logger.WithFields(logrus.Fields{
			"scenario": sc,
			"error":    err.Error(),
		}).Warn("No scenario config for fallback chain")
	} else {
		chain = append(chain, cfg.PrimaryModels...)
		chain = append(chain, cfg.FallbackModels...)
		firstPrimary = cfg.PrimaryModels[0]
	}
	chain = append(chain, universalFallback)

	excluded := make(map[string]bool, len(excludeNames))
	for _, name := range excludeNames {
		excluded[name] = true
	}

	for _, entry := range chain {
		if excluded[entry] {
			continue
		}
		for _, c := range available {
			if c.Name != entry || !c.Available || excluded[c.Name] {
				continue
			}

			var event *types.FallbackEvent
			if c.Name != firstPrimary {
				event = &types.FallbackEvent{
					OriginalModel:  firstPrimary,
					FallbackModel:  c.Name,
					ExcludedModels: append([]string(nil), excludeNames...),
				}
				s.logger.WithFields(logrus.Fields{
					"scenario": sc,
					"original": firstPrimary,
					"fallback": c.Name,
				}).Info("Fallback backend selected")
			}
			s.recordDecision(c, string(sc), len(available), "fallback_chain", actx, event)
			return c, nil
		}
	}

	// Chain exhausted: any available, non-excluded candidate will do.
	for _, c := range available {
		if !c.Available || excluded[c.Name] {
			continue
		}
		event := &types.FallbackEvent{
			OriginalModel:  firstPrimary,
			FallbackModel:  c.Name,
			ExcludedModels: append([]string(nil), excludeNames...),
		}
		s.logger.WithFields(logrus.Fields{
			"scenario": sc,
			"fallback": c.Name,
		}).Warn("Fallback chain missed, using raw candidate")
		s.recordDecision(c, string(sc), len(available), "fallback_chain", actx, event)
		return c, nil
	}

	return types.BackendInfo{}, fmt.Errorf("%w: scenario %s", ErrFallbackExhausted, sc)
}

// GetSelectionLog returns the most recent limit decisions in original
// order. A non-positive limit defaults to 100.
func (s *Selector) GetSelectionLog(limit int) []types.SelectionDecision {
	if limit <= 0 {
		limit = defaultLogLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if len(s.log) > limit {
		start = len(s.log) - limit
	}
	out := make([]types.SelectionDecision, len(s.log)-start)
	copy(out, s.log[start:])
	return out
}

// ClearSelectionLog empties the decision log.
func (s *Selector) ClearSelectionLog() {
	s.mu.Lock()
	s.log = nil
	s.mu.Unlock()
	s.logger.Info("Selection log cleared")
}

func (s *Selector) strategyForScenario(scenarioID string) strategy.Strategy {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if strat, ok := s.scenarioStrategies[scenarioID]; ok {
		return strat
	}
	return s.defaultStrategy
}

func (s *Selector) recordDecision(winner types.BackendInfo, scenarioID string, candidateCount int, strategyName string, actx *types.AgentContext, event *types.FallbackEvent) {
	decision := types.SelectionDecision{
		ID:                   uuid.NewString(),
		Timestamp:            time.Now(),
		Scenario:             scenarioID,
		SelectedModel:        winner.Name,
		Provider:             winner.Provider,
		AvailableModelsCount: candidateCount,
		StrategyUsed:         strategyName,
		ModelCost:            winner.TotalCostPer1K(),
		ModelLatencyMs:       winner.LatencyMs,
		ModelSuccessRate:     winner.SuccessRate,
		AgentContext:         actx,
		Fallback:             event,
	}

	s.mu.Lock()
	s.log = append(s.log, decision)
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"scenario": scenarioID,
		"selected": winner.Name,
		"strategy": strategyName,
		"fallback": event != nil,
	}).Info("Selection recorded")
}

func filterAvailable(backends []types.BackendInfo) []types.BackendInfo {
	out := make([]types.BackendInfo, 0, len(backends))
	for _, b := range backends {
		if b.Available {
			out = append(out, b)
		}
	}
	return out
}

// matchesRecommended reports whether a candidate matches any entry of a
// scenario's recommended list. A candidate matches an entry on its bare
// name, its "provider:name" form, or its case-insensitive base name with a
// trailing ":tag" stripped; entries may carry a leading "provider:"
// qualifier.
func matchesRecommended(c types.BackendInfo, recommended []string) bool {
	base := c.Name
	if i := strings.LastIndex(base, ":"); i >= 0 {
		base = base[:i]
	}

	for _, entry := range recommended {
		if entry == c.Name || entry == c.QualifiedName() {
			return true
		}

		e := entry
		if i := strings.Index(e, ":"); i >= 0 && strings.EqualFold(e[:i], c.Provider) {
			e = e[i+1:]
		}
		if strings.EqualFold(e, c.Name) || strings.EqualFold(e, base) {
			return true
		}
	}
	return false
}
