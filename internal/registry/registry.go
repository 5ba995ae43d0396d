// Package registry owns the catalog of known language-model backends and
// their availability/health state. All reads return copies; mutation goes
// through explicit update operations.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/model-selector/internal/types"
)

var (
	// ErrDuplicateName is returned when registering a backend whose name
	// is already taken.
	ErrDuplicateName = errors.New("backend name already registered")

	// ErrBackendNotFound is returned by operations on an unknown backend.
	ErrBackendNotFound = errors.New("backend not found")
)

// Registry is the in-memory backend catalog. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]*types.BackendInfo
	families map[string][]string // family -> backend names, insertion order
	logger   *logrus.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *logrus.Logger) *Registry {
	return &Registry{
		backends: make(map[string]*types.BackendInfo),
		families: make(map[string][]string),
		logger:   logger,
	}
}

// Register adds a backend to the catalog. The stored entry gets a default
// success rate of 1.0, health "healthy", and a health-check timestamp of now.
func (r *Registry) Register(info types.BackendInfo) error {
	if info.Name == "" {
		return fmt.Errorf("backend name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[info.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, info.Name)
	}

	stored := info
	stored.SuccessRate = 1.0
	stored.Health = types.HealthHealthy
	stored.LastHealthCheck = time.Now()
	if stored.Available {
		stored.Status = types.StatusActive
	} else {
		stored.Status = types.StatusInactive
	}

	r.backends[stored.Name] = &stored
	if stored.Family != "" {
		r.families[stored.Family] = append(r.families[stored.Family], stored.Name)
	}

	r.logger.WithFields(logrus.Fields{
		"backend":  stored.Name,
		"provider": stored.Provider,
		"family":   stored.Family,
	}).Info("Backend registered")

	return nil
}

// Get returns a copy of the backend with the given name.
func (r *Registry) Get(name string) (types.BackendInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	backend, exists := r.backends[name]
	if !exists {
		return types.BackendInfo{}, fmt.Errorf("%w: %s", ErrBackendNotFound, name)
	}
	return copyBackend(backend), nil
}

// Exists reports whether a backend with the given name is registered.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.backends[name]
	return exists
}

// ListByFamily returns copies of all backends in a family, in registration
// order.
func (r *Registry) ListByFamily(family string) []types.BackendInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := r.families[family]
	out := make([]types.BackendInfo, 0, len(names))
	for _, name := range names {
		if backend, ok := r.backends[name]; ok {
			out = append(out, copyBackend(backend))
		}
	}
	return out
}

// ListAvailable returns copies of exactly the backends whose availability
// flag is true.
func (r *Registry) ListAvailable() []types.BackendInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []types.BackendInfo
	for _, backend := range r.backends {
		if backend.Available {
			out = append(out, copyBackend(backend))
		}
	}
	return out
}

// ListAll returns copies of every registered backend.
func (r *Registry) ListAll() []types.BackendInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.BackendInfo, 0, len(r.backends))
	for _, backend := range r.backends {
		out = append(out, copyBackend(backend))
	}
	return out
}

// Count returns the number of registered backends.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.backends)
}

// AvailableCount returns the number of backends whose availability flag is
// true.
func (r *Registry) AvailableCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, backend := range r.backends {
		if backend.Available {
			count++
		}
	}
	return count
}

// SetAvailability flips the availability flag and the derived status field,
// and refreshes the health-check timestamp.
func (r *Registry) SetAvailability(name string, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	backend, exists := r.backends[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrBackendNotFound, name)
	}

	backend.Available = available
	if available {
		backend.Status = types.StatusActive
	} else {
		backend.Status = types.StatusInactive
	}
	backend.LastHealthCheck = time.Now()

	r.logger.WithFields(logrus.Fields{
		"backend":   name,
		"available": available,
	}).Info("Backend availability updated")

	return nil
}

// UpdateMetrics merges the non-nil fields of a partial metrics update and
// refreshes the health-check timestamp.
func (r *Registry) UpdateMetrics(name string, update types.MetricsUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	backend, exists := r.backends[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrBackendNotFound, name)
	}

	if update.LatencyMs != nil {
		backend.LatencyMs = *update.LatencyMs
	}
	if update.SuccessRate != nil {
		backend.SuccessRate = *update.SuccessRate
	}
	backend.LastHealthCheck = time.Now()

	r.logger.WithFields(logrus.Fields{
		"backend":      name,
		"latency_ms":   backend.LatencyMs,
		"success_rate": backend.SuccessRate,
	}).Debug("Backend metrics updated")

	return nil
}

// SetHealth updates the health status. Setting "unhealthy" forces the
// backend unavailable and inactive; "healthy"/"degraded" leave availability
// untouched.
func (r *Registry) SetHealth(name, health string) error {
	switch health {
	case types.HealthHealthy, types.HealthDegraded, types.HealthUnhealthy:
	default:
		return fmt.Errorf("invalid health status %q", health)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	backend, exists := r.backends[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrBackendNotFound, name)
	}

	backend.Health = health
	if health == types.HealthUnhealthy {
		backend.Available = false
		backend.Status = types.StatusInactive
	}
	backend.LastHealthCheck = time.Now()

	r.logger.WithFields(logrus.Fields{
		"backend": name,
		"health":  health,
	}).Info("Backend health updated")

	return nil
}

// Clear resets the registry to empty and re-initializes the family index.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.backends = make(map[string]*types.BackendInfo)
	r.families = make(map[string][]string)
	r.logger.Info("Registry cleared")
}

func copyBackend(b *types.BackendInfo) types.BackendInfo {
	out := *b
	if b.QualityScore != nil {
		v := *b.QualityScore
		out.QualityScore = &v
	}
	return out
}
