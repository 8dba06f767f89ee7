package model

import (
	"sync"
	"time"
)

// EndpointHealth tracks the health status of a model endpoint.
type EndpointHealth struct {
	// Available indicates if the endpoint is currently usable.
	Available bool `json:"available"`

	// LastSuccess is the time of the last successful request.
	LastSuccess time.Time `json:"last_success,omitempty"`

	// LastFailure is the time of the last failed request.
	LastFailure time.Time `json:"last_failure,omitempty"`

	// FailureCount is the number of consecutive failures.
	FailureCount int `json:"failure_count"`

	// CircuitOpen indicates if the circuit breaker has tripped.
	CircuitOpen bool `json:"circuit_open"`

	// CircuitOpenedAt is when the circuit was opened.
	CircuitOpenedAt time.Time `json:"circuit_opened_at,omitempty"`
}

// HealthConfig configures the health tracking behavior.
type HealthConfig struct {
	// FailureThreshold is the number of consecutive failures before opening the circuit.
	FailureThreshold int

	// RecoveryTimeout is how long to wait before trying a failed endpoint again.
	RecoveryTimeout time.Duration
}

// DefaultHealthConfig returns sensible defaults for health tracking.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  30 * time.Second,
	}
}

// healthState stores endpoint health information.
type healthState struct {
	mu       sync.RWMutex
	config   HealthConfig
	statuses map[string]*EndpointHealth
}

func newHealthState(cfg HealthConfig) *healthState {
	return &healthState{
		config:   cfg,
		statuses: make(map[string]*EndpointHealth),
	}
}

// getOrCreate returns the health status for an endpoint, creating if needed.
func (h *healthState) getOrCreate(name string) *EndpointHealth {
	h.mu.Lock()
	defer h.mu.Unlock()

	if status, ok := h.statuses[name]; ok {
		return status
	}

	status := &EndpointHealth{Available: true}
	h.statuses[name] = status
	return status
}

// ensureHealth lazily initializes health tracking.
func (r *Registry) ensureHealth() *healthState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.health == nil {
		r.health = newHealthState(DefaultHealthConfig())
	}
	return r.health
}

// MarkEndpointSuccess records a successful request to an endpoint.
// A success closes an open circuit and resets the failure count.
func (r *Registry) MarkEndpointSuccess(name string) {
	h := r.ensureHealth()
	status := h.getOrCreate(name)

	h.mu.Lock()
	defer h.mu.Unlock()

	status.LastSuccess = time.Now()
	status.FailureCount = 0
	status.Available = true
	status.CircuitOpen = false
}

// MarkEndpointFailure records a failed request to an endpoint.
// Consecutive failures past the threshold open the circuit.
func (r *Registry) MarkEndpointFailure(name string) {
	h := r.ensureHealth()
	status := h.getOrCreate(name)

	h.mu.Lock()
	defer h.mu.Unlock()

	status.LastFailure = time.Now()
	status.FailureCount++

	if status.FailureCount >= h.config.FailureThreshold {
		status.CircuitOpen = true
		status.CircuitOpenedAt = time.Now()
		status.Available = false
	}
}

// IsEndpointAvailable checks if an endpoint is available for requests.
// Returns false if the circuit breaker is open and the recovery timeout hasn't passed.
func (r *Registry) IsEndpointAvailable(name string) bool {
	r.mu.RLock()
	h := r.health
	r.mu.RUnlock()
	if h == nil {
		return true // No health tracking = always available
	}

	h.mu.RLock()
	status, ok := h.statuses[name]
	if !ok {
		h.mu.RUnlock()
		return true // Unknown endpoint = available
	}
	circuitOpen := status.CircuitOpen
	circuitOpenedAt := status.CircuitOpenedAt
	recoveryTimeout := h.config.RecoveryTimeout
	h.mu.RUnlock()

	if !circuitOpen {
		return true
	}

	// Half-open: allow a test request after the recovery timeout.
	return time.Since(circuitOpenedAt) > recoveryTimeout
}

// GetEndpointHealth returns a copy of the health status for an endpoint.
// Returns nil if no health information is available.
func (r *Registry) GetEndpointHealth(name string) *EndpointHealth {
	r.mu.RLock()
	h := r.health
	r.mu.RUnlock()
	if h == nil {
		return nil
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if status, ok := h.statuses[name]; ok {
		cp := *status
		return &cp
	}
	return nil
}

// GetAvailableFallbackChain returns the fallback chain filtered to only available endpoints.
// This lets the LLM client skip open circuits during fallback iteration.
func (r *Registry) GetAvailableFallbackChain(cap Capability) []string {
	chain := r.GetFallbackChain(cap)
	available := make([]string, 0, len(chain))

	for _, name := range chain {
		if r.IsEndpointAvailable(name) {
			available = append(available, name)
		}
	}

	// If every endpoint is unavailable, return the full chain —
	// better to try something than nothing.
	if len(available) == 0 {
		return chain
	}

	return available
}

// SetHealthConfig updates the health tracking configuration.
func (r *Registry) SetHealthConfig(cfg HealthConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.health == nil {
		r.health = newHealthState(cfg)
	} else {
		r.health.config = cfg
	}
}
