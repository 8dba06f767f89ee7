package model

import (
	"testing"
	"time"
)

func TestEndpointHealthTracking(t *testing.T) {
	r := NewDefaultRegistry()

	if !r.IsEndpointAvailable("qwen") {
		t.Error("expected qwen to be available initially")
	}

	if r.GetEndpointHealth("qwen") != nil {
		t.Error("expected no health info before any requests")
	}

	r.MarkEndpointSuccess("qwen")

	health := r.GetEndpointHealth("qwen")
	if health == nil {
		t.Fatal("expected health info after success")
	}
	if !health.Available {
		t.Error("expected endpoint to be available after success")
	}
	if health.FailureCount != 0 {
		t.Errorf("expected failure count 0, got %d", health.FailureCount)
	}
	if health.LastSuccess.IsZero() {
		t.Error("expected last success to be set")
	}
}

func TestCircuitBreakerOpens(t *testing.T) {
	r := NewDefaultRegistry()

	// Failures below the threshold keep the endpoint available.
	r.MarkEndpointFailure("qwen")
	r.MarkEndpointFailure("qwen")
	if !r.IsEndpointAvailable("qwen") {
		t.Error("expected endpoint available below failure threshold")
	}

	// Third consecutive failure trips the circuit.
	r.MarkEndpointFailure("qwen")
	if r.IsEndpointAvailable("qwen") {
		t.Error("expected circuit open after threshold failures")
	}

	health := r.GetEndpointHealth("qwen")
	if health == nil || !health.CircuitOpen {
		t.Fatal("expected circuit open in health status")
	}
	if health.FailureCount != 3 {
		t.Errorf("expected failure count 3, got %d", health.FailureCount)
	}
}

func TestCircuitBreakerRecovery(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  10 * time.Millisecond,
	})

	r.MarkEndpointFailure("qwen")
	if r.IsEndpointAvailable("qwen") {
		t.Error("expected circuit open after failure")
	}

	// After the recovery timeout a test request is allowed (half-open).
	time.Sleep(20 * time.Millisecond)
	if !r.IsEndpointAvailable("qwen") {
		t.Error("expected half-open availability after recovery timeout")
	}

	// A success closes the circuit fully.
	r.MarkEndpointSuccess("qwen")
	health := r.GetEndpointHealth("qwen")
	if health.CircuitOpen {
		t.Error("expected circuit closed after success")
	}
}

func TestGetAvailableFallbackChain(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Minute,
	})

	full := r.GetFallbackChain(CapabilityGeneration)

	// Trip the primary; the available chain must skip it.
	r.MarkEndpointFailure(full[0])
	available := r.GetAvailableFallbackChain(CapabilityGeneration)
	if len(available) != len(full)-1 {
		t.Fatalf("expected %d available endpoints, got %d", len(full)-1, len(available))
	}
	for _, name := range available {
		if name == full[0] {
			t.Errorf("expected %q to be filtered out", full[0])
		}
	}

	// When everything is down, return the full chain anyway.
	for _, name := range full {
		r.MarkEndpointFailure(name)
	}
	available = r.GetAvailableFallbackChain(CapabilityGeneration)
	if len(available) != len(full) {
		t.Errorf("expected full chain when all endpoints down, got %v", available)
	}
}
