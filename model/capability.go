// Package model provides capability-based model selection for pipeline stages.
// Instead of hardcoding model names, stages specify capabilities (analysis,
// strategy, generation) and the registry resolves them to available endpoints
// with fallback chains.
package model

// Capability represents a semantic capability for model selection.
// Instead of specifying "gemini-1.5-pro", callers specify "strategy" or "analysis".
type Capability string

const (
	// CapabilityAnalysis is for inbound-message classification and sentiment.
	CapabilityAnalysis Capability = "analysis"

	// CapabilityStrategy is for reply-strategy planning.
	CapabilityStrategy Capability = "strategy"

	// CapabilityEvaluation is for risk/appropriateness scoring of planned replies.
	CapabilityEvaluation Capability = "evaluation"

	// CapabilityGeneration is for drafting reply text.
	CapabilityGeneration Capability = "generation"

	// CapabilityFast is for quick, low-stakes completions.
	CapabilityFast Capability = "fast"
)

// StageCapabilities maps pipeline stages to their default capability.
// Used when a prompt template does not specify a capability explicitly.
var StageCapabilities = map[string]Capability{
	"analyzing":  CapabilityAnalysis,
	"planning":   CapabilityStrategy,
	"evaluating": CapabilityEvaluation,
	"generating": CapabilityGeneration,
	"selecting":  CapabilityFast,
}

// CapabilityForStage returns the default capability for a pipeline stage.
// Returns CapabilityFast as fallback for unknown stages.
func CapabilityForStage(stage string) Capability {
	if cap, ok := StageCapabilities[stage]; ok {
		return cap
	}
	return CapabilityFast
}

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityAnalysis, CapabilityStrategy, CapabilityEvaluation, CapabilityGeneration, CapabilityFast:
		return true
	}
	return false
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for invalid values.
func ParseCapability(s string) Capability {
	cap := Capability(s)
	if cap.IsValid() {
		return cap
	}
	return ""
}
