package pipeline

import (
	"context"

	"github.com/infumatch/negotiator/llm"
)

// Completer is the gateway surface the pipeline stages depend on.
// *llm.Gateway is the production implementation; tests substitute stubs.
type Completer interface {
	Complete(ctx context.Context, templateID string, vars map[string]any) (*llm.GatewayResult, error)
}
