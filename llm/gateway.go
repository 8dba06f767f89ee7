package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/infumatch/negotiator/prompt"
)

// defaultCallTimeout bounds a single gateway call, including client-side retries.
const defaultCallTimeout = 15 * time.Second

// CompletionCache is a read-through cache for gateway completions.
// Implementations must treat errors as misses; the gateway never fails a call
// because of the cache.
type CompletionCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// Gateway issues structured prompt/response calls against the template store.
// Stages address it by template ID plus variables, never raw prompt strings,
// so prompts stay versioned and testable.
type Gateway struct {
	client      CompletionClient
	store       *prompt.Store
	cache       CompletionCache
	callTimeout time.Duration
	logger      *slog.Logger
}

// GatewayResult is the outcome of one gateway completion.
type GatewayResult struct {
	// Text is the raw model output.
	Text string

	// ModelID is the model that produced the text. Empty for cache hits.
	ModelID string

	// LatencyMs is the wall-clock duration of the call.
	LatencyMs int64

	// RequestID correlates this call with client-level logs.
	RequestID string

	// Cached indicates the text came from the completion cache.
	Cached bool
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithCallTimeout sets the per-call timeout.
func WithCallTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.callTimeout = d
	}
}

// WithCompletionCache sets the read-through completion cache.
func WithCompletionCache(c CompletionCache) GatewayOption {
	return func(g *Gateway) {
		g.cache = c
	}
}

// WithGatewayLogger sets the logger.
func WithGatewayLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// NewGateway creates a gateway over a completion client and template store.
func NewGateway(client CompletionClient, store *prompt.Store, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		client:      client,
		store:       store,
		callTimeout: defaultCallTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Complete renders the template with vars and requests a completion.
//
// Error contract: network/timeout failures (after client retries) surface as
// ErrUpstreamUnavailable; caller cancellation surfaces as context.Canceled.
// Parse failures are the caller's concern — the gateway returns raw text.
func (g *Gateway) Complete(ctx context.Context, templateID string, vars map[string]any) (*GatewayResult, error) {
	rendered, err := g.store.Render(templateID, vars)
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}

	key := CacheKey(templateID, rendered.User)
	if g.cache != nil {
		if text, ok := g.cache.Get(ctx, key); ok {
			g.logger.Debug("Completion cache hit", "template", templateID)
			return &GatewayResult{Text: text, Cached: true}, nil
		}
	}

	messages := make([]Message, 0, 2)
	if rendered.System != "" {
		messages = append(messages, Message{Role: "system", Content: rendered.System})
	}
	messages = append(messages, Message{Role: "user", Content: rendered.User})

	callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Complete(callCtx, Request{
		Capability:  rendered.Template.Capability.String(),
		Messages:    messages,
		Temperature: rendered.Template.Temperature,
		MaxTokens:   rendered.Template.MaxTokens,
	})
	if err != nil {
		// Caller cancellation is not an upstream problem.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: template %s: %v", ErrUpstreamUnavailable, templateID, err)
	}

	if g.cache != nil {
		g.cache.Set(ctx, key, resp.Content)
	}

	return &GatewayResult{
		Text:      resp.Content,
		ModelID:   resp.Model,
		LatencyMs: time.Since(start).Milliseconds(),
		RequestID: resp.RequestID,
	}, nil
}

// CacheKey derives the completion cache key from the template ID and the
// rendered prompt (a deterministic function of the call variables).
func CacheKey(templateID, renderedPrompt string) string {
	sum := sha256.Sum256([]byte(renderedPrompt))
	return "llm:" + templateID + ":" + hex.EncodeToString(sum[:])
}
