// Package server exposes the reply pipeline over HTTP. It hosts the generate
// endpoint, health checks, and Prometheus metrics, and owns the listener's
// lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/infumatch/negotiator/events"
	"github.com/infumatch/negotiator/normalize"
	"github.com/infumatch/negotiator/pipeline"
)

// ReplyGenerator runs the reply pipeline. *pipeline.Orchestrator satisfies it;
// tests substitute stubs.
type ReplyGenerator interface {
	Run(ctx context.Context, req *pipeline.Request) (*pipeline.Result, error)
}

// Component hosts the HTTP API.
type Component struct {
	addr       string
	generator  ReplyGenerator
	normalizer *normalize.Normalizer
	publisher  *events.Publisher
	metrics    *Metrics
	logger     *slog.Logger

	// Lifecycle state machine
	// States: 0=stopped, 1=starting, 2=running, 3=stopping
	state     atomic.Int32
	startTime time.Time
	mu        sync.RWMutex
	server    *http.Server
}

const (
	stateStopped  = 0
	stateStarting = 1
	stateRunning  = 2
	stateStopping = 3
)

// ComponentOption configures a Component.
type ComponentOption func(*Component)

// WithPublisher attaches an event publisher for run outcomes.
func WithPublisher(p *events.Publisher) ComponentOption {
	return func(c *Component) { c.publisher = p }
}

// WithMetrics attaches the Prometheus metrics set.
func WithMetrics(m *Metrics) ComponentOption {
	return func(c *Component) { c.metrics = m }
}

// WithComponentLogger sets the component's logger.
func WithComponentLogger(logger *slog.Logger) ComponentOption {
	return func(c *Component) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewComponent creates the HTTP component.
func NewComponent(addr string, generator ReplyGenerator, opts ...ComponentOption) (*Component, error) {
	if addr == "" {
		return nil, fmt.Errorf("listen address is required")
	}
	if generator == nil {
		return nil, fmt.Errorf("reply generator is required")
	}

	c := &Component{
		addr:       addr,
		generator:  generator,
		normalizer: normalize.NewNormalizer(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start begins serving. It returns once the listener is accepting; serve
// errors after startup are logged.
func (c *Component) Start(ctx context.Context) error {
	if !c.state.CompareAndSwap(stateStopped, stateStarting) {
		current := c.state.Load()
		if current == stateRunning || current == stateStarting {
			return fmt.Errorf("server already running or starting")
		}
		return fmt.Errorf("server in invalid state: %d", current)
	}

	defer func() {
		if c.state.Load() == stateStarting {
			c.state.Store(stateStopped)
		}
	}()

	mux := http.NewServeMux()
	c.RegisterHTTPHandlers(mux)

	server := &http.Server{
		Addr:              c.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	c.mu.Lock()
	c.server = server
	c.startTime = time.Now()
	c.mu.Unlock()

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("HTTP server exited", "error", err)
		}
	}()

	c.state.Store(stateRunning)
	c.logger.Info("HTTP server started", "addr", c.addr)
	return nil
}

// Stop gracefully shuts the server down within the given timeout.
func (c *Component) Stop(timeout time.Duration) error {
	if !c.state.CompareAndSwap(stateRunning, stateStopping) {
		current := c.state.Load()
		if current == stateStopped || current == stateStopping {
			return nil
		}
		return fmt.Errorf("server in unexpected state: %d", current)
	}

	c.mu.Lock()
	server := c.server
	c.server = nil
	c.mu.Unlock()

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			c.state.Store(stateStopped)
			return fmt.Errorf("shutdown: %w", err)
		}
	}

	c.state.Store(stateStopped)
	c.logger.Info("HTTP server stopped")
	return nil
}

// Healthy reports whether the server is running.
func (c *Component) Healthy() bool {
	return c.state.Load() == stateRunning
}

// Uptime reports how long the server has been running.
func (c *Component) Uptime() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.startTime.IsZero() {
		return 0
	}
	return time.Since(c.startTime)
}
