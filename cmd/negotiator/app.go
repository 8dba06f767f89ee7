package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/infumatch/negotiator/cache"
	"github.com/infumatch/negotiator/config"
	"github.com/infumatch/negotiator/llm"
	"github.com/infumatch/negotiator/model"
	"github.com/infumatch/negotiator/pipeline"
	"github.com/infumatch/negotiator/prompt"
)

// app bundles the wired pipeline plus the resources that need closing.
type app struct {
	orchestrator *pipeline.Orchestrator
	store        *prompt.Store
	redis        *goredis.Client
}

// close releases app resources.
func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// buildApp wires the model registry, LLM client, prompt store, completion
// cache, and orchestrator from config. extra orchestrator options (metrics,
// custom timeouts) come from the caller.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, extra ...pipeline.OrchestratorOption) (*app, error) {
	registry := model.NewDefaultRegistry()
	if cfg.Model.OllamaEndpoint != "" {
		if ep := registry.GetEndpoint("qwen"); ep != nil {
			ep.URL = cfg.Model.OllamaEndpoint
			registry.SetEndpoint("qwen", ep)
		}
	}

	retry := llm.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Model.MaxAttempts
	client := llm.NewClient(registry,
		llm.WithRetryConfig(retry),
		llm.WithLogger(logger))

	store := prompt.DefaultStore()
	if cfg.Prompts.Dir != "" {
		if err := store.LoadDir(cfg.Prompts.Dir, logger); err != nil {
			return nil, fmt.Errorf("load prompt overrides: %w", err)
		}
		if cfg.Prompts.Watch {
			go func() {
				if err := store.Watch(ctx, cfg.Prompts.Dir, logger); err != nil {
					logger.Warn("Prompt watcher stopped", "error", err)
				}
			}()
		}
	}

	gatewayOpts := []llm.GatewayOption{
		llm.WithCallTimeout(cfg.Model.CallTimeout),
		llm.WithGatewayLogger(logger),
	}

	a := &app{store: store}
	if cfg.Cache.Enabled {
		a.redis = goredis.NewClient(&goredis.Options{Addr: cfg.Cache.RedisAddr})
		completionCache := cache.New(a.redis,
			cache.WithTTL(cfg.Cache.TTL),
			cache.WithLogger(logger))
		gatewayOpts = append(gatewayOpts, llm.WithCompletionCache(completionCache))
		logger.Info("Completion cache enabled", "redis", cfg.Cache.RedisAddr)
	}

	gw := llm.NewGateway(client, store, gatewayOpts...)

	opts := []pipeline.OrchestratorOption{
		pipeline.WithTimeout(cfg.Pipeline.Timeout),
		pipeline.WithLogger(logger),
	}
	if cfg.Pipeline.HumanizeReplies {
		seed := cfg.Pipeline.HumanizeSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		opts = append(opts, pipeline.WithHumanizer(pipeline.NewHumanizer(seed)))
	}
	opts = append(opts, extra...)

	a.orchestrator = pipeline.NewOrchestrator(gw, opts...)
	return a, nil
}
