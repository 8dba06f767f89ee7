package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/infumatch/negotiator/config"
	"github.com/infumatch/negotiator/events"
	"github.com/infumatch/negotiator/pipeline"
	"github.com/infumatch/negotiator/server"
)

func serveCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, *logLevel)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	logger := newLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := server.NewMetrics()

	a, err := buildApp(ctx, cfg, logger, pipeline.WithMetrics(metrics))
	if err != nil {
		return err
	}
	defer a.close()

	var nc *nats.Conn
	if cfg.Events.NATSURL != "" {
		nc, err = nats.Connect(cfg.Events.NATSURL, nats.Name(appName))
		if err != nil {
			// Events are best-effort; the service still runs without them.
			logger.Warn("NATS connection failed, events disabled", "url", cfg.Events.NATSURL, "error", err)
			nc = nil
		} else {
			defer nc.Close()
			logger.Info("Event publishing enabled", "url", cfg.Events.NATSURL)
		}
	}

	var conn events.Conn
	if nc != nil {
		conn = nc
	}
	publisher := events.NewPublisher(conn, logger)

	component, err := server.NewComponent(cfg.Server.Addr, a.orchestrator,
		server.WithPublisher(publisher),
		server.WithMetrics(metrics),
		server.WithComponentLogger(logger))
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	if err := component.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	logger.Info("Negotiator ready", "version", Version, "addr", cfg.Server.Addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down", "signal", sig.String())

	cancel()
	return component.Stop(cfg.Server.ShutdownTimeout)
}
