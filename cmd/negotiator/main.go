// Package main provides the negotiator binary entry point.
// Negotiator drafts negotiation reply candidates for influencer-brand email
// threads via a staged LLM pipeline.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	// Register LLM providers via init()
	_ "github.com/infumatch/negotiator/llm/providers"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/infumatch/negotiator/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "negotiator"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "negotiator",
		Short: "Negotiation reply drafting service",
		Long: `Negotiator drafts reply candidates for influencer-brand negotiation
email threads.

Each request runs a staged pipeline: thread analysis, strategy planning,
risk evaluation, pattern generation, and selection. Three reply variants
(collaborative, balanced, formal) come back with a recommended default.

API keys are read from the environment (GEMINI_API_KEY, OPENAI_API_KEY);
a .env file in the working directory is loaded automatically.`,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	cmd.AddCommand(serveCmd(&configPath, &logLevel))
	cmd.AddCommand(generateCmd(&configPath, &logLevel))

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// loadConfig loads layered configuration and applies CLI overrides.
func loadConfig(configPath, logLevel string) (*config.Config, error) {
	// .env is optional; API keys may come from the real environment.
	_ = godotenv.Load()

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	} else {
		cfg, err = config.NewLoader(nil).Load()
		if err != nil {
			return nil, err
		}
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// newLogger builds the process logger from config and installs it as the
// slog default.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
