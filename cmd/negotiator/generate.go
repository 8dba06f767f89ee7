package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/infumatch/negotiator/config"
	"github.com/infumatch/negotiator/pipeline"
)

func generateCmd(configPath, logLevel *string) *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the pipeline once for a request file and print the result",
		Long: `Reads a pipeline request as JSON from --input (or stdin) and prints
the generated reply patterns as JSON. Useful for smoke tests and prompt
iteration without standing up the HTTP server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, *logLevel)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return generate(cfg, inputPath)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Request JSON file (default: stdin)")
	return cmd
}

func generate(cfg *config.Config, inputPath string) error {
	logger := newLogger(cfg)

	var reader io.Reader = os.Stdin
	if inputPath != "" {
		f, err := os.Open(inputPath)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		reader = f
	}

	var req pipeline.Request
	if err := json.NewDecoder(reader).Decode(&req); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.orchestrator.Run(ctx, &req)
	if err != nil {
		var perr *pipeline.PipelineError
		if errors.As(err, &perr) {
			// Print the partial trace before failing so prompt debugging
			// has something to work with.
			_ = json.NewEncoder(os.Stderr).Encode(perr.Trace)
		}
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
