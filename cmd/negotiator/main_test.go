package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infumatch/negotiator/config"
)

func TestRootCmdHasSubcommands(t *testing.T) {
	cmd := rootCmd()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	assert.True(t, names["serve"])
	assert.True(t, names["generate"])
	assert.True(t, names["version"])
}

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	// cobra's Run prints via fmt.Printf directly; just assert no error.
}

func TestNewLoggerLevels(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "debug"
	logger := newLogger(cfg)
	assert.NotNil(t, logger)

	cfg.Logging.Format = "json"
	logger = newLogger(cfg)
	assert.NotNil(t, logger)
}
