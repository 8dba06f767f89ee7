// Package config provides configuration loading and management for the
// negotiator service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete negotiator configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Model    ModelConfig    `yaml:"model"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Prompts  PromptsConfig  `yaml:"prompts"`
	Cache    CacheConfig    `yaml:"cache"`
	Events   EventsConfig   `yaml:"events"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	// Addr is the listen address (default: :8085)
	Addr string `yaml:"addr"`
	// ShutdownTimeout bounds graceful shutdown on SIGTERM
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ModelConfig configures the LLM client
type ModelConfig struct {
	// OllamaEndpoint overrides the local Ollama endpoint for qwen models
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	// CallTimeout is the per-completion timeout, retries included
	CallTimeout time.Duration `yaml:"call_timeout"`
	// MaxAttempts is the completion attempt budget per endpoint (1 = no retries)
	MaxAttempts int `yaml:"max_attempts"`
}

// PipelineConfig configures the reply pipeline
type PipelineConfig struct {
	// Timeout bounds a full pipeline run across all stages
	Timeout time.Duration `yaml:"timeout"`
	// HumanizeReplies toggles post-generation humanization of drafts
	HumanizeReplies bool `yaml:"humanize_replies"`
	// HumanizeSeed fixes the humanizer seed; 0 derives one from the clock
	HumanizeSeed int64 `yaml:"humanize_seed"`
}

// PromptsConfig configures prompt template overrides
type PromptsConfig struct {
	// Dir is a directory of *.tmpl files overriding the builtin templates
	Dir string `yaml:"dir"`
	// Watch reloads templates when files under Dir change
	Watch bool `yaml:"watch"`
}

// CacheConfig configures the Redis completion cache
type CacheConfig struct {
	// Enabled toggles the completion cache
	Enabled bool `yaml:"enabled"`
	// RedisAddr is the Redis host:port
	RedisAddr string `yaml:"redis_addr"`
	// TTL is the entry lifetime
	TTL time.Duration `yaml:"ttl"`
}

// EventsConfig configures NATS event publishing
type EventsConfig struct {
	// NATSURL is the NATS server URL (empty = events disabled)
	NATSURL string `yaml:"nats_url"`
}

// LoggingConfig configures structured logging
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
	// Format is "text" or "json"
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8085",
			ShutdownTimeout: 10 * time.Second,
		},
		Model: ModelConfig{
			OllamaEndpoint: "http://localhost:11434/v1",
			CallTimeout:    15 * time.Second,
			MaxAttempts:    3,
		},
		Pipeline: PipelineConfig{
			Timeout: 60 * time.Second,
		},
		Prompts: PromptsConfig{
			Dir:   "",
			Watch: false,
		},
		Cache: CacheConfig{
			Enabled:   false,
			RedisAddr: "localhost:6379",
			TTL:       15 * time.Minute,
		},
		Events: EventsConfig{
			NATSURL: "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Model.CallTimeout <= 0 {
		return fmt.Errorf("model.call_timeout must be positive")
	}
	if c.Model.MaxAttempts < 1 {
		return fmt.Errorf("model.max_attempts must be at least 1")
	}
	if c.Pipeline.Timeout <= 0 {
		return fmt.Errorf("pipeline.timeout must be positive")
	}
	if c.Cache.Enabled && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required when the cache is enabled")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Server
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.ShutdownTimeout != 0 {
		c.Server.ShutdownTimeout = other.Server.ShutdownTimeout
	}

	// Model
	if other.Model.OllamaEndpoint != "" {
		c.Model.OllamaEndpoint = other.Model.OllamaEndpoint
	}
	if other.Model.CallTimeout != 0 {
		c.Model.CallTimeout = other.Model.CallTimeout
	}
	if other.Model.MaxAttempts != 0 {
		c.Model.MaxAttempts = other.Model.MaxAttempts
	}

	// Pipeline
	if other.Pipeline.Timeout != 0 {
		c.Pipeline.Timeout = other.Pipeline.Timeout
	}
	if other.Pipeline.HumanizeReplies {
		c.Pipeline.HumanizeReplies = true
	}
	if other.Pipeline.HumanizeSeed != 0 {
		c.Pipeline.HumanizeSeed = other.Pipeline.HumanizeSeed
	}

	// Prompts
	if other.Prompts.Dir != "" {
		c.Prompts.Dir = other.Prompts.Dir
		c.Prompts.Watch = other.Prompts.Watch
	}

	// Cache
	if other.Cache.Enabled {
		c.Cache.Enabled = true
	}
	if other.Cache.RedisAddr != "" {
		c.Cache.RedisAddr = other.Cache.RedisAddr
	}
	if other.Cache.TTL != 0 {
		c.Cache.TTL = other.Cache.TTL
	}

	// Events
	if other.Events.NATSURL != "" {
		c.Events.NATSURL = other.Events.NATSURL
	}

	// Logging
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.Format != "" {
		c.Logging.Format = other.Logging.Format
	}
}
