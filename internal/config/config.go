// Package config loads quill configuration from .quill/config.yaml with
// sensible defaults and environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all quill configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Model provider configuration
	Model ModelConfig `yaml:"model"`

	// Tool availability
	Tools ToolsConfig `yaml:"tools"`

	// Permission gate behavior
	Permissions PermissionsConfig `yaml:"permissions"`

	// Shell tool settings
	Shell ShellConfig `yaml:"shell"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ModelConfig configures the model provider collaborator.
type ModelConfig struct {
	Provider string `yaml:"provider"` // anthropic, openai
	APIKey   string `yaml:"api_key"`
	Name     string `yaml:"name"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// ToolsConfig controls which tools are registered and enabled.
type ToolsConfig struct {
	// Disabled lists tool names registered but switched off at startup.
	Disabled []string `yaml:"disabled"`

	// Available restricts the model to a subset of tools. Empty means all.
	Available []string `yaml:"available"`
}

// PermissionsConfig configures the permission gate.
type PermissionsConfig struct {
	// Mode is "prompt" (default) or "bypass".
	Mode string `yaml:"mode"`

	// AllowScopes are grants pre-loaded at startup, e.g. "shell:go" or
	// "write:/tmp".
	AllowScopes []string `yaml:"allow_scopes"`
}

// ShellConfig configures the run_command tool.
type ShellConfig struct {
	WorkingDirectory string `yaml:"working_directory"`
	DefaultTimeout   string `yaml:"default_timeout"`
}

// LoggingConfig configures the categorized file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "quill",
		Version: "0.1.0",

		Model: ModelConfig{
			Provider: "anthropic",
			Name:     "claude-sonnet-4-20250514",
			Timeout:  "120s",
		},

		Tools: ToolsConfig{},

		Permissions: PermissionsConfig{
			Mode: "prompt",
		},

		Shell: ShellConfig{
			WorkingDirectory: ".",
			DefaultTimeout:   "60s",
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Path returns the config file location under a workspace.
func Path(workspace string) string {
	return filepath.Join(workspace, ".quill", "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults, not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// BypassPermissions reports whether the gate is configured off.
func (c *Config) BypassPermissions() bool {
	return c.Permissions.Mode == "bypass"
}

func (c *Config) validate() error {
	switch c.Permissions.Mode {
	case "", "prompt", "bypass":
	default:
		return fmt.Errorf("invalid permissions.mode %q (want prompt or bypass)", c.Permissions.Mode)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Model.APIKey = key
		c.Model.Provider = "anthropic"
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.Model.APIKey == "" {
		c.Model.APIKey = key
		c.Model.Provider = "openai"
	}
	if model := os.Getenv("QUILL_MODEL"); model != "" {
		c.Model.Name = model
	}
	if dir := os.Getenv("QUILL_WORKDIR"); dir != "" {
		c.Shell.WorkingDirectory = dir
	}
}
