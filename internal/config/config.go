// Package config holds all diagmend configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all diagmend configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Pipeline configuration
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Repair configuration
	Repair RepairConfig `yaml:"repair"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the AI model collaborator.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai, zai, gemini
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Timeout     string  `yaml:"timeout"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// PipelineConfig configures the diagram correction pipeline.
type PipelineConfig struct {
	// Diagram grammars the extractor recognizes
	DiagramTypes []string `yaml:"diagram_types"`

	// Deterministic repair passes per block before escalating to AI
	MaxRepairAttempts int `yaml:"max_repair_attempts"`

	// AI correction rounds per block, keyed by diagram type
	MaxAIRetries map[string]int `yaml:"max_ai_retries"`

	// AI correction rounds for types without an explicit entry
	DefaultAIRetries int `yaml:"default_ai_retries"`

	// Timeout for one external validator invocation
	ValidatorTimeout string `yaml:"validator_timeout"`

	// Concurrent block workers per response (0 = sequential)
	MaxWorkers int `yaml:"max_workers"`
}

// RepairConfig configures the pattern repairer.
type RepairConfig struct {
	// Optional YAML file of user-defined regex repair rules
	CustomRulesPath string `yaml:"custom_rules_path"`

	// Hot-reload the custom rules file on change
	WatchCustomRules bool `yaml:"watch_custom_rules"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "diagmend",
		Version: "0.3.0",

		LLM: LLMConfig{
			Provider:    "",
			Model:       "",
			Timeout:     "120s",
			MaxTokens:   4096,
			Temperature: 0.2,
		},

		Pipeline: PipelineConfig{
			DiagramTypes:      []string{"mermaid", "plantuml", "dot", "d2"},
			MaxRepairAttempts: 3,
			MaxAIRetries: map[string]int{
				"mermaid":  5,
				"plantuml": 8,
				"dot":      4,
				"d2":       5,
			},
			DefaultAIRetries: 5,
			ValidatorTimeout: "30s",
			MaxWorkers:       4,
		},

		Repair: RepairConfig{
			CustomRulesPath:  "",
			WatchCustomRules: false,
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file is not an error; defaults are returned.
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
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
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

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// LLM API key from environment; later checks win, so GEMINI_API_KEY
	// takes precedence over ZAI_API_KEY over OPENAI_API_KEY.
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "openai"
		}
	}
	if key := os.Getenv("ZAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "zai"
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}

	if model := os.Getenv("DIAGMEND_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if rules := os.Getenv("DIAGMEND_CUSTOM_RULES"); rules != "" {
		c.Repair.CustomRulesPath = rules
	}
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetValidatorTimeout returns the validator timeout as a duration.
func (c *Config) GetValidatorTimeout() time.Duration {
	d, err := time.ParseDuration(c.Pipeline.ValidatorTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// AIRetriesFor returns the AI correction budget for a diagram type.
func (c *Config) AIRetriesFor(diagramType string) int {
	if n, ok := c.Pipeline.MaxAIRetries[diagramType]; ok && n > 0 {
		return n
	}
	if c.Pipeline.DefaultAIRetries > 0 {
		return c.Pipeline.DefaultAIRetries
	}
	return 5
}
