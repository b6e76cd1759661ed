// Package config loads marknav configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"marknav/internal/agent"
	"marknav/internal/cursor"
)

// Config holds all marknav configuration.
type Config struct {
	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Cursor ceilings and defaults
	Cursor CursorConfig `yaml:"cursor"`

	// Agent run bounds
	Agent AgentConfig `yaml:"agent"`

	// Run trace persistence
	Trace TraceConfig `yaml:"trace"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the reasoning provider.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, openai
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// CursorConfig configures portion ceilings and per-cursor defaults.
type CursorConfig struct {
	MaxElements     int `yaml:"max_elements"`
	MaxBytes        int `yaml:"max_bytes"`
	DefaultElements int `yaml:"default_elements"`
	DefaultBytes    int `yaml:"default_bytes"`
}

// AgentConfig configures orchestration bounds.
type AgentConfig struct {
	MaxSteps     int `yaml:"max_steps"`
	MaxEvidence  int `yaml:"max_evidence"`
	ParseRetries int `yaml:"parse_retries"`
}

// TraceConfig configures run history persistence.
type TraceConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.5-flash",
			Timeout:  "120s",
		},
		Cursor: CursorConfig{
			MaxElements:     cursor.DefaultLimits.MaxElements,
			MaxBytes:        cursor.DefaultLimits.MaxBytes,
			DefaultElements: 10,
			DefaultBytes:    8 * 1024,
		},
		Agent: AgentConfig{
			MaxSteps:     32,
			MaxEvidence:  64,
			ParseRetries: 2,
		},
		Trace: TraceConfig{
			Enabled:      true,
			DatabasePath: defaultTracePath(),
		},
	}
}

func defaultTracePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "marknav-runs.db"
	}
	return filepath.Join(home, ".marknav", "runs.db")
}

// Load reads configuration from path, falling back to defaults when
// the file is missing, then applies environment overrides.
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

// Save writes configuration to a YAML file.
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
	// API key from environment (check in priority order)
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}

	if model := os.Getenv("MARKNAV_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if url := os.Getenv("MARKNAV_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}
	if path := os.Getenv("MARKNAV_DB"); path != "" {
		c.Trace.DatabasePath = path
	}
	if steps := os.Getenv("MARKNAV_MAX_STEPS"); steps != "" {
		if n, err := strconv.Atoi(steps); err == nil && n > 0 {
			c.Agent.MaxSteps = n
		}
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

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{"gemini", "openai"}

// Validate checks the configuration and clamps out-of-range bounds.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (set GEMINI_API_KEY or OPENAI_API_KEY)")
	}

	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}

	if c.Agent.MaxSteps > agent.HardStepCeiling {
		c.Agent.MaxSteps = agent.HardStepCeiling
	}
	if c.Cursor.DefaultElements > c.Cursor.MaxElements {
		c.Cursor.DefaultElements = c.Cursor.MaxElements
	}
	if c.Cursor.DefaultBytes > c.Cursor.MaxBytes {
		c.Cursor.DefaultBytes = c.Cursor.MaxBytes
	}

	return nil
}

// CursorLimits returns the configured portion ceilings.
func (c *Config) CursorLimits() cursor.Limits {
	return cursor.Limits{
		MaxElements: c.Cursor.MaxElements,
		MaxBytes:    c.Cursor.MaxBytes,
	}
}

// CursorParams returns the default per-cursor budgets.
func (c *Config) CursorParams() cursor.Params {
	return cursor.Params{
		MaxElements:    c.Cursor.DefaultElements,
		MaxBytes:       c.Cursor.DefaultBytes,
		IncludeContent: true,
	}
}

// AgentSettings returns the orchestration bounds.
func (c *Config) AgentSettings() agent.Config {
	return agent.Config{
		MaxSteps:     c.Agent.MaxSteps,
		MaxEvidence:  c.Agent.MaxEvidence,
		ParseRetries: c.Agent.ParseRetries,
	}
}
