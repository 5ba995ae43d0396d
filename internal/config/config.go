package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tributary-ai/model-selector/internal/middleware"
	"github.com/tributary-ai/model-selector/internal/security"
	"github.com/tributary-ai/model-selector/internal/server"
	"github.com/tributary-ai/model-selector/internal/strategy"
	"github.com/tributary-ai/model-selector/internal/types"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig                `yaml:"server"`
	Logging    LoggingConfig               `yaml:"logging"`
	Security   SecurityConfig              `yaml:"security"`
	Strategies StrategiesConfig            `yaml:"strategies"`
	Catalog    []types.BackendInfo         `yaml:"catalog"`
	Scenarios  map[string]ScenarioOverride `yaml:"scenarios"`
	Validation middleware.ValidationConfig `yaml:"validation"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           string        `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
	Output string `yaml:"output"` // "stdout", "stderr", or file path
}

// SecurityConfig holds authentication configuration for the admin API
type SecurityConfig struct {
	APIKeys   []string      `yaml:"api_keys"`
	JWTSecret string        `yaml:"jwt_secret"`
	JWTExpiry time.Duration `yaml:"jwt_expiry"`
}

// StrategiesConfig holds per-strategy tuning
type StrategiesConfig struct {
	Cost    strategy.CostConfig    `yaml:"cost"`
	Quality strategy.QualityConfig `yaml:"quality"`
	Latency strategy.LatencyConfig `yaml:"latency"`
}

// ScenarioOverride is a startup-time partial override of a built-in
// scenario config. Empty fields leave the default untouched.
type ScenarioOverride struct {
	Strategy        string         `yaml:"strategy"`
	PrimaryModels   []string       `yaml:"primary_models"`
	FallbackModels  []string       `yaml:"fallback_models"`
	Weights         *types.Weights `yaml:"weights"`
	MinQualityScore *float64       `yaml:"min_quality_score"`
	MaxLatencyMs    *float64       `yaml:"max_latency_ms"`
}

// ToUpdate converts the override into a mapping-store update.
func (o ScenarioOverride) ToUpdate() types.ScenarioConfigUpdate {
	update := types.ScenarioConfigUpdate{
		PrimaryModels:   o.PrimaryModels,
		FallbackModels:  o.FallbackModels,
		Weights:         o.Weights,
		MinQualityScore: o.MinQualityScore,
		MaxLatencyMs:    o.MaxLatencyMs,
	}
	if o.Strategy != "" {
		kind := types.StrategyKind(o.Strategy)
		update.Strategy = &kind
	}
	return update
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	// Set defaults
	config.setDefaults()

	// Load from file if provided
	if configPath != "" {
		if err := config.loadFromFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Override with environment variables
	config.loadFromEnv()

	// Validate configuration
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default configuration values
func (c *Config) setDefaults() {
	c.Server = ServerConfig{
		Port:           "8080",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	c.Logging = LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}

	c.Security = SecurityConfig{
		APIKeys:   []string{},
		JWTExpiry: 24 * time.Hour,
	}

	c.Strategies = StrategiesConfig{
		Cost:    strategy.CostConfig{MinQualityThreshold: 6},
		Latency: strategy.LatencyConfig{DefaultMaxLatencyMs: 5000},
	}

	c.Validation = middleware.ValidationConfig{
		Enabled:  false,
		SpecPath: "docs/openapi.yaml",
	}

	quality := func(v float64) *float64 { return &v }
	c.Catalog = []types.BackendInfo{
		{
			Name:            "gpt-4o",
			Provider:        "openai",
			Family:          "gpt-4",
			ContextWindow:   128000,
			InputCostPer1K:  0.005,
			OutputCostPer1K: 0.015,
			LatencyMs:       1800,
			Available:       true,
			QualityScore:    quality(9),
		},
		{
			Name:            "gpt-4o-mini",
			Provider:        "openai",
			Family:          "gpt-4",
			ContextWindow:   128000,
			InputCostPer1K:  0.00015,
			OutputCostPer1K: 0.0006,
			LatencyMs:       900,
			Available:       true,
			QualityScore:    quality(7),
		},
		{
			Name:            "gpt-3.5-turbo",
			Provider:        "openai",
			Family:          "gpt-3.5",
			ContextWindow:   16385,
			InputCostPer1K:  0.0015,
			OutputCostPer1K: 0.002,
			LatencyMs:       800,
			Available:       true,
			QualityScore:    quality(6),
		},
		{
			Name:            "claude-3-5-sonnet",
			Provider:        "anthropic",
			Family:          "claude-3",
			ContextWindow:   200000,
			InputCostPer1K:  0.003,
			OutputCostPer1K: 0.015,
			LatencyMs:       2000,
			Available:       true,
			QualityScore:    quality(9),
		},
		{
			Name:            "claude-3-haiku",
			Provider:        "anthropic",
			Family:          "claude-3",
			ContextWindow:   200000,
			InputCostPer1K:  0.00025,
			OutputCostPer1K: 0.00125,
			LatencyMs:       700,
			Available:       true,
			QualityScore:    quality(6),
		},
		{
			Name:          "ollama",
			Provider:      "local",
			Family:        "ollama",
			ContextWindow: 8192,
			LatencyMs:     400,
			Available:     true,
		},
	}
}

// loadFromFile loads configuration from YAML file
func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("MODEL_SELECTOR_PORT"); port != "" {
		c.Server.Port = port
	}

	if level := os.Getenv("MODEL_SELECTOR_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	if format := os.Getenv("MODEL_SELECTOR_LOG_FORMAT"); format != "" {
		c.Logging.Format = format
	}

	if keys := os.Getenv("MODEL_SELECTOR_API_KEYS"); keys != "" {
		c.Security.APIKeys = strings.Split(keys, ",")
	}

	if secret := os.Getenv("MODEL_SELECTOR_JWT_SECRET"); secret != "" {
		c.Security.JWTSecret = secret
	}
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if len(c.Catalog) == 0 {
		return fmt.Errorf("catalog must seed at least one backend")
	}

	seen := make(map[string]bool, len(c.Catalog))
	for _, backend := range c.Catalog {
		if backend.Name == "" {
			return fmt.Errorf("catalog entry with empty name")
		}
		if seen[backend.Name] {
			return fmt.Errorf("catalog entry %s duplicated", backend.Name)
		}
		seen[backend.Name] = true
	}

	for name, override := range c.Scenarios {
		if override.Weights != nil {
			if err := override.Weights.Validate(); err != nil {
				return fmt.Errorf("scenario override %s: %w", name, err)
			}
		}
	}

	return nil
}

// ToServerConfig converts to server.ServerConfig
func (c *Config) ToServerConfig() *server.ServerConfig {
	return &server.ServerConfig{
		Port:           c.Server.Port,
		ReadTimeout:    c.Server.ReadTimeout,
		WriteTimeout:   c.Server.WriteTimeout,
		MaxHeaderBytes: c.Server.MaxHeaderBytes,
		Auth: &security.Config{
			APIKeys:     c.Security.APIKeys,
			JWTSecret:   c.Security.JWTSecret,
			JWTExpiry:   c.Security.JWTExpiry,
			RequireAuth: len(c.Security.APIKeys) > 0 || c.Security.JWTSecret != "",
		},
		Validation: &c.Validation,
	}
}

// SaveToFile saves the current configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
