// Package config provides configuration loading for the convergence
// controller.
//
// Configuration is loaded from environment variables with sensible
// defaults, and can be layered with a YAML file via LoadWithFile.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the complete convergence controller configuration.
type Config struct {
	Server        ServerConfig
	Observability ObservabilityConfig
	Orchestrator  OrchestratorConfig
	ModelClient   ModelClientConfig
	Temporal      TemporalConfig
}

// ServerConfig holds the optional status/health HTTP server configuration.
type ServerConfig struct {
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
}

// OrchestratorConfig mirrors convergence.DecisionConfig for the purposes of
// env/file-based configuration; the CLI translates it into the core's own
// options at startup.
type OrchestratorConfig struct {
	MaxRounds           int     `koanf:"max_rounds"`
	StabilityThreshold  float64 `koanf:"stability_threshold"`
	GoalDivergenceLimit int     `koanf:"goal_divergence_limit"`
}

// ModelClientConfig configures the LLM provider used for planning and
// evaluation calls.
type ModelClientConfig struct {
	Provider       string        `koanf:"provider"`
	APIKey         Secret        `koanf:"api_key"`
	Model          string        `koanf:"model"`
	BaseURL        string        `koanf:"base_url"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	MaxRetries     int           `koanf:"max_retries"`
}

// TemporalConfig configures the durable-workflow wrapper. It is only
// consulted when the CLI is asked to run in durable mode.
type TemporalConfig struct {
	Enabled   bool   `koanf:"enabled"`
	HostPort  string `koanf:"host_port"`
	Namespace string `koanf:"namespace"`
	TaskQueue string `koanf:"task_queue"`
}

// Load loads configuration from environment variables with defaults.
//
// Environment variables:
//   - SERVER_HTTP_PORT, SERVER_SHUTDOWN_TIMEOUT
//   - OBSERVABILITY_ENABLE_TELEMETRY, OBSERVABILITY_SERVICE_NAME
//   - ORCHESTRATOR_MAX_ROUNDS, ORCHESTRATOR_STABILITY_THRESHOLD, ORCHESTRATOR_GOAL_DIVERGENCE_LIMIT
//   - MODEL_CLIENT_PROVIDER, ANTHROPIC_API_KEY, MODEL_CLIENT_MODEL, MODEL_CLIENT_BASE_URL
//   - TEMPORAL_ENABLED, TEMPORAL_HOST_PORT, TEMPORAL_NAMESPACE, TEMPORAL_TASK_QUEUE
func Load() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvInt("SERVER_HTTP_PORT", 9090),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Observability: ObservabilityConfig{
			EnableTelemetry: getEnvBool("OBSERVABILITY_ENABLE_TELEMETRY", false),
			ServiceName:     getEnvString("OBSERVABILITY_SERVICE_NAME", "convergence"),
		},
		Orchestrator: OrchestratorConfig{
			MaxRounds:           getEnvInt("ORCHESTRATOR_MAX_ROUNDS", 3),
			StabilityThreshold:  getEnvFloat("ORCHESTRATOR_STABILITY_THRESHOLD", 0.85),
			GoalDivergenceLimit: getEnvInt("ORCHESTRATOR_GOAL_DIVERGENCE_LIMIT", 2),
		},
		ModelClient: ModelClientConfig{
			Provider:       getEnvString("MODEL_CLIENT_PROVIDER", "anthropic"),
			APIKey:         Secret(getEnvString("ANTHROPIC_API_KEY", "")),
			Model:          getEnvString("MODEL_CLIENT_MODEL", "claude-sonnet-4-5"),
			BaseURL:        getEnvString("MODEL_CLIENT_BASE_URL", ""),
			RequestTimeout: getEnvDuration("MODEL_CLIENT_REQUEST_TIMEOUT", 60*time.Second),
			MaxRetries:     getEnvInt("MODEL_CLIENT_MAX_RETRIES", 2),
		},
		Temporal: TemporalConfig{
			Enabled:   getEnvBool("TEMPORAL_ENABLED", false),
			HostPort:  getEnvString("TEMPORAL_HOST_PORT", "localhost:7233"),
			Namespace: getEnvString("TEMPORAL_NAMESPACE", "default"),
			TaskQueue: getEnvString("TEMPORAL_TASK_QUEUE", "convergence"),
		},
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	if c.Orchestrator.MaxRounds < 1 {
		return fmt.Errorf("orchestrator.max_rounds must be >= 1, got %d", c.Orchestrator.MaxRounds)
	}
	if c.Orchestrator.StabilityThreshold < 0 || c.Orchestrator.StabilityThreshold > 1 {
		return fmt.Errorf("orchestrator.stability_threshold must be in [0,1], got %f", c.Orchestrator.StabilityThreshold)
	}
	if c.Orchestrator.GoalDivergenceLimit < 1 {
		return fmt.Errorf("orchestrator.goal_divergence_limit must be >= 1, got %d", c.Orchestrator.GoalDivergenceLimit)
	}

	if err := c.ModelClient.validate(); err != nil {
		return fmt.Errorf("model_client: %w", err)
	}

	if c.Temporal.Enabled {
		if c.Temporal.HostPort == "" {
			return errors.New("temporal.host_port is required when temporal is enabled")
		}
		if c.Temporal.TaskQueue == "" {
			return errors.New("temporal.task_queue is required when temporal is enabled")
		}
	}

	return nil
}

var validModelProviders = map[string]bool{
	"anthropic": true,
}

func (m ModelClientConfig) validate() error {
	if !validModelProviders[m.Provider] {
		return fmt.Errorf("unsupported provider %q", m.Provider)
	}
	if m.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	if m.MaxRetries < 0 {
		return errors.New("max_retries must be >= 0")
	}
	if m.BaseURL != "" {
		if err := validateBaseURL(m.BaseURL); err != nil {
			return err
		}
	}
	return nil
}

// validateBaseURL rejects non-HTTP schemes and hosts carrying shell
// metacharacters, guarding against base URLs sourced from untrusted
// environment variables being used to redirect or inject into outbound
// requests.
func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("base_url must include a host")
	}
	for _, bad := range []string{";", "\n", "\r", "$", "`", "|", "&"} {
		if strings.Contains(u.Host, bad) {
			return fmt.Errorf("base_url host contains disallowed character %q", bad)
		}
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
