package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Agent    AgentConfig    `yaml:"agent"`
	Comms    CommsConfig    `yaml:"comms"`
	Sessions SessionsConfig `yaml:"sessions"`
	NBA      NBAConfig      `yaml:"nba"`
	Odds     OddsConfig     `yaml:"odds"`
	Logger   LoggerConfig   `yaml:"logger"`
	Tracer   TracerConfig   `yaml:"tracer"`
}

// AgentConfig holds default agent settings.
type AgentConfig struct {
	Name              string             `yaml:"name"`
	Model             string             `yaml:"model"`
	Instructions      string             `yaml:"instructions"`
	Tendencies        map[string]float64 `yaml:"tendencies,omitempty"`
	Role              string             `yaml:"role"`
	SwallowCommErrors bool               `yaml:"swallow_comm_errors"`
}

// CommsConfig holds communication gateway settings.
type CommsConfig struct {
	Type           string               `yaml:"type"` // "ollama" or "openai"
	BaseURL        string               `yaml:"base_url"`
	APIKey         string               `yaml:"api_key,omitempty"`
	ConnTimeout    time.Duration        `yaml:"conn_timeout"`
	RespTimeout    time.Duration        `yaml:"resp_timeout"`
	Pool           PoolConfig           `yaml:"pool"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// PoolConfig holds HTTP connection pool settings for the gateway.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// CircuitBreakerConfig holds circuit breaker settings for the gateway.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// SessionsConfig holds session persistence and reaping settings.
type SessionsConfig struct {
	DataDir      string        `yaml:"data_dir"`
	ReapMaxAge   time.Duration `yaml:"reap_max_age"`
	ReapSchedule string        `yaml:"reap_schedule"` // cron expression; empty = no scheduled reaping
}

// NBAConfig holds NBA statistics source settings.
type NBAConfig struct {
	StatsBaseURL string        `yaml:"stats_base_url"`
	LiveBaseURL  string        `yaml:"live_base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	RateLimit    float64       `yaml:"rate_limit"` // requests per second
	RateBurst    int           `yaml:"rate_burst"`
}

// OddsConfig holds betting odds source settings.
type OddsConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// defaultDataDir returns the persistent data directory under $HOME/.pluto/data.
// Falls back to "./data" if $HOME cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".pluto", "data")
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			Name:              "Luminaria",
			Model:             "llama3.2",
			Instructions:      "You are a helpful assistant agent.",
			Role:              "crew",
			SwallowCommErrors: true,
		},
		Comms: CommsConfig{
			Type:        "ollama",
			BaseURL:     "http://localhost:11434",
			ConnTimeout: 5 * time.Second,
			RespTimeout: 300 * time.Second,
		},
		Sessions: SessionsConfig{
			DataDir:    filepath.Join(defaultDataDir(), "sessions"),
			ReapMaxAge: 24 * time.Hour,
		},
		NBA: NBAConfig{
			StatsBaseURL: "https://stats.nba.com",
			LiveBaseURL:  "https://cdn.nba.com",
			Timeout:      30 * time.Second,
			RateLimit:    1,
			RateBurst:    3,
		},
		Odds: OddsConfig{
			BaseURL: "https://api.the-odds-api.com/v4",
			Timeout: 15 * time.Second,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file and applies env var overrides.
// A missing file is not an error; defaults plus env apply.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides overlays PLUTO_* environment variables onto cfg.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PLUTO_MODEL"); v != "" {
		cfg.Agent.Model = v
	}
	if v := os.Getenv("PLUTO_COMMS_BASE_URL"); v != "" {
		cfg.Comms.BaseURL = v
	}
	if v := os.Getenv("PLUTO_COMMS_API_KEY"); v != "" {
		cfg.Comms.APIKey = v
	}
	if v := os.Getenv("PLUTO_ODDS_API_KEY"); v != "" {
		cfg.Odds.APIKey = v
	}
	if v := os.Getenv("PLUTO_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("PLUTO_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("PLUTO_SESSIONS_DATA_DIR"); v != "" {
		cfg.Sessions.DataDir = v
	}
}

// Validate checks cross-field constraints.
func Validate(cfg *Config) error {
	switch cfg.Comms.Type {
	case "ollama", "openai":
	default:
		return fmt.Errorf("comms.type must be \"ollama\" or \"openai\", got %q", cfg.Comms.Type)
	}
	for name, score := range cfg.Agent.Tendencies {
		if score < 0 || score > 1 {
			return fmt.Errorf("agent.tendencies[%s] = %v outside [0,1]", name, score)
		}
	}
	if cfg.NBA.RateLimit < 0 {
		return fmt.Errorf("nba.rate_limit must be >= 0, got %v", cfg.NBA.RateLimit)
	}
	switch cfg.Agent.Role {
	case "", "pilot", "crew":
	default:
		return fmt.Errorf("agent.role must be \"pilot\" or \"crew\", got %q", cfg.Agent.Role)
	}
	return nil
}
