// Package config loads the Skylight runtime configuration from an optional
// YAML file plus environment overrides. The movie credential is read from
// the environment, never from the file, so it stays out of checked-in
// config.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied before file and environment values.
const (
	DefaultListen         = ":8080"
	DefaultProvider       = "openai"
	DefaultMovieAPIKeyEnv = "OMDB_API_KEY"
	DefaultToolTimeout    = 15 * time.Second
)

// LogConfig tunes structured logging output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// Config is the runtime configuration.
type Config struct {
	// Listen is the HTTP listen address for serve.
	Listen string `yaml:"listen"`
	// Provider selects the model backend: "openai" or "anthropic".
	Provider string `yaml:"provider"`
	// Model optionally overrides the provider's default model id.
	Model string `yaml:"model"`
	// MovieAPIKeyEnv names the environment variable holding the OMDb
	// credential.
	MovieAPIKeyEnv string `yaml:"movie_api_key_env"`
	// ToolTimeout bounds each outbound tool call.
	ToolTimeout time.Duration `yaml:"tool_timeout"`
	// Log tunes structured logging.
	Log LogConfig `yaml:"log"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Listen:         DefaultListen,
		Provider:       DefaultProvider,
		MovieAPIKeyEnv: DefaultMovieAPIKeyEnv,
		ToolTimeout:    DefaultToolTimeout,
		Log:            LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads the configuration file (when path is non-empty) over the
// defaults, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SKYLIGHT_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("SKYLIGHT_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("SKYLIGHT_MODEL"); v != "" {
		cfg.Model = v
	}
}

func (c Config) validate() error {
	switch c.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.ToolTimeout <= 0 {
		return fmt.Errorf("tool_timeout must be positive, got %s", c.ToolTimeout)
	}
	return nil
}

// MovieAPIKey resolves the OMDb credential from the configured environment
// variable. An empty result at startup is a fatal configuration condition
// for deployments that serve movie queries.
func (c Config) MovieAPIKey() string {
	return os.Getenv(c.MovieAPIKeyEnv)
}
