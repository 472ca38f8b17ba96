package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains all runtime settings for the session service.
type Config struct {
	BindAddr         string        `env:"APP_BIND_ADDR" envDefault:":8080"`
	ShutdownTimeout  time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	MetricsNamespace string        `env:"APP_METRICS_NAMESPACE" envDefault:"ironhand"`
	AllowAnyOrigin   bool          `env:"APP_ALLOW_ANY_ORIGIN" envDefault:"false"`
	LogLevel         string        `env:"APP_LOG_LEVEL" envDefault:"info"`
	LogFormat        string        `env:"APP_LOG_FORMAT" envDefault:"json"`

	// DatabaseURL selects storage: empty for in-process memory, a postgres://
	// URL, or a sqlite:/file: path.
	DatabaseURL string `env:"DATABASE_URL"`

	GeneratorProvider   string        `env:"GENERATOR_PROVIDER" envDefault:"auto"`
	GoogleAPIKey        string        `env:"GOOGLE_API_KEY"`
	GeminiModel         string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	GeneratorHTTPURL    string        `env:"GENERATOR_HTTP_URL"`
	GeneratorTimeout    time.Duration `env:"GENERATOR_TIMEOUT" envDefault:"30s"`
	GeneratorMaxRetries int           `env:"GENERATOR_MAX_RETRIES" envDefault:"2"`
	GeneratorErrorLog   string        `env:"GENERATOR_ERROR_LOG" envDefault:"generator_error.log"`

	WSWriteTimeout time.Duration `env:"WS_WRITE_TIMEOUT" envDefault:"10s"`
	WSIdleTimeout  time.Duration `env:"WS_IDLE_TIMEOUT" envDefault:"120s"`
}

// Load reads environment variables, applies defaults and validates the
// result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.BindAddr = strings.TrimSpace(c.BindAddr)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.GeneratorProvider = strings.ToLower(strings.TrimSpace(c.GeneratorProvider))
	c.GoogleAPIKey = strings.TrimSpace(c.GoogleAPIKey)
	c.GeminiModel = strings.TrimSpace(c.GeminiModel)
	c.GeneratorHTTPURL = strings.TrimSpace(c.GeneratorHTTPURL)
	c.GeneratorErrorLog = strings.TrimSpace(c.GeneratorErrorLog)
}

func (c Config) Validate() error {
	if c.BindAddr == "" {
		return fmt.Errorf("APP_BIND_ADDR must not be empty")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("APP_SHUTDOWN_TIMEOUT must be positive")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("APP_LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	switch c.GeneratorProvider {
	case "auto", "gemini", "http", "mock":
	default:
		return fmt.Errorf("GENERATOR_PROVIDER must be one of auto, gemini, http, mock, got %q", c.GeneratorProvider)
	}
	if c.GeneratorProvider == "gemini" && c.GoogleAPIKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY is required when GENERATOR_PROVIDER=gemini")
	}
	if c.GeneratorProvider == "http" && c.GeneratorHTTPURL == "" {
		return fmt.Errorf("GENERATOR_HTTP_URL is required when GENERATOR_PROVIDER=http")
	}
	if c.GeneratorTimeout < time.Second {
		return fmt.Errorf("GENERATOR_TIMEOUT must be at least 1s")
	}
	if c.GeneratorMaxRetries < 0 || c.GeneratorMaxRetries > 10 {
		return fmt.Errorf("GENERATOR_MAX_RETRIES must be between 0 and 10")
	}
	if c.WSWriteTimeout <= 0 {
		return fmt.Errorf("WS_WRITE_TIMEOUT must be positive")
	}
	if c.WSIdleTimeout < 5*time.Second {
		return fmt.Errorf("WS_IDLE_TIMEOUT must be at least 5s")
	}
	return nil
}
