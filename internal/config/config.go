// Package config provides configuration loading and validation for the server and CLI.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jonathan/career-roadmap/internal/llm"
)

// EnvPrefix prefixes every environment override. Nested keys use a double
// underscore, so ROADMAP_LLM__MODEL sets llm.model.
const EnvPrefix = "ROADMAP_"

// EnvConfigPath names the YAML file to load when no path is given
const EnvConfigPath = "ROADMAP_CONFIG"

// Config is the full service configuration
type Config struct {
	Server ServerConfig `koanf:"server"`
	Log    LogConfig    `koanf:"log"`
	LLM    LLMConfig    `koanf:"llm"`

	// BackendBaseURL selects the host for generation calls made by the CLI.
	// Empty means generate in-process.
	BackendBaseURL string `koanf:"backend_base_url"`

	Scoring   ScoringConfig   `koanf:"scoring"`
	Audio     AudioConfig     `koanf:"audio"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LogConfig selects the zap encoder and level
type LogConfig struct {
	Mode  string `koanf:"mode"` // development or production
	Level string `koanf:"level"`
}

// LLMConfig configures the structured-output provider
type LLMConfig struct {
	Provider    string        `koanf:"provider"`
	Model       string        `koanf:"model"`
	APIKey      string        `koanf:"api_key"`
	BaseURL     string        `koanf:"base_url"`
	Timeout     time.Duration `koanf:"timeout"`
	Temperature float32       `koanf:"temperature"`
}

// ScoringConfig points at the pronunciation-scoring backend
type ScoringConfig struct {
	BaseURL  string        `koanf:"base_url"`
	Path     string        `koanf:"path"`
	Language string        `koanf:"language"`
	Timeout  time.Duration `koanf:"timeout"`
}

// AudioConfig configures capture and normalization
type AudioConfig struct {
	FFmpegBinary   string   `koanf:"ffmpeg_binary"`
	CaptureCommand []string `koanf:"capture_command"`
	MaxUploadBytes int64    `koanf:"max_upload_bytes"`
}

// DefaultCaptureCommand records mono 16 kHz WAV from the default ALSA device
var DefaultCaptureCommand = []string{"arecord", "-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "wav"}

// Capture returns the configured capture command or DefaultCaptureCommand
func (a AudioConfig) Capture() []string {
	if len(a.CaptureCommand) == 0 {
		return DefaultCaptureCommand
	}
	return a.CaptureCommand
}

// RateLimitConfig sets the per-client token bucket
type RateLimitConfig struct {
	Enabled           bool `koanf:"enabled"`
	RequestsPerMinute int  `koanf:"requests_per_minute"`
	Burst             int  `koanf:"burst"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Log: LogConfig{Mode: "development", Level: "info"},
		LLM: LLMConfig{
			Provider:    string(llm.ProviderOpenAI),
			Timeout:     llm.DefaultTimeout,
			Temperature: 0.2,
		},
		Scoring: ScoringConfig{
			BaseURL:  "http://localhost:3001",
			Path:     "/dev/fluencyChecker",
			Language: "en",
			Timeout:  60 * time.Second,
		},
		Audio: AudioConfig{
			FFmpegBinary:   "ffmpeg",
			MaxUploadBytes: 20 << 20,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 10,
			Burst:             5,
		},
	}
}

// Load layers defaults, then the YAML file at path (or $ROADMAP_CONFIG), then
// ROADMAP_* environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.applyKeyFallback()
	return cfg, nil
}

// envKey maps ROADMAP_SCORING__BASE_URL to scoring.base_url
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// applyKeyFallback reads the provider's conventional API key variable
func (c *Config) applyKeyFallback() {
	if c.LLM.APIKey != "" {
		return
	}
	switch llm.Provider(c.LLM.Provider) {
	case llm.ProviderGemini:
		c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	default:
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// Validate checks the configuration for values that cannot work. A missing
// API key is reported by RequireAPIKey, since only generation needs it.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be non-negative"))
	}

	switch strings.ToLower(c.Log.Mode) {
	case "", "dev", "development", "prod", "production":
	default:
		errs = append(errs, fmt.Errorf("log.mode %q must be development or production", c.Log.Mode))
	}

	if _, err := llm.ParseProvider(c.LLM.Provider); err != nil {
		errs = append(errs, fmt.Errorf("llm.provider: %w", err))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("llm.timeout must be positive"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, errors.New("llm.temperature must be between 0 and 2"))
	}
	if c.LLM.BaseURL != "" {
		if err := checkURL(c.LLM.BaseURL); err != nil {
			errs = append(errs, fmt.Errorf("llm.base_url: %w", err))
		}
	}

	if c.BackendBaseURL != "" {
		if err := checkURL(c.BackendBaseURL); err != nil {
			errs = append(errs, fmt.Errorf("backend_base_url: %w", err))
		}
	}
	if err := checkURL(c.Scoring.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("scoring.base_url: %w", err))
	}
	if c.Scoring.Timeout <= 0 {
		errs = append(errs, errors.New("scoring.timeout must be positive"))
	}

	if c.Audio.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("audio.max_upload_bytes must be positive"))
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerMinute <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("ratelimit.requests_per_minute and ratelimit.burst must be positive when enabled"))
	}

	return errors.Join(errs...)
}

// RequireAPIKey reports a missing key for the configured provider
func (c *Config) RequireAPIKey() error {
	if c.LLM.APIKey != "" {
		return nil
	}
	if llm.Provider(c.LLM.Provider) == llm.ProviderGemini {
		return errors.New("GEMINI_API_KEY (or llm.api_key) is required")
	}
	return errors.New("OPENAI_API_KEY (or llm.api_key) is required")
}

// LLMClientConfig converts the llm section to the client configuration
func (c *Config) LLMClientConfig() (*llm.Config, error) {
	provider, err := llm.ParseProvider(c.LLM.Provider)
	if err != nil {
		return nil, err
	}
	cfg := llm.DefaultConfig(provider)
	if c.LLM.Model != "" {
		cfg = cfg.WithModel(llm.TierStandard, c.LLM.Model)
	}
	cfg.Temperature = c.LLM.Temperature
	if c.LLM.BaseURL != "" {
		cfg.BaseURL = c.LLM.BaseURL
	}
	if c.LLM.Timeout > 0 {
		cfg.Timeout = c.LLM.Timeout
	}
	return cfg, nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must be an http(s) URL", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}
