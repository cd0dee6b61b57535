package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "configs/config.yaml"

// Rate limit backends.
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendValkey = "valkey"
)

// Routes that call the model. The LLM client owns their single extra attempt,
// so HTTP replay must never cover them.
const (
	SummariesRoute       = "/api/v1/summaries"
	SummariesStreamRoute = "/api/v1/summaries/stream"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	LLM        LLMConfig        `yaml:"llm"`
	StudyGuide StudyGuideConfig `yaml:"studyGuide"`
	Valkey     ValkeyConfig     `yaml:"valkey"`
	LogLevel   string           `yaml:"logLevel"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
	Retry        RetryConfig     `yaml:"retry"`
	CORSOrigins  []string        `yaml:"corsOrigins"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool   `yaml:"enabled"`
	RequestsPerMinute int    `yaml:"requestsPerMinute"`
	Burst             int    `yaml:"burst"`
	Backend           string `yaml:"backend"`
}

// RetryConfig configures best-effort retries for idempotent requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// LLMConfig contains OpenRouter settings.
type LLMConfig struct {
	APIKey        string        `yaml:"apiKey"`
	BaseURL       string        `yaml:"baseUrl"`
	Model         string        `yaml:"model"`
	Timeout       time.Duration `yaml:"timeout"`
	RetryAttempts int           `yaml:"retryAttempts"`
	Referer       string        `yaml:"referer"`
	AppName       string        `yaml:"appName"`
}

// StudyGuideConfig controls prompt and upload defaults.
type StudyGuideConfig struct {
	DefaultStyle   string `yaml:"defaultStyle"`
	MaxUploadBytes int64  `yaml:"maxUploadBytes"`
}

// ValkeyConfig contains connection information for the shared rate limit store.
type ValkeyConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads configuration from a YAML file and environment variables. An
// empty path falls back to CONFIG_PATH and then configs/config.yaml.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat(defaultConfigPath); err == nil {
		if err := hydrateFromFile(cfg, defaultConfigPath); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_CORS_ORIGINS"); v != "" {
		cfg.HTTP.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.LLM.Timeout = parsed
		}
	}
	if v := os.Getenv("LLM_RETRY_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.LLM.RetryAttempts = parsed
		}
	}
	if v := os.Getenv("LLM_REFERER"); v != "" {
		cfg.LLM.Referer = v
	}
	if v := os.Getenv("STUDY_DEFAULT_STYLE"); v != "" {
		cfg.StudyGuide.DefaultStyle = v
	}
	if v := os.Getenv("STUDY_MAX_UPLOAD_BYTES"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.StudyGuide.MaxUploadBytes = parsed
		}
	}
	if v := os.Getenv("VALKEY_ADDR"); v != "" {
		cfg.Valkey.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BACKEND"); v != "" {
		cfg.HTTP.RateLimit.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("HTTP_RETRY_ENABLED"); v != "" {
		cfg.HTTP.Retry.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RETRY_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Retry.MaxAttempts = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_BASE_BACKOFF"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.Retry.BaseBackoff = parsed
		}
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 30,
				Burst:             10,
				Backend:           RateLimitBackendMemory,
			},
			Retry: RetryConfig{
				Enabled:     false,
				MaxAttempts: 2,
				BaseBackoff: 150 * time.Millisecond,
				Exclude: []string{
					SummariesRoute,
					SummariesStreamRoute,
				},
			},
			CORSOrigins: []string{"http://localhost:5173"},
		},
		LLM: LLMConfig{
			BaseURL:       "https://openrouter.ai/api/v1",
			Model:         "openai/gpt-3.5-turbo",
			Timeout:       30 * time.Second,
			RetryAttempts: 1,
			AppName:       "GistFlow",
		},
		StudyGuide: StudyGuideConfig{
			DefaultStyle:   "concise",
			MaxUploadBytes: 1 << 20,
		},
		LogLevel: "info",
	}
}

// Validate ensures the configuration is safe to use. A missing API key is
// allowed; requests then fail with missing_credentials.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		return errors.New("llm.baseUrl cannot be empty")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model cannot be empty")
	}
	if c.LLM.Timeout <= 0 {
		return errors.New("llm.timeout must be positive")
	}
	if c.LLM.RetryAttempts < 1 || c.LLM.RetryAttempts > 2 {
		return errors.New("llm.retryAttempts must be 1 or 2")
	}
	if strings.TrimSpace(c.StudyGuide.DefaultStyle) == "" {
		return errors.New("studyGuide.defaultStyle cannot be empty")
	}
	if c.StudyGuide.MaxUploadBytes <= 0 {
		return errors.New("studyGuide.maxUploadBytes must be positive")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
		switch c.HTTP.RateLimit.Backend {
		case RateLimitBackendMemory:
		case RateLimitBackendValkey:
			if strings.TrimSpace(c.Valkey.Addr) == "" {
				return errors.New("valkey.addr cannot be empty when the valkey rate limit backend is selected")
			}
		default:
			return fmt.Errorf("http.rateLimit.backend %q is not supported", c.HTTP.RateLimit.Backend)
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
		for _, route := range []string{SummariesRoute, SummariesStreamRoute} {
			if !slices.Contains(c.HTTP.Retry.Exclude, route) {
				return fmt.Errorf("http.retry.exclude must contain %s", route)
			}
		}
	}
	return nil
}
