package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the vacancy cache.
type Config struct {
	RefreshInterval time.Duration
	Workable        WorkableConfig
	HTTP            HTTPConfig
	RateLimit       RateLimitConfig
	Retry           RetryConfig
	Cache           CacheConfig
	Server          ServerConfig
	Log             LogConfig
	LockPath        string // cross-process refresh lock; empty disables it
}

// WorkableConfig identifies the Workable account. Empty Subdomain or
// AccessToken leaves the service inert rather than failing Load.
type WorkableConfig struct {
	Subdomain      string
	AccessToken    string // expanded from env var by Load
	KeyringAccount string // OS keyring account holding the token, used when AccessToken is empty
	BaseURL        string // overrides https://{subdomain}.workable.com/spi/v3
}

// Configured reports whether both subdomain and token are present.
func (w WorkableConfig) Configured() bool {
	return w.Subdomain != "" && w.AccessToken != ""
}

// HTTPConfig controls the outbound HTTP client.
type HTTPConfig struct {
	Timeout time.Duration
}

// RateLimitConfig controls how upstream rate limits are honored.
type RateLimitConfig struct {
	ResetPadding      time.Duration // added to X-Rate-Limit-Reset before retrying
	MaxRetries        int           // throttled re-issues per request
	RequestsPerSecond float64       // proactive pacing; 0 disables
	Burst             int
}

// RetryConfig controls retries of transient failures. Disabled by default.
type RetryConfig struct {
	TransientAttempts int
	BaseDelay         time.Duration
}

// CacheConfig selects and configures the snapshot store.
type CacheConfig struct {
	Backend     string        // "sqlite", "memory" or "postgres"
	Path        string        // sqlite file
	DatabaseURL string        // postgres url
	Key         string        // cache key for the snapshot
	TTL         time.Duration // memory backend only; 0 keeps entries until overwritten
}

// ServerConfig controls the read API.
type ServerConfig struct {
	Addr string
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "text", "json" or "tint"
}

const (
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"

	defaultRefreshInterval = time.Hour
	defaultCacheKey        = "workable_vacancies"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	RefreshInterval string             `yaml:"refresh_interval"`
	Workable        rawWorkableConfig  `yaml:"workable"`
	HTTP            rawHTTPConfig      `yaml:"http"`
	RateLimit       rawRateLimitConfig `yaml:"rate_limit"`
	Retry           rawRetryConfig     `yaml:"retry"`
	Cache           rawCacheConfig     `yaml:"cache"`
	Server          ServerConfig       `yaml:"server"`
	Log             rawLogConfig       `yaml:"log"`
	LockPath        *string            `yaml:"lock_path"`
}

type rawWorkableConfig struct {
	Subdomain      string `yaml:"subdomain"`
	AccessToken    string `yaml:"access_token"`
	KeyringAccount string `yaml:"keyring_account"`
	BaseURL        string `yaml:"base_url"`
}

type rawHTTPConfig struct {
	Timeout string `yaml:"timeout"`
}

type rawRateLimitConfig struct {
	ResetPadding      string  `yaml:"reset_padding"`
	MaxRetries        *int    `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type rawRetryConfig struct {
	TransientAttempts int    `yaml:"transient_attempts"`
	BaseDelay         string `yaml:"base_delay"`
}

type rawCacheConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	DatabaseURL string `yaml:"database_url"`
	Key         string `yaml:"key"`
	TTL         string `yaml:"ttl"`
}

type rawLogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
// A .env file next to the config, if present, is loaded into the environment
// before ${VAR} references are expanded. Variables already set take precedence.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envPath, err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	interval, err := parseDuration("refresh_interval", raw.RefreshInterval, defaultRefreshInterval)
	if err != nil {
		return nil, err
	}
	timeout, err := parseDuration("http.timeout", raw.HTTP.Timeout, 30*time.Second)
	if err != nil {
		return nil, err
	}
	padding, err := parseDuration("rate_limit.reset_padding", raw.RateLimit.ResetPadding, 3*time.Second)
	if err != nil {
		return nil, err
	}
	baseDelay, err := parseDuration("retry.base_delay", raw.Retry.BaseDelay, 5*time.Second)
	if err != nil {
		return nil, err
	}
	ttl, err := parseDuration("cache.ttl", raw.Cache.TTL, 0)
	if err != nil {
		return nil, err
	}

	maxRetries := 5
	if raw.RateLimit.MaxRetries != nil {
		maxRetries = *raw.RateLimit.MaxRetries
	}

	burst := raw.RateLimit.Burst
	if burst == 0 {
		burst = 1
	}

	backend := raw.Cache.Backend
	if backend == "" {
		backend = BackendSQLite
	}
	cachePath := raw.Cache.Path
	if cachePath == "" {
		cachePath = "vacancies.db"
	}
	cacheKey := raw.Cache.Key
	if cacheKey == "" {
		cacheKey = defaultCacheKey
	}

	addr := raw.Server.Addr
	if addr == "" {
		addr = ":8080"
	}

	lockPath := "vacancies.lock"
	if raw.LockPath != nil {
		lockPath = *raw.LockPath
	}

	logLevel := raw.Log.Level
	if logLevel == "" {
		logLevel = "info"
	}
	logFormat := raw.Log.Format
	if logFormat == "" {
		logFormat = "text"
	}

	cfg := &Config{
		RefreshInterval: interval,
		Workable: WorkableConfig{
			Subdomain:      raw.Workable.Subdomain,
			AccessToken:    raw.Workable.AccessToken,
			KeyringAccount: raw.Workable.KeyringAccount,
			BaseURL:        raw.Workable.BaseURL,
		},
		HTTP: HTTPConfig{Timeout: timeout},
		RateLimit: RateLimitConfig{
			ResetPadding:      padding,
			MaxRetries:        maxRetries,
			RequestsPerSecond: raw.RateLimit.RequestsPerSecond,
			Burst:             burst,
		},
		Retry: RetryConfig{
			TransientAttempts: raw.Retry.TransientAttempts,
			BaseDelay:         baseDelay,
		},
		Cache: CacheConfig{
			Backend:     backend,
			Path:        cachePath,
			DatabaseURL: raw.Cache.DatabaseURL,
			Key:         cacheKey,
			TTL:         ttl,
		},
		Server:   ServerConfig{Addr: addr},
		Log:      LogConfig{Level: logLevel, Format: logFormat},
		LockPath: lockPath,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	return d, nil
}

func validate(cfg *Config) error {
	if cfg.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be positive, got %v", cfg.RefreshInterval)
	}
	if cfg.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must not be negative, got %v", cfg.HTTP.Timeout)
	}
	if cfg.RateLimit.ResetPadding < 0 {
		return fmt.Errorf("rate_limit.reset_padding must not be negative, got %v", cfg.RateLimit.ResetPadding)
	}
	if cfg.RateLimit.MaxRetries < 0 {
		return fmt.Errorf("rate_limit.max_retries must not be negative, got %d", cfg.RateLimit.MaxRetries)
	}
	if cfg.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limit.requests_per_second must not be negative, got %v", cfg.RateLimit.RequestsPerSecond)
	}
	if cfg.Retry.TransientAttempts < 0 {
		return fmt.Errorf("retry.transient_attempts must not be negative, got %d", cfg.Retry.TransientAttempts)
	}

	switch cfg.Cache.Backend {
	case BackendSQLite, BackendMemory:
	case BackendPostgres:
		if cfg.Cache.DatabaseURL == "" {
			return fmt.Errorf("cache.database_url is required when cache.backend is %q", BackendPostgres)
		}
	default:
		return fmt.Errorf("cache.backend must be one of sqlite, memory, postgres; got %q", cfg.Cache.Backend)
	}

	switch cfg.Log.Format {
	case "text", "json", "tint":
	default:
		return fmt.Errorf("log.format must be one of text, json, tint; got %q", cfg.Log.Format)
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", cfg.Log.Level)
	}

	return nil
}
