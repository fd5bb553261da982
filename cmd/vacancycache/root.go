package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/amishk599/vacancycache/internal/adapter"
	"github.com/amishk599/vacancycache/internal/cache"
	"github.com/amishk599/vacancycache/internal/config"
	"github.com/amishk599/vacancycache/internal/model"
	"github.com/amishk599/vacancycache/internal/ratelimit"
	"github.com/amishk599/vacancycache/internal/retry"
	"github.com/amishk599/vacancycache/internal/secrets"
	"github.com/amishk599/vacancycache/internal/store"
	"github.com/amishk599/vacancycache/internal/vacancies"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "vacancycache",
	Short: "Workable vacancy cache",
	Long:  "vacancycache fetches published Workable vacancies, enriches them with full descriptions and serves the cached snapshot.",
	// Default to `start` so that running the binary with no args runs the daemon.
	RunE: runStart,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: VACANCYCACHE_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > VACANCYCACHE_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("VACANCYCACHE_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(w io.Writer, cfg config.LogConfig, dbg bool) *slog.Logger {
	level := parseLevel(cfg.Level)
	if dbg {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "tint":
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
		})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

// parseLevel maps the level names config.Load accepts; anything else is info.
func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// bootstrap loads config and sets up the logger. Config errors are logged
// with a plain text logger since the configured one does not exist yet.
func bootstrap() (*config.Config, *slog.Logger) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		setupLogger(os.Stdout, config.LogConfig{}, debug).Error("failed to load config", "error", err)
		os.Exit(1)
	}
	return cfg, setupLogger(os.Stdout, cfg.Log, debug)
}

// openStore opens the configured cache backend. The returned func releases it.
func openStore(ctx context.Context, cfg config.CacheConfig) (model.CacheStore, func(), error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return store.NewMemoryStore(cfg.TTL), func() {}, nil
	case config.BackendPostgres:
		s, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		s, err := store.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
}

// buildService wires the Workable client stack from config on top of st.
func buildService(cfg *config.Config, st model.CacheStore, logger *slog.Logger) *vacancies.Service {
	token, err := secrets.ResolveAccessToken(cfg.Workable.AccessToken, cfg.Workable.KeyringAccount)
	if err != nil {
		logger.Warn("access token lookup failed", "error", err)
	}

	policy := retry.DefaultPolicy()
	policy.MaxThrottleRetries = cfg.RateLimit.MaxRetries
	policy.ResetPadding = cfg.RateLimit.ResetPadding
	policy.TransientAttempts = cfg.Retry.TransientAttempts
	if cfg.Retry.BaseDelay > 0 {
		policy.BaseDelay = cfg.Retry.BaseDelay
	}

	opts := []adapter.Option{
		adapter.WithRetrier(retry.NewRetrier(policy, ratelimit.SystemClock{}, logger)),
		adapter.WithPacer(ratelimit.NewPacer(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)),
	}
	if cfg.Workable.BaseURL != "" {
		opts = append(opts, adapter.WithBaseURL(cfg.Workable.BaseURL))
	}

	vc := cache.New(st, cfg.Cache.Key, logger)
	return vacancies.New(vacancies.Options{
		Subdomain:      cfg.Workable.Subdomain,
		AccessToken:    token,
		Interval:       cfg.RefreshInterval,
		LockPath:       cfg.LockPath,
		HTTPClient:     &http.Client{Timeout: cfg.HTTP.Timeout},
		AdapterOptions: opts,
	}, vc, logger)
}
