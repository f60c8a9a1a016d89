package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/tutorkit/campus-gateway/internal/app"
	"github.com/tutorkit/campus-gateway/internal/gemini"
	"github.com/tutorkit/campus-gateway/internal/util"
	"github.com/tutorkit/campus-gateway/internal/version"
	"github.com/tutorkit/campus-gateway/pkg/campus"
	"github.com/tutorkit/campus-gateway/pkg/retry"
)

// Placeholder keys shipped in sample .env files must not count as credentials.
const apiKeyPlaceholder = "YOUR_GEMINI_API_KEY"

func main() {
	os.Exit(run(context.Background(), os.Args[1:]))
}

func run(ctx context.Context, args []string) int {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := loadConfigFromEnv()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", util.RedactSecrets(err.Error()))
		return 2
	}

	fs := flag.NewFlagSet("campusd", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address (env: CAMPUSD_ADDR)")
	fs.StringVar(&cfg.Model, "gemini-model", cfg.Model, "Gemini model name (env: GEMINI_MODEL)")
	fs.StringVar(&cfg.BaseURL, "gemini-base-url", cfg.BaseURL, "Gemini API base URL override (env: GEMINI_BASE_URL)")
	fs.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Max retries on rate limiting (env: MAX_RETRIES)")
	fs.DurationVar(&cfg.InitialDelay, "initial-delay", cfg.InitialDelay, "Initial retry backoff delay (env: INITIAL_DELAY)")
	fs.Float64Var(&cfg.RateLimitRPS, "rate-limit-rps", cfg.RateLimitRPS, "Outbound request rate limit, 0 disables (env: RATE_LIMIT_RPS)")
	fs.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "Live-result cache TTL, 0 disables (env: CACHE_TTL)")
	fs.IntVar(&cfg.CacheSize, "cache-size", cfg.CacheSize, "Live-result cache size (env: CACHE_SIZE)")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug logging (env: DEBUG)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))
	slog.SetDefault(logger)

	demo := !usableCredential(cfg.APIKey)

	var gen campus.Generator
	if demo {
		logger.Warn("no usable GEMINI_API_KEY, serving fallback data only (demo mode)")
	} else {
		client, err := gemini.New(ctx, gemini.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "gemini config error: %s\n", util.RedactSecrets(err.Error()))
			return 2
		}
		gen = client
	}

	metrics := campus.NewMetrics()
	catalog := campus.New(gen, campus.Options{
		Demo: demo,
		Retry: retry.Policy{
			MaxRetries:   cfg.MaxRetries,
			InitialDelay: cfg.InitialDelay,
			Multiplier:   2,
		},
		Logger:       logger,
		RateLimitRPS: cfg.RateLimitRPS,
		CacheSize:    cfg.CacheSize,
		CacheTTL:     cfg.CacheTTL,
		Metrics:      metrics,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.NewServer(catalog, logger, metrics).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("campusd listening",
			"addr", cfg.Addr,
			"version", version.Current,
			"mode", map[bool]string{true: "demo", false: "live"}[demo],
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", util.RedactSecrets(err.Error()))
			return 1
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
			return 1
		}
	}
	return 0
}

// usableCredential applies the demo-mode gate: the key must be present, not
// the sample placeholder, and long enough to possibly be real. Decided once
// at startup; never re-evaluated per call.
func usableCredential(apiKey string) bool {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" || apiKey == apiKeyPlaceholder {
		return false
	}
	return len(apiKey) >= 5
}

type config struct {
	Addr    string
	APIKey  string
	Model   string
	BaseURL string

	MaxRetries   int
	InitialDelay time.Duration
	RateLimitRPS float64
	CacheTTL     time.Duration
	CacheSize    int
	Debug        bool
}

func loadConfigFromEnv() (config, error) {
	maxRetries, err := envInt("MAX_RETRIES", 3)
	if err != nil {
		return config{}, err
	}
	initialDelay, err := envDuration("INITIAL_DELAY", 2*time.Second)
	if err != nil {
		return config{}, err
	}
	rateLimitRPS, err := envFloat("RATE_LIMIT_RPS", 0)
	if err != nil {
		return config{}, err
	}
	cacheTTL, err := envDuration("CACHE_TTL", 10*time.Minute)
	if err != nil {
		return config{}, err
	}
	cacheSize, err := envInt("CACHE_SIZE", 256)
	if err != nil {
		return config{}, err
	}
	debug, err := envBool("DEBUG")
	if err != nil {
		return config{}, err
	}

	return config{
		Addr:         envString("CAMPUSD_ADDR", ":8080"),
		APIKey:       strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:        envString("GEMINI_MODEL", "gemini-2.5-flash"),
		BaseURL:      strings.TrimSpace(os.Getenv("GEMINI_BASE_URL")),
		MaxRetries:   maxRetries,
		InitialDelay: initialDelay,
		RateLimitRPS: rateLimitRPS,
		CacheTTL:     cacheTTL,
		CacheSize:    cacheSize,
		Debug:        debug,
	}, nil
}

func envString(varName string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(varName string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envFloat(varName string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envDuration(varName string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envBool(varName string) (bool, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return false, nil
	}
	out, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}
