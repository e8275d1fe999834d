package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type AppConfig struct {
	// ProxyBaseURL is the root of the provider proxy endpoints.
	ProxyBaseURL string `validate:"required,url"`

	// WikipediaURL is the root of the page summary REST API.
	WikipediaURL string `validate:"required,url"`

	HTTPTimeout time.Duration `validate:"gt=0"`

	// RatesBase is the currency amounts are converted from.
	RatesBase string `validate:"len=3,alpha"`

	// RefreshInterval controls how often idle sessions are pruned and rate
	// tables reloaded.
	RefreshInterval time.Duration `validate:"gte=0"`

	// Session retention.
	SessionMaxAge  time.Duration `validate:"gte=0"` // idle time before a session is dropped (0 = never)
	FeedMaxHistory int           `validate:"gte=0"` // max number of updates kept per session (0 = unlimited)
	FeedMaxAge     time.Duration `validate:"gte=0"` // max age of kept updates (0 = unlimited)

	// GoogleGeocodingAPIKey switches reverse geocoding to Google when set.
	GoogleGeocodingAPIKey string

	LogLevel string `validate:"oneof=trace debug info warn error"`
	Port     string `validate:"required,numeric"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.ProxyBaseURL = strings.TrimRight(getenvDefault("PROXY_BASE_URL", "http://localhost:8000/php"), "/")
	cfg.WikipediaURL = strings.TrimRight(getenvDefault("WIKIPEDIA_BASE_URL", "https://en.wikipedia.org/api/rest_v1"), "/")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "15m"); err != nil {
		return nil, err
	}
	if cfg.SessionMaxAge, err = getenvDuration("SESSION_MAX_AGE", "1h"); err != nil {
		return nil, err
	}
	if cfg.FeedMaxAge, err = getenvDuration("FEED_MAX_AGE", "30m"); err != nil {
		return nil, err
	}

	cfg.RatesBase = strings.ToUpper(getenvDefault("RATES_BASE", "USD"))
	cfg.FeedMaxHistory = getenvInt("FEED_MAX_HISTORY", 500)
	cfg.GoogleGeocodingAPIKey = os.Getenv("GOOGLE_GEOCODING_API_KEY")
	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))
	cfg.Port = getenvDefault("PORT", "8080")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
