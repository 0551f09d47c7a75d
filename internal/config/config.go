package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"

	"maker-console/internal/models"

	"github.com/shopspring/decimal"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Environment variables that override the file.
const (
	EnvDaemonURL = "MAKER_DAEMON_URL"
	EnvUsername  = "MAKER_USERNAME"
	EnvPassword  = "MAKER_PASSWORD"
)

// Default returns the configuration used for any key the file leaves out.
func Default() *models.Config {
	return &models.Config{
		DaemonURL:             "http://localhost:8001",
		Username:              "maker",
		DBPath:                "data/maker-console",
		OfferSpread:           1.01,
		DefaultMinQuantity:    "10",
		DefaultMaxQuantity:    "100",
		BackendTimeoutMs:      5000,
		HealthCheckIntervalMs: 5000,
		RequestTimeoutSec:     10,
		FeedReconnectMinMs:    500,
		FeedReconnectMaxMs:    30000,
		NotificationTTLSec:    5,
		NotificationLimit:     5,
		ReportWaitSec:         10,
		LogConfig: models.LogConfig{
			Level:      "info",
			Output:     "file",
			File:       "logs/maker-console.log",
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     14,
		},
	}
}

// LoadConfig reads the JSON file at path over the defaults, applies environment
// overrides and validates the result. A missing file is not an error.
func LoadConfig(path string) (*models.Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	default:
		return nil, err
	}

	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *models.Config) {
	if v := os.Getenv(EnvDaemonURL); v != "" {
		cfg.DaemonURL = v
	}
	if v := os.Getenv(EnvUsername); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		cfg.Password = v
	}
}

// Validate checks the values the rest of the program relies on.
func Validate(cfg *models.Config) error {
	u, err := url.Parse(cfg.DaemonURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: daemon_url %q must be an http(s) URL", ErrInvalidConfig, cfg.DaemonURL)
	}
	if cfg.OfferSpread <= 0 {
		return fmt.Errorf("%w: offer_spread must be positive, got %v", ErrInvalidConfig, cfg.OfferSpread)
	}
	for name, v := range map[string]string{
		"default_min_quantity": cfg.DefaultMinQuantity,
		"default_max_quantity": cfg.DefaultMaxQuantity,
	} {
		if _, err := decimal.NewFromString(v); err != nil {
			return fmt.Errorf("%w: %s %q is not a number", ErrInvalidConfig, name, v)
		}
	}
	if cfg.BackendTimeoutMs <= 0 || cfg.HealthCheckIntervalMs <= 0 {
		return fmt.Errorf("%w: backend_timeout_ms and health_check_interval_ms must be positive", ErrInvalidConfig)
	}
	if cfg.FeedReconnectMinMs <= 0 || cfg.FeedReconnectMaxMs < cfg.FeedReconnectMinMs {
		return fmt.Errorf("%w: feed reconnect bounds %d..%d", ErrInvalidConfig, cfg.FeedReconnectMinMs, cfg.FeedReconnectMaxMs)
	}
	if cfg.RequestTimeoutSec <= 0 {
		return fmt.Errorf("%w: request_timeout_sec must be positive", ErrInvalidConfig)
	}
	if cfg.NotificationLimit <= 0 {
		return fmt.Errorf("%w: notification_limit must be positive", ErrInvalidConfig)
	}
	return nil
}
