package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/jxskiss/base62"
	"github.com/shopspring/decimal"
)

// Config holds every tunable of the maker console.
type Config struct {
	DaemonURL string `json:"daemon_url"` // Base URL of the maker daemon HTTP API, e.g. http://localhost:8001
	Username  string `json:"username"`   // Basic auth user expected by the daemon
	Password  string `json:"-"`          // Only ever read from the environment
	DBPath    string `json:"db_path"`    // Badger directory for the persisted dashboard state

	OfferSpread        float64 `json:"offer_spread"`         // Multiplier applied to the ask for the suggested offer price
	DefaultMinQuantity string  `json:"default_min_quantity"` // Initial min quantity field value (USD)
	DefaultMaxQuantity string  `json:"default_max_quantity"` // Initial max quantity field value (USD)

	BackendTimeoutMs      int `json:"backend_timeout_ms"`       // Liveness window for the daemon
	HealthCheckIntervalMs int `json:"health_check_interval_ms"` // How often /api/alive is polled
	RequestTimeoutSec     int `json:"request_timeout_sec"`      // Timeout for command requests
	FeedReconnectMinMs    int `json:"feed_reconnect_min_ms"`
	FeedReconnectMaxMs    int `json:"feed_reconnect_max_ms"`
	NotificationTTLSec    int `json:"notification_ttl_sec"` // How long a toast stays visible
	NotificationLimit     int `json:"notification_limit"`   // How many notifications the state keeps
	ReportWaitSec         int `json:"report_wait_sec"`      // Report mode: how long to wait for a full snapshot

	LogConfig LogConfig `json:"log"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level      string `json:"level"`       // "debug", "info", "warn", "error"
	Output     string `json:"output"`      // "console", "file", "both"
	File       string `json:"file"`        // Log file path
	MaxSize    int    `json:"max_size"`    // Megabytes per file before rotation
	MaxBackups int    `json:"max_backups"` // Rotated files to keep
	MaxAge     int    `json:"max_age"`     // Days to keep rotated files
	Compress   bool   `json:"compress"`    // Gzip rotated files
}

func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.BackendTimeoutMs) * time.Millisecond
}

func (c *Config) HealthCheckInterval() time.Duration {
	return time.Duration(c.HealthCheckIntervalMs) * time.Millisecond
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

func (c *Config) NotificationTTL() time.Duration {
	return time.Duration(c.NotificationTTLSec) * time.Second
}

func (c *Config) FeedReconnectMin() time.Duration {
	return time.Duration(c.FeedReconnectMinMs) * time.Millisecond
}

func (c *Config) FeedReconnectMax() time.Duration {
	return time.Duration(c.FeedReconnectMaxMs) * time.Millisecond
}

func (c *Config) ReportWait() time.Duration {
	return time.Duration(c.ReportWaitSec) * time.Second
}

// Order is the maker's currently active sell order as published on the feed.
type Order struct {
	ID                uuid.UUID       `json:"id"`
	TradingPair       string          `json:"trading_pair"`
	Position          Position        `json:"position"`
	Price             decimal.Decimal `json:"price"`
	MinQuantity       decimal.Decimal `json:"min_quantity"`
	MaxQuantity       decimal.Decimal `json:"max_quantity"`
	Leverage          int             `json:"leverage"`
	LiquidationPrice  decimal.Decimal `json:"liquidation_price"`
	CreationTimestamp int64           `json:"creation_timestamp"`
	TermInSecs        int64           `json:"term_in_secs"`
}

// WalletInfo is a balance snapshot of the maker's wallet.
type WalletInfo struct {
	Balance       decimal.Decimal `json:"balance"`
	Address       string          `json:"address"`
	LastUpdatedAt int64           `json:"last_updated_at"`
}

// PriceInfo is the latest reference quote.
type PriceInfo struct {
	Bid           decimal.Decimal `json:"bid"`
	Ask           decimal.Decimal `json:"ask"`
	LastUpdatedAt int64           `json:"last_updated_at"`
}

// CfdSellOrderPayload is the body of POST /api/order/sell.
type CfdSellOrderPayload struct {
	Price       float64 `json:"price"`
	MinQuantity float64 `json:"min_quantity"`
	MaxQuantity float64 `json:"max_quantity"`
}

// Position is the side of a CFD or order.
type Position string

const (
	Buy  Position = "Buy"
	Sell Position = "Sell"
)

// SuggestOfferPrice derives the offer price from the ask: ask * spread, rounded to cents.
func SuggestOfferPrice(ask decimal.Decimal, spread float64) decimal.Decimal {
	return ask.Mul(decimal.NewFromFloat(spread)).Round(2)
}

// ShortID is a compact, table-friendly rendering of an order id.
func ShortID(id uuid.UUID) string {
	s := base62.EncodeToString(id[:])
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
