// Package config defines the top-level configuration for the arbitrage
// scanner and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ARBSCAN_* environment
// variables.
type Config struct {
	Scanner  ScannerConfig  `toml:"scanner"`
	Gateway  GatewayConfig  `toml:"gateway"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// ScannerConfig holds the detection thresholds and scheduling parameters.
type ScannerConfig struct {
	// Markets to fetch each cycle.
	Markets []string `toml:"markets"`
	// Symbols compared across markets by the cross-market detector.
	Symbols []string `toml:"symbols"`
	// MinProfitPct is the inclusive net-profit threshold in percent.
	MinProfitPct float64 `toml:"min_profit_pct"`
	// MinConfidence drops scored opportunities below this floor (0-100).
	MinConfidence int `toml:"min_confidence"`
	// MinVolumeUSD is the 24h quote-volume floor for the cross-market detector.
	MinVolumeUSD float64 `toml:"min_volume_usd"`
	// IncludeWithdrawalFee adds the buy leg's base-asset withdrawal fee to
	// the cross-market fee estimate. The fee is always charged on the buy
	// leg's base asset.
	IncludeWithdrawalFee bool `toml:"include_withdrawal_fee"`
	// DefaultWithdrawalFee is the base-asset amount assumed when a fee
	// schedule has no entry for a currency.
	DefaultWithdrawalFee float64 `toml:"default_withdrawal_fee"`
	// CycleBaseCurrencies anchor the intra-market cycle search.
	CycleBaseCurrencies []string `toml:"cycle_base_currencies"`
	// CycleMinVolumeUSD is the per-leg quote-volume floor for cycles.
	CycleMinVolumeUSD float64 `toml:"cycle_min_volume_usd"`
	// ReferenceProfitPct saturates the profit component of the confidence score.
	ReferenceProfitPct float64 `toml:"reference_profit_pct"`
	// ReferenceVolumeUSD is the volume at which the confidence volume bonus
	// starts accruing.
	ReferenceVolumeUSD float64 `toml:"reference_volume_usd"`
	// ScanInterval is the sleep between cycles.
	ScanInterval duration `toml:"scan_interval"`
	// FetchTimeout bounds each market's fetch independently.
	FetchTimeout duration `toml:"fetch_timeout"`
	// CoolDown suppresses re-reporting an identity inside this window.
	CoolDown duration `toml:"cool_down"`
}

// GatewayConfig holds the market-data gateway endpoints.
type GatewayConfig struct {
	// Endpoints maps each market name to its REST base URL.
	Endpoints map[string]string `toml:"endpoints"`
	// UserAgent is sent on every request when non-empty.
	UserAgent string `toml:"user_agent"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for history
// archival.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls archival of aged opportunity history to S3.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// ServerConfig holds HTTP server parameters. An empty APIKey disables
// request authentication.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml. The confidence reference
// constants are tunables without a documented derivation; treat them as
// starting points, not laws.
func Defaults() Config {
	return Config{
		Scanner: ScannerConfig{
			Markets: []string{"binance", "kraken", "coinbase"},
			Symbols: []string{
				"BTC/USDT", "ETH/USDT", "BNB/USDT", "SOL/USDT", "XRP/USDT",
				"ADA/USDT", "AVAX/USDT", "DOT/USDT", "MATIC/USDT", "LINK/USDT",
			},
			MinProfitPct:         0.5,
			MinConfidence:        50,
			MinVolumeUSD:         1_000_000,
			IncludeWithdrawalFee: true,
			DefaultWithdrawalFee: 0.0005,
			CycleBaseCurrencies:  []string{"USDT", "BTC", "ETH"},
			CycleMinVolumeUSD:    500_000,
			ReferenceProfitPct:   2.0,
			ReferenceVolumeUSD:   1_000_000,
			ScanInterval:         duration{60 * time.Second},
			FetchTimeout:         duration{10 * time.Second},
			CoolDown:             duration{5 * time.Minute},
		},
		Gateway: GatewayConfig{
			Endpoints: map[string]string{},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "arbscan",
			User:          "arbscan",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "arbscan-history",
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"opportunity", "scan_failed"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":   true,
	"once":   true,
	"server": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found. Configuration problems
// are the only ones that halt the process: an invalid threshold would
// silently suppress or over-report results on every cycle.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, once, server, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	scans := c.Mode == "scan" || c.Mode == "once" || c.Mode == "full"

	// Scanner thresholds
	s := c.Scanner
	if scans {
		if len(s.Markets) == 0 {
			errs = append(errs, "scanner: markets must not be empty")
		}
		if len(s.Symbols) == 0 {
			errs = append(errs, "scanner: symbols must not be empty")
		}
		if len(s.CycleBaseCurrencies) == 0 {
			errs = append(errs, "scanner: cycle_base_currencies must not be empty")
		}
		for _, m := range s.Markets {
			if _, ok := c.Gateway.Endpoints[m]; !ok {
				errs = append(errs, fmt.Sprintf("gateway: no endpoint configured for market %q", m))
			}
		}
	}
	if s.MinProfitPct < 0 {
		errs = append(errs, fmt.Sprintf("scanner: min_profit_pct must not be negative, got %g", s.MinProfitPct))
	}
	if s.MinConfidence < 0 || s.MinConfidence > 100 {
		errs = append(errs, fmt.Sprintf("scanner: min_confidence must be 0-100, got %d", s.MinConfidence))
	}
	if s.MinVolumeUSD < 0 {
		errs = append(errs, "scanner: min_volume_usd must not be negative")
	}
	if s.CycleMinVolumeUSD < 0 {
		errs = append(errs, "scanner: cycle_min_volume_usd must not be negative")
	}
	if s.DefaultWithdrawalFee < 0 {
		errs = append(errs, "scanner: default_withdrawal_fee must not be negative")
	}
	if s.ReferenceProfitPct <= 0 {
		errs = append(errs, "scanner: reference_profit_pct must be > 0")
	}
	if s.ReferenceVolumeUSD <= 0 {
		errs = append(errs, "scanner: reference_volume_usd must be > 0")
	}
	if s.ScanInterval.Duration <= 0 {
		errs = append(errs, "scanner: scan_interval must be > 0")
	}
	if s.FetchTimeout.Duration <= 0 {
		errs = append(errs, "scanner: fetch_timeout must be > 0")
	}
	if s.CoolDown.Duration < 0 {
		errs = append(errs, "scanner: cool_down must not be negative")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 / archive
	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be > 0")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %d problem(s):\n  - %s", len(errs), strings.Join(errs, "\n  - "))
	}
	return nil
}
