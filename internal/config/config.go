// Package config defines the configuration for the arbitrage engine and
// provides validation helpers.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by CROSSARB_* environment
// variables.
type Config struct {
	Symbols    []string         `toml:"symbols"`
	Sources    SourcesConfig    `toml:"sources"`
	RateLimit  RateLimitConfig  `toml:"rate_limit"`
	Cache      CacheConfig      `toml:"cache"`
	Breaker    BreakerConfig    `toml:"breaker"`
	Retry      RetryConfig      `toml:"retry"`
	Aggregator AggregatorConfig `toml:"aggregator"`
	Arbitrage  ArbitrageConfig  `toml:"arbitrage"`
	Scanner    ScannerConfig    `toml:"scanner"`
	Redis      RedisConfig      `toml:"redis"`
	Postgres   PostgresConfig   `toml:"postgres"`
	S3         S3Config         `toml:"s3"`
	Notify     NotifyConfig     `toml:"notify"`
	Server     ServerConfig     `toml:"server"`
	LogLevel   string           `toml:"log_level"`
}

// SourcesConfig selects which price sources are polled.
type SourcesConfig struct {
	Enabled []string `toml:"enabled"`
	// BinanceStream switches the Binance adapter to the bookTicker
	// websocket feed instead of REST polling.
	BinanceStream bool     `toml:"binance_stream"`
	HTTPTimeout   duration `toml:"http_timeout"`
}

// RateLimitConfig sets the minimum inter-request interval per source.
type RateLimitConfig struct {
	// Mode is "wait" (queue up to the interval) or "reject" (fail fast).
	Mode            string              `toml:"mode"`
	DefaultInterval duration            `toml:"default_interval"`
	PerSource       map[string]duration `toml:"per_source"`
}

// Interval returns the configured interval for a source, falling back to the
// default.
func (c RateLimitConfig) Interval(source string) time.Duration {
	if d, ok := c.PerSource[source]; ok {
		return d.Duration
	}
	return c.DefaultInterval.Duration
}

// CacheConfig tunes the quote cache.
type CacheConfig struct {
	TTL duration `toml:"ttl"`
}

// BreakerConfig tunes the per-source circuit breaker.
type BreakerConfig struct {
	FailureThreshold int      `toml:"failure_threshold"`
	RecoveryTimeout  duration `toml:"recovery_timeout"`
}

// RetryConfig tunes the bounded retry loop for transient source errors.
type RetryConfig struct {
	MaxAttempts  int      `toml:"max_attempts"`
	BaseDelay    duration `toml:"base_delay"`
	Multiplier   float64  `toml:"multiplier"`
	Jitter       bool     `toml:"jitter"`
	MaxTotalWait duration `toml:"max_total_wait"`
}

// AggregatorConfig tunes the per-symbol fan-out.
type AggregatorConfig struct {
	MaxConcurrent  int      `toml:"max_concurrent"`
	FanoutDeadline duration `toml:"fanout_deadline"`
	// MinRealQuotes is the number of real quotes below which the pass
	// falls back to synthetic data.
	MinRealQuotes int `toml:"min_real_quotes"`
}

// ArbitrageConfig tunes opportunity computation and enrichment.
type ArbitrageConfig struct {
	MinProfitPct float64 `toml:"min_profit_pct"`
	// NetworkInfoTTL bounds how long exchange network reference data is
	// served without refresh.
	NetworkInfoTTL duration `toml:"network_info_ttl"`
}

// ScannerConfig drives the periodic scan loop.
type ScannerConfig struct {
	Interval duration `toml:"interval"`
	// NotifyMinProfitPct is the profit above which an opportunity alert is
	// sent. Zero disables alerts.
	NotifyMinProfitPct float64 `toml:"notify_min_profit_pct"`
}

// RedisConfig holds Redis connection parameters. Redis is optional; when
// Addr is empty the engine runs with in-process caches only.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds the opportunity history store parameters. Optional;
// when DSN is empty history persistence is disabled.
type PostgresConfig struct {
	DSN          string `toml:"dsn"`
	PoolMaxConns int    `toml:"pool_max_conns"`
	PoolMinConns int    `toml:"pool_min_conns"`
}

// S3Config holds S3-compatible object storage parameters for scan snapshot
// archival. Optional; when Bucket is empty archival is disabled.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds notification channel parameters. Channels with empty
// credentials are not registered.
type NotifyConfig struct {
	TelegramToken  string `toml:"telegram_token"`
	TelegramChatID string `toml:"telegram_chat_id"`
	DiscordWebhook string `toml:"discord_webhook"`
	// Events limits which event types are forwarded. Empty allows all.
	Events []string `toml:"events"`
}

// ServerConfig holds the HTTP status API parameters. Optional; when Port is
// zero the server does not start.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey protects all endpoints except the health check. Empty
	// disables authentication.
	APIKey string `toml:"api_key"`
}

// duration wraps time.Duration so the TOML decoder can parse strings like
// "45s" or "5m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func dur(d time.Duration) duration { return duration{d} }

// Defaults returns the built-in configuration. Load merges the TOML file on
// top of these values.
func Defaults() Config {
	return Config{
		Symbols: []string{"BTC/USDT", "ETH/USDT", "BNB/USDT", "ADA/USDT", "SOL/USDT"},
		Sources: SourcesConfig{
			Enabled:     []string{"binance", "okx", "kucoin", "gate", "bybit"},
			HTTPTimeout: dur(10 * time.Second),
		},
		RateLimit: RateLimitConfig{
			Mode:            "wait",
			DefaultInterval: dur(300 * time.Millisecond),
			PerSource: map[string]duration{
				"binance": dur(100 * time.Millisecond),
				"okx":     dur(200 * time.Millisecond),
				"bybit":   dur(200 * time.Millisecond),
			},
		},
		Cache: CacheConfig{TTL: dur(45 * time.Second)},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			RecoveryTimeout:  dur(5 * time.Minute),
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			BaseDelay:    dur(time.Second),
			Multiplier:   2,
			Jitter:       true,
			MaxTotalWait: dur(10 * time.Second),
		},
		Aggregator: AggregatorConfig{
			MaxConcurrent:  3,
			FanoutDeadline: dur(30 * time.Second),
			MinRealQuotes:  2,
		},
		Arbitrage: ArbitrageConfig{
			MinProfitPct:   0.1,
			NetworkInfoTTL: dur(5 * time.Minute),
		},
		Scanner: ScannerConfig{
			Interval:           dur(time.Minute),
			NotifyMinProfitPct: 1.0,
		},
		Redis: RedisConfig{
			PoolSize:   10,
			MaxRetries: 3,
		},
		Postgres: PostgresConfig{
			PoolMaxConns: 10,
			PoolMinConns: 2,
		},
		S3: S3Config{
			Region: "us-east-1",
			UseSSL: true,
		},
		LogLevel: "info",
	}
}

// Validate checks threshold and tuning parameters. It returns an error
// wrapping the first invalid field found.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("config: symbols cannot be empty")
	}
	if len(c.Sources.Enabled) == 0 {
		return fmt.Errorf("config: sources.enabled cannot be empty")
	}
	if c.RateLimit.Mode != "wait" && c.RateLimit.Mode != "reject" {
		return fmt.Errorf("config: rate_limit.mode must be \"wait\" or \"reject\", got %q", c.RateLimit.Mode)
	}
	if c.Arbitrage.MinProfitPct < 0 {
		return fmt.Errorf("config: arbitrage.min_profit_pct must be >= 0, got %v", c.Arbitrage.MinProfitPct)
	}
	if c.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("config: breaker.failure_threshold must be >= 1, got %d", c.Breaker.FailureThreshold)
	}
	if c.Breaker.RecoveryTimeout.Duration <= 0 {
		return fmt.Errorf("config: breaker.recovery_timeout must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("config: retry.max_attempts must be >= 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("config: retry.multiplier must be >= 1, got %v", c.Retry.Multiplier)
	}
	if c.Aggregator.MaxConcurrent < 1 {
		return fmt.Errorf("config: aggregator.max_concurrent must be >= 1, got %d", c.Aggregator.MaxConcurrent)
	}
	if c.Aggregator.FanoutDeadline.Duration <= 0 {
		return fmt.Errorf("config: aggregator.fanout_deadline must be positive")
	}
	if c.Aggregator.MinRealQuotes < 2 {
		return fmt.Errorf("config: aggregator.min_real_quotes must be >= 2, got %d", c.Aggregator.MinRealQuotes)
	}
	if c.Cache.TTL.Duration <= 0 {
		return fmt.Errorf("config: cache.ttl must be positive")
	}
	if c.Scanner.Interval.Duration <= 0 {
		return fmt.Errorf("config: scanner.interval must be positive")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port must be in [0, 65535], got %d", c.Server.Port)
	}
	return nil
}
