package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CROSSARB_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known CROSSARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	setStringSlice(&cfg.Symbols, "CROSSARB_SYMBOLS")
	setStringSlice(&cfg.Sources.Enabled, "CROSSARB_SOURCES_ENABLED")
	setBool(&cfg.Sources.BinanceStream, "CROSSARB_SOURCES_BINANCE_STREAM")
	setDuration(&cfg.Sources.HTTPTimeout, "CROSSARB_SOURCES_HTTP_TIMEOUT")

	setStr(&cfg.RateLimit.Mode, "CROSSARB_RATE_LIMIT_MODE")
	setDuration(&cfg.RateLimit.DefaultInterval, "CROSSARB_RATE_LIMIT_DEFAULT_INTERVAL")

	setDuration(&cfg.Cache.TTL, "CROSSARB_CACHE_TTL")

	setInt(&cfg.Breaker.FailureThreshold, "CROSSARB_BREAKER_FAILURE_THRESHOLD")
	setDuration(&cfg.Breaker.RecoveryTimeout, "CROSSARB_BREAKER_RECOVERY_TIMEOUT")

	setInt(&cfg.Retry.MaxAttempts, "CROSSARB_RETRY_MAX_ATTEMPTS")
	setDuration(&cfg.Retry.BaseDelay, "CROSSARB_RETRY_BASE_DELAY")
	setFloat64(&cfg.Retry.Multiplier, "CROSSARB_RETRY_MULTIPLIER")
	setBool(&cfg.Retry.Jitter, "CROSSARB_RETRY_JITTER")
	setDuration(&cfg.Retry.MaxTotalWait, "CROSSARB_RETRY_MAX_TOTAL_WAIT")

	setInt(&cfg.Aggregator.MaxConcurrent, "CROSSARB_AGGREGATOR_MAX_CONCURRENT")
	setDuration(&cfg.Aggregator.FanoutDeadline, "CROSSARB_AGGREGATOR_FANOUT_DEADLINE")
	setInt(&cfg.Aggregator.MinRealQuotes, "CROSSARB_AGGREGATOR_MIN_REAL_QUOTES")

	setFloat64(&cfg.Arbitrage.MinProfitPct, "CROSSARB_ARBITRAGE_MIN_PROFIT_PCT")
	setDuration(&cfg.Arbitrage.NetworkInfoTTL, "CROSSARB_ARBITRAGE_NETWORK_INFO_TTL")

	setDuration(&cfg.Scanner.Interval, "CROSSARB_SCANNER_INTERVAL")
	setFloat64(&cfg.Scanner.NotifyMinProfitPct, "CROSSARB_SCANNER_NOTIFY_MIN_PROFIT_PCT")

	setStr(&cfg.Redis.Addr, "CROSSARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CROSSARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CROSSARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CROSSARB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CROSSARB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CROSSARB_REDIS_TLS_ENABLED")

	setStr(&cfg.Postgres.DSN, "CROSSARB_POSTGRES_DSN")
	setInt(&cfg.Postgres.PoolMaxConns, "CROSSARB_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "CROSSARB_POSTGRES_POOL_MIN_CONNS")

	setStr(&cfg.S3.Endpoint, "CROSSARB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CROSSARB_S3_REGION")
	setStr(&cfg.S3.Bucket, "CROSSARB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CROSSARB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CROSSARB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CROSSARB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "CROSSARB_S3_FORCE_PATH_STYLE")

	setStr(&cfg.Notify.TelegramToken, "CROSSARB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CROSSARB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhook, "CROSSARB_NOTIFY_DISCORD_WEBHOOK")
	setStringSlice(&cfg.Notify.Events, "CROSSARB_NOTIFY_EVENTS")

	setInt(&cfg.Server.Port, "CROSSARB_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "CROSSARB_SERVER_API_KEY")

	setStr(&cfg.LogLevel, "CROSSARB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
