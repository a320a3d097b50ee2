package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zhongsurehow/crossarb/internal/aggregator"
	"github.com/zhongsurehow/crossarb/internal/arbitrage"
	s3blob "github.com/zhongsurehow/crossarb/internal/blob/s3"
	cacheredis "github.com/zhongsurehow/crossarb/internal/cache/redis"
	"github.com/zhongsurehow/crossarb/internal/config"
	"github.com/zhongsurehow/crossarb/internal/domain"
	"github.com/zhongsurehow/crossarb/internal/exchangeinfo"
	"github.com/zhongsurehow/crossarb/internal/notify"
	"github.com/zhongsurehow/crossarb/internal/quotecache"
	"github.com/zhongsurehow/crossarb/internal/resilience"
	"github.com/zhongsurehow/crossarb/internal/scanner"
	"github.com/zhongsurehow/crossarb/internal/server"
	"github.com/zhongsurehow/crossarb/internal/server/handler"
	"github.com/zhongsurehow/crossarb/internal/source"
	"github.com/zhongsurehow/crossarb/internal/store/postgres"
)

// Dependencies bundles everything the scan loop needs. It is constructed by
// Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Guard      *resilience.Guard
	Aggregator *aggregator.Aggregator
	Enricher   *arbitrage.Enricher
	Scanner    *scanner.Scanner

	// BinanceStream is non-nil when the Binance adapter runs over the
	// websocket feed; its Run loop must be started alongside the scanner.
	BinanceStream *source.BinanceStream

	// Server is non-nil when the HTTP status API is enabled.
	Server *server.Server
}

// Wire constructs the dependency graph from cfg. Redis, Postgres and S3 are
// each optional: an empty address/DSN/bucket leaves that sink disabled.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Source adapters ---
	httpTimeout := cfg.Sources.HTTPTimeout.Duration
	adapters := make([]source.Adapter, 0, len(cfg.Sources.Enabled))
	for _, name := range cfg.Sources.Enabled {
		switch domain.SourceID(name) {
		case domain.SourceBinance:
			if cfg.Sources.BinanceStream {
				stream := source.NewBinanceStream("", cfg.Symbols, logger)
				deps.BinanceStream = stream
				adapters = append(adapters, stream)
				closers = append(closers, stream.Close)
			} else {
				adapters = append(adapters, source.NewBinance("", httpTimeout, logger))
			}
		case domain.SourceOKX:
			adapters = append(adapters, source.NewOKX("", httpTimeout, logger))
		case domain.SourceKuCoin:
			adapters = append(adapters, source.NewKuCoin("", httpTimeout, logger))
		case domain.SourceGate:
			adapters = append(adapters, source.NewGate("", httpTimeout, logger))
		case domain.SourceBybit:
			adapters = append(adapters, source.NewBybit("", httpTimeout, logger))
		default:
			cleanup()
			return nil, nil, fmt.Errorf("wire: unknown source %q", name)
		}
	}

	// --- Resilience chain ---
	limiter := resilience.NewLimiter(
		resilience.ParseLimitMode(cfg.RateLimit.Mode),
		cfg.RateLimit.Interval,
	)
	breaker := resilience.NewBreaker(
		cfg.Breaker.FailureThreshold,
		cfg.Breaker.RecoveryTimeout.Duration,
	)
	retry := resilience.RetryPolicy{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		BaseDelay:    cfg.Retry.BaseDelay.Duration,
		Multiplier:   cfg.Retry.Multiplier,
		Jitter:       cfg.Retry.Jitter,
		MaxTotalWait: cfg.Retry.MaxTotalWait.Duration,
	}
	deps.Guard = resilience.NewGuard(limiter, breaker, retry, adapters, logger)

	// --- Quote cache and aggregator ---
	qcache := quotecache.New(deps.Guard, cfg.Cache.TTL.Duration)
	deps.Aggregator = aggregator.New(qcache, aggregator.Config{
		MaxConcurrent:  int64(cfg.Aggregator.MaxConcurrent),
		FanoutDeadline: cfg.Aggregator.FanoutDeadline.Duration,
		MinRealQuotes:  cfg.Aggregator.MinRealQuotes,
	}, logger)

	// --- Exchange reference data ---
	pingURLs := make(map[domain.SourceID]string)
	for _, a := range adapters {
		if p, ok := a.(source.PingURL); ok {
			pingURLs[a.Name()] = p.PingURL()
		}
	}
	prober := exchangeinfo.NewHTTPProber(pingURLs, httpTimeout)
	var table domain.NetworkTable = exchangeinfo.NewProvider(
		prober, cfg.Arbitrage.NetworkInfoTTL.Duration, logger)

	// --- Redis (optional) ---
	var bus *cacheredis.OpportunityBus
	if cfg.Redis.Addr != "" {
		redisClient, err := cacheredis.New(ctx, cacheredis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		table = cacheredis.NewNetworkTable(redisClient, table, cfg.Arbitrage.NetworkInfoTTL.Duration)
		bus = cacheredis.NewOpportunityBus(redisClient)
	}

	deps.Enricher = arbitrage.NewEnricher(table, logger)

	// --- Postgres history store (optional) ---
	var store domain.OpportunityStore
	if cfg.Postgres.DSN != "" {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
		store = postgres.NewOpportunityStore(pgClient.Pool())
	}

	// --- S3 archive (optional) ---
	var archiver *s3blob.Archiver
	if cfg.S3.Bucket != "" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client))
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhook != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhook))
	}
	notifier := notify.NewNotifier(senders, cfg.Notify.Events, logger)

	deps.Scanner = scanner.New(
		deps.Aggregator,
		deps.Guard,
		deps.Enricher,
		bus,
		store,
		archiver,
		notifier,
		scanner.Config{
			Symbols:            cfg.Symbols,
			Interval:           cfg.Scanner.Interval.Duration,
			MinProfitPct:       cfg.Arbitrage.MinProfitPct,
			NotifyMinProfitPct: cfg.Scanner.NotifyMinProfitPct,
		},
		logger,
	)

	// --- HTTP status API (optional) ---
	if cfg.Server.Port > 0 {
		deps.Server = server.New(
			server.Config{
				Port:        cfg.Server.Port,
				CORSOrigins: cfg.Server.CORSOrigins,
				APIKey:      cfg.Server.APIKey,
			},
			server.Handlers{
				Health:        handler.NewHealthHandler(logger),
				Sources:       handler.NewSourceHandler(deps.Scanner),
				Scans:         handler.NewScanHandler(deps.Scanner),
				Opportunities: handler.NewOpportunityHandler(store),
			},
			logger.With(slog.String("component", "server")),
		)
	}

	return deps, cleanup, nil
}
