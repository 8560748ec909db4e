package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/spreadbot/internal/balance"
	s3blob "github.com/alanyoungcy/spreadbot/internal/blob/s3"
	"github.com/alanyoungcy/spreadbot/internal/cache/redis"
	"github.com/alanyoungcy/spreadbot/internal/config"
	"github.com/alanyoungcy/spreadbot/internal/crypto"
	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/marketdata"
	"github.com/alanyoungcy/spreadbot/internal/notify"
	"github.com/alanyoungcy/spreadbot/internal/store/postgres"
	"github.com/alanyoungcy/spreadbot/internal/venue"
	"github.com/alanyoungcy/spreadbot/internal/venue/hpx"
	"github.com/alanyoungcy/spreadbot/internal/venue/zb"
)

// Dependencies bundles everything the coordinator loops need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
// TradeStore, OrderStore, SignalBus, and Archiver are nil when the backing
// service is disabled in configuration.
type Dependencies struct {
	Router   *venue.Router
	Cache    *marketdata.Cache
	Balances *balance.Tracker
	Notifier *notify.Notifier

	TradeStore domain.TradeStore
	OrderStore domain.OrderStore
	SignalBus  domain.SignalBus
	Archiver   *s3blob.Archiver
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Venue adapters ---
	hpxSecret, err := crypto.LoadSecret(crypto.SecretConfig{
		RawSecret:           cfg.HPX.SecretKey,
		EncryptedSecretPath: cfg.HPX.EncryptedKeyPath,
		Password:            cfg.HPX.KeyPassword,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: hpx secret: %w", err)
	}
	zbSecret, err := crypto.LoadSecret(crypto.SecretConfig{
		RawSecret:           cfg.ZB.SecretKey,
		EncryptedSecretPath: cfg.ZB.EncryptedKeyPath,
		Password:            cfg.ZB.KeyPassword,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: zb secret: %w", err)
	}

	hpxAdapter := hpx.NewAdapter(
		hpx.NewClient(cfg.HPX.BaseURL, cfg.HPX.AccessKey, hpxSecret),
		hpx.AdapterConfig{
			Symbol:     cfg.HPX.Symbol,
			BaseAsset:  cfg.HPX.BaseAsset,
			QuoteAsset: cfg.HPX.QuoteAsset,
			DepthSize:  cfg.HPX.DepthSize,
		},
	)
	zbAdapter := zb.NewAdapter(
		zb.NewClient(cfg.ZB.MarketURL, cfg.ZB.TradeURL, cfg.ZB.AccessKey, zbSecret),
		zb.AdapterConfig{
			Market:     cfg.ZB.Market,
			BaseAsset:  cfg.ZB.BaseAsset,
			QuoteAsset: cfg.ZB.QuoteAsset,
			DepthSize:  cfg.ZB.DepthSize,
		},
	)
	deps.Router = venue.NewRouter(hpxAdapter, zbAdapter)
	deps.Cache = marketdata.NewCache()

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Balance tracking ---
	thresholds := map[domain.Venue]balance.Thresholds{
		domain.VenueHPX: {Base: cfg.HPX.LowBalanceBase, Quote: cfg.HPX.LowBalanceQuote},
		domain.VenueZB:  {Base: cfg.ZB.LowBalanceBase, Quote: cfg.ZB.LowBalanceQuote},
	}
	deps.Balances = balance.NewTracker(deps.Router, deps.Notifier, thresholds, logger)

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.OrderStore = postgres.NewOrderStore(pool)
		deps.TradeStore = postgres.NewTradeStore(pool)
	}

	// --- Redis signal bus ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
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

		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	// --- S3 archiver ---
	if cfg.S3.Enabled {
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
		closers = append(closers, func() { _ = s3Client.Close() })

		if deps.TradeStore != nil {
			deps.Archiver = s3blob.NewArchiver(
				s3blob.NewWriter(s3Client),
				deps.TradeStore,
				cfg.Export.RetentionDays,
				cfg.Export.DeleteAfterUpload,
				logger,
			)
		} else {
			logger.Warn("s3 enabled without postgres, archiver disabled")
		}
	}

	return deps, cleanup, nil
}
