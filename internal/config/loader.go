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
// built-in defaults, applies SPREADBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SPREADBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── HPX ──
	setStr(&cfg.HPX.BaseURL, "SPREADBOT_HPX_BASE_URL")
	setStr(&cfg.HPX.AccessKey, "SPREADBOT_HPX_ACCESS_KEY")
	setStr(&cfg.HPX.SecretKey, "SPREADBOT_HPX_SECRET_KEY")
	setStr(&cfg.HPX.EncryptedKeyPath, "SPREADBOT_HPX_ENCRYPTED_KEY_PATH")
	setStr(&cfg.HPX.KeyPassword, "SPREADBOT_HPX_KEY_PASSWORD")
	setStr(&cfg.HPX.Symbol, "SPREADBOT_HPX_SYMBOL")
	setStr(&cfg.HPX.BaseAsset, "SPREADBOT_HPX_BASE_ASSET")
	setStr(&cfg.HPX.QuoteAsset, "SPREADBOT_HPX_QUOTE_ASSET")
	setInt(&cfg.HPX.DepthSize, "SPREADBOT_HPX_DEPTH_SIZE")
	setFloat64(&cfg.HPX.LowBalanceBase, "SPREADBOT_HPX_LOW_BALANCE_BASE")
	setFloat64(&cfg.HPX.LowBalanceQuote, "SPREADBOT_HPX_LOW_BALANCE_QUOTE")

	// ── ZB ──
	setStr(&cfg.ZB.MarketURL, "SPREADBOT_ZB_MARKET_URL")
	setStr(&cfg.ZB.TradeURL, "SPREADBOT_ZB_TRADE_URL")
	setStr(&cfg.ZB.AccessKey, "SPREADBOT_ZB_ACCESS_KEY")
	setStr(&cfg.ZB.SecretKey, "SPREADBOT_ZB_SECRET_KEY")
	setStr(&cfg.ZB.EncryptedKeyPath, "SPREADBOT_ZB_ENCRYPTED_KEY_PATH")
	setStr(&cfg.ZB.KeyPassword, "SPREADBOT_ZB_KEY_PASSWORD")
	setStr(&cfg.ZB.Market, "SPREADBOT_ZB_MARKET")
	setStr(&cfg.ZB.BaseAsset, "SPREADBOT_ZB_BASE_ASSET")
	setStr(&cfg.ZB.QuoteAsset, "SPREADBOT_ZB_QUOTE_ASSET")
	setInt(&cfg.ZB.DepthSize, "SPREADBOT_ZB_DEPTH_SIZE")
	setFloat64(&cfg.ZB.LowBalanceBase, "SPREADBOT_ZB_LOW_BALANCE_BASE")
	setFloat64(&cfg.ZB.LowBalanceQuote, "SPREADBOT_ZB_LOW_BALANCE_QUOTE")

	// ── Trading ──
	setBool(&cfg.Trading.DemoMode, "SPREADBOT_TRADING_DEMO_MODE")
	setBool(&cfg.Trading.ArbitrageEnabled, "SPREADBOT_TRADING_ARBITRAGE_ENABLED")
	setBool(&cfg.Trading.CancelAllAndExit, "SPREADBOT_TRADING_CANCEL_ALL_AND_EXIT")
	setFloat64(&cfg.Trading.MinSize, "SPREADBOT_TRADING_MIN_SIZE")
	setFloat64(&cfg.Trading.MaxSize, "SPREADBOT_TRADING_MAX_SIZE")
	setFloat64(&cfg.Trading.SizeGranularity, "SPREADBOT_TRADING_SIZE_GRANULARITY")
	setFloat64(&cfg.Trading.PriceTick, "SPREADBOT_TRADING_PRICE_TICK")
	setFloat64(&cfg.Trading.PriceMergeStep, "SPREADBOT_TRADING_PRICE_MERGE_STEP")
	setFloat64(&cfg.Trading.ArbitragePoint, "SPREADBOT_TRADING_ARBITRAGE_POINT")
	setFloat64(&cfg.Trading.CancelPoint, "SPREADBOT_TRADING_CANCEL_POINT")
	setFloat64(&cfg.Trading.StopPoint, "SPREADBOT_TRADING_STOP_POINT")
	setInt(&cfg.Trading.MaxRetryCount, "SPREADBOT_TRADING_MAX_RETRY_COUNT")
	setInt(&cfg.Trading.StopRetryCount, "SPREADBOT_TRADING_STOP_RETRY_COUNT")
	setInt(&cfg.Trading.ConfirmRetryCount, "SPREADBOT_TRADING_CONFIRM_RETRY_COUNT")
	setDuration(&cfg.Trading.StatusCheckWait, "SPREADBOT_TRADING_STATUS_CHECK_WAIT")
	setDuration(&cfg.Trading.PostSendWait, "SPREADBOT_TRADING_POST_SEND_WAIT")
	setFloat64(&cfg.Trading.Epsilon, "SPREADBOT_TRADING_EPSILON")

	// ── Ladder ──
	setBool(&cfg.Ladder.Enabled, "SPREADBOT_LADDER_ENABLED")
	setFloat64(&cfg.Ladder.RemovalRatio, "SPREADBOT_LADDER_REMOVAL_RATIO")
	setFloat64(&cfg.Ladder.VolumeRatio, "SPREADBOT_LADDER_VOLUME_RATIO")
	setInt(&cfg.Ladder.CopyQuantity, "SPREADBOT_LADDER_COPY_QUANTITY")

	// ── Loops ──
	setDuration(&cfg.Loops.PrimaryInterval, "SPREADBOT_LOOPS_PRIMARY_INTERVAL")
	setDuration(&cfg.Loops.SecondaryInterval, "SPREADBOT_LOOPS_SECONDARY_INTERVAL")
	setInt(&cfg.Loops.BalanceEveryTicks, "SPREADBOT_LOOPS_BALANCE_EVERY_TICKS")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "SPREADBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "SPREADBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SPREADBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SPREADBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SPREADBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SPREADBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SPREADBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SPREADBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SPREADBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SPREADBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SPREADBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SPREADBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SPREADBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SPREADBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SPREADBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SPREADBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SPREADBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SPREADBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "SPREADBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SPREADBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SPREADBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "SPREADBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SPREADBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SPREADBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SPREADBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SPREADBOT_S3_FORCE_PATH_STYLE")

	// ── Feed ──
	setBool(&cfg.Feed.Enabled, "SPREADBOT_FEED_ENABLED")
	setStr(&cfg.Feed.WsURL, "SPREADBOT_FEED_WS_URL")

	// ── Export ──
	setStr(&cfg.Export.Dir, "SPREADBOT_EXPORT_DIR")
	setDuration(&cfg.Export.ArchiveInterval, "SPREADBOT_EXPORT_ARCHIVE_INTERVAL")
	setInt(&cfg.Export.RetentionDays, "SPREADBOT_EXPORT_RETENTION_DAYS")
	setBool(&cfg.Export.DeleteAfterUpload, "SPREADBOT_EXPORT_DELETE_AFTER_UPLOAD")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SPREADBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SPREADBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SPREADBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SPREADBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "SPREADBOT_LOG_LEVEL")
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
