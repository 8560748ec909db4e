// Package config defines the top-level configuration for the spreadbot
// coordinator and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SPREADBOT_* environment variables.
type Config struct {
	HPX      HPXConfig      `toml:"hpx"`
	ZB       ZBConfig       `toml:"zb"`
	Trading  TradingConfig  `toml:"trading"`
	Ladder   LadderConfig   `toml:"ladder"`
	Loops    LoopsConfig    `toml:"loops"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Feed     FeedConfig     `toml:"feed"`
	Export   ExportConfig   `toml:"export"`
	Notify   NotifyConfig   `toml:"notify"`
	LogLevel string         `toml:"log_level"`
}

// HPXConfig holds the primary venue's endpoint, credentials, and market.
type HPXConfig struct {
	BaseURL          string  `toml:"base_url"`
	AccessKey        string  `toml:"access_key"`
	SecretKey        string  `toml:"secret_key"`
	EncryptedKeyPath string  `toml:"encrypted_key_path"`
	KeyPassword      string  `toml:"key_password"`
	Symbol           string  `toml:"symbol"`
	BaseAsset        string  `toml:"base_asset"`
	QuoteAsset       string  `toml:"quote_asset"`
	DepthSize        int     `toml:"depth_size"`
	LowBalanceBase   float64 `toml:"low_balance_base"`
	LowBalanceQuote  float64 `toml:"low_balance_quote"`
}

// ZBConfig holds the secondary venue's endpoints, credentials, and market.
// ZB splits its API across a market-data root and a trade root.
type ZBConfig struct {
	MarketURL        string  `toml:"market_url"`
	TradeURL         string  `toml:"trade_url"`
	AccessKey        string  `toml:"access_key"`
	SecretKey        string  `toml:"secret_key"`
	EncryptedKeyPath string  `toml:"encrypted_key_path"`
	KeyPassword      string  `toml:"key_password"`
	Market           string  `toml:"market"`
	BaseAsset        string  `toml:"base_asset"`
	QuoteAsset       string  `toml:"quote_asset"`
	DepthSize        int     `toml:"depth_size"`
	LowBalanceBase   float64 `toml:"low_balance_base"`
	LowBalanceQuote  float64 `toml:"low_balance_quote"`
}

// TradingConfig holds the coordinator's thresholds. Percentages are percents
// (1.0 means 1%).
type TradingConfig struct {
	DemoMode         bool `toml:"demo_mode"`
	ArbitrageEnabled bool `toml:"arbitrage_enabled"`
	CancelAllAndExit bool `toml:"cancel_all_and_exit"`

	MinSize         float64 `toml:"min_size"`
	MaxSize         float64 `toml:"max_size"`
	SizeGranularity float64 `toml:"size_granularity"`
	PriceTick       float64 `toml:"price_tick"`
	PriceMergeStep  float64 `toml:"price_merge_step"`

	ArbitragePoint float64 `toml:"arbitrage_point"`
	CancelPoint    float64 `toml:"cancel_point"`
	StopPoint      float64 `toml:"stop_point"`

	MaxRetryCount     int `toml:"max_retry_count"`
	StopRetryCount    int `toml:"stop_retry_count"`
	ConfirmRetryCount int `toml:"confirm_retry_count"`

	StatusCheckWait duration `toml:"status_check_wait"`
	PostSendWait    duration `toml:"post_send_wait"`

	// Epsilon bounds how far the hedge may trail the taker fill at settlement.
	// Zero means "use min_size".
	Epsilon float64 `toml:"epsilon"`
}

// LadderConfig holds the standing-ladder replication parameters.
type LadderConfig struct {
	Enabled      bool    `toml:"enabled"`
	RemovalRatio float64 `toml:"removal_ratio"`
	VolumeRatio  float64 `toml:"volume_ratio"`
	CopyQuantity int     `toml:"copy_quantity"`
}

// LoopsConfig holds the two venue loops' cadence.
type LoopsConfig struct {
	PrimaryInterval   duration `toml:"primary_interval"`
	SecondaryInterval duration `toml:"secondary_interval"`
	// BalanceEveryTicks refreshes a venue's balance only every Nth tick.
	BalanceEveryTicks int `toml:"balance_every_ticks"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
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

// RedisConfig holds Redis connection parameters for the signal bus.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the archiver.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// FeedConfig holds the optional websocket market-data feed for the primary
// venue. When disabled the primary loop polls REST depth instead.
type FeedConfig struct {
	Enabled bool   `toml:"enabled"`
	WsURL   string `toml:"ws_url"`
}

// ExportConfig holds the settlement CSV export and archive parameters.
type ExportConfig struct {
	Dir               string   `toml:"dir"`
	ArchiveInterval   duration `toml:"archive_interval"`
	RetentionDays     int      `toml:"retention_days"`
	DeleteAfterUpload bool     `toml:"delete_after_upload"`
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
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		HPX: HPXConfig{
			BaseURL:    "https://api.hpx.com",
			Symbol:     "hsr_qc",
			BaseAsset:  "HSR",
			QuoteAsset: "QC",
			DepthSize:  10,
		},
		ZB: ZBConfig{
			MarketURL:  "http://api.zb.com",
			TradeURL:   "https://trade.zb.com",
			Market:     "hsr_qc",
			BaseAsset:  "HSR",
			QuoteAsset: "QC",
			DepthSize:  10,
		},
		Trading: TradingConfig{
			DemoMode:          true,
			ArbitrageEnabled:  true,
			MinSize:           0.01,
			MaxSize:           10,
			SizeGranularity:   0.01,
			PriceTick:         0.01,
			PriceMergeStep:    0,
			ArbitragePoint:    1.0,
			CancelPoint:       0.5,
			StopPoint:         2.0,
			MaxRetryCount:     20,
			StopRetryCount:    10,
			ConfirmRetryCount: 3,
			StatusCheckWait:   duration{2 * time.Second},
			PostSendWait:      duration{1 * time.Second},
		},
		Ladder: LadderConfig{
			Enabled:      false,
			RemovalRatio: 1.0,
			VolumeRatio:  50.0,
			CopyQuantity: 5,
		},
		Loops: LoopsConfig{
			PrimaryInterval:   duration{3 * time.Second},
			SecondaryInterval: duration{3 * time.Second},
			BalanceEveryTicks: 10,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "spreadbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "spreadbot-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Feed: FeedConfig{
			Enabled: false,
		},
		Export: ExportConfig{
			Dir:               "trades",
			ArchiveInterval:   duration{24 * time.Hour},
			RetentionDays:     90,
			DeleteAfterUpload: false,
		},
		Notify: NotifyConfig{
			Events: []string{"arb_detected", "leg_filled", "transaction_settled", "low_balance", "coordinator_fatal"},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Venue credentials are only required when orders will actually be sent.
	live := !c.Trading.DemoMode && (c.Trading.ArbitrageEnabled || c.Ladder.Enabled || c.Trading.CancelAllAndExit)
	if live {
		if c.HPX.AccessKey == "" {
			errs = append(errs, "hpx: access_key must be set for live trading")
		}
		if c.HPX.SecretKey == "" && c.HPX.EncryptedKeyPath == "" {
			errs = append(errs, "hpx: either secret_key or encrypted_key_path must be set for live trading")
		}
		if c.ZB.AccessKey == "" {
			errs = append(errs, "zb: access_key must be set for live trading")
		}
		if c.ZB.SecretKey == "" && c.ZB.EncryptedKeyPath == "" {
			errs = append(errs, "zb: either secret_key or encrypted_key_path must be set for live trading")
		}
	}
	if c.HPX.EncryptedKeyPath != "" && c.HPX.KeyPassword == "" {
		errs = append(errs, "hpx: key_password is required when encrypted_key_path is set")
	}
	if c.ZB.EncryptedKeyPath != "" && c.ZB.KeyPassword == "" {
		errs = append(errs, "zb: key_password is required when encrypted_key_path is set")
	}

	if c.HPX.BaseURL == "" {
		errs = append(errs, "hpx: base_url must not be empty")
	}
	if c.HPX.Symbol == "" {
		errs = append(errs, "hpx: symbol must not be empty")
	}
	if c.ZB.MarketURL == "" {
		errs = append(errs, "zb: market_url must not be empty")
	}
	if c.ZB.TradeURL == "" {
		errs = append(errs, "zb: trade_url must not be empty")
	}
	if c.ZB.Market == "" {
		errs = append(errs, "zb: market must not be empty")
	}

	// Trading thresholds
	if c.Trading.MinSize <= 0 {
		errs = append(errs, "trading: min_size must be > 0")
	}
	if c.Trading.MaxSize < c.Trading.MinSize {
		errs = append(errs, "trading: max_size must be >= min_size")
	}
	if c.Trading.SizeGranularity < 0 {
		errs = append(errs, "trading: size_granularity must be >= 0")
	}
	if c.Trading.PriceTick <= 0 {
		errs = append(errs, "trading: price_tick must be > 0")
	}
	if c.Trading.ArbitrageEnabled && c.Trading.ArbitragePoint <= 0 {
		errs = append(errs, "trading: arbitrage_point must be > 0 when arbitrage is enabled")
	}
	if c.Trading.MaxRetryCount < 1 {
		errs = append(errs, "trading: max_retry_count must be >= 1")
	}
	if c.Trading.ConfirmRetryCount < 1 {
		errs = append(errs, "trading: confirm_retry_count must be >= 1")
	}
	if c.Trading.StopRetryCount > c.Trading.MaxRetryCount {
		errs = append(errs, "trading: stop_retry_count must not exceed max_retry_count")
	}
	if c.Trading.Epsilon < 0 {
		errs = append(errs, "trading: epsilon must be >= 0")
	}

	// Arbitrage sizing and ladder replication share the hedge machinery and
	// the single-flight ledger; running both at once is not supported.
	if c.Trading.ArbitrageEnabled && c.Ladder.Enabled {
		errs = append(errs, "trading: arbitrage_enabled and ladder.enabled are mutually exclusive")
	}
	if c.Ladder.Enabled {
		if c.Ladder.CopyQuantity < 1 {
			errs = append(errs, "ladder: copy_quantity must be >= 1")
		}
		if c.Ladder.VolumeRatio <= 0 || c.Ladder.VolumeRatio > 100 {
			errs = append(errs, fmt.Sprintf("ladder: volume_ratio must be in (0, 100], got %g", c.Ladder.VolumeRatio))
		}
		if c.Ladder.RemovalRatio < 0 || c.Ladder.RemovalRatio >= 100 {
			errs = append(errs, fmt.Sprintf("ladder: removal_ratio must be in [0, 100), got %g", c.Ladder.RemovalRatio))
		}
	}

	// Loops
	if c.Loops.PrimaryInterval.Duration <= 0 {
		errs = append(errs, "loops: primary_interval must be > 0")
	}
	if c.Loops.SecondaryInterval.Duration <= 0 {
		errs = append(errs, "loops: secondary_interval must be > 0")
	}
	if c.Loops.BalanceEveryTicks < 1 {
		errs = append(errs, "loops: balance_every_ticks must be >= 1")
	}

	// Postgres
	if c.Postgres.Enabled {
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
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	// Feed
	if c.Feed.Enabled && c.Feed.WsURL == "" {
		errs = append(errs, "feed: ws_url must not be empty when the feed is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
