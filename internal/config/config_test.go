package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestValidateLiveRequiresCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Trading.DemoMode = false

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hpx: access_key")
	assert.Contains(t, err.Error(), "zb: access_key")

	cfg.HPX.AccessKey = "ak"
	cfg.HPX.SecretKey = "sk"
	cfg.ZB.AccessKey = "ak"
	cfg.ZB.SecretKey = "sk"
	assert.NoError(t, cfg.Validate())
}

func TestValidateDemoModeSkipsCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Trading.DemoMode = true
	assert.NoError(t, cfg.Validate())
}

func TestValidateArbitrageLadderMutuallyExclusive(t *testing.T) {
	cfg := Defaults()
	cfg.Trading.ArbitrageEnabled = true
	cfg.Ladder.Enabled = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestValidateAccumulatesErrors(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "loud"
	cfg.Trading.MinSize = 0
	cfg.Trading.PriceTick = 0
	cfg.Loops.BalanceEveryTicks = 0

	err := cfg.Validate()
	require.Error(t, err)
	// Every problem is reported in one pass.
	assert.GreaterOrEqual(t, strings.Count(err.Error(), "\n  - "), 3)
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "min_size")
	assert.Contains(t, err.Error(), "balance_every_ticks")
}

func TestValidateStopRetryBudget(t *testing.T) {
	cfg := Defaults()
	cfg.Trading.StopRetryCount = 30
	cfg.Trading.MaxRetryCount = 20

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop_retry_count")
}

func TestValidateLadderRatios(t *testing.T) {
	cfg := Defaults()
	cfg.Trading.ArbitrageEnabled = false
	cfg.Ladder.Enabled = true
	cfg.Ladder.VolumeRatio = 150
	cfg.Ladder.RemovalRatio = 100

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "volume_ratio")
	assert.Contains(t, err.Error(), "removal_ratio")

	cfg.Ladder.VolumeRatio = 50
	cfg.Ladder.RemovalRatio = 1
	assert.NoError(t, cfg.Validate())
}

func TestValidateEncryptedKeyNeedsPassword(t *testing.T) {
	cfg := Defaults()
	cfg.HPX.EncryptedKeyPath = "/etc/spreadbot/hpx.key"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password")
}

func TestValidateFeedNeedsURL(t *testing.T) {
	cfg := Defaults()
	cfg.Feed.Enabled = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ws_url")
}

func TestValidatePostgresDSNBypassesHostChecks(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Enabled = true
	cfg.Postgres.Host = ""
	cfg.Postgres.Database = ""
	cfg.Postgres.DSN = "postgres://user:pass@db:5432/spreadbot"

	assert.NoError(t, cfg.Validate())
}

func TestDurationUnmarshalText(t *testing.T) {
	var d duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration)

	assert.Error(t, d.UnmarshalText([]byte("ninety")))

	out, err := duration{5 * time.Minute}.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "5m0s", string(out))
}
