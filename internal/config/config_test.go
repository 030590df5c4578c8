package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTradeConfig() Config {
	cfg := Defaults()
	cfg.Wallet.Address = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	cfg.Wallet.PrivateKey = "base58key"
	return cfg
}

func TestDefaultsAreValidForMonitorMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "monitor"
	assert.NoError(t, cfg.Validate())
}

func TestValidateTradeModeRequiresWallet(t *testing.T) {
	cfg := Defaults() // trade mode, no wallet
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet: address")
	assert.Contains(t, err.Error(), "private_key or encrypted_key_path")
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := validTradeConfig()
	cfg.Mode = "bogus"
	cfg.LogLevel = "loud"
	cfg.Exit.ProfitTarget = 0.9
	cfg.Exit.StopLoss = 1.5
	cfg.Executor.MaxRetryAttempts = 0
	cfg.Scan.PollInterval = duration{0}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"unknown mode",
		"unknown log_level",
		"profit_target must be > 1",
		"stop_loss must be in (0, 1)",
		"max_retry_attempts must be >= 1",
		"poll_interval must be positive",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateEncryptedKeyNeedsPassword(t *testing.T) {
	cfg := validTradeConfig()
	cfg.Wallet.PrivateKey = ""
	cfg.Wallet.EncryptedKeyPath = "/etc/memebot/key.json"
	cfg.Wallet.KeyPassword = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password is required")
}

func TestValidateArchiveRequiresS3(t *testing.T) {
	cfg := validTradeConfig()
	cfg.Archive.Enabled = true
	cfg.S3.Endpoint = ""
	cfg.S3.Bucket = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3: endpoint")
	assert.Contains(t, err.Error(), "s3: bucket")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MEMEBOT_SCAN_MIN_LIQUIDITY", "25000")
	t.Setenv("MEMEBOT_SCAN_MAX_CONTRACT_AGE", "30m")
	t.Setenv("MEMEBOT_EXIT_PROFIT_TARGET", "3.5")
	t.Setenv("MEMEBOT_MODE", "monitor")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, 25000.0, cfg.Scan.MinLiquidityUSD)
	assert.Equal(t, 30*time.Minute, cfg.Scan.MaxContractAge.Duration)
	assert.Equal(t, 3.5, cfg.Exit.ProfitTarget)
	assert.Equal(t, "monitor", cfg.Mode)
}
