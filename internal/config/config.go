// Package config defines the top-level configuration for the meme-coin
// trading bot and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MEMEBOT_* environment
// variables.
type Config struct {
	Wallet      WalletConfig      `toml:"wallet"`
	Solana      SolanaConfig      `toml:"solana"`
	DexScreener DexScreenerConfig `toml:"dexscreener"`
	Jupiter     JupiterConfig     `toml:"jupiter"`
	Scan        ScanConfig        `toml:"scan"`
	Exit        ExitConfig        `toml:"exit"`
	Executor    ExecutorConfig    `toml:"executor"`
	Reconcile   ReconcileConfig   `toml:"reconcile"`
	Database    DatabaseConfig    `toml:"database"`
	Redis       RedisConfig       `toml:"redis"`
	S3          S3Config          `toml:"s3"`
	Archive     ArchiveConfig     `toml:"archive"`
	Notify      NotifyConfig      `toml:"notify"`
	Mode        string            `toml:"mode"`
	LogLevel    string            `toml:"log_level"`
}

// WalletConfig holds the Solana wallet credentials. Either a raw base58
// private key or an encrypted key file plus password must be provided.
type WalletConfig struct {
	Address          string `toml:"address"`
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// SolanaConfig holds the chain RPC endpoint.
type SolanaConfig struct {
	RPCURL string `toml:"rpc_url"`
}

// DexScreenerConfig holds the market feed endpoints.
type DexScreenerConfig struct {
	APIHost string `toml:"api_host"`
	WsHost  string `toml:"ws_host"`
	Chain   string `toml:"chain"`
}

// JupiterConfig holds the quote router endpoints.
type JupiterConfig struct {
	QuoteHost string `toml:"quote_host"`
}

// ScanConfig holds the admission loop parameters.
type ScanConfig struct {
	MinLiquidityUSD float64  `toml:"min_liquidity"`
	MinVolumeUSD    float64  `toml:"min_volume"`
	MaxContractAge  duration `toml:"max_contract_age"`
	PollInterval    duration `toml:"poll_interval"`
	// TradeAmountSOL is the notional spent on each buy, in SOL.
	TradeAmountSOL float64 `toml:"trade_amount_sol"`
}

// ExitConfig holds the exit thresholds as multipliers on the entry price.
type ExitConfig struct {
	ProfitTarget float64 `toml:"profit_target"`
	StopLoss     float64 `toml:"stop_loss"`
}

// ExecutorConfig holds the retry and timeout policy for order submission.
type ExecutorConfig struct {
	MaxRetryAttempts int      `toml:"max_retry_attempts"`
	RetryBaseDelay   duration `toml:"retry_base_delay"`
	SubmitTimeout    duration `toml:"submit_timeout"`
}

// ReconcileConfig holds the cadence for resolving unknown order outcomes.
type ReconcileConfig struct {
	Interval duration `toml:"interval"`
	// Expiry is how long an unknown order may stay unresolved before it is
	// treated as definitively failed.
	Expiry duration `toml:"expiry"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
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

// S3Config holds S3-compatible object storage parameters for the archiver.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls the periodic export of aged records to S3.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	Interval      duration `toml:"interval"`
	RetentionDays int      `toml:"retention_days"`
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
		Solana: SolanaConfig{
			RPCURL: "https://api.mainnet-beta.solana.com",
		},
		DexScreener: DexScreenerConfig{
			APIHost: "https://api.dexscreener.com",
			WsHost:  "wss://api.dexscreener.com",
			Chain:   "solana",
		},
		Jupiter: JupiterConfig{
			QuoteHost: "https://quote-api.jup.ag",
		},
		Scan: ScanConfig{
			MinLiquidityUSD: 10_000,
			MinVolumeUSD:    5_000,
			MaxContractAge:  duration{24 * time.Hour},
			PollInterval:    duration{60 * time.Second},
			TradeAmountSOL:  0.1,
		},
		Exit: ExitConfig{
			ProfitTarget: 2.0,
			StopLoss:     0.5,
		},
		Executor: ExecutorConfig{
			MaxRetryAttempts: 3,
			RetryBaseDelay:   duration{time.Second},
			SubmitTimeout:    duration{30 * time.Second},
		},
		Reconcile: ReconcileConfig{
			Interval: duration{2 * time.Minute},
			Expiry:   duration{30 * time.Minute},
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "memebot",
			User:          "postgres",
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
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "memebot-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			Interval:      duration{24 * time.Hour},
			RetentionDays: 90,
		},
		Notify: NotifyConfig{
			Events: []string{"position_opened", "position_closed", "buy_outcome_unknown", "reconciled_order_failed"},
		},
		Mode:     "trade",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode. "trade" runs
// the full bot; "monitor" resumes monitors and reconciliation for existing
// positions without admitting new listings.
var validModes = map[string]bool{
	"trade":   true,
	"monitor": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, monitor)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet — trade mode needs a signing key.
	if strings.ToLower(c.Mode) == "trade" {
		if c.Wallet.Address == "" {
			errs = append(errs, "wallet: address must not be empty for mode trade")
		}
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for mode trade")
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
	}

	if c.Solana.RPCURL == "" {
		errs = append(errs, "solana: rpc_url must not be empty")
	}
	if c.DexScreener.APIHost == "" {
		errs = append(errs, "dexscreener: api_host must not be empty")
	}
	if c.DexScreener.Chain == "" {
		errs = append(errs, "dexscreener: chain must not be empty")
	}
	if c.Jupiter.QuoteHost == "" {
		errs = append(errs, "jupiter: quote_host must not be empty")
	}

	// Scan thresholds.
	if c.Scan.MinLiquidityUSD < 0 {
		errs = append(errs, "scan: min_liquidity must be >= 0")
	}
	if c.Scan.MinVolumeUSD < 0 {
		errs = append(errs, "scan: min_volume must be >= 0")
	}
	if c.Scan.MaxContractAge.Duration <= 0 {
		errs = append(errs, "scan: max_contract_age must be positive")
	}
	if c.Scan.PollInterval.Duration <= 0 {
		errs = append(errs, "scan: poll_interval must be positive")
	}
	if c.Scan.TradeAmountSOL <= 0 {
		errs = append(errs, "scan: trade_amount_sol must be > 0")
	}

	// Exit thresholds. The profit target must sit above entry and the stop
	// loss below it, otherwise a position would exit on its first tick.
	if c.Exit.ProfitTarget <= 1 {
		errs = append(errs, fmt.Sprintf("exit: profit_target must be > 1, got %v", c.Exit.ProfitTarget))
	}
	if c.Exit.StopLoss <= 0 || c.Exit.StopLoss >= 1 {
		errs = append(errs, fmt.Sprintf("exit: stop_loss must be in (0, 1), got %v", c.Exit.StopLoss))
	}

	// Executor retry policy.
	if c.Executor.MaxRetryAttempts < 1 {
		errs = append(errs, "executor: max_retry_attempts must be >= 1")
	}
	if c.Executor.RetryBaseDelay.Duration <= 0 {
		errs = append(errs, "executor: retry_base_delay must be positive")
	}
	if c.Executor.SubmitTimeout.Duration <= 0 {
		errs = append(errs, "executor: submit_timeout must be positive")
	}

	if c.Reconcile.Interval.Duration <= 0 {
		errs = append(errs, "reconcile: interval must be positive")
	}
	if c.Reconcile.Expiry.Duration <= 0 {
		errs = append(errs, "reconcile: expiry must be positive")
	}

	// Database.
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis.
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 is only required when archiving is enabled.
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
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
