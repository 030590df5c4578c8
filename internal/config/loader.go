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
// built-in defaults, applies MEMEBOT_* environment variable overrides, and
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

// applyEnvOverrides reads well-known MEMEBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.Address, "MEMEBOT_WALLET_ADDRESS")
	setStr(&cfg.Wallet.PrivateKey, "MEMEBOT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "MEMEBOT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "MEMEBOT_WALLET_KEY_PASSWORD")

	// ── Solana ──
	setStr(&cfg.Solana.RPCURL, "MEMEBOT_SOLANA_RPC_URL")

	// ── DexScreener ──
	setStr(&cfg.DexScreener.APIHost, "MEMEBOT_DEXSCREENER_API_HOST")
	setStr(&cfg.DexScreener.WsHost, "MEMEBOT_DEXSCREENER_WS_HOST")
	setStr(&cfg.DexScreener.Chain, "MEMEBOT_DEXSCREENER_CHAIN")

	// ── Jupiter ──
	setStr(&cfg.Jupiter.QuoteHost, "MEMEBOT_JUPITER_QUOTE_HOST")

	// ── Scan ──
	setFloat64(&cfg.Scan.MinLiquidityUSD, "MEMEBOT_SCAN_MIN_LIQUIDITY")
	setFloat64(&cfg.Scan.MinVolumeUSD, "MEMEBOT_SCAN_MIN_VOLUME")
	setDuration(&cfg.Scan.MaxContractAge, "MEMEBOT_SCAN_MAX_CONTRACT_AGE")
	setDuration(&cfg.Scan.PollInterval, "MEMEBOT_SCAN_POLL_INTERVAL")
	setFloat64(&cfg.Scan.TradeAmountSOL, "MEMEBOT_SCAN_TRADE_AMOUNT_SOL")

	// ── Exit ──
	setFloat64(&cfg.Exit.ProfitTarget, "MEMEBOT_EXIT_PROFIT_TARGET")
	setFloat64(&cfg.Exit.StopLoss, "MEMEBOT_EXIT_STOP_LOSS")

	// ── Executor ──
	setInt(&cfg.Executor.MaxRetryAttempts, "MEMEBOT_EXECUTOR_MAX_RETRY_ATTEMPTS")
	setDuration(&cfg.Executor.RetryBaseDelay, "MEMEBOT_EXECUTOR_RETRY_BASE_DELAY")
	setDuration(&cfg.Executor.SubmitTimeout, "MEMEBOT_EXECUTOR_SUBMIT_TIMEOUT")

	// ── Reconcile ──
	setDuration(&cfg.Reconcile.Interval, "MEMEBOT_RECONCILE_INTERVAL")
	setDuration(&cfg.Reconcile.Expiry, "MEMEBOT_RECONCILE_EXPIRY")

	// ── Database ──
	setStr(&cfg.Database.DSN, "MEMEBOT_DATABASE_DSN")
	setStr(&cfg.Database.Host, "MEMEBOT_DATABASE_HOST")
	setInt(&cfg.Database.Port, "MEMEBOT_DATABASE_PORT")
	setStr(&cfg.Database.Database, "MEMEBOT_DATABASE_NAME")
	setStr(&cfg.Database.User, "MEMEBOT_DATABASE_USER")
	setStr(&cfg.Database.Password, "MEMEBOT_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "MEMEBOT_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "MEMEBOT_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "MEMEBOT_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "MEMEBOT_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "MEMEBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MEMEBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MEMEBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MEMEBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MEMEBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MEMEBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "MEMEBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MEMEBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "MEMEBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MEMEBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MEMEBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MEMEBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MEMEBOT_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "MEMEBOT_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.Interval, "MEMEBOT_ARCHIVE_INTERVAL")
	setInt(&cfg.Archive.RetentionDays, "MEMEBOT_ARCHIVE_RETENTION_DAYS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "MEMEBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MEMEBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MEMEBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MEMEBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MEMEBOT_MODE")
	setStr(&cfg.LogLevel, "MEMEBOT_LOG_LEVEL")
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
