package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/blob/s3"
	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/cache/redis"
	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/config"
	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/crypto"
	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/domain"
	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/notify"
	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/platform/dexscreener"
	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/platform/jupiter"
	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/platform/solana"
	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	PositionStore domain.PositionStore
	OrderStore    domain.OrderStore
	AuditStore    domain.AuditStore

	// Caches
	PriceCache  domain.PriceCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager

	// Platform clients
	Feed   domain.MarketFeed
	Router domain.SwapRouter // nil when no wallet key is configured
	Chain  domain.ChainReader
	Wallet string // base58 wallet address, empty without a key

	// Blob storage
	Archiver domain.Archiver // nil unless archiving is enabled

	Notifier *notify.Notifier
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

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.PositionStore = postgres.NewPositionStore(pool)
	deps.OrderStore = postgres.NewOrderStore(pool)
	auditStore := postgres.NewAuditStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.Config{
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

	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)

	// --- Market feed ---
	deps.Feed = dexscreener.NewClient(cfg.DexScreener.APIHost, cfg.DexScreener.WsHost)

	// --- Chain access and swap routing ---
	// The chain reader works without a signer; signing is only needed to
	// submit swaps, so the router is wired only when a wallet key exists.
	var signer *solana.Signer
	if cfg.Wallet.PrivateKey != "" || cfg.Wallet.EncryptedKeyPath != "" {
		key, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: wallet key: %w", err)
		}
		signer, err = solana.NewSigner(key)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: wallet signer: %w", err)
		}
	}

	solClient := solana.NewClient(cfg.Solana.RPCURL, signer, cfg.Executor.SubmitTimeout.Duration)
	deps.Chain = solClient

	if signer != nil {
		deps.Router = jupiter.NewClient(cfg.Jupiter.QuoteHost, solClient)
		deps.Wallet = cfg.Wallet.Address
		if deps.Wallet == "" {
			deps.Wallet = signer.PublicKeyBase58()
		}
	}

	// --- S3 archiver ---
	if cfg.Archive.Enabled {
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

		writer := s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewArchiver(writer, deps.PositionStore, auditStore)
	}

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

	// Trade events flow to the notification channels through the audit log.
	deps.AuditStore = notify.NewAuditFanout(auditStore, deps.Notifier)

	return deps, cleanup, nil
}
