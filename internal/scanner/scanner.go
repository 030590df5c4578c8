// Package scanner runs the discovery loop: poll the market feed for newly
// listed pairs, admit the ones passing the filter criteria, and open a
// position for each admitted pair.
package scanner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/domain"
	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/filter"
)

// Buyer is the buy side of the execution coordinator.
type Buyer interface {
	SubmitBuy(ctx context.Context, listing domain.Listing, amountLamports uint64) (domain.Position, error)
}

// Watcher spawns a price monitor for an opened position.
type Watcher interface {
	Watch(ctx context.Context, pos domain.Position) error
}

// Config tunes the discovery loop.
type Config struct {
	// Chain is the chain identifier the feed is filtered to.
	Chain string
	// PollInterval is the pause between scan cycles.
	PollInterval time.Duration
	// TradeAmountLamports is the SOL amount spent per buy.
	TradeAmountLamports uint64
	// BuyTimeout bounds each buy independently, so one stuck submission
	// cannot stall the rest of the batch or the next cycle indefinitely.
	BuyTimeout time.Duration

	// RateLimit and RateWindow gate feed polls; a denied cycle is skipped,
	// not queued.
	RateLimit  int
	RateWindow time.Duration
}

// Scanner is the discovery loop.
type Scanner struct {
	feed      domain.MarketFeed
	criteria  domain.FilterCriteria
	positions domain.PositionStore
	buyer     Buyer
	watcher   Watcher
	limiter   domain.RateLimiter
	cfg       Config
	logger    *slog.Logger
}

// New creates a Scanner. limiter may be nil, which disables rate limiting.
func New(
	feed domain.MarketFeed,
	criteria domain.FilterCriteria,
	positions domain.PositionStore,
	buyer Buyer,
	watcher Watcher,
	limiter domain.RateLimiter,
	cfg Config,
	logger *slog.Logger,
) *Scanner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.BuyTimeout <= 0 {
		cfg.BuyTimeout = 2 * time.Minute
	}
	return &Scanner{
		feed:      feed,
		criteria:  criteria,
		positions: positions,
		buyer:     buyer,
		watcher:   watcher,
		limiter:   limiter,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "scanner")),
	}
}

// Run executes scan cycles until the context is cancelled. The first cycle
// runs immediately.
func (s *Scanner) Run(ctx context.Context) error {
	s.logger.Info("scanner started",
		slog.String("chain", s.cfg.Chain),
		slog.Duration("poll_interval", s.cfg.PollInterval),
	)
	defer s.logger.Info("scanner stopped")

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.scanOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.scanOnce(ctx)
		}
	}
}

// scanOnce runs a single discovery cycle. Failures are logged and the loop
// resumes on the next tick; a polling problem must never take the bot down
// while monitors hold positions.
func (s *Scanner) scanOnce(ctx context.Context) {
	if s.limiter != nil && s.cfg.RateLimit > 0 {
		allowed, err := s.limiter.Allow(ctx, "feed:listings", s.cfg.RateLimit, s.cfg.RateWindow)
		if err != nil {
			s.logger.Warn("rate limiter unavailable, proceeding", slog.String("error", err.Error()))
		} else if !allowed {
			s.logger.Debug("scan cycle skipped by rate limit")
			return
		}
	}

	listings, err := s.feed.ActiveListings(ctx, s.cfg.Chain)
	if err != nil {
		if domain.IsTransient(err) {
			s.logger.Warn("listing fetch failed, will retry next cycle", slog.String("error", err.Error()))
		} else {
			s.logger.Error("listing fetch failed", slog.String("error", err.Error()))
		}
		return
	}

	// Each admitted pair buys in its own goroutine so one slow submission
	// cannot hold up the rest of the batch. The held-pair check stays on
	// this side of the spawn, keyed by pair, so a batch never buys the same
	// pair twice.
	now := time.Now().UTC()
	admitted := 0
	seen := make(map[string]struct{}, len(listings))
	var buys sync.WaitGroup
	for _, listing := range listings {
		if ctx.Err() != nil {
			break
		}
		if !filter.Admit(listing, s.criteria, now) {
			continue
		}
		if _, dup := seen[listing.PairAddress]; dup {
			continue
		}
		seen[listing.PairAddress] = struct{}{}

		log := s.logger.With(
			slog.String("pair", listing.PairAddress),
			slog.String("symbol", listing.BaseToken.Symbol),
		)
		if s.held(ctx, listing.PairAddress, log) {
			continue
		}
		admitted++
		log.Info("pair admitted",
			slog.Float64("liquidity_usd", listing.LiquidityUSD),
			slog.Float64("volume_24h_usd", listing.Volume24hUSD),
			slog.Float64("price_usd", listing.PriceUSD),
		)

		buys.Add(1)
		listing := listing
		go func() {
			defer buys.Done()
			s.tryBuy(ctx, listing, log)
		}()
	}
	buys.Wait()

	s.logger.Info("scan cycle complete",
		slog.Int("pairs", len(listings)),
		slog.Int("admitted", admitted),
	)
}

// held reports whether the pair already has a live position. A lookup
// failure counts as held; buying blind risks a double position.
func (s *Scanner) held(ctx context.Context, pairAddress string, log *slog.Logger) bool {
	_, err := s.positions.GetByPair(ctx, pairAddress)
	switch {
	case err == nil:
		log.Debug("pair already held, skipping")
		return true
	case !errors.Is(err, domain.ErrNotFound):
		log.Warn("position lookup failed, skipping pair", slog.String("error", err.Error()))
		return true
	}
	return false
}

// tryBuy opens a position for an admitted listing under its own timeout.
func (s *Scanner) tryBuy(ctx context.Context, listing domain.Listing, log *slog.Logger) {
	buyCtx, cancel := context.WithTimeout(ctx, s.cfg.BuyTimeout)
	defer cancel()

	pos, err := s.buyer.SubmitBuy(buyCtx, listing, s.cfg.TradeAmountLamports)
	switch {
	case err == nil:
	case domain.IsAmbiguous(err):
		log.Warn("buy outcome unknown, reconciler will resolve", slog.String("error", err.Error()))
		return
	case domain.IsRejection(err) || errors.Is(err, domain.ErrNoRoute):
		log.Warn("buy rejected", slog.String("error", err.Error()))
		return
	default:
		log.Error("buy failed", slog.String("error", err.Error()))
		return
	}

	if err := s.watcher.Watch(ctx, pos); err != nil && !errors.Is(err, domain.ErrMonitorExists) {
		log.Error("monitor spawn failed", slog.String("error", err.Error()))
	}
}
