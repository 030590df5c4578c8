package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/domain"
	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/executor"
	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/monitor"
	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/reconcile"
	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/scanner"
)

const lamportsPerSOL = 1_000_000_000

// Feed polling is throttled well below the published DEX Screener limit so
// several bot instances can share one API quota.
const (
	feedRateLimit  = 30
	feedRateWindow = time.Minute
)

// TradeMode runs the full bot: discovery, execution, monitoring, and
// reconciliation. It blocks until the context is cancelled or a component
// fails fatally.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	if deps.Router == nil {
		return fmt.Errorf("app: trade mode requires a wallet key")
	}

	a.logger.InfoContext(ctx, "starting trade mode",
		slog.String("wallet", deps.Wallet),
		slog.String("chain", a.cfg.DexScreener.Chain),
	)

	g, ctx := errgroup.WithContext(ctx)

	coord := a.buildCoordinator(deps)
	mgr := monitor.NewManager(deps.Feed, coord, deps.PriceCache, a.logger)

	a.resumeMonitors(ctx, deps, mgr)

	scan := scanner.New(
		deps.Feed,
		domain.FilterCriteria{
			MinLiquidityUSD: a.cfg.Scan.MinLiquidityUSD,
			MinVolumeUSD:    a.cfg.Scan.MinVolumeUSD,
			MaxAge:          a.cfg.Scan.MaxContractAge.Duration,
		},
		deps.PositionStore,
		coord,
		mgr,
		deps.RateLimiter,
		scanner.Config{
			Chain:               a.cfg.DexScreener.Chain,
			PollInterval:        a.cfg.Scan.PollInterval.Duration,
			TradeAmountLamports: uint64(a.cfg.Scan.TradeAmountSOL * lamportsPerSOL),
			BuyTimeout:          a.cfg.Executor.SubmitTimeout.Duration * 2,
			RateLimit:           feedRateLimit,
			RateWindow:          feedRateWindow,
		},
		a.logger,
	)
	g.Go(func() error {
		return scan.Run(ctx)
	})

	g.Go(func() error {
		return a.buildReconciler(deps, mgr).Run(ctx)
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			return a.runArchiveLoop(ctx, deps.Archiver)
		})
	}

	err := g.Wait()
	mgr.Wait()
	return err
}

// MonitorMode resumes monitors and reconciliation for existing positions
// without admitting new listings. Without a wallet key, exit triggers are
// recorded but cannot be executed.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	var seller monitor.Seller
	if deps.Router != nil {
		seller = a.buildCoordinator(deps)
	} else {
		a.logger.Warn("no wallet key configured; exit triggers will be logged, not executed")
		seller = &logSeller{audit: deps.AuditStore, logger: a.logger}
	}

	mgr := monitor.NewManager(deps.Feed, seller, deps.PriceCache, a.logger)
	a.resumeMonitors(ctx, deps, mgr)

	g.Go(func() error {
		return a.buildReconciler(deps, mgr).Run(ctx)
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			return a.runArchiveLoop(ctx, deps.Archiver)
		})
	}

	err := g.Wait()
	mgr.Wait()
	return err
}

func (a *App) buildCoordinator(deps *Dependencies) *executor.Coordinator {
	return executor.NewCoordinator(
		deps.PositionStore,
		deps.OrderStore,
		deps.AuditStore,
		deps.Router,
		deps.LockManager,
		deps.Wallet,
		executor.Config{
			MaxAttempts:      a.cfg.Executor.MaxRetryAttempts,
			RetryBaseDelay:   a.cfg.Executor.RetryBaseDelay.Duration,
			ProfitTargetMult: a.cfg.Exit.ProfitTarget,
			StopLossMult:     a.cfg.Exit.StopLoss,
		},
		a.logger,
	)
}

func (a *App) buildReconciler(deps *Dependencies, mgr *monitor.Manager) *reconcile.Reconciler {
	return reconcile.New(
		deps.OrderStore,
		deps.PositionStore,
		deps.Chain,
		deps.PriceCache,
		mgr,
		deps.AuditStore,
		reconcile.Config{
			Interval:    a.cfg.Reconcile.Interval.Duration,
			GiveUpAfter: a.cfg.Reconcile.Expiry.Duration,
		},
		a.logger,
	)
}

// resumeMonitors re-arms price monitoring for every open position after a
// restart. Pending and exiting positions are left to the reconciler, whose
// first sweep runs immediately and settles their unknown orders.
func (a *App) resumeMonitors(ctx context.Context, deps *Dependencies, mgr *monitor.Manager) {
	positions, err := deps.PositionStore.ListOpen(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to list open positions; monitors not resumed",
			slog.String("error", err.Error()),
		)
		return
	}

	var resumed, deferred int
	for _, pos := range positions {
		if pos.Status != domain.PositionStatusOpen {
			deferred++
			continue
		}
		if err := mgr.Watch(ctx, pos); err != nil {
			a.logger.WarnContext(ctx, "failed to resume monitor",
				slog.String("position_id", pos.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		resumed++
	}

	a.logger.InfoContext(ctx, "startup position resume complete",
		slog.Int("monitors_resumed", resumed),
		slog.Int("left_to_reconciler", deferred),
	)
}

// runArchiveLoop periodically exports aged records to blob storage.
func (a *App) runArchiveLoop(ctx context.Context, archiver domain.Archiver) error {
	log := a.logger.With(slog.String("component", "archive_loop"))
	interval := a.cfg.Archive.Interval.Duration
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.Archive.RetentionDays)

		posCount, err := archiver.ArchivePositions(ctx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "position archive failed", slog.String("error", err.Error()))
		}
		auditCount, err := archiver.ArchiveAuditLog(ctx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "audit log archive failed", slog.String("error", err.Error()))
		}

		log.InfoContext(ctx, "archive cycle complete",
			slog.Time("cutoff", cutoff),
			slog.Int64("positions", posCount),
			slog.Int64("audit_entries", auditCount),
		)
	}
}

// logSeller is the monitor-mode fallback when no signing key is available.
// It records the exit trigger so an operator can act on it manually.
type logSeller struct {
	audit  domain.AuditStore
	logger *slog.Logger
}

func (s *logSeller) SubmitSell(ctx context.Context, positionID string, exitPrice float64, trigger string) (domain.Order, error) {
	s.logger.WarnContext(ctx, "exit trigger dropped: no wallet key",
		slog.String("position_id", positionID),
		slog.Float64("exit_price", exitPrice),
		slog.String("trigger", trigger),
	)
	if err := s.audit.Log(ctx, "exit_trigger_unexecuted", map[string]any{
		"position_id": positionID,
		"exit_price":  exitPrice,
		"trigger":     trigger,
	}); err != nil {
		s.logger.WarnContext(ctx, "audit write failed", slog.String("error", err.Error()))
	}
	return domain.Order{}, fmt.Errorf("app: no wallet key configured, sell not submitted")
}
