// Package reconcile resolves orders whose submission outcome could not be
// observed. It is the only component allowed to decide the fate of an
// unknown order, and it does so from the ledger, never by guessing.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/domain"
)

// Watcher spawns a price monitor for a position that turned out to be open.
type Watcher interface {
	Watch(ctx context.Context, pos domain.Position) error
}

// Config tunes the reconciliation loop.
type Config struct {
	// Interval is the pause between reconciliation sweeps.
	Interval time.Duration
	// GiveUpAfter is how long an unknown order may stay invisible on the
	// ledger before it is declared dead. Transactions reference a recent
	// blockhash and cannot land after it expires, so a signature still
	// absent well past that horizon will never appear.
	GiveUpAfter time.Duration
}

// Reconciler sweeps unknown orders and settles them against the chain.
type Reconciler struct {
	orders    domain.OrderStore
	positions domain.PositionStore
	chain     domain.ChainReader
	prices    domain.PriceCache // optional; supplies exit price for late-confirmed sells
	watcher   Watcher           // optional; re-arms monitoring for late-confirmed buys
	audit     domain.AuditStore
	cfg       Config
	logger    *slog.Logger
}

// New creates a Reconciler. prices, watcher, and audit may be nil.
func New(
	orders domain.OrderStore,
	positions domain.PositionStore,
	chain domain.ChainReader,
	prices domain.PriceCache,
	watcher Watcher,
	audit domain.AuditStore,
	cfg Config,
	logger *slog.Logger,
) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.GiveUpAfter <= 0 {
		cfg.GiveUpAfter = 10 * time.Minute
	}
	return &Reconciler{
		orders:    orders,
		positions: positions,
		chain:     chain,
		prices:    prices,
		watcher:   watcher,
		audit:     audit,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "reconciler")),
	}
}

// Run sweeps until the context is cancelled. The first sweep runs
// immediately so a restart settles stale state without waiting.
func (r *Reconciler) Run(ctx context.Context) error {
	r.logger.Info("reconciler started", slog.Duration("interval", r.cfg.Interval))
	defer r.logger.Info("reconciler stopped")

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep resolves every unsettled order it can: unknown outcomes, plus
// pending orders old enough that their submitter must have crashed between
// create and resolve. Failures on one order never block the rest.
func (r *Reconciler) Sweep(ctx context.Context) {
	orders, err := r.orders.ListUnsettled(ctx, time.Now().UTC().Add(-r.cfg.GiveUpAfter))
	if err != nil {
		r.logger.Error("listing unsettled orders failed", slog.String("error", err.Error()))
		return
	}

	for _, order := range orders {
		if ctx.Err() != nil {
			return
		}
		r.resolve(ctx, order)
	}
}

func (r *Reconciler) resolve(ctx context.Context, order domain.Order) {
	log := r.logger.With(
		slog.String("order_id", order.ID),
		slog.String("position_id", order.PositionID),
		slog.String("side", string(order.Side)),
		slog.String("tx", order.TxSignature),
	)

	if order.TxSignature == "" {
		// Nothing to look up; the send never produced a signature, so the
		// swap cannot have reached the chain.
		r.settleFailed(ctx, order, "no transaction signature recorded", log)
		return
	}

	status, err := r.chain.SignatureStatus(ctx, order.TxSignature)
	if err != nil {
		log.Warn("signature status unavailable", slog.String("error", err.Error()))
		return
	}

	switch status {
	case domain.TxStatusConfirmed:
		r.settleConfirmed(ctx, order, log)
	case domain.TxStatusFailed:
		r.settleFailed(ctx, order, "transaction failed on chain", log)
	case domain.TxStatusNotFound:
		if time.Since(order.CreatedAt) > r.cfg.GiveUpAfter {
			r.settleFailed(ctx, order, "transaction never appeared on chain", log)
		} else {
			log.Debug("transaction not yet visible, keeping unknown")
		}
	}
}

// settleConfirmed records a late-observed fill: a buy opens the position
// and re-arms its monitor, a sell closes it.
func (r *Reconciler) settleConfirmed(ctx context.Context, order domain.Order, log *slog.Logger) {
	if err := r.orders.Resolve(ctx, order.ID, domain.OrderOutcomeConfirmed, order.TxSignature, ""); err != nil {
		log.Error("order resolve failed", slog.String("error", err.Error()))
		return
	}

	switch order.Side {
	case domain.OrderSideBuy:
		if err := r.positions.UpdateStatus(ctx, order.PositionID, domain.PositionStatusPending, domain.PositionStatusOpen); err != nil {
			log.Warn("position open transition failed", slog.String("error", err.Error()))
			return
		}
		log.Info("unknown buy resolved confirmed")
		r.auditLog(ctx, "reconciled_buy_confirmed", order)

		if r.watcher != nil {
			pos, err := r.positions.GetByID(ctx, order.PositionID)
			if err != nil {
				log.Error("position load failed", slog.String("error", err.Error()))
				return
			}
			if err := r.watcher.Watch(ctx, pos); err != nil && err != domain.ErrMonitorExists {
				log.Error("monitor spawn failed", slog.String("error", err.Error()))
			}
		}

	case domain.OrderSideSell:
		exitPrice := r.lastPrice(ctx, order.PositionID)
		if err := r.positions.MarkClosed(ctx, order.PositionID, exitPrice); err != nil {
			log.Warn("position close failed", slog.String("error", err.Error()))
			return
		}
		log.Info("unknown sell resolved confirmed", slog.Float64("exit_price", exitPrice))
		r.auditLog(ctx, "reconciled_sell_confirmed", order)
	}
}

// settleFailed records a definitively dead order and moves its position to
// failed from whichever non-terminal status it is in.
func (r *Reconciler) settleFailed(ctx context.Context, order domain.Order, reason string, log *slog.Logger) {
	if err := r.orders.Resolve(ctx, order.ID, domain.OrderOutcomeRejected, order.TxSignature, reason); err != nil {
		log.Error("order resolve failed", slog.String("error", err.Error()))
		return
	}

	from := domain.PositionStatusPending
	if order.Side == domain.OrderSideSell {
		from = domain.PositionStatusExiting
	}
	if err := r.positions.UpdateStatus(ctx, order.PositionID, from, domain.PositionStatusFailed); err != nil {
		log.Warn("position fail transition skipped", slog.String("error", err.Error()))
	}

	log.Info("unknown order resolved failed", slog.String("reason", reason))
	r.auditLog(ctx, "reconciled_order_failed", order)
}

// lastPrice returns the most recent cached price for the position's pair,
// or zero when no observation exists. A zero exit price on a reconciled
// sell means "fill price unobserved", not a free sale.
func (r *Reconciler) lastPrice(ctx context.Context, positionID string) float64 {
	if r.prices == nil {
		return 0
	}
	pos, err := r.positions.GetByID(ctx, positionID)
	if err != nil {
		return 0
	}
	price, _, err := r.prices.GetPrice(ctx, pos.PairAddress)
	if err != nil {
		return 0
	}
	return price
}

func (r *Reconciler) auditLog(ctx context.Context, event string, order domain.Order) {
	if r.audit == nil {
		return
	}
	detail := map[string]any{
		"order_id":    order.ID,
		"position_id": order.PositionID,
		"side":        string(order.Side),
		"tx":          order.TxSignature,
	}
	if err := r.audit.Log(ctx, event, detail); err != nil {
		r.logger.Warn("audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
