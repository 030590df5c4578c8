// Package executor owns order submission. Every buy and sell goes through
// the Coordinator, which serializes submissions per position, retries
// transient failures with bounded backoff, and records each attempt's
// outcome durably before reporting it.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/domain"
)

// solMint is the wrapped SOL mint address used as the input side of buys
// and the output side of sells.
const solMint = "So11111111111111111111111111111111111111112"

// Config bounds the coordinator's retry and locking behavior.
type Config struct {
	// MaxAttempts caps submission attempts per order, first try included.
	MaxAttempts int
	// RetryBaseDelay seeds the exponential backoff between attempts.
	RetryBaseDelay time.Duration
	// LockTTL bounds how long a per-position lock can outlive a crashed
	// holder.
	LockTTL time.Duration
	// ProfitTargetMult and StopLossMult fix a position's exit thresholds at
	// entry, as multiples of the entry price.
	ProfitTargetMult float64
	StopLossMult     float64
}

// Coordinator submits swaps and keeps the position and order records
// consistent with what actually reached the chain. At most one order per
// position is in flight at any time.
type Coordinator struct {
	positions domain.PositionStore
	orders    domain.OrderStore
	audit     domain.AuditStore
	router    domain.SwapRouter
	locks     domain.LockManager
	wallet    string
	cfg       Config
	logger    *slog.Logger
}

// NewCoordinator creates a Coordinator trading from the given wallet.
func NewCoordinator(
	positions domain.PositionStore,
	orders domain.OrderStore,
	audit domain.AuditStore,
	router domain.SwapRouter,
	locks domain.LockManager,
	wallet string,
	cfg Config,
	logger *slog.Logger,
) *Coordinator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	return &Coordinator{
		positions: positions,
		orders:    orders,
		audit:     audit,
		router:    router,
		locks:     locks,
		wallet:    wallet,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "executor")),
	}
}

// SubmitBuy opens a position for an admitted listing by swapping
// amountLamports of SOL into the listed token.
//
// The position is created pending before the swap is sent, so a crash
// between send and confirmation leaves a record the reconciler can resolve.
// A confirmed fill moves it to open; a definitive rejection moves it to
// failed; an unobserved outcome leaves it pending and returns
// AmbiguousError.
func (c *Coordinator) SubmitBuy(ctx context.Context, listing domain.Listing, amountLamports uint64) (domain.Position, error) {
	log := c.logger.With(
		slog.String("pair", listing.PairAddress),
		slog.String("token", listing.BaseToken.Symbol),
	)

	quote, err := c.quoteWithRetry(ctx, solMint, listing.BaseToken.Address, amountLamports, log)
	if err != nil {
		return domain.Position{}, fmt.Errorf("executor: buy quote: %w", err)
	}

	pos := domain.Position{
		ID:           uuid.New().String(),
		PairAddress:  listing.PairAddress,
		TokenMint:    listing.BaseToken.Address,
		TokenSymbol:  listing.BaseToken.Symbol,
		EntryPrice:   listing.PriceUSD,
		Quantity:     quote.OutAmount,
		ProfitTarget: listing.PriceUSD * c.cfg.ProfitTargetMult,
		StopLoss:     listing.PriceUSD * c.cfg.StopLossMult,
		Status:       domain.PositionStatusPending,
		OpenedAt:     time.Now().UTC(),
	}
	if err := c.positions.Create(ctx, pos); err != nil {
		return domain.Position{}, fmt.Errorf("executor: create position: %w", err)
	}
	log = log.With(slog.String("position_id", pos.ID))

	release, err := c.locks.Acquire(ctx, lockKey(pos.ID), c.cfg.LockTTL)
	if err != nil {
		if err == domain.ErrLockHeld {
			return domain.Position{}, domain.ErrOrderInFlight
		}
		return domain.Position{}, fmt.Errorf("executor: acquire lock: %w", err)
	}
	defer release()

	order := domain.Order{
		ID:         uuid.New().String(),
		PositionID: pos.ID,
		Side:       domain.OrderSideBuy,
		AmountIn:   float64(amountLamports),
		Outcome:    domain.OrderOutcomePending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := c.orders.Create(ctx, order); err != nil {
		return domain.Position{}, fmt.Errorf("executor: create order: %w", err)
	}

	outcome, err := c.submitWithRetry(ctx, quote, log)
	if err != nil {
		if isCanceled(err) {
			// Cut off before anything was sent. The order and position stay
			// pending; the reconciler settles them from the ledger after a
			// restart instead of this path guessing a terminal verdict.
			log.Warn("buy abandoned before submission", slog.String("error", err.Error()))
			return domain.Position{}, fmt.Errorf("executor: submit buy: %w", err)
		}
		// Nothing reached the chain; the position is definitively dead.
		c.resolveOrder(ctx, order.ID, domain.OrderOutcomeRejected, "", err.Error(), log)
		c.transition(ctx, pos.ID, domain.PositionStatusPending, domain.PositionStatusFailed, log)
		return domain.Position{}, fmt.Errorf("executor: submit buy: %w", err)
	}

	switch outcome.Status {
	case domain.SubmissionConfirmed:
		c.resolveOrder(ctx, order.ID, domain.OrderOutcomeConfirmed, outcome.TxSignature, "", log)
		c.transition(ctx, pos.ID, domain.PositionStatusPending, domain.PositionStatusOpen, log)
		pos.Status = domain.PositionStatusOpen
		c.auditLog(ctx, "position_opened", map[string]any{
			"position_id": pos.ID,
			"pair":        pos.PairAddress,
			"symbol":      pos.TokenSymbol,
			"entry_price": pos.EntryPrice,
			"tx":          outcome.TxSignature,
		})
		log.Info("buy confirmed", slog.String("tx", outcome.TxSignature))
		return pos, nil

	case domain.SubmissionRejected:
		c.resolveOrder(ctx, order.ID, domain.OrderOutcomeRejected, outcome.TxSignature, outcome.Reason, log)
		c.transition(ctx, pos.ID, domain.PositionStatusPending, domain.PositionStatusFailed, log)
		log.Warn("buy rejected", slog.String("reason", outcome.Reason))
		return domain.Position{}, domain.Reject("executor: submit buy", outcome.Reason)

	default:
		// The swap may or may not have landed. Record what we know and leave
		// resolution to the reconciler; retrying here could double-buy.
		c.resolveOrder(ctx, order.ID, domain.OrderOutcomeUnknown, outcome.TxSignature, outcome.Reason, log)
		c.auditLog(ctx, "buy_outcome_unknown", map[string]any{
			"position_id": pos.ID,
			"tx":          outcome.TxSignature,
			"reason":      outcome.Reason,
		})
		log.Warn("buy outcome unknown", slog.String("tx", outcome.TxSignature))
		return domain.Position{}, &domain.AmbiguousError{TxSignature: outcome.TxSignature}
	}
}

// SubmitSell exits an open position at the trigger price that fired.
//
// The position moves open -> exiting before anything is sent; a stale
// transition means another actor got there first and the sell is dropped.
// From there the leg runs detached from the caller's context, so process
// shutdown cannot interrupt an exit in flight. A confirmed fill closes the
// position, a definitive rejection marks it failed for manual intervention,
// an unobserved outcome leaves it exiting with AmbiguousError, and a leg
// cut off before anything was sent returns the position to open so its
// monitor can fire again.
func (c *Coordinator) SubmitSell(ctx context.Context, positionID string, exitPrice float64, trigger string) (domain.Order, error) {
	log := c.logger.With(
		slog.String("position_id", positionID),
		slog.String("trigger", trigger),
	)

	pos, err := c.positions.GetByID(ctx, positionID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("executor: load position: %w", err)
	}

	release, err := c.locks.Acquire(ctx, lockKey(positionID), c.cfg.LockTTL)
	if err != nil {
		if err == domain.ErrLockHeld {
			return domain.Order{}, domain.ErrOrderInFlight
		}
		return domain.Order{}, fmt.Errorf("executor: acquire lock: %w", err)
	}
	defer release()

	if err := c.positions.UpdateStatus(ctx, positionID, domain.PositionStatusOpen, domain.PositionStatusExiting); err != nil {
		return domain.Order{}, fmt.Errorf("executor: begin exit: %w", err)
	}

	// Once the position is committed to exiting, the leg keeps running
	// through process shutdown; tearing it down mid-flight would strand the
	// tokens behind a dead status. LockTTL bounds the detached context so
	// the leg cannot outlive the lock that serializes it.
	sellCtx, cancelSell := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.LockTTL)
	defer cancelSell()

	order := domain.Order{
		ID:         uuid.New().String(),
		PositionID: positionID,
		Side:       domain.OrderSideSell,
		AmountIn:   float64(pos.Quantity),
		Outcome:    domain.OrderOutcomePending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := c.orders.Create(sellCtx, order); err != nil {
		return domain.Order{}, fmt.Errorf("executor: create order: %w", err)
	}

	quote, err := c.quoteWithRetry(sellCtx, pos.TokenMint, solMint, pos.Quantity, log)
	if err != nil {
		if isCanceled(err) {
			c.abandonExit(order.ID, positionID, err, log)
			return domain.Order{}, fmt.Errorf("executor: sell quote: %w", err)
		}
		c.resolveOrder(sellCtx, order.ID, domain.OrderOutcomeRejected, "", err.Error(), log)
		c.transition(sellCtx, positionID, domain.PositionStatusExiting, domain.PositionStatusFailed, log)
		return domain.Order{}, fmt.Errorf("executor: sell quote: %w", err)
	}

	outcome, err := c.submitWithRetry(sellCtx, quote, log)
	if err != nil {
		if isCanceled(err) {
			c.abandonExit(order.ID, positionID, err, log)
			return domain.Order{}, fmt.Errorf("executor: submit sell: %w", err)
		}
		c.resolveOrder(sellCtx, order.ID, domain.OrderOutcomeRejected, "", err.Error(), log)
		c.transition(sellCtx, positionID, domain.PositionStatusExiting, domain.PositionStatusFailed, log)
		return domain.Order{}, fmt.Errorf("executor: submit sell: %w", err)
	}

	switch outcome.Status {
	case domain.SubmissionConfirmed:
		c.resolveOrder(sellCtx, order.ID, domain.OrderOutcomeConfirmed, outcome.TxSignature, "", log)
		if err := c.positions.MarkClosed(sellCtx, positionID, exitPrice); err != nil {
			log.Error("mark closed failed", slog.String("error", err.Error()))
		}
		order.Outcome = domain.OrderOutcomeConfirmed
		order.TxSignature = outcome.TxSignature
		c.auditLog(sellCtx, "position_closed", map[string]any{
			"position_id": positionID,
			"exit_price":  exitPrice,
			"trigger":     trigger,
			"tx":          outcome.TxSignature,
		})
		log.Info("sell confirmed",
			slog.Float64("exit_price", exitPrice),
			slog.String("tx", outcome.TxSignature),
		)
		return order, nil

	case domain.SubmissionRejected:
		c.resolveOrder(sellCtx, order.ID, domain.OrderOutcomeRejected, outcome.TxSignature, outcome.Reason, log)
		c.transition(sellCtx, positionID, domain.PositionStatusExiting, domain.PositionStatusFailed, log)
		order.Outcome = domain.OrderOutcomeRejected
		order.Reason = outcome.Reason
		log.Warn("sell rejected", slog.String("reason", outcome.Reason))
		return order, domain.Reject("executor: submit sell", outcome.Reason)

	default:
		c.resolveOrder(sellCtx, order.ID, domain.OrderOutcomeUnknown, outcome.TxSignature, outcome.Reason, log)
		c.auditLog(sellCtx, "sell_outcome_unknown", map[string]any{
			"position_id": positionID,
			"tx":          outcome.TxSignature,
			"reason":      outcome.Reason,
		})
		order.Outcome = domain.OrderOutcomeUnknown
		order.TxSignature = outcome.TxSignature
		log.Warn("sell outcome unknown", slog.String("tx", outcome.TxSignature))
		return order, &domain.AmbiguousError{TxSignature: outcome.TxSignature}
	}
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func lockKey(positionID string) string {
	return "position:" + positionID
}

// isCanceled reports whether err is a context cancellation or deadline
// rather than a verdict from the router.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// abandonExit unwinds an exit that was cut off before anything reached the
// chain: the order is resolved rejected and the position returns to open so
// its monitor can trigger the sell again. Runs on a fresh context because
// the submission context is already dead.
func (c *Coordinator) abandonExit(orderID, positionID string, cause error, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.resolveOrder(ctx, orderID, domain.OrderOutcomeRejected, "", "abandoned before submission: "+cause.Error(), log)
	c.transition(ctx, positionID, domain.PositionStatusExiting, domain.PositionStatusOpen, log)
	log.Warn("sell abandoned before submission", slog.String("error", cause.Error()))
}

// quoteWithRetry fetches a quote, retrying transient failures with
// exponential backoff up to the attempt cap. ErrNoRoute and other
// definitive errors are returned immediately.
func (c *Coordinator) quoteWithRetry(ctx context.Context, inputMint, outputMint string, amount uint64, log *slog.Logger) (domain.Quote, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryBaseDelay

	for attempt := 1; ; attempt++ {
		quote, err := c.router.GetQuote(ctx, inputMint, outputMint, amount)
		if err == nil {
			return quote, nil
		}
		if !domain.IsTransient(err) || attempt >= c.cfg.MaxAttempts {
			return domain.Quote{}, err
		}

		sleep := bo.NextBackOff()
		if sleep == backoff.Stop {
			sleep = c.cfg.RetryBaseDelay
		}
		log.Warn("quote failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("sleep", sleep),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return domain.Quote{}, ctx.Err()
		case <-time.After(sleep):
		}
	}
}

// submitWithRetry sends the swap, retrying only failures that happen
// strictly before anything reaches the chain. Once an outcome exists, even
// a rejection, it is returned as-is; in particular an unknown outcome is
// never retried because the first attempt may have landed.
func (c *Coordinator) submitWithRetry(ctx context.Context, quote domain.Quote, log *slog.Logger) (domain.SubmissionOutcome, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryBaseDelay

	for attempt := 1; ; attempt++ {
		outcome, err := c.router.SubmitSwap(ctx, quote, c.wallet)
		if err == nil {
			return outcome, nil
		}
		if !domain.IsTransient(err) || attempt >= c.cfg.MaxAttempts {
			return domain.SubmissionOutcome{}, err
		}

		sleep := bo.NextBackOff()
		if sleep == backoff.Stop {
			sleep = c.cfg.RetryBaseDelay
		}
		log.Warn("swap build failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("sleep", sleep),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return domain.SubmissionOutcome{}, ctx.Err()
		case <-time.After(sleep):
		}
	}
}

// resolveOrder records an order's final outcome, logging rather than
// failing the submission path if the write is lost.
func (c *Coordinator) resolveOrder(ctx context.Context, orderID string, outcome domain.OrderOutcome, txSignature, reason string, log *slog.Logger) {
	if err := c.orders.Resolve(ctx, orderID, outcome, txSignature, reason); err != nil {
		log.Error("order resolve failed",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}
}

func (c *Coordinator) transition(ctx context.Context, positionID string, from, to domain.PositionStatus, log *slog.Logger) {
	if err := c.positions.UpdateStatus(ctx, positionID, from, to); err != nil {
		log.Error("status transition failed",
			slog.String("from", string(from)),
			slog.String("to", string(to)),
			slog.String("error", err.Error()),
		)
	}
}

func (c *Coordinator) auditLog(ctx context.Context, event string, detail map[string]any) {
	if c.audit == nil {
		return
	}
	if err := c.audit.Log(ctx, event, detail); err != nil {
		c.logger.Warn("audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
