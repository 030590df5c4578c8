// Package monitor watches open positions. Each position gets its own
// goroutine that consumes the pair's live price stream and fires a single
// sell when an exit threshold is crossed.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/domain"
)

const (
	// TriggerProfitTarget and TriggerStopLoss name the threshold that fired,
	// recorded on the resulting sell.
	TriggerProfitTarget = "profit_target"
	TriggerStopLoss     = "stop_loss"

	// maxResubscribeDelay caps the backoff between stream reconnects.
	maxResubscribeDelay = time.Minute
)

// Seller is the sell side of the execution coordinator.
type Seller interface {
	SubmitSell(ctx context.Context, positionID string, exitPrice float64, trigger string) (domain.Order, error)
}

// Manager owns the monitor goroutines. It guarantees at most one monitor
// per position and tears them all down on shutdown.
type Manager struct {
	feed   domain.MarketFeed
	seller Seller
	prices domain.PriceCache // optional; latest tick per pair
	logger *slog.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates a monitor manager. prices may be nil.
func NewManager(feed domain.MarketFeed, seller Seller, prices domain.PriceCache, logger *slog.Logger) *Manager {
	return &Manager{
		feed:    feed,
		seller:  seller,
		prices:  prices,
		logger:  logger.With(slog.String("component", "monitor")),
		running: make(map[string]context.CancelFunc),
	}
}

// Watch spawns a monitor goroutine for the position. It returns
// ErrMonitorExists when one is already running, and an error when the
// position is not in a watchable state.
func (m *Manager) Watch(ctx context.Context, pos domain.Position) error {
	if pos.Status != domain.PositionStatusOpen {
		return domain.ErrStaleTransition
	}

	m.mu.Lock()
	if _, ok := m.running[pos.ID]; ok {
		m.mu.Unlock()
		return domain.ErrMonitorExists
	}
	watchCtx, cancel := context.WithCancel(ctx)
	m.running[pos.ID] = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.release(pos.ID)
		m.watch(watchCtx, pos)
	}()
	return nil
}

// IsWatching reports whether a monitor is running for the position.
func (m *Manager) IsWatching(positionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.running[positionID]
	return ok
}

// Running returns the number of active monitors.
func (m *Manager) Running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.running)
}

// Stop cancels the monitor for one position, if any.
func (m *Manager) Stop(positionID string) {
	m.mu.Lock()
	cancel, ok := m.running[positionID]
	m.mu.Unlock()
	if ok {
		cancel()
	}
}

// Wait blocks until every monitor goroutine has exited. Cancel the parent
// context first.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) release(positionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cancel, ok := m.running[positionID]; ok {
		cancel()
		delete(m.running, positionID)
	}
}

// watch is the per-position loop: subscribe, consume ticks, fire at most
// one sell, terminate. Stream disconnects resubscribe with backoff; the
// loop only ends on trigger or context cancellation.
func (m *Manager) watch(ctx context.Context, pos domain.Position) {
	log := m.logger.With(
		slog.String("position_id", pos.ID),
		slog.String("pair", pos.PairAddress),
		slog.String("symbol", pos.TokenSymbol),
	)
	log.Info("monitor started",
		slog.Float64("profit_target", pos.ProfitTarget),
		slog.Float64("stop_loss", pos.StopLoss),
	)
	defer log.Info("monitor stopped")

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = maxResubscribeDelay

	for {
		if ctx.Err() != nil {
			return
		}

		ticks, err := m.feed.SubscribePrices(ctx, pos.PairAddress)
		if err != nil {
			sleep := bo.NextBackOff()
			if sleep == backoff.Stop {
				sleep = maxResubscribeDelay
			}
			log.Warn("price subscribe failed",
				slog.Duration("sleep", sleep),
				slog.String("error", err.Error()),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(sleep):
			}
			continue
		}
		bo.Reset()

		if m.consume(ctx, pos, ticks, log) {
			return
		}

		// Stream closed without a trigger; resubscribe after a pause.
		sleep := bo.NextBackOff()
		if sleep == backoff.Stop {
			sleep = maxResubscribeDelay
		}
		log.Warn("price stream closed, resubscribing", slog.Duration("sleep", sleep))
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

// consume reads ticks until the channel closes or a threshold fires. It
// returns true when the monitor is done.
func (m *Manager) consume(ctx context.Context, pos domain.Position, ticks <-chan domain.PriceTick, log *slog.Logger) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case tick, ok := <-ticks:
			if !ok {
				return false
			}
			if m.prices != nil {
				if err := m.prices.SetPrice(ctx, tick.PairAddress, tick.PriceUSD, tick.Timestamp); err != nil {
					log.Debug("price cache write failed", slog.String("error", err.Error()))
				}
			}

			trigger, fired := evaluate(pos, tick.PriceUSD)
			if !fired {
				continue
			}

			log.Info("exit threshold crossed",
				slog.Float64("price", tick.PriceUSD),
				slog.String("trigger", trigger),
			)
			m.sell(ctx, pos, tick.PriceUSD, trigger, log)
			return true
		}
	}
}

// evaluate reports which threshold, if any, the price crossed. Both
// comparisons are inclusive, so there is no price that satisfies neither
// check once it leaves the open interval between the thresholds.
func evaluate(pos domain.Position, price float64) (string, bool) {
	switch {
	case price >= pos.ProfitTarget:
		return TriggerProfitTarget, true
	case price <= pos.StopLoss:
		return TriggerStopLoss, true
	default:
		return "", false
	}
}

// sell fires the exit exactly once. Whatever the coordinator reports, the
// monitor terminates: an ambiguous outcome is the reconciler's to resolve,
// and a second sell here could double-spend the tokens.
func (m *Manager) sell(ctx context.Context, pos domain.Position, price float64, trigger string, log *slog.Logger) {
	_, err := m.seller.SubmitSell(ctx, pos.ID, price, trigger)
	switch {
	case err == nil:
		return
	case domain.IsAmbiguous(err):
		log.Warn("sell outcome unknown, leaving to reconciler", slog.String("error", err.Error()))
	case errors.Is(err, domain.ErrOrderInFlight):
		log.Warn("sell already in flight elsewhere")
	default:
		log.Error("sell failed", slog.String("error", err.Error()))
	}
}
