package scanner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/domain"
)

type fakeFeed struct {
	listings []domain.Listing
	err      error
	calls    int
}

func (f *fakeFeed) ActiveListings(ctx context.Context, chain string) ([]domain.Listing, error) {
	f.calls++
	return f.listings, f.err
}

func (f *fakeFeed) SubscribePrices(ctx context.Context, pairAddress string) (<-chan domain.PriceTick, error) {
	return nil, errors.New("not implemented")
}

type fakeBuyer struct {
	mu     sync.Mutex
	bought []string
	err    error
}

func (f *fakeBuyer) SubmitBuy(ctx context.Context, listing domain.Listing, amountLamports uint64) (domain.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bought = append(f.bought, listing.PairAddress)
	if f.err != nil {
		return domain.Position{}, f.err
	}
	return domain.Position{
		ID:          "pos-" + listing.PairAddress,
		PairAddress: listing.PairAddress,
		Status:      domain.PositionStatusOpen,
	}, nil
}

type fakeWatcher struct {
	mu      sync.Mutex
	watched []string
	err     error
}

func (f *fakeWatcher) Watch(ctx context.Context, pos domain.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watched = append(f.watched, pos.ID)
	return f.err
}

type fakePositions struct {
	held map[string]domain.Position
}

func (f *fakePositions) GetByPair(ctx context.Context, pairAddress string) (domain.Position, error) {
	if pos, ok := f.held[pairAddress]; ok {
		return pos, nil
	}
	return domain.Position{}, domain.ErrNotFound
}

func (f *fakePositions) Create(ctx context.Context, pos domain.Position) error { return nil }
func (f *fakePositions) UpdateStatus(ctx context.Context, id string, from, to domain.PositionStatus) error {
	return nil
}
func (f *fakePositions) MarkClosed(ctx context.Context, id string, exitPrice float64) error {
	return nil
}
func (f *fakePositions) GetByID(ctx context.Context, id string) (domain.Position, error) {
	return domain.Position{}, domain.ErrNotFound
}
func (f *fakePositions) ListOpen(ctx context.Context) ([]domain.Position, error) { return nil, nil }
func (f *fakePositions) ListHistory(ctx context.Context, opts domain.ListOpts) ([]domain.Position, error) {
	return nil, nil
}
func (f *fakePositions) ListClosedBefore(ctx context.Context, before time.Time) ([]domain.Position, error) {
	return nil, nil
}
func (f *fakePositions) StatusHistory(ctx context.Context, id string) ([]domain.StatusChange, error) {
	return nil, nil
}

type fakeLimiter struct {
	allowed bool
	calls   int
}

func (f *fakeLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	f.calls++
	return f.allowed, nil
}

// stallBuyer blocks one pair's buy until released, recording every buy that
// starts in the meantime.
type stallBuyer struct {
	mu      sync.Mutex
	started []string
	stall   string
	release chan struct{}
}

func (b *stallBuyer) SubmitBuy(ctx context.Context, listing domain.Listing, amountLamports uint64) (domain.Position, error) {
	b.mu.Lock()
	b.started = append(b.started, listing.PairAddress)
	stalled := listing.PairAddress == b.stall
	b.mu.Unlock()

	if stalled {
		select {
		case <-b.release:
		case <-ctx.Done():
			return domain.Position{}, ctx.Err()
		}
	}
	return domain.Position{
		ID:          "pos-" + listing.PairAddress,
		PairAddress: listing.PairAddress,
		Status:      domain.PositionStatusOpen,
	}, nil
}

func (b *stallBuyer) startedPairs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.started...)
}

func goodListing(pair string) domain.Listing {
	return domain.Listing{
		PairAddress:   pair,
		ChainID:       "solana",
		BaseToken:     domain.Token{Address: "MINT-" + pair, Symbol: "MEME"},
		LiquidityUSD:  50_000,
		Volume24hUSD:  20_000,
		PriceUSD:      0.004,
		PairCreatedAt: time.Now().UTC().Add(-time.Hour),
	}
}

func testCriteria() domain.FilterCriteria {
	return domain.FilterCriteria{
		MinLiquidityUSD: 10_000,
		MinVolumeUSD:    5_000,
		MaxAge:          24 * time.Hour,
	}
}

func newScanner(feed *fakeFeed, buyer Buyer, watcher *fakeWatcher, positions *fakePositions, limiter domain.RateLimiter, cfg Config) *Scanner {
	if positions == nil {
		positions = &fakePositions{}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(feed, testCriteria(), positions, buyer, watcher, limiter, cfg, logger)
}

func TestScanBuysAdmittedPairs(t *testing.T) {
	stale := goodListing("OLD")
	stale.PairCreatedAt = time.Now().UTC().Add(-48 * time.Hour)

	thin := goodListing("THIN")
	thin.LiquidityUSD = 500

	feed := &fakeFeed{listings: []domain.Listing{goodListing("PAIR1"), stale, thin, goodListing("PAIR2")}}
	buyer := &fakeBuyer{}
	watcher := &fakeWatcher{}
	s := newScanner(feed, buyer, watcher, nil, nil, Config{Chain: "solana", TradeAmountLamports: 1_000_000_000})

	s.scanOnce(context.Background())

	assert.ElementsMatch(t, []string{"PAIR1", "PAIR2"}, buyer.bought)
	assert.ElementsMatch(t, []string{"pos-PAIR1", "pos-PAIR2"}, watcher.watched)
}

func TestScanSkipsHeldPairs(t *testing.T) {
	feed := &fakeFeed{listings: []domain.Listing{goodListing("PAIR1")}}
	buyer := &fakeBuyer{}
	positions := &fakePositions{held: map[string]domain.Position{
		"PAIR1": {ID: "pos1", PairAddress: "PAIR1", Status: domain.PositionStatusOpen},
	}}
	s := newScanner(feed, buyer, &fakeWatcher{}, positions, nil, Config{Chain: "solana"})

	s.scanOnce(context.Background())
	assert.Empty(t, buyer.bought)
}

func TestScanSurvivesFeedFailure(t *testing.T) {
	feed := &fakeFeed{err: domain.Transient("feed", errors.New("timeout"))}
	buyer := &fakeBuyer{}
	s := newScanner(feed, buyer, &fakeWatcher{}, nil, nil, Config{Chain: "solana"})

	s.scanOnce(context.Background())
	assert.Empty(t, buyer.bought)
}

func TestScanAmbiguousBuyNotWatched(t *testing.T) {
	feed := &fakeFeed{listings: []domain.Listing{goodListing("PAIR1")}}
	buyer := &fakeBuyer{err: &domain.AmbiguousError{TxSignature: "sig1"}}
	watcher := &fakeWatcher{}
	s := newScanner(feed, buyer, watcher, nil, nil, Config{Chain: "solana"})

	s.scanOnce(context.Background())
	assert.Len(t, buyer.bought, 1)
	assert.Empty(t, watcher.watched)
}

func TestScanRejectedBuyContinuesBatch(t *testing.T) {
	feed := &fakeFeed{listings: []domain.Listing{goodListing("PAIR1"), goodListing("PAIR2")}}
	buyer := &fakeBuyer{err: domain.Reject("executor: submit buy", "simulation failed")}
	s := newScanner(feed, buyer, &fakeWatcher{}, nil, nil, Config{Chain: "solana"})

	s.scanOnce(context.Background())
	assert.ElementsMatch(t, []string{"PAIR1", "PAIR2"}, buyer.bought)
}

func TestScanCycleSkippedByRateLimit(t *testing.T) {
	feed := &fakeFeed{listings: []domain.Listing{goodListing("PAIR1")}}
	limiter := &fakeLimiter{allowed: false}
	buyer := &fakeBuyer{}
	s := newScanner(feed, buyer, &fakeWatcher{}, nil, limiter, Config{
		Chain: "solana", RateLimit: 10, RateWindow: time.Minute,
	})

	s.scanOnce(context.Background())
	assert.Equal(t, 1, limiter.calls)
	assert.Equal(t, 0, feed.calls)
	assert.Empty(t, buyer.bought)
}

func TestScanSlowBuyDoesNotStallBatch(t *testing.T) {
	feed := &fakeFeed{listings: []domain.Listing{goodListing("PAIR1"), goodListing("PAIR2")}}
	buyer := &stallBuyer{stall: "PAIR1", release: make(chan struct{})}
	s := newScanner(feed, buyer, &fakeWatcher{}, nil, nil, Config{Chain: "solana"})

	done := make(chan struct{})
	go func() {
		s.scanOnce(context.Background())
		close(done)
	}()

	// The second buy must start while the first is still blocked.
	require.Eventually(t, func() bool {
		return len(buyer.startedPairs()) == 2
	}, time.Second, time.Millisecond)

	close(buyer.release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scan cycle did not finish")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	feed := &fakeFeed{}
	s := newScanner(feed, &fakeBuyer{}, &fakeWatcher{}, nil, nil, Config{
		Chain: "solana", PollInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return feed.calls >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scanner did not stop")
	}
}
