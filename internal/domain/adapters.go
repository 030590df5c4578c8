package domain

import (
	"context"
	"io"
	"time"
)

// MarketFeed is the market-data collaborator: listing discovery plus live
// per-pair price streams. Implementations must be safe for concurrent use
// by the scanner and many monitors.
type MarketFeed interface {
	// ActiveListings returns the current batch of candidate pairs for the
	// given chain. Transient failures are returned as TransientError so the
	// scanner can log and resume on the next interval.
	ActiveListings(ctx context.Context, chain string) ([]Listing, error)
	// SubscribePrices opens a live price stream for one pair. The returned
	// channel is closed when the stream disconnects or ctx is cancelled;
	// callers re-subscribe with backoff.
	SubscribePrices(ctx context.Context, pairAddress string) (<-chan PriceTick, error)
}

// SwapRouter is the quote/execution collaborator. GetQuote returns
// ErrNoRoute (definitive, never retried) when the router has no route for
// the pair, and TransientError for transport-level failures.
type SwapRouter interface {
	GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64) (Quote, error)
	// SubmitSwap signs and sends the swap built from quote. A pre-send
	// failure is reported as an error with no outcome; once the transaction
	// has been sent the result is always a SubmissionOutcome, using
	// SubmissionUnknown when confirmation could not be observed.
	SubmitSwap(ctx context.Context, quote Quote, wallet string) (SubmissionOutcome, error)
}

// TxStatus is the ledger-side state of a submitted transaction, as reported
// by the chain RPC during reconciliation.
type TxStatus string

const (
	TxStatusConfirmed TxStatus = "confirmed"
	TxStatusFailed    TxStatus = "failed"
	TxStatusNotFound  TxStatus = "not_found"
)

// ChainReader exposes the single ledger query reconciliation needs.
type ChainReader interface {
	SignatureStatus(ctx context.Context, txSignature string) (TxStatus, error)
}

// PriceCache stores the latest observed price per pair.
type PriceCache interface {
	SetPrice(ctx context.Context, pairAddress string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, pairAddress string) (float64, time.Time, error)
}

// LockManager provides mutual exclusion keyed by an arbitrary string. The
// coordinator keys locks by position ID to guarantee at most one in-flight
// order per position. Acquire returns ErrLockHeld when the lock is busy;
// callers must not queue.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter gates outbound calls to rate-limited upstreams. A denied call
// is skipped by the caller, never queued.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// BlobWriter uploads a single object to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver exports aged durable records to blob storage.
type Archiver interface {
	// ArchivePositions exports terminal positions closed before the cutoff
	// and returns the number of records written.
	ArchivePositions(ctx context.Context, before time.Time) (int64, error)
	// ArchiveAuditLog exports audit entries created before the cutoff.
	ArchiveAuditLog(ctx context.Context, before time.Time) (int64, error)
}
