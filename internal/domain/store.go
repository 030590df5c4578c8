package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// PositionStore is the durable record of truth for positions. Status
// transitions go through UpdateStatus, which enforces the expected current
// status with a compare-and-swap so that the scanner, a monitor, and the
// reconciler can never clobber each other's writes.
type PositionStore interface {
	Create(ctx context.Context, pos Position) error
	// UpdateStatus moves a position from -> to. It returns
	// ErrStaleTransition when the stored status no longer equals from, and
	// appends the change to the status history on success.
	UpdateStatus(ctx context.Context, id string, from, to PositionStatus) error
	// MarkClosed performs the exiting -> closed transition and records the
	// exit price and closure time in the same statement.
	MarkClosed(ctx context.Context, id string, exitPrice float64) error
	GetByID(ctx context.Context, id string) (Position, error)
	// GetByPair returns the most recent non-terminal position for a pair,
	// or ErrNotFound. Used by the scanner to avoid re-buying a held token.
	GetByPair(ctx context.Context, pairAddress string) (Position, error)
	// ListOpen returns every non-terminal position (pending, open,
	// exiting), used at restart to re-spawn monitors and reconciliation.
	ListOpen(ctx context.Context) ([]Position, error)
	ListHistory(ctx context.Context, opts ListOpts) ([]Position, error)
	// ListClosedBefore returns terminal positions closed strictly before
	// the cutoff, for archival.
	ListClosedBefore(ctx context.Context, before time.Time) ([]Position, error)
	StatusHistory(ctx context.Context, id string) ([]StatusChange, error)
}

// OrderStore persists every submission attempt for audit and
// reconciliation.
type OrderStore interface {
	Create(ctx context.Context, order Order) error
	// Resolve records the final outcome of an order.
	Resolve(ctx context.Context, id string, outcome OrderOutcome, txSignature, reason string) error
	GetByID(ctx context.Context, id string) (Order, error)
	ListByPosition(ctx context.Context, positionID string) ([]Order, error)
	// ListUnsettled returns orders awaiting reconciliation, oldest first:
	// every unknown outcome, plus pending orders created before staleBefore
	// whose submitter must have crashed between create and resolve.
	ListUnsettled(ctx context.Context, staleBefore time.Time) ([]Order, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
	// ListBefore returns audit entries created strictly before the cutoff,
	// for archival.
	ListBefore(ctx context.Context, before time.Time) ([]AuditEntry, error)
}
