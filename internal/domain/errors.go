package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrRateLimited     = errors.New("rate limited")
	ErrNoRoute         = errors.New("no swap route available")
	ErrLockHeld        = errors.New("lock already held")
	ErrOrderInFlight   = errors.New("order already in flight for position")
	ErrMonitorExists   = errors.New("monitor already running for position")
	ErrStaleTransition = errors.New("stale status transition")
	ErrWSDisconnect    = errors.New("websocket disconnected")
)

// TransientError marks a failure that is safe to retry with backoff:
// transport errors, 5xx responses, and rate limiting.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// RejectionError marks a definitive downstream rejection. Retrying cannot
// succeed; the order is terminal.
type RejectionError struct {
	Op     string
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: rejected: %s", e.Op, e.Reason)
}

// Reject builds a definitive rejection.
func Reject(op, reason string) error {
	return &RejectionError{Op: op, Reason: reason}
}

// IsRejection reports whether err is a definitive rejection.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}

// AmbiguousError marks a submission whose confirmation could not be
// observed. It must never be retried automatically; the reconciler resolves
// it against the ledger using the transaction signature, when one exists.
type AmbiguousError struct {
	TxSignature string
}

func (e *AmbiguousError) Error() string {
	if e.TxSignature == "" {
		return "submission outcome unknown (no transaction signature)"
	}
	return fmt.Sprintf("submission outcome unknown (tx %s)", e.TxSignature)
}

// IsAmbiguous reports whether err represents an unobserved outcome.
func IsAmbiguous(err error) bool {
	var ae *AmbiguousError
	return errors.As(err, &ae)
}
