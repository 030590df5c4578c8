package domain

import "time"

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderOutcome tracks the result of a single submission attempt.
//
// OrderOutcomeUnknown is the critical ambiguous state: the swap was sent but
// its confirmation could not be observed (network partition, RPC timeout).
// Unknown orders must never be retried automatically; they are resolved by
// the reconciler checking the transaction signature against the ledger.
type OrderOutcome string

const (
	OrderOutcomePending   OrderOutcome = "pending"
	OrderOutcomeConfirmed OrderOutcome = "confirmed"
	OrderOutcomeRejected  OrderOutcome = "rejected"
	OrderOutcomeUnknown   OrderOutcome = "unknown"
)

// Order is a single buy or sell submission against the execution
// coordinator. TxSignature is empty until the swap has at least been sent.
type Order struct {
	ID          string
	PositionID  string
	Side        OrderSide
	AmountIn    float64
	TxSignature string
	Outcome     OrderOutcome
	Reason      string
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}

// Quote is an ephemeral priced route for a token swap. Routes go stale
// quickly, so a Quote is consumed by exactly one submission and never
// persisted.
type Quote struct {
	InputMint  string
	OutputMint string
	InAmount   uint64
	OutAmount  uint64
	// Route is the router's opaque route payload. It is echoed back verbatim
	// to the swap-build endpoint at submission time.
	Route []byte
}

// SubmissionStatus classifies the externally visible result of sending a
// swap transaction.
type SubmissionStatus string

const (
	SubmissionConfirmed SubmissionStatus = "confirmed"
	SubmissionRejected  SubmissionStatus = "rejected"
	SubmissionUnknown   SubmissionStatus = "unknown"
)

// SubmissionOutcome is what the swap router reports after a submission
// attempt. TxSignature may be set even for Unknown outcomes, which is what
// makes later reconciliation possible.
type SubmissionOutcome struct {
	Status      SubmissionStatus
	TxSignature string
	Reason      string
}
