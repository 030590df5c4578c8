package domain

import "time"

// PositionStatus tracks a position through its lifecycle: pending -> open
// -> exiting -> closed|failed, with pending -> failed permitted when
// reconciliation gives up on an unconfirmed buy, and exiting -> open when
// an exit is abandoned before anything reached the chain. Positions are
// never deleted, only marked terminal.
type PositionStatus string

const (
	PositionStatusPending PositionStatus = "pending"
	PositionStatusOpen    PositionStatus = "open"
	PositionStatusExiting PositionStatus = "exiting"
	PositionStatusClosed  PositionStatus = "closed"
	PositionStatusFailed  PositionStatus = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s PositionStatus) Terminal() bool {
	return s == PositionStatusClosed || s == PositionStatusFailed
}

// validTransitions enumerates every allowed status edge.
var validTransitions = map[PositionStatus][]PositionStatus{
	PositionStatusPending: {PositionStatusOpen, PositionStatusFailed},
	PositionStatusOpen:    {PositionStatusExiting},
	PositionStatusExiting: {PositionStatusClosed, PositionStatusFailed, PositionStatusOpen},
}

// CanTransition reports whether moving from -> to is a legal status edge.
func CanTransition(from, to PositionStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Position is a tracked token holding opened by a buy and closed by a sell
// or a terminal failure. Exit thresholds are fixed at entry: entry price
// times the configured profit-target and stop-loss multipliers.
type Position struct {
	ID           string
	PairAddress  string
	TokenMint    string
	TokenSymbol  string
	EntryPrice   float64
	Quantity     uint64 // token base units; kept integral so the sell side swaps the exact amount bought
	ProfitTarget float64
	StopLoss     float64
	Status       PositionStatus
	OpenedAt     time.Time
	ClosedAt     *time.Time
	ExitPrice    *float64
}

// StatusChange is one row of a position's append-only status history.
type StatusChange struct {
	PositionID string
	From       PositionStatus
	To         PositionStatus
	ChangedAt  time.Time
}
