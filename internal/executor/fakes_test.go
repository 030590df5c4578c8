package executor

import (
	"context"
	"sync"
	"time"

	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/domain"
)

// memPositions is an in-memory PositionStore enforcing the same CAS
// semantics as the real one.
type memPositions struct {
	mu        sync.Mutex
	positions map[string]domain.Position
	history   map[string][]domain.StatusChange
}

func newMemPositions() *memPositions {
	return &memPositions{
		positions: make(map[string]domain.Position),
		history:   make(map[string][]domain.StatusChange),
	}
}

func (m *memPositions) Create(ctx context.Context, pos domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.positions[pos.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.positions[pos.ID] = pos
	return nil
}

func (m *memPositions) UpdateStatus(ctx context.Context, id string, from, to domain.PositionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if pos.Status != from || !domain.CanTransition(from, to) {
		return domain.ErrStaleTransition
	}
	pos.Status = to
	m.positions[id] = pos
	m.history[id] = append(m.history[id], domain.StatusChange{
		PositionID: id, From: from, To: to, ChangedAt: time.Now().UTC(),
	})
	return nil
}

func (m *memPositions) MarkClosed(ctx context.Context, id string, exitPrice float64) error {
	if err := m.UpdateStatus(ctx, id, domain.PositionStatusExiting, domain.PositionStatusClosed); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	pos := m.positions[id]
	now := time.Now().UTC()
	pos.ClosedAt = &now
	pos.ExitPrice = &exitPrice
	m.positions[id] = pos
	return nil
}

func (m *memPositions) GetByID(ctx context.Context, id string) (domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[id]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return pos, nil
}

func (m *memPositions) GetByPair(ctx context.Context, pairAddress string) (domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pos := range m.positions {
		if pos.PairAddress == pairAddress && !pos.Status.Terminal() {
			return pos, nil
		}
	}
	return domain.Position{}, domain.ErrNotFound
}

func (m *memPositions) ListOpen(ctx context.Context) ([]domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Position
	for _, pos := range m.positions {
		if !pos.Status.Terminal() {
			out = append(out, pos)
		}
	}
	return out, nil
}

func (m *memPositions) ListHistory(ctx context.Context, opts domain.ListOpts) ([]domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Position, 0, len(m.positions))
	for _, pos := range m.positions {
		out = append(out, pos)
	}
	return out, nil
}

func (m *memPositions) ListClosedBefore(ctx context.Context, before time.Time) ([]domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Position
	for _, pos := range m.positions {
		if pos.Status.Terminal() && pos.ClosedAt != nil && pos.ClosedAt.Before(before) {
			out = append(out, pos)
		}
	}
	return out, nil
}

func (m *memPositions) StatusHistory(ctx context.Context, id string) ([]domain.StatusChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history[id], nil
}

// memOrders is an in-memory OrderStore.
type memOrders struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[string]domain.Order)}
}

func (m *memOrders) Create(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.orders[order.ID] = order
	return nil
}

func (m *memOrders) Resolve(ctx context.Context, id string, outcome domain.OrderOutcome, txSignature, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	order.Outcome = outcome
	order.TxSignature = txSignature
	order.Reason = reason
	now := time.Now().UTC()
	order.ResolvedAt = &now
	m.orders[id] = order
	return nil
}

func (m *memOrders) GetByID(ctx context.Context, id string) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return order, nil
}

func (m *memOrders) ListByPosition(ctx context.Context, positionID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, order := range m.orders {
		if order.PositionID == positionID {
			out = append(out, order)
		}
	}
	return out, nil
}

func (m *memOrders) ListUnsettled(ctx context.Context, staleBefore time.Time) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, order := range m.orders {
		switch {
		case order.Outcome == domain.OrderOutcomeUnknown:
			out = append(out, order)
		case order.Outcome == domain.OrderOutcomePending && order.CreatedAt.Before(staleBefore):
			out = append(out, order)
		}
	}
	return out, nil
}

// memAudit collects audit events in memory.
type memAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (m *memAudit) Log(ctx context.Context, event string, detail map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, domain.AuditEntry{
		ID: int64(len(m.entries) + 1), Event: event, Detail: detail, CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (m *memAudit) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AuditEntry(nil), m.entries...), nil
}

func (m *memAudit) ListBefore(ctx context.Context, before time.Time) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range m.entries {
		if e.CreatedAt.Before(before) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memAudit) events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Event)
	}
	return out
}

// memLocks is an in-memory LockManager.
type memLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocks() *memLocks {
	return &memLocks{held: make(map[string]bool)}
}

func (m *memLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] {
		return nil, domain.ErrLockHeld
	}
	m.held[key] = true
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.held, key)
	}, nil
}

// scriptedRouter replays a fixed sequence of quote and submit results.
type scriptedRouter struct {
	mu sync.Mutex

	quoteErrs  []error // errors returned before the quote succeeds
	quote      domain.Quote
	quoteCalls int

	submitErrs  []error // errors returned before the outcome is reported
	outcome     domain.SubmissionOutcome
	submitCalls int
}

func (r *scriptedRouter) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64) (domain.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quoteCalls++
	if len(r.quoteErrs) > 0 {
		err := r.quoteErrs[0]
		r.quoteErrs = r.quoteErrs[1:]
		return domain.Quote{}, err
	}
	q := r.quote
	if q.InputMint == "" {
		q = domain.Quote{InputMint: inputMint, OutputMint: outputMint, InAmount: amount, OutAmount: amount * 2}
	}
	return q, nil
}

func (r *scriptedRouter) SubmitSwap(ctx context.Context, quote domain.Quote, wallet string) (domain.SubmissionOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitCalls++
	if len(r.submitErrs) > 0 {
		err := r.submitErrs[0]
		r.submitErrs = r.submitErrs[1:]
		return domain.SubmissionOutcome{}, err
	}
	return r.outcome, nil
}
