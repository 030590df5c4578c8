package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates an OrderStore backed by the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderSelectCols = `id, position_id, side, amount_in,
	tx_signature, outcome, reason, created_at, resolved_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var side, outcome string

	err := row.Scan(
		&o.ID, &o.PositionID, &side, &o.AmountIn,
		&o.TxSignature, &outcome, &o.Reason, &o.CreatedAt, &o.ResolvedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	o.Side = domain.OrderSide(side)
	o.Outcome = domain.OrderOutcome(outcome)
	return o, nil
}

func scanOrders(rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()
	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Create inserts a new order.
func (s *OrderStore) Create(ctx context.Context, o domain.Order) error {
	const query = `
		INSERT INTO orders (
			id, position_id, side, amount_in,
			tx_signature, outcome, reason, created_at, resolved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, query,
		o.ID, o.PositionID, string(o.Side), o.AmountIn,
		o.TxSignature, string(o.Outcome), o.Reason, o.CreatedAt, o.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create order %s: %w", o.ID, err)
	}
	return nil
}

// Resolve records the final outcome of an order.
func (s *OrderStore) Resolve(ctx context.Context, id string, outcome domain.OrderOutcome, txSignature, reason string) error {
	const query = `
		UPDATE orders SET
			outcome      = $2,
			tx_signature = $3,
			reason       = $4,
			resolved_at  = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, string(outcome), txSignature, reason)
	if err != nil {
		return fmt.Errorf("postgres: resolve order %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID retrieves a single order.
func (s *OrderStore) GetByID(ctx context.Context, id string) (domain.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+orderSelectCols+` FROM orders WHERE id = $1`, id)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, fmt.Errorf("postgres: get order %s: %w", id, err)
	}
	return o, nil
}

// ListByPosition returns every order for a position, oldest first.
func (s *OrderStore) ListByPosition(ctx context.Context, positionID string) ([]domain.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+orderSelectCols+` FROM orders
		 WHERE position_id = $1
		 ORDER BY created_at ASC`, positionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders for position %s: %w", positionID, err)
	}

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan orders: %w", err)
	}
	return orders, nil
}

// ListUnsettled returns orders awaiting reconciliation, oldest first:
// unknown outcomes plus pending orders older than staleBefore, which can
// only exist when their submitter died between create and resolve.
func (s *OrderStore) ListUnsettled(ctx context.Context, staleBefore time.Time) ([]domain.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+orderSelectCols+` FROM orders
		 WHERE outcome = 'unknown'
		    OR (outcome = 'pending' AND created_at < $1)
		 ORDER BY created_at ASC`, staleBefore)
	if err != nil {
		return nil, fmt.Errorf("postgres: list unsettled orders: %w", err)
	}

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan unsettled orders: %w", err)
	}
	return orders, nil
}
