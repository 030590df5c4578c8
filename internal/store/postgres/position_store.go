package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a PositionStore backed by the given pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// quantity crosses the wire as text: token base-unit amounts overflow
// bigint and lose precision in double precision.
const positionSelectCols = `id, pair_address, token_mint, token_symbol,
	entry_price, quantity::text, profit_target, stop_loss,
	status, opened_at, closed_at, exit_price`

func scanPosition(row pgx.Row) (domain.Position, error) {
	var p domain.Position
	var status, quantity string

	err := row.Scan(
		&p.ID, &p.PairAddress, &p.TokenMint, &p.TokenSymbol,
		&p.EntryPrice, &quantity, &p.ProfitTarget, &p.StopLoss,
		&status, &p.OpenedAt, &p.ClosedAt, &p.ExitPrice,
	)
	if err != nil {
		return domain.Position{}, err
	}
	p.Quantity, err = strconv.ParseUint(quantity, 10, 64)
	if err != nil {
		return domain.Position{}, fmt.Errorf("postgres: parse quantity %q: %w", quantity, err)
	}
	p.Status = domain.PositionStatus(status)
	return p, nil
}

func scanPositions(rows pgx.Rows) ([]domain.Position, error) {
	defer rows.Close()
	var positions []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// Create inserts a new position.
func (s *PositionStore) Create(ctx context.Context, p domain.Position) error {
	const query = `
		INSERT INTO positions (
			id, pair_address, token_mint, token_symbol,
			entry_price, quantity, profit_target, stop_loss,
			status, opened_at, closed_at, exit_price, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6::numeric, $7, $8,
			$9, $10, $11, $12, NOW()
		)`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.PairAddress, p.TokenMint, p.TokenSymbol,
		p.EntryPrice, strconv.FormatUint(p.Quantity, 10), p.ProfitTarget, p.StopLoss,
		string(p.Status), p.OpenedAt, p.ClosedAt, p.ExitPrice,
	)
	if err != nil {
		return fmt.Errorf("postgres: create position %s: %w", p.ID, err)
	}
	return nil
}

// UpdateStatus moves a position from -> to with a compare-and-swap on the
// current status, appending to the status history in the same transaction.
// A row that no longer holds the expected status yields ErrStaleTransition.
func (s *PositionStore) UpdateStatus(ctx context.Context, id string, from, to domain.PositionStatus) error {
	if !domain.CanTransition(from, to) {
		return fmt.Errorf("postgres: position %s: %s -> %s: %w", id, from, to, domain.ErrStaleTransition)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin status update: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE positions SET status = $3, updated_at = NOW()
		 WHERE id = $1 AND status = $2`,
		id, string(from), string(to),
	)
	if err != nil {
		return fmt.Errorf("postgres: update position %s status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: position %s: %s -> %s: %w", id, from, to, domain.ErrStaleTransition)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO position_status_history (position_id, from_status, to_status)
		 VALUES ($1, $2, $3)`,
		id, string(from), string(to),
	); err != nil {
		return fmt.Errorf("postgres: record status change: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit status update: %w", err)
	}
	return nil
}

// MarkClosed performs the exiting -> closed transition and records the exit
// price and closure time in the same statement.
func (s *PositionStore) MarkClosed(ctx context.Context, id string, exitPrice float64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin close: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE positions SET
			status     = 'closed',
			exit_price = $2,
			closed_at  = NOW(),
			updated_at = NOW()
		 WHERE id = $1 AND status = 'exiting'`,
		id, exitPrice,
	)
	if err != nil {
		return fmt.Errorf("postgres: close position %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: close position %s: %w", id, domain.ErrStaleTransition)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO position_status_history (position_id, from_status, to_status)
		 VALUES ($1, 'exiting', 'closed')`,
		id,
	); err != nil {
		return fmt.Errorf("postgres: record status change: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit close: %w", err)
	}
	return nil
}

// GetByID retrieves a single position.
func (s *PositionStore) GetByID(ctx context.Context, id string) (domain.Position, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+positionSelectCols+` FROM positions WHERE id = $1`, id)

	p, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %s: %w", id, err)
	}
	return p, nil
}

// GetByPair returns the most recent non-terminal position for a pair.
func (s *PositionStore) GetByPair(ctx context.Context, pairAddress string) (domain.Position, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+positionSelectCols+` FROM positions
		 WHERE pair_address = $1 AND status IN ('pending', 'open', 'exiting')
		 ORDER BY opened_at DESC
		 LIMIT 1`, pairAddress)

	p, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position for pair %s: %w", pairAddress, err)
	}
	return p, nil
}

// ListOpen returns every non-terminal position, oldest first.
func (s *PositionStore) ListOpen(ctx context.Context) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionSelectCols+` FROM positions
		 WHERE status IN ('pending', 'open', 'exiting')
		 ORDER BY opened_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open positions: %w", err)
	}

	positions, err := scanPositions(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan open positions: %w", err)
	}
	return positions, nil
}

// ListHistory returns positions with pagination and optional time
// filtering on opened_at.
func (s *PositionStore) ListHistory(ctx context.Context, opts domain.ListOpts) ([]domain.Position, error) {
	query := `SELECT ` + positionSelectCols + ` FROM positions WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND opened_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND opened_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY opened_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list position history: %w", err)
	}

	positions, err := scanPositions(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan position history: %w", err)
	}
	return positions, nil
}

// ListClosedBefore returns terminal positions closed strictly before the
// cutoff, for archival.
func (s *PositionStore) ListClosedBefore(ctx context.Context, before time.Time) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionSelectCols+` FROM positions
		 WHERE status IN ('closed', 'failed') AND COALESCE(closed_at, updated_at) < $1
		 ORDER BY COALESCE(closed_at, updated_at) ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list closed positions: %w", err)
	}

	positions, err := scanPositions(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan closed positions: %w", err)
	}
	return positions, nil
}

// StatusHistory returns a position's status changes in order.
func (s *PositionStore) StatusHistory(ctx context.Context, id string) ([]domain.StatusChange, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT position_id, from_status, to_status, changed_at
		 FROM position_status_history
		 WHERE position_id = $1
		 ORDER BY changed_at ASC, id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres: status history %s: %w", id, err)
	}
	defer rows.Close()

	var changes []domain.StatusChange
	for rows.Next() {
		var c domain.StatusChange
		var from, to string
		if err := rows.Scan(&c.PositionID, &from, &to, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan status change: %w", err)
		}
		c.From = domain.PositionStatus(from)
		c.To = domain.PositionStatus(to)
		changes = append(changes, c)
	}
	return changes, rows.Err()
}
