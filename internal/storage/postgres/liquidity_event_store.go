package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"

	"github.com/jungtak3/uniswap-v3-data/internal/domain"
	"github.com/jungtak3/uniswap-v3-data/internal/storage"
)

// LiquidityEventStore implements storage.LiquidityEventStore using PostgreSQL.
type LiquidityEventStore struct {
	pool *Pool
}

// NewLiquidityEventStore creates a new LiquidityEventStore.
func NewLiquidityEventStore(pool *Pool) *LiquidityEventStore {
	return &LiquidityEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LiquidityEventStore = (*LiquidityEventStore)(nil)

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *LiquidityEventStore) InsertBulk(ctx context.Context, pool common.Address, events []*domain.LiquidityEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO liquidity_events (
			pool, id, timestamp, kind, amount, tick_lower, tick_upper, owner, origin
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, e := range events {
		if e == nil || e.ID == "" {
			return storage.ErrInvalidInput
		}
		amount := "0"
		if e.Amount != nil {
			amount = e.Amount.Dec()
		}
		_, err := tx.Exec(ctx, query,
			pool.Hex(),
			e.ID,
			e.Timestamp,
			e.Kind,
			amount,
			e.TickLower,
			e.TickUpper,
			e.Owner.Hex(),
			e.Origin.Hex(),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert liquidity event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByPoolTimeRange retrieves events for a pool within [start, end), ordered by timestamp ASC.
func (s *LiquidityEventStore) GetByPoolTimeRange(ctx context.Context, pool common.Address, start, end int64) ([]*domain.LiquidityEvent, error) {
	query := `
		SELECT id, timestamp, kind, amount, tick_lower, tick_upper, owner, origin
		FROM liquidity_events
		WHERE pool = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, pool.Hex(), start, end)
	if err != nil {
		return nil, fmt.Errorf("get liquidity events by time range: %w", err)
	}
	defer rows.Close()

	return scanLiquidityEvents(rows)
}

// scanLiquidityEvents scans multiple rows into a slice of LiquidityEvent.
func scanLiquidityEvents(rows pgx.Rows) ([]*domain.LiquidityEvent, error) {
	var events []*domain.LiquidityEvent

	for rows.Next() {
		var (
			e             domain.LiquidityEvent
			amount        string
			owner, origin string
		)

		err := rows.Scan(
			&e.ID,
			&e.Timestamp,
			&e.Kind,
			&amount,
			&e.TickLower,
			&e.TickUpper,
			&owner,
			&origin,
		)
		if err != nil {
			return nil, fmt.Errorf("scan liquidity event row: %w", err)
		}

		if e.Amount, err = uint256.FromDecimal(amount); err != nil {
			return nil, fmt.Errorf("event %s: parse stored amount %q: %w", e.ID, amount, err)
		}
		e.Owner = common.HexToAddress(owner)
		e.Origin = common.HexToAddress(origin)

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate liquidity event rows: %w", err)
	}

	return events, nil
}
