package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"

	"github.com/jungtak3/uniswap-v3-data/internal/domain"
	"github.com/jungtak3/uniswap-v3-data/internal/storage"
)

// TradeEventStore implements storage.TradeEventStore using PostgreSQL.
//
// Large on-chain integers are stored as decimal strings so no driver-side
// numeric conversion can narrow them.
type TradeEventStore struct {
	pool *Pool
}

// NewTradeEventStore creates a new TradeEventStore.
func NewTradeEventStore(pool *Pool) *TradeEventStore {
	return &TradeEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeEventStore = (*TradeEventStore)(nil)

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeEventStore) InsertBulk(ctx context.Context, pool common.Address, trades []*domain.TradeEvent) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO trade_events (
			pool, id, timestamp, sqrt_price_x96, tick, amount0, amount1, sender, recipient
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, tr := range trades {
		if tr == nil || tr.ID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			pool.Hex(),
			tr.ID,
			tr.Timestamp,
			bigString(tr.SqrtPriceX96),
			tr.Tick,
			bigString(tr.Amount0),
			bigString(tr.Amount1),
			tr.Sender.Hex(),
			tr.Recipient.Hex(),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByPoolTimeRange retrieves trades for a pool within [start, end), ordered by timestamp ASC.
func (s *TradeEventStore) GetByPoolTimeRange(ctx context.Context, pool common.Address, start, end int64) ([]*domain.TradeEvent, error) {
	query := `
		SELECT id, timestamp, sqrt_price_x96, tick, amount0, amount1, sender, recipient
		FROM trade_events
		WHERE pool = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, pool.Hex(), start, end)
	if err != nil {
		return nil, fmt.Errorf("get trade events by time range: %w", err)
	}
	defer rows.Close()

	return scanTradeEvents(rows)
}

// scanTradeEvents scans multiple rows into a slice of TradeEvent.
func scanTradeEvents(rows pgx.Rows) ([]*domain.TradeEvent, error) {
	var trades []*domain.TradeEvent

	for rows.Next() {
		var (
			tr                          domain.TradeEvent
			sqrtPrice, amount0, amount1 string
			sender, recipient           string
		)

		err := rows.Scan(
			&tr.ID,
			&tr.Timestamp,
			&sqrtPrice,
			&tr.Tick,
			&amount0,
			&amount1,
			&sender,
			&recipient,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade event row: %w", err)
		}

		if tr.SqrtPriceX96, err = parseBig(sqrtPrice); err != nil {
			return nil, fmt.Errorf("trade %s: %w", tr.ID, err)
		}
		if tr.Amount0, err = parseBig(amount0); err != nil {
			return nil, fmt.Errorf("trade %s: %w", tr.ID, err)
		}
		if tr.Amount1, err = parseBig(amount1); err != nil {
			return nil, fmt.Errorf("trade %s: %w", tr.ID, err)
		}
		tr.Sender = common.HexToAddress(sender)
		tr.Recipient = common.HexToAddress(recipient)

		trades = append(trades, &tr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade event rows: %w", err)
	}

	return trades, nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseBig(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("parse stored integer %q", s)
	}
	return v, nil
}
