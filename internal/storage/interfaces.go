package storage

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/jungtak3/uniswap-v3-data/internal/domain"
)

// TradeEventStore provides access to trade_events storage.
type TradeEventStore interface {
	// InsertBulk adds fetched trades for a pool atomically. Fails the
	// entire batch on any duplicate (pool, id).
	InsertBulk(ctx context.Context, pool common.Address, trades []*domain.TradeEvent) error

	// GetByPoolTimeRange retrieves trades for a pool within [start, end),
	// ordered by timestamp ASC.
	GetByPoolTimeRange(ctx context.Context, pool common.Address, start, end int64) ([]*domain.TradeEvent, error)
}

// LiquidityEventStore provides access to liquidity_events storage.
type LiquidityEventStore interface {
	// InsertBulk adds fetched liquidity changes for a pool atomically.
	// Fails the entire batch on any duplicate (pool, id).
	InsertBulk(ctx context.Context, pool common.Address, events []*domain.LiquidityEvent) error

	// GetByPoolTimeRange retrieves events for a pool within [start, end),
	// ordered by timestamp ASC.
	GetByPoolTimeRange(ctx context.Context, pool common.Address, start, end int64) ([]*domain.LiquidityEvent, error)
}

// PoolRecordStore provides access to pool_records storage.
type PoolRecordStore interface {
	// InsertBulk adds derived per-bucket records for a pool. Re-inserting
	// the same bucket is allowed; the sink keeps the latest version.
	InsertBulk(ctx context.Context, pool common.Address, records []*domain.PoolRecord) error

	// GetByPoolTimeRange retrieves records for a pool with bucket start
	// within [start, end), ordered by bucket start ASC.
	GetByPoolTimeRange(ctx context.Context, pool common.Address, start, end int64) ([]*domain.PoolRecord, error)
}
