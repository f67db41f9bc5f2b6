package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// OHLCBucket represents the price summary of one non-empty time bucket.
type OHLCBucket struct {
	BucketStart int64           // aligned bucket start, Unix seconds
	Open        decimal.Decimal // price of the first trade in the bucket
	High        decimal.Decimal // maximum trade price in the bucket
	Low         decimal.Decimal // minimum trade price in the bucket
	Close       decimal.Decimal // price of the last trade in the bucket
}

// LiquidityMetric represents the liquidity summary of one bucket.
type LiquidityMetric struct {
	BucketStart     int64           // aligned bucket start, Unix seconds
	ActiveLiquidity *big.Int        // liquidity covering the bucket's traded tick range
	TotalLiquidity  *big.Int        // pool-wide liquidity at bucket end
	Ratio           decimal.Decimal // active / total, zero when either side is zero
}

// PoolRecord is one aligned output row: an OHLC bucket paired with its
// liquidity metric. Corresponds to the pool_records table in ClickHouse.
type PoolRecord struct {
	BucketStart     int64
	Open            decimal.Decimal
	High            decimal.Decimal
	Low             decimal.Decimal
	Close           decimal.Decimal
	ActiveLiquidity *big.Int
	TotalLiquidity  *big.Int
	Ratio           decimal.Decimal
}
