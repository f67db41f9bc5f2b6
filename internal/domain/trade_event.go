package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TradeEvent represents a single executed swap against the pool.
// Corresponds to the trade_events table in PostgreSQL.
type TradeEvent struct {
	ID           string         // index-assigned identifier, unique per event
	Timestamp    int64          // Unix timestamp in seconds
	SqrtPriceX96 *big.Int       // post-swap sqrt price, Q64.96 fixed point
	Tick         int32          // post-swap tick reported by the pool
	Amount0      *big.Int       // signed raw token0 delta (pool perspective)
	Amount1      *big.Int       // signed raw token1 delta (pool perspective)
	Sender       common.Address // swap initiator
	Recipient    common.Address // output receiver
}
