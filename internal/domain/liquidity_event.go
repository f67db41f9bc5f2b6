package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// LiquidityEvent represents a position deposit or withdrawal over a tick range.
// Corresponds to the liquidity_events table in PostgreSQL.
type LiquidityEvent struct {
	ID        string         // index-assigned identifier, unique per event
	Timestamp int64          // Unix timestamp in seconds
	Kind      string         // "deposit" | "withdraw"
	Amount    *uint256.Int   // liquidity units added or removed (uint128 range)
	TickLower int32          // inclusive lower bound of the covered range
	TickUpper int32          // exclusive upper bound of the covered range
	Owner     common.Address // position owner
	Origin    common.Address // transaction origin
}

// Liquidity event kind constants
const (
	LiquidityKindDeposit  = "deposit"
	LiquidityKindWithdraw = "withdraw"
)
