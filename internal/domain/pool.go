package domain

import "github.com/ethereum/go-ethereum/common"

// PoolMeta holds the on-chain pool parameters the aggregation depends on.
type PoolMeta struct {
	Pool        common.Address // pool contract address
	Token0      common.Address // token0 contract address
	Token1      common.Address // token1 contract address
	Decimals0   uint8          // token0 decimals
	Decimals1   uint8          // token1 decimals
	FeeTier     uint32         // fee in hundredths of a bip (500, 3000, ...)
	TickSpacing int32          // tick spacing derived from the fee tier
}
