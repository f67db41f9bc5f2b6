// Package pricemath converts between the pool's Q64.96 fixed-point price
// representation, human-readable token prices, and tick indexes.
package pricemath

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// priceExponent is the decimal precision carried through integer division.
const priceExponent = 18

// q192 is 2^192, the square of the Q64.96 denominator.
var q192 = new(big.Int).Lsh(big.NewInt(1), 192)

// PriceFromSqrtX96 decodes a Q64.96 sqrt price into the human-readable
// token1-per-token0 price, adjusted for token decimals:
//
//	price = (sqrtPriceX96^2 / 2^192) * 10^(decimals0-decimals1)
//
// The computation stays in big.Int scaled by 10^18 so that token pairs with
// extreme decimal asymmetry (e.g. 6 vs 18) do not collapse to zero. A nil or
// non-positive input yields zero; callers treat that as a data inconsistency.
func PriceFromSqrtX96(sqrtPriceX96 *big.Int, decimals0, decimals1 uint8) decimal.Decimal {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return decimal.Zero
	}
	num := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	num.Mul(num, pow10(int(decimals0)+priceExponent))
	den := new(big.Int).Mul(q192, pow10(int(decimals1)))
	num.Quo(num, den)
	return decimal.NewFromBigInt(num, -priceExponent)
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
