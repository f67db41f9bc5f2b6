package pricemath

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	// MinTick is the minimum tick index supported by the pool contract.
	MinTick = int32(-887272)
	// MaxTick is the maximum tick index supported by the pool contract.
	MaxTick = int32(887272)
)

var (
	ErrUnknownFeeTier   = errors.New("unknown fee tier")
	ErrNonPositivePrice = errors.New("non-positive price")
)

// spacingByFee maps a fee tier (hundredths of a bip) to its tick spacing.
var spacingByFee = map[uint32]int32{
	100:   1,
	500:   10,
	3000:  60,
	10000: 200,
}

// SpacingForFee returns the tick spacing for a fee tier. An unrecognized
// fee tier is a configuration error, not a value to guess.
func SpacingForFee(fee uint32) (int32, error) {
	spacing, ok := spacingByFee[fee]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownFeeTier, fee)
	}
	return spacing, nil
}

// logSqrtBase is ln(sqrt(1.0001)), one tick's step in log-price space.
var logSqrtBase = math.Log(1.0001) / 2

// TickForPrice quantizes a human-readable price onto the pool's tick grid.
// The price is first rescaled back to the raw token ratio, then mapped
// through the log base and rounded to the nearest multiple of spacing.
// Results are clamped to [MinTick, MaxTick].
func TickForPrice(price decimal.Decimal, decimals0, decimals1 uint8, spacing int32) (int32, error) {
	effective := price.Shift(int32(decimals1) - int32(decimals0))
	f, _ := effective.Float64()
	if f <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrNonPositivePrice, price)
	}
	snapped := math.Round(math.Log(f)/logSqrtBase/float64(spacing)) * float64(spacing)
	if snapped >= float64(MaxTick) {
		return MaxTick, nil
	}
	if snapped <= float64(MinTick) {
		return MinTick, nil
	}
	return int32(snapped), nil
}
