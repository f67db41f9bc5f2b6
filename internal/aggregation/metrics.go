package aggregation

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/jungtak3/uniswap-v3-data/internal/domain"
	"github.com/jungtak3/uniswap-v3-data/internal/ledger"
	"github.com/jungtak3/uniswap-v3-data/internal/pricemath"
)

// ratioScale is the decimal precision carried through the ratio division.
const ratioScale = 18

// MetricsResult carries the per-bucket liquidity series and the data
// quality counters collected during ledger replay.
type MetricsResult struct {
	Metrics         []*domain.LiquidityMetric
	LedgerClamps    int
	InvalidEventIDs []string
	TickErrors      int
}

// BuildLiquidityMetrics replays the merged liquidity history against a
// fresh ledger, bucket by bucket: before a bucket's metric is computed,
// every not-yet-applied event with timestamp strictly below the bucket's
// end boundary is applied. The active range is spanned by the bucket's
// low and high prices mapped onto the tick grid.
//
// Events must be timestamp-ordered; buckets must be chronological. Both
// come from components that guarantee it.
func BuildLiquidityMetrics(buckets []*domain.OHLCBucket, events []*domain.LiquidityEvent, bucketWidth int64, meta *domain.PoolMeta) *MetricsResult {
	res := &MetricsResult{}
	led := ledger.New()

	next := 0
	for _, b := range buckets {
		end := b.BucketStart + bucketWidth
		for next < len(events) && events[next].Timestamp < end {
			if err := led.Apply(events[next]); err != nil {
				res.InvalidEventIDs = append(res.InvalidEventIDs, events[next].ID)
			}
			next++
		}

		metric := &domain.LiquidityMetric{
			BucketStart:     b.BucketStart,
			ActiveLiquidity: new(big.Int),
			TotalLiquidity:  led.Total(),
			Ratio:           decimal.Zero,
		}

		lowTick, lowErr := pricemath.TickForPrice(b.Low, meta.Decimals0, meta.Decimals1, meta.TickSpacing)
		highTick, highErr := pricemath.TickForPrice(b.High, meta.Decimals0, meta.Decimals1, meta.TickSpacing)
		if lowErr != nil || highErr != nil {
			res.TickErrors++
			res.Metrics = append(res.Metrics, metric)
			continue
		}

		metric.ActiveLiquidity = led.ActiveLiquidity(lowTick, highTick)
		metric.Ratio = computeRatio(metric.ActiveLiquidity, metric.TotalLiquidity)
		res.Metrics = append(res.Metrics, metric)
	}

	res.LedgerClamps = led.Clamps()
	return res
}

// computeRatio divides active by total through a scaled integer quotient,
// so the fraction never passes through floating point. Zero on either side
// short-circuits to zero.
func computeRatio(active, total *big.Int) decimal.Decimal {
	if total.Sign() == 0 || active.Sign() == 0 {
		return decimal.Zero
	}
	scaled := new(big.Int).Exp(big.NewInt(10), big.NewInt(ratioScale), nil)
	scaled.Mul(scaled, active)
	scaled.Quo(scaled, total)
	return decimal.NewFromBigInt(scaled, -ratioScale)
}
