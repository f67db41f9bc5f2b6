// Package aggregation turns the fetched event streams into aligned
// per-bucket price and liquidity records.
package aggregation

import (
	"github.com/jungtak3/uniswap-v3-data/internal/domain"
	"github.com/jungtak3/uniswap-v3-data/internal/pricemath"
)

// OHLCResult carries the bucketed price series and the data quality
// counters collected while building it.
type OHLCResult struct {
	Buckets         []*domain.OHLCBucket
	ZeroPriceTrades int
}

// BuildOHLC folds timestamp-ordered trades into per-bucket OHLC summaries.
// One bucket is accumulated at a time and closed when a trade lands past
// its width; buckets without trades produce nothing, so activity gaps stay
// gaps. Trades whose sqrt price decodes to zero are dropped and counted.
func BuildOHLC(trades []*domain.TradeEvent, bucketWidth int64, meta *domain.PoolMeta) *OHLCResult {
	res := &OHLCResult{}

	var current *domain.OHLCBucket
	for _, tr := range trades {
		price := pricemath.PriceFromSqrtX96(tr.SqrtPriceX96, meta.Decimals0, meta.Decimals1)
		if price.IsZero() {
			res.ZeroPriceTrades++
			continue
		}

		start := tr.Timestamp - tr.Timestamp%bucketWidth
		if current == nil || current.BucketStart != start {
			if current != nil {
				res.Buckets = append(res.Buckets, current)
			}
			current = &domain.OHLCBucket{
				BucketStart: start,
				Open:        price,
				High:        price,
				Low:         price,
				Close:       price,
			}
			continue
		}

		if price.GreaterThan(current.High) {
			current.High = price
		}
		if price.LessThan(current.Low) {
			current.Low = price
		}
		current.Close = price
	}

	if current != nil {
		res.Buckets = append(res.Buckets, current)
	}

	return res
}
