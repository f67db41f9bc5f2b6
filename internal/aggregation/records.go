package aggregation

import (
	"errors"
	"fmt"

	"github.com/jungtak3/uniswap-v3-data/internal/domain"
)

// ErrSeriesLengthMismatch marks OHLC and liquidity series of different
// lengths. Both come out of the same bucket loop, so a mismatch is a
// replay defect and no output may be produced from it.
var ErrSeriesLengthMismatch = errors.New("series length mismatch")

// AlignRecords zips the two series positionally into output rows. A
// timestamp disagreement at a position is tolerated and counted; the row
// keeps the OHLC bucket's timestamp.
func AlignRecords(buckets []*domain.OHLCBucket, metrics []*domain.LiquidityMetric) ([]*domain.PoolRecord, int, error) {
	if len(buckets) != len(metrics) {
		return nil, 0, fmt.Errorf("%w: %d OHLC buckets vs %d liquidity metrics", ErrSeriesLengthMismatch, len(buckets), len(metrics))
	}

	mismatches := 0
	records := make([]*domain.PoolRecord, 0, len(buckets))
	for i, b := range buckets {
		m := metrics[i]
		if m.BucketStart != b.BucketStart {
			mismatches++
		}
		records = append(records, &domain.PoolRecord{
			BucketStart:     b.BucketStart,
			Open:            b.Open,
			High:            b.High,
			Low:             b.Low,
			Close:           b.Close,
			ActiveLiquidity: m.ActiveLiquidity,
			TotalLiquidity:  m.TotalLiquidity,
			Ratio:           m.Ratio,
		})
	}

	return records, mismatches, nil
}
