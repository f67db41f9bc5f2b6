package ingestion

import (
	"errors"
	"sort"

	"github.com/jungtak3/uniswap-v3-data/internal/domain"
)

// ErrOutOfOrder marks a stream whose events regressed in time. The index
// promises ascending delivery; a regression means the history is unreliable
// past that point, so the stream is cut to its ordered prefix.
var ErrOutOfOrder = errors.New("index returned events out of order")

// MergeLiquidityEvents interleaves the deposit and withdrawal streams into
// one timestamp-ordered change history. The merge is stable: events sharing
// a timestamp keep deposits ahead of withdrawals and preserve each stream's
// delivery order.
func MergeLiquidityEvents(deposits, withdraws []*domain.LiquidityEvent) []*domain.LiquidityEvent {
	merged := make([]*domain.LiquidityEvent, 0, len(deposits)+len(withdraws))
	merged = append(merged, deposits...)
	merged = append(merged, withdraws...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}

// firstTradeOrderViolation returns the index of the first trade whose
// timestamp precedes its predecessor, or -1 when the stream is ordered.
func firstTradeOrderViolation(events []*domain.TradeEvent) int {
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp < events[i-1].Timestamp {
			return i
		}
	}
	return -1
}

// firstLiquidityOrderViolation is the liquidity-stream counterpart of
// firstTradeOrderViolation.
func firstLiquidityOrderViolation(events []*domain.LiquidityEvent) int {
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp < events[i-1].Timestamp {
			return i
		}
	}
	return -1
}
