package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jungtak3/uniswap-v3-data/internal/domain"
	"github.com/jungtak3/uniswap-v3-data/internal/observability"
	"github.com/jungtak3/uniswap-v3-data/internal/subgraph"
)

type tradeStats struct {
	pages         int
	stallAdvances int
	duplicates    int
}

// fetchTrades walks the swaps collection by timestamp cursor. The index
// filters with timestamp >= cursor, so the boundary records of the previous
// page come back again and are dropped by ID. A full page that leaves the
// cursor unmoved is a same-second burst larger than the page: the cursor is
// forced one second forward, which can skip the burst's tail.
func (f *Fetcher) fetchTrades(ctx context.Context) ([]*domain.TradeEvent, tradeStats, error) {
	var (
		trades []*domain.TradeEvent
		stats  tradeStats
		seen   = make(map[string]struct{})
	)

	cursor := f.start
	for {
		pageStart := time.Now()
		page, err := f.source.Swaps(ctx, subgraph.PageQuery{
			Pool:  f.pool,
			Start: cursor,
			End:   f.end,
			First: f.pageSize,
		})
		if err != nil {
			return trades, stats, err
		}
		stats.pages++
		observability.RecordPageFetch(StreamTrades, time.Since(pageStart).Seconds())

		for _, ev := range page {
			if _, ok := seen[ev.ID]; ok {
				stats.duplicates++
				continue
			}
			seen[ev.ID] = struct{}{}
			trades = append(trades, ev)
		}

		if len(page) < f.pageSize {
			break
		}

		last := page[len(page)-1].Timestamp
		if last > cursor {
			cursor = last
		} else {
			stats.stallAdvances++
			observability.RecordStallAdvance()
			f.log.WithFields(logrus.Fields{
				"pool":      f.pool.Hex(),
				"timestamp": last,
				"page_size": f.pageSize,
			}).Warn("cursor stalled on same-second burst; forcing advance, burst tail may be skipped")
			cursor = last + 1
		}

		if err := f.pause(ctx); err != nil {
			return trades, stats, err
		}
	}

	observability.RecordDuplicatesSkipped(stats.duplicates)

	if i := firstTradeOrderViolation(trades); i >= 0 {
		err := fmt.Errorf("%w: trade %s at position %d", ErrOutOfOrder, trades[i].ID, i)
		return trades[:i], stats, err
	}

	return trades, stats, nil
}

// fetchOffset walks an offset-paginated collection over the fixed window
// [start, end). Offsets stay stable because the window is historical and
// closed; nothing is appended behind the walk.
func (f *Fetcher) fetchOffset(ctx context.Context, stream string, fetch func(context.Context, subgraph.PageQuery) ([]*domain.LiquidityEvent, error)) ([]*domain.LiquidityEvent, int, error) {
	var events []*domain.LiquidityEvent
	pages := 0

	for skip := 0; ; skip += f.pageSize {
		pageStart := time.Now()
		page, err := fetch(ctx, subgraph.PageQuery{
			Pool:  f.pool,
			Start: f.start,
			End:   f.end,
			First: f.pageSize,
			Skip:  skip,
		})
		if err != nil {
			return events, pages, err
		}
		pages++
		observability.RecordPageFetch(stream, time.Since(pageStart).Seconds())

		events = append(events, page...)

		if len(page) < f.pageSize {
			break
		}

		if err := f.pause(ctx); err != nil {
			return events, pages, err
		}
	}

	if i := firstLiquidityOrderViolation(events); i >= 0 {
		err := fmt.Errorf("%w: %s %s at position %d", ErrOutOfOrder, stream, events[i].ID, i)
		return events[:i], pages, err
	}

	return events, pages, nil
}
