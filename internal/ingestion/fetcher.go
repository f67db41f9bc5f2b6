// Package ingestion pulls the pool's event history out of the index,
// one paginated stream at a time.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/jungtak3/uniswap-v3-data/internal/domain"
	"github.com/jungtak3/uniswap-v3-data/internal/observability"
	"github.com/jungtak3/uniswap-v3-data/internal/subgraph"
)

// Stream names used in logs, metrics and partial-result reporting.
const (
	StreamTrades    = "trades"
	StreamDeposits  = "deposits"
	StreamWithdraws = "withdraws"
)

// Source is the slice of the index client the fetcher consumes.
type Source interface {
	Swaps(ctx context.Context, q subgraph.PageQuery) ([]*domain.TradeEvent, error)
	Mints(ctx context.Context, q subgraph.PageQuery) ([]*domain.LiquidityEvent, error)
	Burns(ctx context.Context, q subgraph.PageQuery) ([]*domain.LiquidityEvent, error)
}

// Options contains configuration for creating a Fetcher.
type Options struct {
	Source     Source
	Pool       common.Address
	Start      int64 // inclusive, Unix seconds
	End        int64 // exclusive, Unix seconds
	PageSize   int
	BatchDelay time.Duration // politeness pause between successful pages
	Logger     *logrus.Logger
}

// Fetcher ingests the three event streams sequentially: trades by
// timestamp cursor, deposits and withdrawals by offset.
type Fetcher struct {
	source     Source
	pool       common.Address
	start, end int64
	pageSize   int
	batchDelay time.Duration
	log        *logrus.Entry
}

// NewFetcher creates a new event stream fetcher.
func NewFetcher(opts Options) *Fetcher {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}

	batchDelay := opts.BatchDelay
	if batchDelay < 0 {
		batchDelay = 0
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Fetcher{
		source:     opts.Source,
		pool:       opts.Pool,
		start:      opts.Start,
		end:        opts.End,
		pageSize:   pageSize,
		batchDelay: batchDelay,
		log:        logger.WithField("component", "ingestion"),
	}
}

// Result contains everything a fetch produced, including streams that
// aborted early with partial data.
type Result struct {
	Trades    []*domain.TradeEvent
	Deposits  []*domain.LiquidityEvent
	Withdraws []*domain.LiquidityEvent

	TradePages        int
	DepositPages      int
	WithdrawPages     int
	StallAdvances     int
	DuplicatesSkipped int

	PartialStreams []string
	StreamErrors   []error
	Duration       time.Duration
}

// Partial reports whether any stream returned incomplete data.
func (r *Result) Partial() bool {
	return len(r.PartialStreams) > 0
}

// Liquidity merges the deposit and withdrawal streams into one
// timestamp-ordered change history.
func (r *Result) Liquidity() []*domain.LiquidityEvent {
	return MergeLiquidityEvents(r.Deposits, r.Withdraws)
}

// FetchAll ingests the three streams one after another. A stream that fails
// after exhausting its retries keeps its accumulated events and is recorded
// as partial; the fetch itself only errors when the context is done.
func (f *Fetcher) FetchAll(ctx context.Context) (*Result, error) {
	started := time.Now()
	result := &Result{}

	f.log.WithFields(logrus.Fields{
		"pool":  f.pool.Hex(),
		"start": f.start,
		"end":   f.end,
	}).Info("fetching event streams")

	trades, stats, err := f.fetchTrades(ctx)
	result.Trades = trades
	result.TradePages = stats.pages
	result.StallAdvances = stats.stallAdvances
	result.DuplicatesSkipped = stats.duplicates
	observability.RecordEventsIngested(StreamTrades, len(trades))
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		f.markPartial(result, StreamTrades, err)
	}

	deposits, pages, err := f.fetchOffset(ctx, StreamDeposits, f.source.Mints)
	result.Deposits = deposits
	result.DepositPages = pages
	observability.RecordEventsIngested(StreamDeposits, len(deposits))
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		f.markPartial(result, StreamDeposits, err)
	}

	withdraws, pages, err := f.fetchOffset(ctx, StreamWithdraws, f.source.Burns)
	result.Withdraws = withdraws
	result.WithdrawPages = pages
	observability.RecordEventsIngested(StreamWithdraws, len(withdraws))
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		f.markPartial(result, StreamWithdraws, err)
	}

	result.Duration = time.Since(started)
	f.log.WithFields(logrus.Fields{
		"trades":    len(result.Trades),
		"deposits":  len(result.Deposits),
		"withdraws": len(result.Withdraws),
		"partial":   result.Partial(),
		"duration":  result.Duration,
	}).Info("event streams fetched")

	return result, nil
}

func (f *Fetcher) markPartial(result *Result, stream string, err error) {
	f.log.WithError(err).WithField("stream", stream).Warn("stream aborted, continuing with partial data")
	observability.RecordStreamFailure(stream)
	result.PartialStreams = append(result.PartialStreams, stream)
	result.StreamErrors = append(result.StreamErrors, fmt.Errorf("%s: %w", stream, err))
}

// pause sleeps the politeness delay, honoring cancellation.
func (f *Fetcher) pause(ctx context.Context) error {
	if f.batchDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(f.batchDelay):
		return nil
	}
}
