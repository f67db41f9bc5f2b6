// Package pipeline coordinates one pool history run end to end.
// It coordinates: metadata resolution → ingestion → aggregation → output.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/jungtak3/uniswap-v3-data/internal/aggregation"
	"github.com/jungtak3/uniswap-v3-data/internal/domain"
	"github.com/jungtak3/uniswap-v3-data/internal/ingestion"
	"github.com/jungtak3/uniswap-v3-data/internal/observability"
	"github.com/jungtak3/uniswap-v3-data/internal/reporting"
	"github.com/jungtak3/uniswap-v3-data/internal/storage"
)

// MetadataSource resolves the pool's immutable on-chain parameters.
type MetadataSource interface {
	Resolve(ctx context.Context, pool common.Address) (*domain.PoolMeta, error)
}

// Options for creating a Pipeline.
type Options struct {
	// Required inputs
	Source ingestion.Source
	Pool   common.Address
	Start  int64 // inclusive, Unix seconds
	End    int64 // exclusive, Unix seconds

	// Metadata resolves pool parameters when Meta is nil. Meta, when
	// set, skips the on-chain lookup entirely.
	Metadata MetadataSource
	Meta     *domain.PoolMeta

	// Aggregation
	BucketWidth int64 // seconds

	// Fetch behavior
	PageSize   int
	BatchDelay time.Duration

	// Outputs
	CSVPath    string
	ReportPath string // optional markdown run report, off when empty

	// Optional sinks; nil disables them
	TradeArchive storage.TradeEventStore
	EventArchive storage.LiquidityEventStore
	RecordSink   storage.PoolRecordStore

	// FromArchive loads the window's events from the archive stores
	// instead of the index, so a run can be repeated without refetching.
	// Requires TradeArchive and EventArchive; the archive write phase is
	// skipped.
	FromArchive bool

	Logger *logrus.Logger
	Clock  func() time.Time // report timestamp source, defaults to time.Now
}

// Pipeline executes the run phases in order.
// Flow: resolve metadata → fetch streams → archive raw events →
// aggregate → write outputs.
type Pipeline struct {
	source   ingestion.Source
	metadata MetadataSource
	meta     *domain.PoolMeta

	pool        common.Address
	start, end  int64
	bucketWidth int64

	pageSize   int
	batchDelay time.Duration

	csvPath    string
	reportPath string

	tradeArchive storage.TradeEventStore
	eventArchive storage.LiquidityEventStore
	recordSink   storage.PoolRecordStore
	fromArchive  bool

	log   *logrus.Entry
	clock func() time.Time
}

// New creates a new Pipeline.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Pipeline{
		source:       opts.Source,
		metadata:     opts.Metadata,
		meta:         opts.Meta,
		pool:         opts.Pool,
		start:        opts.Start,
		end:          opts.End,
		bucketWidth:  opts.BucketWidth,
		pageSize:     opts.PageSize,
		batchDelay:   opts.BatchDelay,
		csvPath:      opts.CSVPath,
		reportPath:   opts.ReportPath,
		tradeArchive: opts.TradeArchive,
		eventArchive: opts.EventArchive,
		recordSink:   opts.RecordSink,
		fromArchive:  opts.FromArchive,
		log:          logger.WithField("component", "pipeline"),
		clock:        clock,
	}
}

// Run executes the full run.
// Phases:
//  1. Resolve pool metadata (skipped when pre-resolved)
//  2. Fetch the three event streams
//  3. Archive raw events (optional, non-fatal)
//  4. Aggregate into aligned bucket records
//  5. Write the CSV and optional sinks
func (p *Pipeline) Run(ctx context.Context) (*reporting.RunReport, error) {
	started := time.Now()

	// Phase 1: pool metadata
	meta, err := p.resolveMeta(ctx)
	if err != nil {
		observability.RecordRun("failure", time.Since(started).Seconds())
		return nil, fmt.Errorf("phase 1 (resolve metadata) failed: %w", err)
	}
	p.log.WithFields(logrus.Fields{
		"pool":         meta.Pool.Hex(),
		"token0":       meta.Token0.Hex(),
		"token1":       meta.Token1.Hex(),
		"fee_tier":     meta.FeeTier,
		"tick_spacing": meta.TickSpacing,
	}).Info("pool metadata resolved")

	report := &reporting.RunReport{
		GeneratedAt: p.clock(),
		Pool:        meta.Pool.Hex(),
		Token0:      meta.Token0.Hex(),
		Token1:      meta.Token1.Hex(),
		FeeTier:     meta.FeeTier,
		TickSpacing: meta.TickSpacing,
		WindowStart: p.start,
		WindowEnd:   p.end,
		BucketWidth: p.bucketWidth,
	}

	// Phase 2: event streams, from the index or the archive
	var fetched *ingestion.Result
	if p.fromArchive {
		fetched, err = p.loadArchived(ctx)
		if err != nil {
			observability.RecordRun("failure", time.Since(started).Seconds())
			return nil, fmt.Errorf("phase 2 (load archive) failed: %w", err)
		}
	} else {
		fetcher := ingestion.NewFetcher(ingestion.Options{
			Source:     p.source,
			Pool:       p.pool,
			Start:      p.start,
			End:        p.end,
			PageSize:   p.pageSize,
			BatchDelay: p.batchDelay,
			Logger:     p.log.Logger,
		})
		fetched, err = fetcher.FetchAll(ctx)
		if err != nil {
			observability.RecordRun("failure", time.Since(started).Seconds())
			return nil, fmt.Errorf("phase 2 (fetch streams) failed: %w", err)
		}
	}
	report.Ingestion = summarizeIngestion(fetched)

	// Phase 3: archive raw events (optional, non-fatal). An archive-sourced
	// run already holds them.
	if !p.fromArchive {
		p.archiveEvents(ctx, fetched, &report.Output)
	}

	// Phase 4: aggregation
	events := fetched.Liquidity()
	ohlc := aggregation.BuildOHLC(fetched.Trades, p.bucketWidth, meta)
	liq := aggregation.BuildLiquidityMetrics(ohlc.Buckets, events, p.bucketWidth, meta)
	records, mismatches, err := aggregation.AlignRecords(ohlc.Buckets, liq.Metrics)
	if err != nil {
		observability.RecordRun("failure", time.Since(started).Seconds())
		return nil, fmt.Errorf("phase 4 (align series) failed: %w", err)
	}

	observability.RecordBucketsEmitted(len(records))
	observability.RecordZeroPriceTrades(ohlc.ZeroPriceTrades)
	observability.RecordLedgerClamps(liq.LedgerClamps)
	observability.RecordAlignmentWarnings(mismatches)

	report.Aggregation = reporting.AggregationSummary{
		Buckets:             len(records),
		ZeroPriceTrades:     ohlc.ZeroPriceTrades,
		LedgerClamps:        liq.LedgerClamps,
		TickErrors:          liq.TickErrors,
		InvalidEvents:       len(liq.InvalidEventIDs),
		TimestampMismatches: mismatches,
	}
	p.log.WithFields(logrus.Fields{
		"buckets":           len(records),
		"zero_price_trades": ohlc.ZeroPriceTrades,
		"ledger_clamps":     liq.LedgerClamps,
		"tick_errors":       liq.TickErrors,
	}).Info("aggregation complete")

	// Phase 5: outputs
	if err := reporting.WriteCSV(p.csvPath, records); err != nil {
		observability.RecordRun("failure", time.Since(started).Seconds())
		return nil, fmt.Errorf("phase 5 (write csv) failed: %w", err)
	}
	report.Output.Rows = len(records)
	report.Output.CSVPath = p.csvPath
	p.log.WithFields(logrus.Fields{"rows": len(records), "path": p.csvPath}).Info("csv written")

	p.storeRecords(ctx, records, &report.Output)
	p.writeRunReport(report)

	status := "success"
	if !report.Ingestion.Complete() {
		status = "partial"
	}
	observability.RecordRun(status, time.Since(started).Seconds())

	return report, nil
}

// resolveMeta returns the injected metadata or looks it up on-chain.
func (p *Pipeline) resolveMeta(ctx context.Context) (*domain.PoolMeta, error) {
	if p.meta != nil {
		return p.meta, nil
	}
	if p.metadata == nil {
		return nil, errors.New("no metadata source configured")
	}
	return p.metadata.Resolve(ctx, p.pool)
}

// loadArchived reads the window's events back from the archive, replaying
// an earlier run without touching the index.
func (p *Pipeline) loadArchived(ctx context.Context) (*ingestion.Result, error) {
	if p.tradeArchive == nil || p.eventArchive == nil {
		return nil, errors.New("archive stores not configured")
	}

	loadStarted := time.Now()

	start := time.Now()
	trades, err := p.tradeArchive.GetByPoolTimeRange(ctx, p.pool, p.start, p.end)
	observability.RecordDBQuery("postgres", "get_trade_events", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("load archived trades: %w", err)
	}

	start = time.Now()
	events, err := p.eventArchive.GetByPoolTimeRange(ctx, p.pool, p.start, p.end)
	observability.RecordDBQuery("postgres", "get_liquidity_events", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("load archived liquidity events: %w", err)
	}

	result := &ingestion.Result{Trades: trades}
	for _, ev := range events {
		if ev.Kind == domain.LiquidityKindWithdraw {
			result.Withdraws = append(result.Withdraws, ev)
		} else {
			result.Deposits = append(result.Deposits, ev)
		}
	}
	result.Duration = time.Since(loadStarted)

	p.log.WithFields(logrus.Fields{
		"trades":    len(result.Trades),
		"deposits":  len(result.Deposits),
		"withdraws": len(result.Withdraws),
	}).Info("events loaded from archive")

	return result, nil
}

// archiveEvents persists the raw fetched streams. A batch already present
// from an earlier run is skipped; other failures are recorded and the run
// continues, the archive is not part of the deliverable.
func (p *Pipeline) archiveEvents(ctx context.Context, fetched *ingestion.Result, out *reporting.OutputSummary) {
	if p.tradeArchive != nil {
		start := time.Now()
		err := p.tradeArchive.InsertBulk(ctx, p.pool, fetched.Trades)
		observability.RecordDBQuery("postgres", "insert_trade_events", time.Since(start).Seconds(), err)
		switch {
		case err == nil:
			out.TradesArchived = len(fetched.Trades)
		case errors.Is(err, storage.ErrDuplicateKey):
			p.log.Info("trades already archived, skipping")
		default:
			p.log.WithError(err).Warn("trade archive failed")
			out.ArchiveErrors = append(out.ArchiveErrors, fmt.Sprintf("archive trades: %v", err))
		}
	}

	if p.eventArchive != nil {
		events := fetched.Liquidity()
		start := time.Now()
		err := p.eventArchive.InsertBulk(ctx, p.pool, events)
		observability.RecordDBQuery("postgres", "insert_liquidity_events", time.Since(start).Seconds(), err)
		switch {
		case err == nil:
			out.EventsArchived = len(events)
		case errors.Is(err, storage.ErrDuplicateKey):
			p.log.Info("liquidity events already archived, skipping")
		default:
			p.log.WithError(err).Warn("liquidity archive failed")
			out.ArchiveErrors = append(out.ArchiveErrors, fmt.Sprintf("archive liquidity events: %v", err))
		}
	}
}

// storeRecords persists the derived records. Non-fatal like the archive.
func (p *Pipeline) storeRecords(ctx context.Context, records []*domain.PoolRecord, out *reporting.OutputSummary) {
	if p.recordSink == nil || len(records) == 0 {
		return
	}

	start := time.Now()
	err := p.recordSink.InsertBulk(ctx, p.pool, records)
	observability.RecordDBQuery("clickhouse", "insert_pool_records", time.Since(start).Seconds(), err)
	if err != nil {
		p.log.WithError(err).Warn("record sink failed")
		out.ArchiveErrors = append(out.ArchiveErrors, fmt.Sprintf("store records: %v", err))
		return
	}
	out.RecordsStored = len(records)
}

// writeRunReport renders the markdown run report when a path is configured.
func (p *Pipeline) writeRunReport(report *reporting.RunReport) {
	if p.reportPath == "" {
		return
	}
	if err := reporting.WriteMarkdown(p.reportPath, report); err != nil {
		p.log.WithError(err).Warn("run report write failed")
		return
	}
	p.log.WithField("path", p.reportPath).Info("run report written")
}

func summarizeIngestion(fetched *ingestion.Result) reporting.IngestionSummary {
	s := reporting.IngestionSummary{
		Trades:            len(fetched.Trades),
		Deposits:          len(fetched.Deposits),
		Withdraws:         len(fetched.Withdraws),
		Pages:             fetched.TradePages + fetched.DepositPages + fetched.WithdrawPages,
		StallAdvances:     fetched.StallAdvances,
		DuplicatesSkipped: fetched.DuplicatesSkipped,
		PartialStreams:    fetched.PartialStreams,
		Duration:          fetched.Duration,
	}
	for _, err := range fetched.StreamErrors {
		s.StreamErrors = append(s.StreamErrors, err.Error())
	}
	return s
}
