package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jungtak3/uniswap-v3-data/internal/chain"
	"github.com/jungtak3/uniswap-v3-data/internal/config"
	"github.com/jungtak3/uniswap-v3-data/internal/domain"
	"github.com/jungtak3/uniswap-v3-data/internal/pipeline"
	"github.com/jungtak3/uniswap-v3-data/internal/pricemath"
	"github.com/jungtak3/uniswap-v3-data/internal/reporting"
	"github.com/jungtak3/uniswap-v3-data/internal/storage/clickhouse"
	"github.com/jungtak3/uniswap-v3-data/internal/storage/postgres"
	"github.com/jungtak3/uniswap-v3-data/internal/subgraph"
)

var (
	historyPool        string
	historyStart       int64
	historyEnd         int64
	historyBucket      int64
	historyOutput      string
	historyReport      string
	historyMetrics     string
	historyFromArchive bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Build a pool's bucketed trading and liquidity history",
	Long: `Fetch a pool's swap, mint and burn events for a time window and
aggregate them into aligned OHLC and liquidity-ratio buckets.

The pool and window come from flags or UNIV3_* environment variables;
a .env file in the working directory is picked up automatically.

Examples:
  # One day of hourly buckets for the DAI/WETH 0.3% pool
  uniswap-v3-data history --pool 0xC2e9F25Be6257c210d7Adf0D4Cd6E3E881ba25f8 \
    --start 1700000000 --end 1700086400

  # 15-minute buckets to a custom file, with a markdown run report
  uniswap-v3-data history --bucket 900 --output day.csv --report run.md

  # Re-aggregate an archived window at a new bucket width without refetching
  uniswap-v3-data history --from-archive --bucket 300`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyPool, "pool", "", "Pool contract address (overrides UNIV3_POOL)")
	historyCmd.Flags().Int64Var(&historyStart, "start", 0, "Window start, Unix seconds (overrides UNIV3_START_TIME)")
	historyCmd.Flags().Int64Var(&historyEnd, "end", 0, "Window end, Unix seconds (overrides UNIV3_END_TIME)")
	historyCmd.Flags().Int64Var(&historyBucket, "bucket", 0, "Bucket width in seconds (overrides UNIV3_BUCKET_SECONDS)")
	historyCmd.Flags().StringVar(&historyOutput, "output", "", "CSV output path (overrides UNIV3_OUTPUT)")
	historyCmd.Flags().StringVar(&historyReport, "report", "", "Markdown run report path (overrides UNIV3_REPORT)")
	historyCmd.Flags().StringVar(&historyMetrics, "metrics-addr", "", "Serve /metrics and /health on this address during the run (overrides UNIV3_METRICS_ADDR)")
	historyCmd.Flags().BoolVar(&historyFromArchive, "from-archive", false, "Load events from the PostgreSQL archive instead of the index")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if path := config.LoadDotEnv(); path != "" {
		fmt.Printf("Loaded environment from %s\n", path)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command line flags if provided
	if historyPool != "" {
		cfg.Pool = historyPool
	}
	if historyStart != 0 {
		cfg.StartTime = historyStart
	}
	if historyEnd != 0 {
		cfg.EndTime = historyEnd
	}
	if historyBucket != 0 {
		cfg.BucketSeconds = historyBucket
	}
	if historyOutput != "" {
		cfg.OutputPath = historyOutput
	}
	if historyReport != "" {
		cfg.ReportPath = historyReport
	}
	if historyMetrics != "" {
		cfg.MetricsAddr = historyMetrics
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if historyFromArchive && !cfg.ArchiveEnabled() {
		return fmt.Errorf("--from-archive requires UNIV3_POSTGRES_DSN")
	}

	logger := newLogger(cfg)

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First signal cancels the run; a second signal or a stuck shutdown
	// forces the process down.
	done := make(chan struct{})
	defer close(done)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig.String()).Warn("shutdown signal received, cancelling run")
			cancel()
		case <-done:
			return
		}
		select {
		case <-sigCh:
			logger.Error("second signal received, forcing immediate exit")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Error("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	report, err := buildAndRun(ctx, cfg, logger)
	if err != nil {
		return err
	}

	printSummary(report)
	return nil
}

// buildAndRun assembles the pipeline from config and executes it.
func buildAndRun(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*reporting.RunReport, error) {
	client := subgraph.NewClient(cfg.IndexURL,
		subgraph.WithTimeout(cfg.HTTPTimeout),
		subgraph.WithMaxAttempts(cfg.MaxAttempts),
		subgraph.WithRetryDelay(cfg.RetryDelay),
	)

	opts := pipeline.Options{
		Source:      client,
		Pool:        cfg.PoolAddress(),
		Start:       cfg.StartTime,
		End:         cfg.EndTime,
		BucketWidth: cfg.BucketSeconds,
		PageSize:    cfg.PageSize,
		BatchDelay:  cfg.BatchDelay,
		CSVPath:     cfg.OutputPath,
		ReportPath:  cfg.ReportPath,
		FromArchive: historyFromArchive,
		Logger:      logger,
	}

	if cfg.HasMetadataOverride() {
		meta, err := overrideMeta(cfg)
		if err != nil {
			return nil, err
		}
		opts.Meta = meta
	} else {
		resolver, err := chain.Dial(ctx, cfg.EthRPCURL)
		if err != nil {
			return nil, fmt.Errorf("connect to ethereum rpc: %w", err)
		}
		opts.Metadata = resolver
	}

	if cfg.ArchiveEnabled() {
		pgPool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		defer pgPool.Close()

		opts.TradeArchive = postgres.NewTradeEventStore(pgPool)
		opts.EventArchive = postgres.NewLiquidityEventStore(pgPool)
	}

	if cfg.RecordSinkEnabled() {
		conn, err := clickhouse.NewConn(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		defer conn.Close()

		opts.RecordSink = clickhouse.NewPoolRecordStore(conn)
	}

	return pipeline.New(opts).Run(ctx)
}

// overrideMeta builds pool metadata from operator-supplied values. Token
// addresses are unknown without the on-chain lookup and stay zero.
func overrideMeta(cfg *config.Config) (*domain.PoolMeta, error) {
	spacing, err := pricemath.SpacingForFee(*cfg.FeeTier)
	if err != nil {
		return nil, err
	}

	return &domain.PoolMeta{
		Pool:        cfg.PoolAddress(),
		Decimals0:   *cfg.Token0Decimals,
		Decimals1:   *cfg.Token1Decimals,
		FeeTier:     *cfg.FeeTier,
		TickSpacing: spacing,
	}, nil
}

func printSummary(r *reporting.RunReport) {
	fmt.Printf("Run completed:\n")
	fmt.Printf("  Trades: %d\n", r.Ingestion.Trades)
	fmt.Printf("  Liquidity events: %d\n", r.Ingestion.Deposits+r.Ingestion.Withdraws)
	fmt.Printf("  Buckets: %d\n", r.Aggregation.Buckets)
	fmt.Printf("  Rows written: %d (%s)\n", r.Output.Rows, r.Output.CSVPath)
	if !r.Ingestion.Complete() {
		fmt.Printf("  Partial streams: %s\n", strings.Join(r.Ingestion.PartialStreams, ", "))
	}
	for _, e := range r.Output.ArchiveErrors {
		fmt.Printf("  Archive error: %s\n", e)
	}
}
