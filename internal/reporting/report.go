package reporting

import "time"

// RunReport summarizes one pool history run end to end.
type RunReport struct {
	// Metadata
	GeneratedAt time.Time
	Pool        string
	Token0      string
	Token1      string
	FeeTier     uint32
	TickSpacing int32

	// Requested window
	WindowStart int64 // Unix seconds
	WindowEnd   int64 // Unix seconds
	BucketWidth int64 // seconds

	Ingestion   IngestionSummary
	Aggregation AggregationSummary
	Output      OutputSummary
}

// IngestionSummary describes what the fetch phase delivered.
type IngestionSummary struct {
	Trades            int
	Deposits          int
	Withdraws         int
	Pages             int
	StallAdvances     int
	DuplicatesSkipped int
	PartialStreams    []string // streams that failed after retries
	StreamErrors      []string
	Duration          time.Duration
}

// Complete reports whether every stream was fetched to the window end.
func (s IngestionSummary) Complete() bool {
	return len(s.PartialStreams) == 0
}

// AggregationSummary describes bucketing and ledger quality counters.
type AggregationSummary struct {
	Buckets             int
	ZeroPriceTrades     int
	LedgerClamps        int
	TickErrors          int
	InvalidEvents       int // liquidity events rejected by the ledger
	TimestampMismatches int // aligned positions whose series timestamps disagreed
}

// OutputSummary describes what was written where.
type OutputSummary struct {
	Rows           int
	CSVPath        string
	TradesArchived int // raw trade rows persisted to PostgreSQL, 0 when disabled
	EventsArchived int // raw liquidity rows persisted to PostgreSQL, 0 when disabled
	RecordsStored  int // final records persisted to ClickHouse, 0 when disabled
	ArchiveErrors  []string
}
