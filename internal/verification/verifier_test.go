package verification

import (
	"context"
	"errors"
	"io"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/jungtak3/uniswap-v3-data/internal/aggregation"
	"github.com/jungtak3/uniswap-v3-data/internal/domain"
	"github.com/jungtak3/uniswap-v3-data/internal/storage/memory"
)

var (
	testPool = common.HexToAddress("0xC2e9F25Be6257c210d7Adf0D4Cd6E3E881ba25f8")

	q96 = new(big.Int).Lsh(big.NewInt(1), 96)
)

func testMeta() *domain.PoolMeta {
	return &domain.PoolMeta{
		Pool:        testPool,
		Decimals0:   18,
		Decimals1:   18,
		FeeTier:     3000,
		TickSpacing: 60,
	}
}

// tradeAt builds a trade whose sqrt price is priceRoot*2^96, which with
// equal token decimals decodes to the exact price priceRoot².
func tradeAt(id string, ts int64, priceRoot int64) *domain.TradeEvent {
	return &domain.TradeEvent{
		ID:           id,
		Timestamp:    ts,
		SqrtPriceX96: new(big.Int).Mul(q96, big.NewInt(priceRoot)),
		Amount0:      big.NewInt(1),
		Amount1:      big.NewInt(-1),
	}
}

func depositAt(id string, ts int64, amount uint64) *domain.LiquidityEvent {
	return &domain.LiquidityEvent{
		ID: id, Timestamp: ts, Kind: domain.LiquidityKindDeposit,
		Amount: uint256.NewInt(amount), TickLower: -887220, TickUpper: 887220,
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func deriveRecords(t *testing.T, trades []*domain.TradeEvent, events []*domain.LiquidityEvent) []*domain.PoolRecord {
	t.Helper()
	ohlc := aggregation.BuildOHLC(trades, 3600, testMeta())
	liq := aggregation.BuildLiquidityMetrics(ohlc.Buckets, events, 3600, testMeta())
	records, _, err := aggregation.AlignRecords(ohlc.Buckets, liq.Metrics)
	if err != nil {
		t.Fatalf("derive records: %v", err)
	}
	return records
}

// seedArchive fills the raw stores with two buckets worth of events and
// returns the verifier wired to them plus the derived records.
func seedArchive(t *testing.T) (*ReplayVerifier, *memory.PoolRecordStore, []*domain.PoolRecord) {
	t.Helper()
	ctx := context.Background()

	trades := []*domain.TradeEvent{
		tradeAt("t1", 100, 2), tradeAt("t2", 200, 3), tradeAt("t3", 4000, 2),
	}
	events := []*domain.LiquidityEvent{depositAt("m1", 50, 1000)}

	tradeStore := memory.NewTradeEventStore()
	if err := tradeStore.InsertBulk(ctx, testPool, trades); err != nil {
		t.Fatalf("seed trades: %v", err)
	}
	eventStore := memory.NewLiquidityEventStore()
	if err := eventStore.InsertBulk(ctx, testPool, events); err != nil {
		t.Fatalf("seed liquidity events: %v", err)
	}
	recordStore := memory.NewPoolRecordStore()

	verifier := NewReplayVerifier(ReplayVerifierOptions{
		Trades:      tradeStore,
		Events:      eventStore,
		Records:     recordStore,
		Meta:        testMeta(),
		BucketWidth: 3600,
		Logger:      quietLogger(),
	})

	return verifier, recordStore, deriveRecords(t, trades, events)
}

func TestVerifyWindow_CleanMatch(t *testing.T) {
	ctx := context.Background()
	verifier, recordStore, records := seedArchive(t)

	if err := recordStore.InsertBulk(ctx, testPool, records); err != nil {
		t.Fatalf("seed records: %v", err)
	}

	report, err := verifier.VerifyWindow(ctx, testPool, 0, 7200)
	if err != nil {
		t.Fatalf("VerifyWindow: %v", err)
	}

	if !report.Clean() {
		t.Errorf("expected clean report, got %+v", report)
	}
	if report.TotalBuckets != 2 || report.MatchedBuckets != 2 {
		t.Errorf("expected 2 matched buckets, got total %d matched %d", report.TotalBuckets, report.MatchedBuckets)
	}
}

func TestVerifyWindow_DetectsDivergentField(t *testing.T) {
	ctx := context.Background()
	verifier, recordStore, records := seedArchive(t)

	records[1].Close = records[1].Close.Add(decimal.NewFromInt(1))
	if err := recordStore.InsertBulk(ctx, testPool, records); err != nil {
		t.Fatalf("seed records: %v", err)
	}

	report, err := verifier.VerifyWindow(ctx, testPool, 0, 7200)
	if err != nil {
		t.Fatalf("VerifyWindow: %v", err)
	}

	if report.Clean() {
		t.Fatal("expected divergence to be detected")
	}
	if report.DivergentBuckets != 1 || report.MatchedBuckets != 1 {
		t.Errorf("expected 1 divergent and 1 matched bucket, got %d and %d",
			report.DivergentBuckets, report.MatchedBuckets)
	}

	var found *RecordResult
	for i := range report.Results {
		if !report.Results[i].Match && report.Results[i].BucketStart == records[1].BucketStart {
			found = &report.Results[i]
		}
	}
	if found == nil {
		t.Fatalf("expected result for bucket %d, got %+v", records[1].BucketStart, report.Results)
	}
	if len(found.Divergences) != 1 || found.Divergences[0].Field != "close" {
		t.Errorf("expected single close divergence, got %+v", found.Divergences)
	}
}

func TestVerifyWindow_FlagsMissingBuckets(t *testing.T) {
	ctx := context.Background()
	verifier, recordStore, records := seedArchive(t)

	// Sink holds only the first bucket plus one the replay cannot produce
	orphan := &domain.PoolRecord{
		BucketStart:     10800,
		Open:            decimal.NewFromInt(1),
		High:            decimal.NewFromInt(1),
		Low:             decimal.NewFromInt(1),
		Close:           decimal.NewFromInt(1),
		ActiveLiquidity: big.NewInt(0),
		TotalLiquidity:  big.NewInt(0),
		Ratio:           decimal.Zero,
	}
	if err := recordStore.InsertBulk(ctx, testPool, []*domain.PoolRecord{records[0], orphan}); err != nil {
		t.Fatalf("seed records: %v", err)
	}

	report, err := verifier.VerifyWindow(ctx, testPool, 0, 14400)
	if err != nil {
		t.Fatalf("VerifyWindow: %v", err)
	}

	if report.StoredOnly != 1 {
		t.Errorf("expected 1 stored-only bucket, got %d", report.StoredOnly)
	}
	if report.ReplayedOnly != 1 {
		t.Errorf("expected 1 replayed-only bucket, got %d", report.ReplayedOnly)
	}
	if report.MatchedBuckets != 1 {
		t.Errorf("expected 1 matched bucket, got %d", report.MatchedBuckets)
	}
	if report.TotalBuckets != 3 {
		t.Errorf("expected 3 buckets in total, got %d", report.TotalBuckets)
	}
}

func TestVerifyWindow_EmptySinkErrors(t *testing.T) {
	ctx := context.Background()
	verifier, _, _ := seedArchive(t)

	_, err := verifier.VerifyWindow(ctx, testPool, 0, 7200)
	if !errors.Is(err, ErrNoStoredRecords) {
		t.Errorf("expected ErrNoStoredRecords, got %v", err)
	}
}
