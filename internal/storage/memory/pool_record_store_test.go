package memory

import (
	"context"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jungtak3/uniswap-v3-data/internal/domain"
)

func testRecord(bucketStart int64, open int64) *domain.PoolRecord {
	return &domain.PoolRecord{
		BucketStart:     bucketStart,
		Open:            decimal.NewFromInt(open),
		High:            decimal.NewFromInt(open),
		Low:             decimal.NewFromInt(open),
		Close:           decimal.NewFromInt(open),
		ActiveLiquidity: big.NewInt(400),
		TotalLiquidity:  big.NewInt(1000),
		Ratio:           decimal.RequireFromString("0.4"),
	}
}

func TestPoolRecordStore_InsertBulkAndGet(t *testing.T) {
	store := NewPoolRecordStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, testPool, []*domain.PoolRecord{
		testRecord(7200, 9),
		testRecord(0, 4),
	}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByPoolTimeRange(ctx, testPool, 0, 10800)
	if err != nil {
		t.Fatalf("GetByPoolTimeRange failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(result))
	}
	if result[0].BucketStart != 0 || result[1].BucketStart != 7200 {
		t.Errorf("Expected bucket order 0, 7200, got %d, %d", result[0].BucketStart, result[1].BucketStart)
	}
}

func TestPoolRecordStore_ReinsertReplacesBucket(t *testing.T) {
	store := NewPoolRecordStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, testPool, []*domain.PoolRecord{testRecord(0, 4)}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.InsertBulk(ctx, testPool, []*domain.PoolRecord{testRecord(0, 9)}); err != nil {
		t.Fatalf("Re-insert failed: %v", err)
	}

	result, err := store.GetByPoolTimeRange(ctx, testPool, 0, 3600)
	if err != nil {
		t.Fatalf("GetByPoolTimeRange failed: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("Expected 1 record after replace, got %d", len(result))
	}
	if result[0].Open.String() != "9" {
		t.Errorf("Expected latest version kept, got open %s", result[0].Open)
	}
}
