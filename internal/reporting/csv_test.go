package reporting

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jungtak3/uniswap-v3-data/internal/domain"
)

func sampleRecord() *domain.PoolRecord {
	return &domain.PoolRecord{
		BucketStart:     3600,
		Open:            decimal.NewFromInt(4),
		High:            decimal.NewFromInt(9),
		Low:             decimal.NewFromInt(1),
		Close:           decimal.NewFromInt(1),
		ActiveLiquidity: big.NewInt(400),
		TotalLiquidity:  big.NewInt(1000),
		Ratio:           decimal.RequireFromString("0.4"),
	}
}

func TestRenderCSV_HeaderIsExact(t *testing.T) {
	// Downstream consumers parse by column name; the header may never drift
	out := RenderCSV(nil)

	lines := strings.Split(out, "\n")
	want := "Time,Open,High,Low,Close,ActiveLiquidityInRange,TotalLiquidityInPool,LiquidityRatio_ActiveInRange_vs_TotalInPool"
	if lines[0] != want {
		t.Errorf("expected header %q, got %q", want, lines[0])
	}
}

func TestRenderCSV_RowValues(t *testing.T) {
	out := RenderCSV([]*domain.PoolRecord{sampleRecord()})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	want := "3600,4,9,1,1,400,1000,0.4"
	if lines[1] != want {
		t.Errorf("expected row %q, got %q", want, lines[1])
	}
}

func TestRenderCSV_NoRecords(t *testing.T) {
	out := RenderCSV(nil)

	if out != CSVHeader+"\n" {
		t.Errorf("expected header only, got %q", out)
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")

	if err := WriteCSV(path, []*domain.PoolRecord{sampleRecord()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != RenderCSV([]*domain.PoolRecord{sampleRecord()}) {
		t.Errorf("file content differs from rendered output")
	}
}
