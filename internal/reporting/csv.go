package reporting

import (
	"fmt"
	"os"
	"strings"

	"github.com/jungtak3/uniswap-v3-data/internal/domain"
)

// CSVHeader is the exact column order consumers of the file depend on.
const CSVHeader = "Time,Open,High,Low,Close,ActiveLiquidityInRange,TotalLiquidityInPool,LiquidityRatio_ActiveInRange_vs_TotalInPool"

// RenderCSV renders pool records as a CSV string, one row per non-empty bucket.
func RenderCSV(records []*domain.PoolRecord) string {
	var sb strings.Builder

	sb.WriteString(CSVHeader)
	sb.WriteString("\n")

	for _, r := range records {
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%s,%s,%s,%s,%s\n",
			r.BucketStart,
			r.Open,
			r.High,
			r.Low,
			r.Close,
			r.ActiveLiquidity,
			r.TotalLiquidity,
			r.Ratio,
		))
	}

	return sb.String()
}

// WriteCSV renders records and writes them to path.
func WriteCSV(path string, records []*domain.PoolRecord) error {
	if err := os.WriteFile(path, []byte(RenderCSV(records)), 0o644); err != nil {
		return fmt.Errorf("write csv %s: %w", path, err)
	}
	return nil
}
