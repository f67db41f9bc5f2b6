package reporting

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// RenderMarkdown renders a run report as Markdown string.
func RenderMarkdown(r *RunReport) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Pool History Run\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Pool: %s (fee tier %d, tick spacing %d)\n\n", r.Pool, r.FeeTier, r.TickSpacing))
	sb.WriteString(fmt.Sprintf("Tokens: %s / %s\n\n", r.Token0, r.Token1))
	sb.WriteString(fmt.Sprintf("Window: %d .. %d, bucket width %ds\n\n", r.WindowStart, r.WindowEnd, r.BucketWidth))

	// Ingestion
	sb.WriteString("## Ingestion\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", r.Ingestion.Trades))
	sb.WriteString(fmt.Sprintf("| Deposits | %d |\n", r.Ingestion.Deposits))
	sb.WriteString(fmt.Sprintf("| Withdrawals | %d |\n", r.Ingestion.Withdraws))
	sb.WriteString(fmt.Sprintf("| Pages Fetched | %d |\n", r.Ingestion.Pages))
	sb.WriteString(fmt.Sprintf("| Stall Advances | %d |\n", r.Ingestion.StallAdvances))
	sb.WriteString(fmt.Sprintf("| Duplicates Skipped | %d |\n", r.Ingestion.DuplicatesSkipped))
	sb.WriteString(fmt.Sprintf("| Duration | %s |\n", r.Ingestion.Duration.Round(time.Millisecond)))
	sb.WriteString("\n")

	if r.Ingestion.Complete() {
		sb.WriteString("All streams fetched to the window end.\n\n")
	} else {
		sb.WriteString(fmt.Sprintf("**Partial streams:** %s. Derived history may be incomplete.\n\n",
			strings.Join(r.Ingestion.PartialStreams, ", ")))
		for _, e := range r.Ingestion.StreamErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
		sb.WriteString("\n")
	}

	// Aggregation
	sb.WriteString("## Aggregation\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Buckets | %d |\n", r.Aggregation.Buckets))
	sb.WriteString(fmt.Sprintf("| Zero-Price Trades Skipped | %d |\n", r.Aggregation.ZeroPriceTrades))
	sb.WriteString(fmt.Sprintf("| Ledger Clamps | %d |\n", r.Aggregation.LedgerClamps))
	sb.WriteString(fmt.Sprintf("| Tick Quantization Errors | %d |\n", r.Aggregation.TickErrors))
	sb.WriteString(fmt.Sprintf("| Rejected Liquidity Events | %d |\n", r.Aggregation.InvalidEvents))
	sb.WriteString(fmt.Sprintf("| Timestamp Mismatches | %d |\n", r.Aggregation.TimestampMismatches))
	sb.WriteString("\n")

	// Output
	sb.WriteString("## Output\n\n")
	sb.WriteString(fmt.Sprintf("%d rows written to %s\n", r.Output.Rows, r.Output.CSVPath))
	if r.Output.TradesArchived > 0 || r.Output.EventsArchived > 0 {
		sb.WriteString(fmt.Sprintf("Archived %d trades and %d liquidity events to PostgreSQL\n",
			r.Output.TradesArchived, r.Output.EventsArchived))
	}
	if r.Output.RecordsStored > 0 {
		sb.WriteString(fmt.Sprintf("Stored %d records to ClickHouse\n", r.Output.RecordsStored))
	}
	if len(r.Output.ArchiveErrors) > 0 {
		sb.WriteString("\n### Archive Errors\n\n")
		for _, e := range r.Output.ArchiveErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
	}
	sb.WriteString("\n")

	return sb.String()
}

// WriteMarkdown renders a run report and writes it to path.
func WriteMarkdown(path string, r *RunReport) error {
	if err := os.WriteFile(path, []byte(RenderMarkdown(r)), 0o644); err != nil {
		return fmt.Errorf("write run report %s: %w", path, err)
	}
	return nil
}
