package ingestion

import (
	"testing"

	"github.com/jungtak3/uniswap-v3-data/internal/domain"
)

func TestMergeLiquidityEvents_OrdersByTimestamp(t *testing.T) {
	deposits := []*domain.LiquidityEvent{deposit("d1", 10), deposit("d2", 40)}
	withdraws := []*domain.LiquidityEvent{withdraw("w1", 20), withdraw("w2", 30)}

	merged := MergeLiquidityEvents(deposits, withdraws)

	want := []string{"d1", "w1", "w2", "d2"}
	if len(merged) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(merged))
	}
	for i, id := range want {
		if merged[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, merged[i].ID)
		}
	}
}

func TestMergeLiquidityEvents_SameSecondKeepsDepositsFirst(t *testing.T) {
	deposits := []*domain.LiquidityEvent{deposit("d1", 10), deposit("d2", 10)}
	withdraws := []*domain.LiquidityEvent{withdraw("w1", 10)}

	merged := MergeLiquidityEvents(deposits, withdraws)

	want := []string{"d1", "d2", "w1"}
	for i, id := range want {
		if merged[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, merged[i].ID)
		}
	}
}

func TestMergeLiquidityEvents_EmptyInputs(t *testing.T) {
	if got := MergeLiquidityEvents(nil, nil); len(got) != 0 {
		t.Errorf("expected empty merge, got %d events", len(got))
	}

	only := []*domain.LiquidityEvent{deposit("d1", 10)}
	merged := MergeLiquidityEvents(only, nil)
	if len(merged) != 1 || merged[0].ID != "d1" {
		t.Errorf("expected single deposit to pass through, got %v", merged)
	}
}

func TestFirstOrderViolation_DetectsRegression(t *testing.T) {
	ordered := []*domain.TradeEvent{trade("t1", 10), trade("t2", 10), trade("t3", 20)}
	if i := firstTradeOrderViolation(ordered); i != -1 {
		t.Errorf("expected no violation in non-decreasing stream, got index %d", i)
	}

	broken := []*domain.TradeEvent{trade("t1", 10), trade("t2", 30), trade("t3", 20)}
	if i := firstTradeOrderViolation(broken); i != 2 {
		t.Errorf("expected violation at index 2, got %d", i)
	}

	events := []*domain.LiquidityEvent{deposit("d1", 50), deposit("d2", 40)}
	if i := firstLiquidityOrderViolation(events); i != 1 {
		t.Errorf("expected violation at index 1, got %d", i)
	}
}
