package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/jungtak3/uniswap-v3-data/internal/domain"
	"github.com/jungtak3/uniswap-v3-data/internal/subgraph"
)

var testPool = common.HexToAddress("0x8ad599c3A0ff1De082011EFDDc58f1908eb6e6D8")

// fakeSource scripts the index per collection. Nil funcs yield empty pages.
type fakeSource struct {
	swaps func(q subgraph.PageQuery) ([]*domain.TradeEvent, error)
	mints func(q subgraph.PageQuery) ([]*domain.LiquidityEvent, error)
	burns func(q subgraph.PageQuery) ([]*domain.LiquidityEvent, error)
}

func (s *fakeSource) Swaps(ctx context.Context, q subgraph.PageQuery) ([]*domain.TradeEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.swaps == nil {
		return nil, nil
	}
	return s.swaps(q)
}

func (s *fakeSource) Mints(ctx context.Context, q subgraph.PageQuery) ([]*domain.LiquidityEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.mints == nil {
		return nil, nil
	}
	return s.mints(q)
}

func (s *fakeSource) Burns(ctx context.Context, q subgraph.PageQuery) ([]*domain.LiquidityEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.burns == nil {
		return nil, nil
	}
	return s.burns(q)
}

func trade(id string, ts int64) *domain.TradeEvent {
	return &domain.TradeEvent{ID: id, Timestamp: ts}
}

func deposit(id string, ts int64) *domain.LiquidityEvent {
	return &domain.LiquidityEvent{
		ID: id, Timestamp: ts, Kind: domain.LiquidityKindDeposit,
		Amount: uint256.NewInt(1), TickLower: 0, TickUpper: 60,
	}
}

func withdraw(id string, ts int64) *domain.LiquidityEvent {
	return &domain.LiquidityEvent{
		ID: id, Timestamp: ts, Kind: domain.LiquidityKindWithdraw,
		Amount: uint256.NewInt(1), TickLower: 0, TickUpper: 60,
	}
}

// indexedSwaps serves a fixed trade history the way the index would:
// timestamp window filter, ascending order assumed, page size cap.
func indexedSwaps(all []*domain.TradeEvent) func(subgraph.PageQuery) ([]*domain.TradeEvent, error) {
	return func(q subgraph.PageQuery) ([]*domain.TradeEvent, error) {
		var out []*domain.TradeEvent
		for _, ev := range all {
			if ev.Timestamp >= q.Start && ev.Timestamp < q.End {
				out = append(out, ev)
				if len(out) == q.First {
					break
				}
			}
		}
		return out, nil
	}
}

// indexedLiquidity serves a fixed liquidity history with offset pagination.
func indexedLiquidity(all []*domain.LiquidityEvent) func(subgraph.PageQuery) ([]*domain.LiquidityEvent, error) {
	return func(q subgraph.PageQuery) ([]*domain.LiquidityEvent, error) {
		var window []*domain.LiquidityEvent
		for _, ev := range all {
			if ev.Timestamp >= q.Start && ev.Timestamp < q.End {
				window = append(window, ev)
			}
		}
		if q.Skip >= len(window) {
			return nil, nil
		}
		window = window[q.Skip:]
		if len(window) > q.First {
			window = window[:q.First]
		}
		return window, nil
	}
}

func newTestFetcher(source Source, pageSize int) *Fetcher {
	return NewFetcher(Options{
		Source:   source,
		Pool:     testPool,
		Start:    0,
		End:      1000,
		PageSize: pageSize,
	})
}

func TestFetcher_CursorWalkDeliversEachTradeOnce(t *testing.T) {
	// Three trades, page size two: the cursor revisits the page boundary,
	// the revisited record must be dropped, every trade delivered once
	history := []*domain.TradeEvent{trade("t1", 10), trade("t2", 20), trade("t3", 30)}
	source := &fakeSource{swaps: indexedSwaps(history)}

	f := newTestFetcher(source, 2)
	result, err := f.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	if len(result.Trades) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(result.Trades))
	}
	for i, want := range []string{"t1", "t2", "t3"} {
		if result.Trades[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, result.Trades[i].ID)
		}
	}
	if result.DuplicatesSkipped == 0 {
		t.Error("expected boundary duplicates to be dropped")
	}
	if result.Partial() {
		t.Errorf("expected complete result, got partial: %v", result.PartialStreams)
	}
}

func TestFetcher_ShortPageTerminatesCursorWalk(t *testing.T) {
	history := []*domain.TradeEvent{trade("t1", 10), trade("t2", 20), trade("t3", 30)}
	source := &fakeSource{swaps: indexedSwaps(history)}

	f := newTestFetcher(source, 100)
	result, err := f.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	if result.TradePages != 1 {
		t.Errorf("expected 1 page, got %d", result.TradePages)
	}
	if len(result.Trades) != 3 {
		t.Errorf("expected 3 trades, got %d", len(result.Trades))
	}
}

func TestFetcher_StallGuardForcesAdvance(t *testing.T) {
	// Three trades in the same second with page size two: the cursor cannot
	// move past them naturally; the guard forces it and loses the tail
	history := []*domain.TradeEvent{trade("a", 100), trade("b", 100), trade("c", 100)}
	source := &fakeSource{swaps: indexedSwaps(history)}

	f := newTestFetcher(source, 2)
	result, err := f.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	if result.StallAdvances != 1 {
		t.Errorf("expected 1 stall advance, got %d", result.StallAdvances)
	}
	if len(result.Trades) != 2 {
		t.Errorf("expected 2 trades (burst tail skipped), got %d", len(result.Trades))
	}
}

func TestFetcher_OffsetPaginationWalksAllPages(t *testing.T) {
	history := []*domain.LiquidityEvent{
		deposit("m1", 10), deposit("m2", 20), deposit("m3", 30),
		deposit("m4", 40), deposit("m5", 50),
	}
	source := &fakeSource{mints: indexedLiquidity(history)}

	f := newTestFetcher(source, 2)
	result, err := f.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	if len(result.Deposits) != 5 {
		t.Fatalf("expected 5 deposits, got %d", len(result.Deposits))
	}
	// Pages of 2, 2, 1: the short page ends the walk
	if result.DepositPages != 3 {
		t.Errorf("expected 3 pages, got %d", result.DepositPages)
	}
	for i, want := range []string{"m1", "m2", "m3", "m4", "m5"} {
		if result.Deposits[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, result.Deposits[i].ID)
		}
	}
}

func TestFetcher_StreamFailureKeepsAccumulatedEvents(t *testing.T) {
	calls := 0
	source := &fakeSource{
		swaps: func(q subgraph.PageQuery) ([]*domain.TradeEvent, error) {
			calls++
			if calls == 1 {
				return []*domain.TradeEvent{trade("t1", 10), trade("t2", 20)}, nil
			}
			return nil, errors.New("max attempts exceeded: rate limited (429)")
		},
		mints: indexedLiquidity([]*domain.LiquidityEvent{deposit("m1", 15)}),
	}

	f := newTestFetcher(source, 2)
	result, err := f.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	if !result.Partial() {
		t.Fatal("expected partial result")
	}
	if len(result.PartialStreams) != 1 || result.PartialStreams[0] != StreamTrades {
		t.Errorf("expected trades marked partial, got %v", result.PartialStreams)
	}
	// The first page survives the abort
	if len(result.Trades) != 2 {
		t.Errorf("expected 2 accumulated trades, got %d", len(result.Trades))
	}
	// Later streams still run
	if len(result.Deposits) != 1 {
		t.Errorf("expected 1 deposit, got %d", len(result.Deposits))
	}
}

func TestFetcher_OutOfOrderStreamCutToOrderedPrefix(t *testing.T) {
	source := &fakeSource{
		swaps: func(q subgraph.PageQuery) ([]*domain.TradeEvent, error) {
			return []*domain.TradeEvent{trade("t1", 20), trade("t2", 10)}, nil
		},
	}

	f := newTestFetcher(source, 100)
	result, err := f.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	if !result.Partial() {
		t.Fatal("expected partial result")
	}
	if len(result.Trades) != 1 || result.Trades[0].ID != "t1" {
		t.Errorf("expected ordered prefix [t1], got %v", result.Trades)
	}
	if len(result.StreamErrors) != 1 || !errors.Is(result.StreamErrors[0], ErrOutOfOrder) {
		t.Errorf("expected ErrOutOfOrder, got %v", result.StreamErrors)
	}
}

func TestFetcher_ContextCancellationIsFatal(t *testing.T) {
	source := &fakeSource{}
	f := newTestFetcher(source, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.FetchAll(ctx)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
