package postgres_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/jungtak3/uniswap-v3-data/internal/domain"
	"github.com/jungtak3/uniswap-v3-data/internal/storage"
	"github.com/jungtak3/uniswap-v3-data/internal/storage/postgres"
)

var testPool = common.HexToAddress("0x8ad599c3A0ff1De082011EFDDc58f1908eb6e6D8")

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "bad big integer literal %q", s)
	return v
}

func TestTradeEventStore_InsertBulkAndGetByPoolTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewTradeEventStore(pool)
	ctx := context.Background()

	trades := []*domain.TradeEvent{
		{
			ID:           "0xabc#12",
			Timestamp:    1700000100,
			SqrtPriceX96: mustBig(t, "1829842871335818713690059760"),
			Tick:         -73440,
			Amount0:      mustBig(t, "-150000000"),
			Amount1:      mustBig(t, "79953401570278210"),
			Sender:       common.HexToAddress("0x1111111111111111111111111111111111111111"),
			Recipient:    common.HexToAddress("0x2222222222222222222222222222222222222222"),
		},
		{
			ID:           "0xabc#7",
			Timestamp:    1700000000,
			SqrtPriceX96: mustBig(t, "1829000000000000000000000000"),
			Tick:         -73450,
			Amount0:      mustBig(t, "500000000"),
			Amount1:      mustBig(t, "-266511338567594033"),
		},
	}

	require.NoError(t, store.InsertBulk(ctx, testPool, trades))

	got, err := store.GetByPoolTimeRange(ctx, testPool, 1700000000, 1700000200)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by timestamp
	require.Equal(t, "0xabc#7", got[0].ID)
	require.Equal(t, "0xabc#12", got[1].ID)

	// Large integers survive the round trip exactly
	require.Zero(t, got[1].SqrtPriceX96.Cmp(trades[0].SqrtPriceX96))
	require.Zero(t, got[1].Amount0.Cmp(trades[0].Amount0))
	require.Zero(t, got[1].Amount1.Cmp(trades[0].Amount1))
	require.Equal(t, int32(-73440), got[1].Tick)
	require.Equal(t, trades[0].Sender, got[1].Sender)
	require.Equal(t, trades[0].Recipient, got[1].Recipient)
}

func TestTradeEventStore_DuplicateRollsBackBatch(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewTradeEventStore(pool)
	ctx := context.Background()

	first := &domain.TradeEvent{ID: "0xabc#1", Timestamp: 10, SqrtPriceX96: big.NewInt(1), Amount0: big.NewInt(0), Amount1: big.NewInt(0)}
	require.NoError(t, store.InsertBulk(ctx, testPool, []*domain.TradeEvent{first}))

	fresh := &domain.TradeEvent{ID: "0xabc#2", Timestamp: 20, SqrtPriceX96: big.NewInt(1), Amount0: big.NewInt(0), Amount1: big.NewInt(0)}
	err := store.InsertBulk(ctx, testPool, []*domain.TradeEvent{fresh, first})
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	// The fresh row must not have been committed with the failed batch
	got, err := store.GetByPoolTimeRange(ctx, testPool, 0, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "0xabc#1", got[0].ID)
}

func TestTradeEventStore_WindowEndIsExclusive(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewTradeEventStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, testPool, []*domain.TradeEvent{
		{ID: "0xabc#1", Timestamp: 10, SqrtPriceX96: big.NewInt(1), Amount0: big.NewInt(0), Amount1: big.NewInt(0)},
		{ID: "0xabc#2", Timestamp: 20, SqrtPriceX96: big.NewInt(1), Amount0: big.NewInt(0), Amount1: big.NewInt(0)},
	}))

	got, err := store.GetByPoolTimeRange(ctx, testPool, 10, 20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "0xabc#1", got[0].ID)
}
