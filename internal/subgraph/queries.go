package subgraph

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/jungtak3/uniswap-v3-data/internal/domain"
)

// ErrMalformedRecord marks an index record whose numeric fields do not
// parse. A page containing one is rejected whole: silently skipping
// corrupt events would skew every downstream aggregate.
var ErrMalformedRecord = errors.New("malformed index record")

// PageQuery bounds one page request against an event collection.
type PageQuery struct {
	Pool  common.Address // pool the events belong to
	Start int64          // inclusive lower timestamp bound
	End   int64          // exclusive upper timestamp bound
	First int            // page size
	Skip  int            // offset, used by the offset-paginated collections
}

func (q PageQuery) variables() map[string]interface{} {
	return map[string]interface{}{
		"pool":  strings.ToLower(q.Pool.Hex()),
		"start": strconv.FormatInt(q.Start, 10),
		"end":   strconv.FormatInt(q.End, 10),
		"first": q.First,
		"skip":  q.Skip,
	}
}

const swapsQuery = `query ($pool: String!, $start: BigInt!, $end: BigInt!, $first: Int!) {
  swaps(first: $first, orderBy: timestamp, orderDirection: asc,
        where: {pool: $pool, timestamp_gte: $start, timestamp_lt: $end}) {
    id
    timestamp
    sqrtPriceX96
    tick
    amount0
    amount1
    sender
    recipient
  }
}`

const mintsQuery = `query ($pool: String!, $start: BigInt!, $end: BigInt!, $first: Int!, $skip: Int!) {
  mints(first: $first, skip: $skip, orderBy: timestamp, orderDirection: asc,
        where: {pool: $pool, timestamp_gte: $start, timestamp_lt: $end}) {
    id
    timestamp
    amount
    tickLower
    tickUpper
    owner
    origin
  }
}`

const burnsQuery = `query ($pool: String!, $start: BigInt!, $end: BigInt!, $first: Int!, $skip: Int!) {
  burns(first: $first, skip: $skip, orderBy: timestamp, orderDirection: asc,
        where: {pool: $pool, timestamp_gte: $start, timestamp_lt: $end}) {
    id
    timestamp
    amount
    tickLower
    tickUpper
    owner
    origin
  }
}`

// swapRow is the raw index row for the swaps collection. All numerics
// arrive as decimal strings.
type swapRow struct {
	ID           string `json:"id"`
	Timestamp    string `json:"timestamp"`
	SqrtPriceX96 string `json:"sqrtPriceX96"`
	Tick         string `json:"tick"`
	Amount0      string `json:"amount0"`
	Amount1      string `json:"amount1"`
	Sender       string `json:"sender"`
	Recipient    string `json:"recipient"`
}

// positionRow is the raw index row shared by the mints and burns collections.
type positionRow struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Amount    string `json:"amount"`
	TickLower string `json:"tickLower"`
	TickUpper string `json:"tickUpper"`
	Owner     string `json:"owner"`
	Origin    string `json:"origin"`
}

// Swaps fetches one page of trades at or after q.Start. The skip argument
// is ignored; trades are paginated by cursor, not offset.
func (c *Client) Swaps(ctx context.Context, q PageQuery) ([]*domain.TradeEvent, error) {
	var data struct {
		Swaps []swapRow `json:"swaps"`
	}
	if err := c.execute(ctx, swapsQuery, q.variables(), &data); err != nil {
		return nil, fmt.Errorf("fetch swaps: %w", err)
	}

	events := make([]*domain.TradeEvent, 0, len(data.Swaps))
	for _, row := range data.Swaps {
		ev, err := parseSwap(row)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// Mints fetches one page of liquidity deposits at the given offset.
func (c *Client) Mints(ctx context.Context, q PageQuery) ([]*domain.LiquidityEvent, error) {
	var data struct {
		Mints []positionRow `json:"mints"`
	}
	if err := c.execute(ctx, mintsQuery, q.variables(), &data); err != nil {
		return nil, fmt.Errorf("fetch mints: %w", err)
	}
	return parsePositions(data.Mints, domain.LiquidityKindDeposit)
}

// Burns fetches one page of liquidity withdrawals at the given offset.
func (c *Client) Burns(ctx context.Context, q PageQuery) ([]*domain.LiquidityEvent, error) {
	var data struct {
		Burns []positionRow `json:"burns"`
	}
	if err := c.execute(ctx, burnsQuery, q.variables(), &data); err != nil {
		return nil, fmt.Errorf("fetch burns: %w", err)
	}
	return parsePositions(data.Burns, domain.LiquidityKindWithdraw)
}

func parseSwap(row swapRow) (*domain.TradeEvent, error) {
	ts, err := strconv.ParseInt(row.Timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: swap %s: timestamp %q", ErrMalformedRecord, row.ID, row.Timestamp)
	}
	sqrtPrice, ok := new(big.Int).SetString(row.SqrtPriceX96, 10)
	if !ok {
		return nil, fmt.Errorf("%w: swap %s: sqrtPriceX96 %q", ErrMalformedRecord, row.ID, row.SqrtPriceX96)
	}
	tick, err := strconv.ParseInt(row.Tick, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: swap %s: tick %q", ErrMalformedRecord, row.ID, row.Tick)
	}
	amount0, ok := new(big.Int).SetString(row.Amount0, 10)
	if !ok {
		return nil, fmt.Errorf("%w: swap %s: amount0 %q", ErrMalformedRecord, row.ID, row.Amount0)
	}
	amount1, ok := new(big.Int).SetString(row.Amount1, 10)
	if !ok {
		return nil, fmt.Errorf("%w: swap %s: amount1 %q", ErrMalformedRecord, row.ID, row.Amount1)
	}

	return &domain.TradeEvent{
		ID:           row.ID,
		Timestamp:    ts,
		SqrtPriceX96: sqrtPrice,
		Tick:         int32(tick),
		Amount0:      amount0,
		Amount1:      amount1,
		Sender:       common.HexToAddress(row.Sender),
		Recipient:    common.HexToAddress(row.Recipient),
	}, nil
}

func parsePositions(rows []positionRow, kind string) ([]*domain.LiquidityEvent, error) {
	events := make([]*domain.LiquidityEvent, 0, len(rows))
	for _, row := range rows {
		ts, err := strconv.ParseInt(row.Timestamp, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %s: timestamp %q", ErrMalformedRecord, kind, row.ID, row.Timestamp)
		}
		amount, err := uint256.FromDecimal(row.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %s: amount %q", ErrMalformedRecord, kind, row.ID, row.Amount)
		}
		lower, err := strconv.ParseInt(row.TickLower, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %s: tickLower %q", ErrMalformedRecord, kind, row.ID, row.TickLower)
		}
		upper, err := strconv.ParseInt(row.TickUpper, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %s: tickUpper %q", ErrMalformedRecord, kind, row.ID, row.TickUpper)
		}

		events = append(events, &domain.LiquidityEvent{
			ID:        row.ID,
			Timestamp: ts,
			Kind:      kind,
			Amount:    amount,
			TickLower: int32(lower),
			TickUpper: int32(upper),
			Owner:     common.HexToAddress(row.Owner),
			Origin:    common.HexToAddress(row.Origin),
		})
	}
	return events, nil
}
