// Package chain resolves pool and token metadata from an Ethereum JSON-RPC node.
//
// A pool's token addresses, fee tier and token decimals are immutable contract
// state, so they are read once per run with plain eth_call and no retry layer;
// a pool that cannot be resolved cannot be aggregated.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/jungtak3/uniswap-v3-data/internal/domain"
	"github.com/jungtak3/uniswap-v3-data/internal/pricemath"
)

// Function selectors of the read-only contract methods the resolver needs.
const (
	selToken0   = "0x0dfe1681" // token0()
	selToken1   = "0xd21220a7" // token1()
	selFee      = "0xddca3f43" // fee()
	selDecimals = "0x313ce567" // decimals()
)

// ErrBadResponse indicates an eth_call result that is not a 32-byte ABI word.
var ErrBadResponse = errors.New("malformed eth_call response")

// Caller is the subset of the go-ethereum RPC client the resolver uses.
type Caller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// Resolver reads pool metadata via eth_call.
type Resolver struct {
	client Caller
}

// NewResolver creates a resolver on an existing RPC caller.
func NewResolver(client Caller) *Resolver {
	return &Resolver{client: client}
}

// Dial connects to an Ethereum JSON-RPC endpoint and returns a resolver on it.
func Dial(ctx context.Context, url string) (*Resolver, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial ethereum rpc: %w", err)
	}
	return NewResolver(client), nil
}

type callArgs struct {
	To   common.Address `json:"to"`
	Data string         `json:"data"`
}

// Resolve reads token0, token1 and the fee tier from the pool contract, then
// decimals from each token contract, and derives the tick spacing.
func (r *Resolver) Resolve(ctx context.Context, pool common.Address) (*domain.PoolMeta, error) {
	token0, err := r.callAddress(ctx, pool, selToken0)
	if err != nil {
		return nil, fmt.Errorf("resolve token0: %w", err)
	}
	token1, err := r.callAddress(ctx, pool, selToken1)
	if err != nil {
		return nil, fmt.Errorf("resolve token1: %w", err)
	}
	fee, err := r.callUint(ctx, pool, selFee, 1<<24)
	if err != nil {
		return nil, fmt.Errorf("resolve fee: %w", err)
	}
	decimals0, err := r.callUint(ctx, token0, selDecimals, 255)
	if err != nil {
		return nil, fmt.Errorf("resolve token0 decimals: %w", err)
	}
	decimals1, err := r.callUint(ctx, token1, selDecimals, 255)
	if err != nil {
		return nil, fmt.Errorf("resolve token1 decimals: %w", err)
	}

	spacing, err := pricemath.SpacingForFee(uint32(fee))
	if err != nil {
		return nil, err
	}

	return &domain.PoolMeta{
		Pool:        pool,
		Token0:      token0,
		Token1:      token1,
		Decimals0:   uint8(decimals0),
		Decimals1:   uint8(decimals1),
		FeeTier:     uint32(fee),
		TickSpacing: spacing,
	}, nil
}

// callWord performs one eth_call and returns the single 32-byte return word.
func (r *Resolver) callWord(ctx context.Context, to common.Address, data string) ([]byte, error) {
	var out hexutil.Bytes
	if err := r.client.CallContext(ctx, &out, "eth_call", callArgs{To: to, Data: data}, "latest"); err != nil {
		return nil, err
	}
	if len(out) != 32 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrBadResponse, len(out))
	}
	return out, nil
}

func (r *Resolver) callAddress(ctx context.Context, to common.Address, data string) (common.Address, error) {
	word, err := r.callWord(ctx, to, data)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(word[12:]), nil
}

func (r *Resolver) callUint(ctx context.Context, to common.Address, data string, max uint64) (uint64, error) {
	word, err := r.callWord(ctx, to, data)
	if err != nil {
		return 0, err
	}
	v := new(big.Int).SetBytes(word)
	if !v.IsUint64() || v.Uint64() > max {
		return 0, fmt.Errorf("%w: value %s out of range", ErrBadResponse, v)
	}
	return v.Uint64(), nil
}
