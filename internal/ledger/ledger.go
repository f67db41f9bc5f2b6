// Package ledger reconstructs per-tick pool liquidity from position
// deposits and withdrawals.
package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/holiman/uint256"

	"github.com/jungtak3/uniswap-v3-data/internal/domain"
)

var (
	ErrInvalidTickRange = errors.New("invalid tick range")
	ErrUnknownEventKind = errors.New("unknown liquidity event kind")
)

// Ledger tracks liquidity in boundary-delta form: each position range
// [lower, upper) contributes +amount at lower and -amount at upper, and the
// level at any tick is the prefix sum of deltas up to it. Pool-wide totals
// are maintained eagerly and clamp at zero on withdrawal underflow.
//
// The Ledger is owned by a single replay loop and is not safe for
// concurrent use. Replay order is the caller's obligation.
type Ledger struct {
	deltas map[int32]*big.Int
	total  *uint256.Int
	clamps int
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		deltas: make(map[int32]*big.Int),
		total:  uint256.NewInt(0),
	}
}

// Apply routes a liquidity event to ApplyDeposit or ApplyWithdraw by kind.
func (l *Ledger) Apply(ev *domain.LiquidityEvent) error {
	switch ev.Kind {
	case domain.LiquidityKindDeposit:
		return l.ApplyDeposit(ev.TickLower, ev.TickUpper, ev.Amount)
	case domain.LiquidityKindWithdraw:
		return l.ApplyWithdraw(ev.TickLower, ev.TickUpper, ev.Amount)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEventKind, ev.Kind)
	}
}

// ApplyDeposit adds amount across [lower, upper) and to the pool total.
func (l *Ledger) ApplyDeposit(lower, upper int32, amount *uint256.Int) error {
	if lower >= upper {
		return fmt.Errorf("%w: [%d, %d)", ErrInvalidTickRange, lower, upper)
	}
	a := amount.ToBig()
	l.addDelta(lower, a)
	l.addDelta(upper, new(big.Int).Neg(a))
	if _, overflow := l.total.AddOverflow(l.total, amount); overflow {
		l.total.SetAllOne()
		l.clamps++
	}
	return nil
}

// ApplyWithdraw removes amount across [lower, upper) and from the pool
// total. A total that would go negative clamps at zero and is counted as a
// data inconsistency.
func (l *Ledger) ApplyWithdraw(lower, upper int32, amount *uint256.Int) error {
	if lower >= upper {
		return fmt.Errorf("%w: [%d, %d)", ErrInvalidTickRange, lower, upper)
	}
	a := amount.ToBig()
	l.addDelta(lower, new(big.Int).Neg(a))
	l.addDelta(upper, a)
	if _, underflow := l.total.SubOverflow(l.total, amount); underflow {
		l.total.Clear()
		l.clamps++
	}
	return nil
}

func (l *Ledger) addDelta(tick int32, d *big.Int) {
	cur, ok := l.deltas[tick]
	if !ok {
		cur = new(big.Int)
		l.deltas[tick] = cur
	}
	cur.Add(cur, d)
}

// ActiveLiquidity sums the per-tick liquidity level over every tick index
// in [min(lo,hi), max(lo,hi)). Segment levels that a defective history
// drives negative are floored at zero before they contribute.
func (l *Ledger) ActiveLiquidity(lo, hi int32) *big.Int {
	if hi < lo {
		lo, hi = hi, lo
	}
	active := new(big.Int)
	if lo == hi || len(l.deltas) == 0 {
		return active
	}

	ticks := make([]int32, 0, len(l.deltas))
	for t := range l.deltas {
		ticks = append(ticks, t)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })

	level := new(big.Int)
	width := new(big.Int)
	term := new(big.Int)
	for i, t := range ticks {
		level.Add(level, l.deltas[t])
		if level.Sign() <= 0 {
			continue
		}
		segStart, segEnd := t, hi
		if i+1 < len(ticks) && ticks[i+1] < segEnd {
			segEnd = ticks[i+1]
		}
		if segStart < lo {
			segStart = lo
		}
		if segStart >= segEnd {
			continue
		}
		width.SetInt64(int64(segEnd) - int64(segStart))
		active.Add(active, term.Mul(level, width))
	}
	return active
}

// LiquidityAt returns the liquidity level at a single tick, floored at zero.
func (l *Ledger) LiquidityAt(tick int32) *big.Int {
	level := new(big.Int)
	for t, d := range l.deltas {
		if t <= tick {
			level.Add(level, d)
		}
	}
	if level.Sign() < 0 {
		return new(big.Int)
	}
	return level
}

// Total returns a copy of the clamped pool-wide liquidity.
func (l *Ledger) Total() *big.Int {
	return l.total.ToBig()
}

// Clamps reports how many apply operations hit the zero clamp.
func (l *Ledger) Clamps() int {
	return l.clamps
}
