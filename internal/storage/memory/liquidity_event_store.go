package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/jungtak3/uniswap-v3-data/internal/domain"
	"github.com/jungtak3/uniswap-v3-data/internal/storage"
)

// LiquidityEventStore is an in-memory implementation of storage.LiquidityEventStore.
type LiquidityEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.LiquidityEvent // keyed by pool|id
}

// NewLiquidityEventStore creates a new in-memory liquidity event store.
func NewLiquidityEventStore() *LiquidityEventStore {
	return &LiquidityEventStore{
		data: make(map[string]*domain.LiquidityEvent),
	}
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *LiquidityEventStore) InsertBulk(_ context.Context, pool common.Address, events []*domain.LiquidityEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(events))

	for _, e := range events {
		if e == nil || e.ID == "" {
			return storage.ErrInvalidInput
		}
		key := eventKey(pool, e.ID)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, e := range events {
		eCopy := *e
		s.data[eventKey(pool, e.ID)] = &eCopy
	}

	return nil
}

// GetByPoolTimeRange retrieves events for a pool within [start, end), ordered by timestamp ASC.
func (s *LiquidityEventStore) GetByPoolTimeRange(_ context.Context, pool common.Address, start, end int64) ([]*domain.LiquidityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := pool.Hex() + "|"
	var result []*domain.LiquidityEvent
	for key, e := range s.data {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix &&
			e.Timestamp >= start && e.Timestamp < end {
			eCopy := *e
			result = append(result, &eCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

var _ storage.LiquidityEventStore = (*LiquidityEventStore)(nil)
