package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/jungtak3/uniswap-v3-data/internal/domain"
	"github.com/jungtak3/uniswap-v3-data/internal/storage"
)

// TradeEventStore is an in-memory implementation of storage.TradeEventStore.
type TradeEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeEvent // keyed by pool|id
}

// NewTradeEventStore creates a new in-memory trade event store.
func NewTradeEventStore() *TradeEventStore {
	return &TradeEventStore{
		data: make(map[string]*domain.TradeEvent),
	}
}

func eventKey(pool common.Address, id string) string {
	return pool.Hex() + "|" + id
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeEventStore) InsertBulk(_ context.Context, pool common.Address, trades []*domain.TradeEvent) error {
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(trades))

	for _, tr := range trades {
		if tr == nil || tr.ID == "" {
			return storage.ErrInvalidInput
		}
		key := eventKey(pool, tr.ID)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, tr := range trades {
		trCopy := *tr
		s.data[eventKey(pool, tr.ID)] = &trCopy
	}

	return nil
}

// GetByPoolTimeRange retrieves trades for a pool within [start, end), ordered by timestamp ASC.
func (s *TradeEventStore) GetByPoolTimeRange(_ context.Context, pool common.Address, start, end int64) ([]*domain.TradeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := pool.Hex() + "|"
	var result []*domain.TradeEvent
	for key, tr := range s.data {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix &&
			tr.Timestamp >= start && tr.Timestamp < end {
			trCopy := *tr
			result = append(result, &trCopy)
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

var _ storage.TradeEventStore = (*TradeEventStore)(nil)
