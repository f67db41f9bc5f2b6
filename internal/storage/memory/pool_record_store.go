package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/jungtak3/uniswap-v3-data/internal/domain"
	"github.com/jungtak3/uniswap-v3-data/internal/storage"
)

// PoolRecordStore is an in-memory implementation of storage.PoolRecordStore.
type PoolRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PoolRecord // keyed by pool|bucketStart
}

// NewPoolRecordStore creates a new in-memory pool record store.
func NewPoolRecordStore() *PoolRecordStore {
	return &PoolRecordStore{
		data: make(map[string]*domain.PoolRecord),
	}
}

func recordKey(pool common.Address, bucketStart int64) string {
	return pool.Hex() + "|" + strconv.FormatInt(bucketStart, 10)
}

// InsertBulk adds multiple records. Re-inserting a bucket overwrites it,
// matching the replacing semantics of the ClickHouse sink.
func (s *PoolRecordStore) InsertBulk(_ context.Context, pool common.Address, records []*domain.PoolRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if r == nil {
			return storage.ErrInvalidInput
		}
		rCopy := *r
		s.data[recordKey(pool, r.BucketStart)] = &rCopy
	}

	return nil
}

// GetByPoolTimeRange retrieves records with bucket start within [start, end),
// ordered by bucket start ASC.
func (s *PoolRecordStore) GetByPoolTimeRange(_ context.Context, pool common.Address, start, end int64) ([]*domain.PoolRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := pool.Hex() + "|"
	var result []*domain.PoolRecord
	for key, r := range s.data {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix &&
			r.BucketStart >= start && r.BucketStart < end {
			rCopy := *r
			result = append(result, &rCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].BucketStart < result[j].BucketStart
	})

	return result, nil
}

var _ storage.PoolRecordStore = (*PoolRecordStore)(nil)
