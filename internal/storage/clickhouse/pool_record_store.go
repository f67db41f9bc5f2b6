package clickhouse

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/jungtak3/uniswap-v3-data/internal/domain"
	"github.com/jungtak3/uniswap-v3-data/internal/storage"
)

// PoolRecordStore implements storage.PoolRecordStore using ClickHouse.
//
// The table is a ReplacingMergeTree keyed by (pool, bucket_start), so
// re-running a window overwrites its rows instead of duplicating them.
type PoolRecordStore struct {
	conn *Conn
}

// NewPoolRecordStore creates a new PoolRecordStore.
func NewPoolRecordStore(conn *Conn) *PoolRecordStore {
	return &PoolRecordStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PoolRecordStore = (*PoolRecordStore)(nil)

// InsertBulk adds multiple records in one batch.
func (s *PoolRecordStore) InsertBulk(ctx context.Context, pool common.Address, records []*domain.PoolRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO pool_records (
			pool, bucket_start, open, high, low, close,
			active_liquidity, total_liquidity, liquidity_ratio
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		if r == nil {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			pool.Hex(), uint64(r.BucketStart),
			r.Open, r.High, r.Low, r.Close,
			bigString(r.ActiveLiquidity), bigString(r.TotalLiquidity), r.Ratio,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByPoolTimeRange retrieves records with bucket start within [start, end),
// ordered by bucket start ASC.
func (s *PoolRecordStore) GetByPoolTimeRange(ctx context.Context, pool common.Address, start, end int64) ([]*domain.PoolRecord, error) {
	query := `
		SELECT bucket_start, open, high, low, close,
		       active_liquidity, total_liquidity, liquidity_ratio
		FROM pool_records FINAL
		WHERE pool = ? AND bucket_start >= ? AND bucket_start < ?
		ORDER BY bucket_start ASC
	`

	rows, err := s.conn.Query(ctx, query, pool.Hex(), uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPoolRecords(rows)
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanPoolRecords scans multiple rows.
func scanPoolRecords(rows chRows) ([]*domain.PoolRecord, error) {
	var records []*domain.PoolRecord

	for rows.Next() {
		var (
			r             domain.PoolRecord
			bucketStart   uint64
			active, total string
		)

		err := rows.Scan(
			&bucketStart, &r.Open, &r.High, &r.Low, &r.Close,
			&active, &total, &r.Ratio,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pool record row: %w", err)
		}

		r.BucketStart = int64(bucketStart)
		if r.ActiveLiquidity, err = parseBig(active); err != nil {
			return nil, fmt.Errorf("bucket %d: %w", r.BucketStart, err)
		}
		if r.TotalLiquidity, err = parseBig(total); err != nil {
			return nil, fmt.Errorf("bucket %d: %w", r.BucketStart, err)
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool record rows: %w", err)
	}

	return records, nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseBig(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("parse stored integer %q", s)
	}
	return v, nil
}
