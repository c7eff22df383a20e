package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/quintave/quintave/internal/common"
	"github.com/quintave/quintave/internal/model"
)

const bucketColumns = `id, user_id, name, balance, allocated, created_at, updated_at`

func scanBucket(row rowScanner) (model.Bucket, error) {
	var b model.Bucket
	if err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.Balance, &b.Allocated, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return model.Bucket{}, err
	}
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, nil
}

// GetBuckets returns the user's buckets ordered by id. Inside a transaction
// the rows are locked for update.
func (s *SQLStorage) GetBuckets(ctx context.Context, userID int64) ([]model.Bucket, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.query(ctx,
		`SELECT `+bucketColumns+` FROM buckets WHERE user_id = ? ORDER BY id`+s.forUpdate(), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query buckets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	buckets := []model.Bucket{}
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating buckets: %w", err)
	}
	return buckets, nil
}

// GetBucket returns one bucket owned by userID.
func (s *SQLStorage) GetBucket(ctx context.Context, userID, bucketID int64) (*model.Bucket, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.queryRow(ctx,
		`SELECT `+bucketColumns+` FROM buckets WHERE id = ? AND user_id = ?`+s.forUpdate(), bucketID, userID)
	b, err := scanBucket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bucket %d: %w", bucketID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}
	return &b, nil
}

// CountBuckets returns how many buckets the user owns.
func (s *SQLStorage) CountBuckets(ctx context.Context, userID int64) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM buckets WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count buckets: %w", err)
	}
	return n, nil
}

// CreateBucket inserts the bucket and fills in its id and timestamps.
func (s *SQLStorage) CreateBucket(ctx context.Context, bucket *model.Bucket) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBucket(bucket); err != nil {
		return err
	}

	now := nowUTC()
	err := s.queryRow(ctx, `
		INSERT INTO buckets (user_id, name, balance, allocated, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`,
		bucket.UserID, bucket.Name, bucket.Balance, bucket.Allocated, now, now).Scan(&bucket.ID)
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	bucket.CreatedAt = now
	bucket.UpdatedAt = now
	return nil
}

// UpdateBucketBalance overwrites the bucket's balance.
func (s *SQLStorage) UpdateBucketBalance(ctx context.Context, bucketID int64, balance decimal.Decimal) error {
	return s.updateBucketAmount(ctx, "balance", bucketID, balance)
}

// UpdateBucketAllocation overwrites the bucket's allocated total.
func (s *SQLStorage) UpdateBucketAllocation(ctx context.Context, bucketID int64, allocated decimal.Decimal) error {
	return s.updateBucketAmount(ctx, "allocated", bucketID, allocated)
}

// column is always one of the two literals above.
func (s *SQLStorage) updateBucketAmount(ctx context.Context, column string, bucketID int64, amount decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.exec(ctx,
		`UPDATE buckets SET `+column+` = ?, updated_at = ? WHERE id = ?`,
		amount.Round(2), nowUTC(), bucketID)
	if err != nil {
		return fmt.Errorf("failed to update bucket %s: %w", column, err)
	}
	return expectAffected(result, fmt.Sprintf("bucket %d", bucketID))
}
