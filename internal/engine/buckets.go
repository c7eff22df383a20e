package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quintave/quintave/internal/allocation"
	"github.com/quintave/quintave/internal/common"
	"github.com/quintave/quintave/internal/model"
	"github.com/quintave/quintave/internal/service"
)

// maxBucketsMessage is shown verbatim to clients.
const maxBucketsMessage = "Maximum of 5 buckets allowed"

// ListBuckets returns the user's buckets ordered by id.
func (e *Engine) ListBuckets(ctx context.Context, userID int64) ([]model.Bucket, error) {
	return e.storage.GetBuckets(ctx, userID)
}

// CreateBucket adds a bucket, refusing once the user already has
// model.MaxBuckets of them.
func (e *Engine) CreateBucket(ctx context.Context, userID int64, name string, balance decimal.Decimal) (*model.Bucket, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.InvalidInput("bucket name is required")
	}
	if !model.InAmountRange(balance) {
		return nil, common.InvalidInput("bucket balance must not exceed %s", model.MaxAmount)
	}

	bucket := &model.Bucket{UserID: userID, Name: name, Balance: balance.Round(allocation.Places)}
	err := e.withTx(ctx, func(tx service.Transaction) error {
		// Locking the owner row serializes concurrent creates for the same user.
		if _, err := tx.GetUserByID(ctx, userID); err != nil {
			return err
		}

		n, err := tx.CountBuckets(ctx, userID)
		if err != nil {
			return err
		}
		if n >= model.MaxBuckets {
			return common.NewUserError(maxBucketsMessage, common.ErrMaxBuckets)
		}

		return tx.CreateBucket(ctx, bucket)
	})
	if err != nil {
		return nil, err
	}
	return bucket, nil
}

// SetBucketBalance overwrites a bucket's balance.
func (e *Engine) SetBucketBalance(ctx context.Context, userID, bucketID int64, balance decimal.Decimal) (*model.Bucket, error) {
	if !model.InAmountRange(balance) {
		return nil, common.InvalidInput("bucket balance must not exceed %s", model.MaxAmount)
	}

	var bucket *model.Bucket
	err := e.withTx(ctx, func(tx service.Transaction) error {
		b, err := tx.GetBucket(ctx, userID, bucketID)
		if err != nil {
			return err
		}
		b.Balance = balance.Round(allocation.Places)
		if err := tx.UpdateBucketBalance(ctx, b.ID, b.Balance); err != nil {
			return err
		}
		bucket = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bucket, nil
}

// BucketSummary returns every bucket with its derived spending figures.
func (e *Engine) BucketSummary(ctx context.Context, userID int64) (allocation.Summary, error) {
	buckets, err := e.storage.GetBuckets(ctx, userID)
	if err != nil {
		return allocation.Summary{}, err
	}

	expenses, err := e.storage.GetTransactions(ctx, userID, service.TransactionFilter{Type: model.TypeExpense})
	if err != nil {
		return allocation.Summary{}, err
	}

	return allocation.Summarize(buckets, expenses), nil
}

// fanOutIncome spreads amount over the user's buckets' allocated totals.
func (e *Engine) fanOutIncome(ctx context.Context, tx service.Storage, userID int64, amount decimal.Decimal) error {
	buckets, err := tx.GetBuckets(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load buckets for allocation: %w", err)
	}
	if len(buckets) == 0 {
		e.logger.Warn("income recorded with no buckets to allocate to",
			zap.Int64("user_id", userID),
			zap.String("amount", amount.StringFixed(allocation.Places)))
		return nil
	}

	updated := allocation.ApplyIncome(buckets, amount)
	for _, b := range updated {
		if !model.InAmountRange(b.Allocated) {
			return common.InvalidInput("income would push bucket %q past %s", b.Name, model.MaxAmount)
		}
	}
	for _, b := range updated {
		if err := tx.UpdateBucketAllocation(ctx, b.ID, b.Allocated); err != nil {
			return fmt.Errorf("failed to allocate income: %w", err)
		}
	}
	return nil
}

// debitExpense takes amount off the bucket's balance.
func debitExpense(ctx context.Context, tx service.Storage, userID, bucketID int64, amount decimal.Decimal) error {
	bucket, err := tx.GetBucket(ctx, userID, bucketID)
	if err != nil {
		return err
	}

	updated := allocation.ApplyExpense(*bucket, amount)
	if !model.InAmountRange(updated.Balance) {
		return common.InvalidInput("expense would push bucket %q past -%s", updated.Name, model.MaxAmount)
	}
	if err := tx.UpdateBucketBalance(ctx, updated.ID, updated.Balance); err != nil {
		return fmt.Errorf("failed to debit expense: %w", err)
	}
	return nil
}
