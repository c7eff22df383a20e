package engine

import (
	"context"

	"github.com/quintave/quintave/internal/allocation"
	"github.com/quintave/quintave/internal/common"
	"github.com/quintave/quintave/internal/model"
	"github.com/quintave/quintave/internal/service"
)

// ListTransactions returns the user's transactions, newest first.
func (e *Engine) ListTransactions(ctx context.Context, userID int64, filter service.TransactionFilter) ([]model.Transaction, error) {
	return e.storage.GetTransactions(ctx, userID, filter)
}

// RecordTransaction stores txn for the user and applies its effect: income
// fans out over every bucket's allocation, an expense debits its bucket.
func (e *Engine) RecordTransaction(ctx context.Context, userID int64, txn model.Transaction) (*model.Transaction, error) {
	txn.UserID = userID
	txn.Amount = txn.Amount.Round(allocation.Places)
	if err := txn.Validate(); err != nil {
		return nil, common.InvalidInput("%s", err.Error())
	}

	err := e.withTx(ctx, func(tx service.Transaction) error {
		// The recording bucket must belong to the user.
		if _, err := tx.GetBucket(ctx, userID, txn.BucketID); err != nil {
			return err
		}

		if err := tx.CreateTransaction(ctx, &txn); err != nil {
			return err
		}

		if txn.Type == model.TypeIncome {
			return e.fanOutIncome(ctx, tx, userID, txn.Amount)
		}
		return debitExpense(ctx, tx, userID, txn.BucketID, txn.Amount)
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// DeleteTransaction removes a transaction. Bucket figures already applied
// are left as they are.
func (e *Engine) DeleteTransaction(ctx context.Context, userID, id int64) error {
	return e.storage.DeleteTransaction(ctx, userID, id)
}
