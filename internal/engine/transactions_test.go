package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quintave/quintave/internal/common"
	"github.com/quintave/quintave/internal/model"
	"github.com/quintave/quintave/internal/service"
)

func TestEngine_RecordTransaction_IncomeFansOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buckets := f.onboard(t)

	txn, err := f.engine.RecordTransaction(ctx, f.user.ID, model.Transaction{
		BucketID: buckets[0].ID,
		Type:     model.TypeIncome,
		Amount:   dec("100"),
		Category: model.CategoryPlanned,
		Date:     testNow,
	})
	require.NoError(t, err)
	assert.Positive(t, txn.ID)
	assert.Equal(t, f.user.ID, txn.UserID)

	after, err := f.engine.ListBuckets(ctx, f.user.ID)
	require.NoError(t, err)
	for _, b := range after {
		assertMoney(t, "20.00", b.Allocated, "bucket %s", b.Name)
		assertMoney(t, "0.00", b.Balance, "income must not touch balance of %s", b.Name)
	}
}

func TestEngine_RecordTransaction_IncomeSplitIsCentExact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buckets := f.onboard(t)

	_, err := f.engine.RecordTransaction(ctx, f.user.ID, model.Transaction{
		BucketID: buckets[0].ID, Type: model.TypeIncome, Amount: dec("0.03"), Category: model.CategoryPlanned, Date: testNow,
	})
	require.NoError(t, err)

	after, err := f.engine.ListBuckets(ctx, f.user.ID)
	require.NoError(t, err)
	want := []string{"0.01", "0.01", "0.01", "0.00", "0.00"}
	for i, b := range after {
		assertMoney(t, want[i], b.Allocated)
	}
}

func TestEngine_RecordTransaction_ExpenseGoesNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buckets := f.onboard(t)

	_, err := f.engine.RecordTransaction(ctx, f.user.ID, model.Transaction{
		BucketID: buckets[0].ID, Type: model.TypeExpense, Amount: dec("30"), Category: model.CategoryUnplanned, Date: testNow,
	})
	require.NoError(t, err)

	assertMoney(t, "-30.00", f.db.MustGetBucket(f.user.ID, buckets[0].ID).Balance)
	assertMoney(t, "0.00", f.db.MustGetBucket(f.user.ID, buckets[1].ID).Balance)
}

func TestEngine_RecordTransaction_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buckets := f.onboard(t)
	other := f.db.SeedUser("other")
	otherBuckets := f.db.SeedBuckets(other.ID, "Theirs")

	tests := []struct {
		wantErr error
		txn     model.Transaction
		name    string
	}{
		{
			name:    "zero amount",
			txn:     model.Transaction{BucketID: buckets[0].ID, Type: model.TypeExpense, Amount: dec("0"), Category: model.CategoryPlanned, Date: testNow},
			wantErr: common.ErrInvalidInput,
		},
		{
			name:    "unknown category",
			txn:     model.Transaction{BucketID: buckets[0].ID, Type: model.TypeExpense, Amount: dec("1"), Category: "Whim", Date: testNow},
			wantErr: common.ErrInvalidInput,
		},
		{
			name:    "bucket owned by someone else",
			txn:     model.Transaction{BucketID: otherBuckets[0].ID, Type: model.TypeExpense, Amount: dec("1"), Category: model.CategoryPlanned, Date: testNow},
			wantErr: common.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.RecordTransaction(ctx, f.user.ID, tt.txn)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	txns, err := f.engine.ListTransactions(ctx, f.user.ID, service.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestEngine_RecordTransaction_RollsBackOnFailure(t *testing.T) {
	tests := []struct {
		name   string
		failOn string
		typ    model.TransactionType
	}{
		{name: "income allocation fails", failOn: "allocation", typ: model.TypeIncome},
		{name: "expense debit fails", failOn: "balance", typ: model.TypeExpense},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			buckets := f.onboard(t)

			_, err := f.failingEngine(tt.failOn).RecordTransaction(ctx, f.user.ID, model.Transaction{
				BucketID: buckets[0].ID, Type: tt.typ, Amount: dec("50"), Category: model.CategoryPlanned, Date: testNow,
			})
			require.ErrorIs(t, err, errInjected)

			txns, err := f.engine.ListTransactions(ctx, f.user.ID, service.TransactionFilter{})
			require.NoError(t, err)
			assert.Empty(t, txns, "transaction row must be rolled back")

			for _, b := range buckets {
				got := f.db.MustGetBucket(f.user.ID, b.ID)
				assert.True(t, got.Allocated.IsZero())
				assert.True(t, got.Balance.IsZero())
			}
		})
	}
}

func TestEngine_DeleteTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buckets := f.onboard(t)

	txn, err := f.engine.RecordTransaction(ctx, f.user.ID, model.Transaction{
		BucketID: buckets[1].ID, Type: model.TypeExpense, Amount: dec("5"), Category: model.CategoryPlanned, Date: testNow,
	})
	require.NoError(t, err)

	require.NoError(t, f.engine.DeleteTransaction(ctx, f.user.ID, txn.ID))
	assert.ErrorIs(t, f.engine.DeleteTransaction(ctx, f.user.ID, txn.ID), common.ErrNotFound)
}
