package engine

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quintave/quintave/internal/common"
	"github.com/quintave/quintave/internal/model"
)

func TestEngine_CreateBucket_FiveBucketLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 1; i <= model.MaxBuckets; i++ {
		b, err := f.engine.CreateBucket(ctx, f.user.ID, model.DefaultBucketNames[i-1], decimal.Zero)
		require.NoError(t, err, "bucket %d must succeed", i)
		assert.Positive(t, b.ID)
	}

	_, err := f.engine.CreateBucket(ctx, f.user.ID, "Sixth", decimal.Zero)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMaxBuckets)
	assert.Equal(t, "Maximum of 5 buckets allowed", common.UserMessage(err))

	buckets, err := f.engine.ListBuckets(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, buckets, model.MaxBuckets)
}

func TestEngine_CreateBucket_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateBucket(context.Background(), f.user.ID, "   ", decimal.Zero)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = f.engine.CreateBucket(context.Background(), 9999, "Orphan", decimal.Zero)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestEngine_SetBucketBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buckets := f.onboard(t)
	other := f.db.SeedUser("someone-else")

	b, err := f.engine.SetBucketBalance(ctx, f.user.ID, buckets[2].ID, dec("123.456"))
	require.NoError(t, err)
	assertMoney(t, "123.46", b.Balance)
	assertMoney(t, "123.46", f.db.MustGetBucket(f.user.ID, buckets[2].ID).Balance)

	_, err = f.engine.SetBucketBalance(ctx, other.ID, buckets[2].ID, dec("1"))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestEngine_BucketSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buckets := f.onboard(t)

	_, err := f.engine.RecordTransaction(ctx, f.user.ID, model.Transaction{
		BucketID: buckets[0].ID, Type: model.TypeIncome, Amount: dec("100"), Category: model.CategoryPlanned, Date: testNow,
	})
	require.NoError(t, err)
	_, err = f.engine.RecordTransaction(ctx, f.user.ID, model.Transaction{
		BucketID: buckets[0].ID, Type: model.TypeExpense, Amount: dec("30"), Category: model.CategoryImpulse, Date: testNow,
	})
	require.NoError(t, err)

	summary, err := f.engine.BucketSummary(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, summary.Buckets, model.MaxBuckets)

	first := summary.Buckets[0]
	assertMoney(t, "-30.00", first.Balance)
	assertMoney(t, "20.00", first.Allocated)
	assertMoney(t, "30.00", first.Spent)
	assertMoney(t, "-10.00", first.Remaining)
	assertMoney(t, "10.00", first.Debt)
	assert.True(t, first.IsOverspent)
	assertMoney(t, "10.00", summary.TotalDebt)
}
