package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quintave/quintave/internal/common"
	"github.com/quintave/quintave/internal/model"
	"github.com/quintave/quintave/internal/service"
)

func (f *fixture) createHabit(t *testing.T, bucketID int64, typ model.TransactionType, price string) *model.Habit {
	t.Helper()

	h, err := f.engine.CreateHabit(context.Background(), f.user.ID, model.Habit{
		BucketID:  bucketID,
		Name:      "Coffee",
		Frequency: "daily",
		Type:      typ,
		Price:     dec(price),
	})
	require.NoError(t, err)
	return h
}

func TestEngine_CompleteHabit_Expense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buckets := f.onboard(t)
	habit := f.createHabit(t, buckets[0].ID, model.TypeExpense, "4.50")
	assert.True(t, habit.IsActive)

	completedAt := testNow.Add(-time.Hour)
	c, err := f.engine.CompleteHabit(ctx, f.user.ID, habit.ID, completedAt)
	require.NoError(t, err)
	require.NotNil(t, c.TransactionID)
	assert.True(t, completedAt.Equal(c.CompletedAt))

	txns, err := f.engine.ListTransactions(ctx, f.user.ID, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	txn := txns[0]
	assert.Equal(t, *c.TransactionID, txn.ID)
	assert.Equal(t, "Coffee (Habit)", txn.Description)
	assert.Equal(t, model.CategoryPlanned, txn.Category)
	assert.Equal(t, model.TypeExpense, txn.Type)
	assertMoney(t, "4.50", txn.Amount)
	assert.True(t, completedAt.Equal(txn.Date))

	// Expense completions count towards spending but leave the balance alone.
	assertMoney(t, "0.00", f.db.MustGetBucket(f.user.ID, buckets[0].ID).Balance)
	summary, err := f.engine.BucketSummary(ctx, f.user.ID)
	require.NoError(t, err)
	assertMoney(t, "4.50", summary.Buckets[0].Spent)
}

func TestEngine_CompleteHabit_IncomeFansOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buckets := f.onboard(t)
	habit := f.createHabit(t, buckets[4].ID, model.TypeIncome, "50")

	_, err := f.engine.CompleteHabit(ctx, f.user.ID, habit.ID, time.Time{})
	require.NoError(t, err)

	after, err := f.engine.ListBuckets(ctx, f.user.ID)
	require.NoError(t, err)
	for _, b := range after {
		assertMoney(t, "10.00", b.Allocated)
	}
}

func TestEngine_CompleteHabit_RollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buckets := f.onboard(t)
	habit := f.createHabit(t, buckets[0].ID, model.TypeIncome, "50")

	for _, step := range []string{"completion", "allocation"} {
		t.Run(step, func(t *testing.T) {
			_, err := f.failingEngine(step).CompleteHabit(ctx, f.user.ID, habit.ID, testNow)
			require.ErrorIs(t, err, errInjected)

			txns, err := f.engine.ListTransactions(ctx, f.user.ID, service.TransactionFilter{})
			require.NoError(t, err)
			assert.Empty(t, txns)

			history, err := f.engine.HabitHistory(ctx, f.user.ID, habit.ID)
			require.NoError(t, err)
			assert.Empty(t, history)

			for _, b := range buckets {
				assert.True(t, f.db.MustGetBucket(f.user.ID, b.ID).Allocated.IsZero())
			}
		})
	}
}

func TestEngine_HabitHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buckets := f.onboard(t)
	habit := f.createHabit(t, buckets[1].ID, model.TypeExpense, "3")

	first, err := f.engine.CompleteHabit(ctx, f.user.ID, habit.ID, testNow.Add(-48*time.Hour))
	require.NoError(t, err)
	second, err := f.engine.CompleteHabit(ctx, f.user.ID, habit.ID, testNow.Add(-24*time.Hour))
	require.NoError(t, err)

	history, err := f.engine.HabitHistory(ctx, f.user.ID, habit.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID, "newest first")
	assert.Equal(t, first.ID, history[1].ID)
	for _, h := range history {
		assert.Equal(t, "Coffee", h.HabitName)
		assert.Equal(t, buckets[1].ID, h.BucketID)
		assert.Equal(t, model.TypeExpense, h.Type)
		assertMoney(t, "3.00", h.Amount)
	}

	other := f.db.SeedUser("peeker")
	_, err = f.engine.HabitHistory(ctx, other.ID, habit.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestEngine_DeleteHabitCompletion_RemovesTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buckets := f.onboard(t)
	habit := f.createHabit(t, buckets[0].ID, model.TypeExpense, "4.50")

	c, err := f.engine.CompleteHabit(ctx, f.user.ID, habit.ID, testNow)
	require.NoError(t, err)

	require.NoError(t, f.engine.DeleteHabitCompletion(ctx, f.user.ID, c.ID))

	_, err = f.db.Storage.GetTransaction(ctx, f.user.ID, *c.TransactionID)
	assert.ErrorIs(t, err, common.ErrNotFound, "linked transaction must be gone")

	history, err := f.engine.HabitHistory(ctx, f.user.ID, habit.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.ErrorIs(t, f.engine.DeleteHabitCompletion(ctx, f.user.ID, c.ID), common.ErrNotFound)
}

func TestEngine_DeleteHabitCompletion_RollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buckets := f.onboard(t)
	habit := f.createHabit(t, buckets[0].ID, model.TypeExpense, "4.50")

	c, err := f.engine.CompleteHabit(ctx, f.user.ID, habit.ID, testNow)
	require.NoError(t, err)

	err = f.failingEngine("delete-completion").DeleteHabitCompletion(ctx, f.user.ID, c.ID)
	require.ErrorIs(t, err, errInjected)

	_, err = f.db.Storage.GetTransaction(ctx, f.user.ID, *c.TransactionID)
	assert.NoError(t, err, "transaction delete must be rolled back with the completion")
}

func TestEngine_DeleteHabitCompletion_OtherUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buckets := f.onboard(t)
	habit := f.createHabit(t, buckets[0].ID, model.TypeExpense, "1")
	c, err := f.engine.CompleteHabit(ctx, f.user.ID, habit.ID, testNow)
	require.NoError(t, err)

	other := f.db.SeedUser("other")
	assert.ErrorIs(t, f.engine.DeleteHabitCompletion(ctx, other.ID, c.ID), common.ErrNotFound)
}

func TestEngine_DeleteHabit_KeepsTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buckets := f.onboard(t)
	habit := f.createHabit(t, buckets[0].ID, model.TypeExpense, "2")

	c, err := f.engine.CompleteHabit(ctx, f.user.ID, habit.ID, testNow)
	require.NoError(t, err)

	require.NoError(t, f.engine.DeleteHabit(ctx, f.user.ID, habit.ID))

	habits, err := f.engine.ListHabits(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, habits)

	_, err = f.db.Storage.GetTransaction(ctx, f.user.ID, *c.TransactionID)
	assert.NoError(t, err)
}

func TestEngine_CreateHabit_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buckets := f.onboard(t)

	tests := []struct {
		wantErr error
		habit   model.Habit
		name    string
	}{
		{name: "no name", habit: model.Habit{BucketID: buckets[0].ID, Frequency: "daily", Type: model.TypeExpense, Price: dec("1")}, wantErr: common.ErrInvalidInput},
		{name: "no frequency", habit: model.Habit{BucketID: buckets[0].ID, Name: "x", Type: model.TypeExpense, Price: dec("1")}, wantErr: common.ErrInvalidInput},
		{name: "bad type", habit: model.Habit{BucketID: buckets[0].ID, Name: "x", Frequency: "daily", Type: "GIFT", Price: dec("1")}, wantErr: common.ErrInvalidInput},
		{name: "free", habit: model.Habit{BucketID: buckets[0].ID, Name: "x", Frequency: "daily", Type: model.TypeExpense, Price: dec("0")}, wantErr: common.ErrInvalidInput},
		{name: "missing bucket", habit: model.Habit{BucketID: 9999, Name: "x", Frequency: "daily", Type: model.TypeExpense, Price: dec("1")}, wantErr: common.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.CreateHabit(ctx, f.user.ID, tt.habit)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
