package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quintave/quintave/internal/allocation"
	"github.com/quintave/quintave/internal/engine"
	"github.com/quintave/quintave/internal/model"
)

func TestBuckets(t *testing.T) {
	f := newAPIFixture(t, Config{})

	t.Run("onboarding is idempotent", func(t *testing.T) {
		first := f.onboard(t)
		second := f.onboard(t)
		assert.Equal(t, first[0].ID, second[0].ID)
		assert.Equal(t, "Play Money", first[0].Name)
	})

	t.Run("sixth bucket is rejected", func(t *testing.T) {
		w := f.authed(http.MethodPost, "/api/buckets", gin.H{"name": "Travel"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Maximum of 5 buckets allowed", errorMessage(t, w))
	})

	t.Run("missing name", func(t *testing.T) {
		w := f.authed(http.MethodPost, "/api/buckets", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("set balance", func(t *testing.T) {
		buckets := decode[[]model.Bucket](t, f.authed(http.MethodGet, "/api/buckets", nil))
		path := fmt.Sprintf("/api/buckets/%d/balance", buckets[1].ID)

		w := f.authed(http.MethodPut, path, gin.H{"balance": "12.345"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "12.35", decode[model.Bucket](t, w).Balance.StringFixed(2))

		assert.Equal(t, http.StatusBadRequest, f.authed(http.MethodPut, path, gin.H{}).Code)
	})

	t.Run("other user's bucket is not found", func(t *testing.T) {
		other := f.db.SeedUser("user-2", testNow)
		theirs := f.db.SeedBuckets(other.ID, "Theirs")[0]

		w := f.authed(http.MethodPut, fmt.Sprintf("/api/buckets/%d/balance", theirs.ID), gin.H{"balance": 1})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTransactions(t *testing.T) {
	f := newAPIFixture(t, Config{})
	buckets := f.onboard(t)

	w := f.authed(http.MethodPost, "/api/transactions", gin.H{
		"bucketId": buckets[0].ID,
		"type":     "INCOME",
		"amount":   "100.00",
		"category": "Planned",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	income := decode[model.Transaction](t, w)
	assert.Equal(t, testNow, income.Date)

	w = f.authed(http.MethodPost, "/api/transactions", gin.H{
		"bucketId":    buckets[1].ID,
		"type":        "EXPENSE",
		"amount":      "30",
		"category":    "Impulse",
		"description": "  Shoes ",
		"date":        "2026-06-14T09:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Shoes", decode[model.Transaction](t, w).Description)

	summary := decode[allocation.Summary](t, f.authed(http.MethodGet, "/api/buckets/summary", nil))
	require.Len(t, summary.Buckets, model.MaxBuckets)
	for _, b := range summary.Buckets {
		assert.Equal(t, "20.00", b.Allocated.StringFixed(2), b.Name)
	}
	expenses := summary.Buckets[1]
	assert.Equal(t, "-30.00", expenses.Balance.StringFixed(2))
	assert.True(t, expenses.IsOverspent)
	assert.Equal(t, "10.00", summary.TotalDebt.StringFixed(2))

	t.Run("list with filters", func(t *testing.T) {
		all := decode[[]model.Transaction](t, f.authed(http.MethodGet, "/api/transactions", nil))
		require.Len(t, all, 2)
		assert.Equal(t, model.TypeIncome, all[0].Type)

		expensesOnly := decode[[]model.Transaction](t, f.authed(http.MethodGet, "/api/transactions?type=expense", nil))
		require.Len(t, expensesOnly, 1)

		byBucket := decode[[]model.Transaction](t, f.authed(http.MethodGet,
			fmt.Sprintf("/api/transactions?bucketId=%d&endDate=2026-06-14", buckets[1].ID), nil))
		require.Len(t, byBucket, 1)

		for _, q := range []string{"type=LOAN", "bucketId=x", "limit=-1", "startDate=yesterday"} {
			w := f.authed(http.MethodGet, "/api/transactions?"+q, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, q)
		}
	})

	t.Run("validation", func(t *testing.T) {
		for name, body := range map[string]gin.H{
			"zero amount":  {"bucketId": buckets[0].ID, "type": "EXPENSE", "amount": "0", "category": "Planned"},
			"bad category": {"bucketId": buckets[0].ID, "type": "EXPENSE", "amount": "1", "category": "Whim"},
			"no bucket":    {"type": "EXPENSE", "amount": "1", "category": "Planned"},
		} {
			w := f.authed(http.MethodPost, "/api/transactions", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, name)
		}

		w := f.authed(http.MethodPost, "/api/transactions", gin.H{
			"bucketId": 99999, "type": "EXPENSE", "amount": "1", "category": "Planned",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		w := f.authed(http.MethodDelete, fmt.Sprintf("/api/transactions/%d", income.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = f.authed(http.MethodDelete, fmt.Sprintf("/api/transactions/%d", income.ID), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestGoals(t *testing.T) {
	f := newAPIFixture(t, Config{})
	buckets := f.onboard(t)

	w := f.authed(http.MethodPost, "/api/goals", gin.H{
		"bucketId":     buckets[2].ID,
		"name":         "Emergency fund",
		"targetAmount": "500",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	goal := decode[model.Goal](t, w)
	assert.False(t, goal.IsCompleted)

	w = f.authed(http.MethodPut, fmt.Sprintf("/api/goals/%d/progress", goal.ID), gin.H{"currentAmount": "500"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[model.Goal](t, w).IsCompleted)

	goals := decode[[]model.Goal](t, f.authed(http.MethodGet, "/api/goals", nil))
	require.Len(t, goals, 1)

	w = f.authed(http.MethodDelete, fmt.Sprintf("/api/goals/%d", goal.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]model.Goal](t, f.authed(http.MethodGet, "/api/goals", nil)))
}

func TestHabits(t *testing.T) {
	f := newAPIFixture(t, Config{})
	buckets := f.onboard(t)

	w := f.authed(http.MethodPost, "/api/habits", gin.H{
		"bucketId":  buckets[0].ID,
		"name":      "Coffee",
		"type":      "EXPENSE",
		"price":     "4.50",
		"frequency": "daily",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	habit := decode[model.Habit](t, w)
	assert.True(t, habit.IsActive)

	w = f.authed(http.MethodPost, fmt.Sprintf("/api/habits/%d/complete", habit.ID), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	completion := decode[model.HabitCompletion](t, w)
	require.NotNil(t, completion.TransactionID)
	assert.Equal(t, testNow, completion.CompletedAt)

	w = f.authed(http.MethodPost, fmt.Sprintf("/api/habits/%d/complete", habit.ID),
		gin.H{"completedAt": "2026-06-16T08:00:00Z"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	history := decode[[]model.HabitHistoryEntry](t, f.authed(http.MethodGet, fmt.Sprintf("/api/habits/%d/history", habit.ID), nil))
	require.Len(t, history, 2)
	assert.Equal(t, "Coffee", history[0].HabitName)
	assert.Equal(t, "4.50", history[0].Amount.StringFixed(2))
	assert.True(t, history[0].CompletedAt.After(history[1].CompletedAt))

	w = f.authed(http.MethodDelete, fmt.Sprintf("/api/habits/completions/%d", completion.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	txns := decode[[]model.Transaction](t, f.authed(http.MethodGet, "/api/transactions", nil))
	assert.Len(t, txns, 1)

	w = f.authed(http.MethodDelete, fmt.Sprintf("/api/habits/%d", habit.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]model.Habit](t, f.authed(http.MethodGet, "/api/habits", nil)))
	assert.Len(t, decode[[]model.Transaction](t, f.authed(http.MethodGet, "/api/transactions", nil)), 1)
}

func TestJournal(t *testing.T) {
	f := newAPIFixture(t, Config{})
	f.onboard(t)

	w := f.authed(http.MethodPost, "/api/journal", gin.H{"content": "Felt good about this week"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	entry := decode[model.JournalEntry](t, w)
	require.NotNil(t, entry.Snapshot)
	assert.Len(t, entry.Snapshot.Buckets, model.MaxBuckets)

	w = f.authed(http.MethodPost, "/api/journal", gin.H{
		"content":           "bad snapshot",
		"financialSnapshot": gin.H{"buckets": []gin.H{{"bucketName": "", "balance": "1"}}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Len(t, decode[[]model.JournalEntry](t, f.authed(http.MethodGet, "/api/journal", nil)), 1)

	w = f.authed(http.MethodDelete, fmt.Sprintf("/api/journal/%d", entry.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]model.JournalEntry](t, f.authed(http.MethodGet, "/api/journal", nil)))
}

func TestFinancialProgress(t *testing.T) {
	f := newAPIFixture(t, Config{})
	buckets := f.onboard(t)

	w := f.authed(http.MethodPost, "/api/transactions", gin.H{
		"bucketId": buckets[0].ID, "type": "INCOME", "amount": "50", "category": "Planned",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	progress := decode[[]engine.DailyProgress](t, f.authed(http.MethodGet, "/api/analytics/financial-progress", nil))
	require.Len(t, progress, engine.DefaultProgressDays+1)
	last := progress[len(progress)-1]
	assert.Equal(t, "2026-06-15", last.Date)
	assert.Equal(t, "50.00", last.Net.StringFixed(2))

	progress = decode[[]engine.DailyProgress](t, f.authed(http.MethodGet, "/api/analytics/financial-progress?days=7", nil))
	assert.Len(t, progress, 8)

	for _, q := range []string{"days=abc", "days=-1", "days=3651"} {
		w := f.authed(http.MethodGet, "/api/analytics/financial-progress?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestAmountsPastColumnRange(t *testing.T) {
	f := newAPIFixture(t, Config{})
	buckets := f.onboard(t)

	tests := []struct {
		body   gin.H
		method string
		path   string
		name   string
	}{
		{
			name:   "income",
			method: http.MethodPost,
			path:   "/api/transactions",
			body:   gin.H{"bucketId": buckets[0].ID, "type": "INCOME", "amount": "100000000000000000", "category": "Planned"},
		},
		{
			name:   "goal target",
			method: http.MethodPost,
			path:   "/api/goals",
			body:   gin.H{"bucketId": buckets[0].ID, "name": "Moon", "targetAmount": "10000000000"},
		},
		{
			name:   "habit price",
			method: http.MethodPost,
			path:   "/api/habits",
			body:   gin.H{"bucketId": buckets[0].ID, "name": "Salary", "frequency": "monthly", "type": "INCOME", "price": "10000000000"},
		},
		{
			name:   "bucket balance",
			method: http.MethodPut,
			path:   fmt.Sprintf("/api/buckets/%d/balance", buckets[0].ID),
			body:   gin.H{"balance": "-10000000000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.authed(tt.method, tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, errorMessage(t, w), "9999999999.99")
		})
	}

	for _, b := range decode[[]model.Bucket](t, f.authed(http.MethodGet, "/api/buckets", nil)) {
		assert.True(t, b.Allocated.IsZero(), b.Name)
		assert.True(t, b.Balance.IsZero(), b.Name)
	}
}
