package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Habit is a recurring transaction template. Completing it records a
// transaction of Price against BucketID.
type Habit struct {
	CreatedAt time.Time       `json:"createdAt"`
	Price     decimal.Decimal `json:"price"`
	Name      string          `json:"name"`
	Frequency string          `json:"frequency"`
	Type      TransactionType `json:"type"`
	ID        int64           `json:"id"`
	UserID    int64           `json:"userId"`
	BucketID  int64           `json:"bucketId"`
	IsActive  bool            `json:"isActive"`
}

// HabitCompletion records one completion of a habit and the transaction it generated.
type HabitCompletion struct {
	CompletedAt   time.Time `json:"completedAt"`
	CreatedAt     time.Time `json:"createdAt"`
	TransactionID *int64    `json:"transactionId,omitempty"`
	ID            int64     `json:"id"`
	HabitID       int64     `json:"habitId"`
}

// HabitHistoryEntry is a completion enriched with the habit it belongs to.
type HabitHistoryEntry struct {
	HabitCompletion
	Amount    decimal.Decimal `json:"amount"`
	HabitName string          `json:"habitName"`
	Type      TransactionType `json:"type"`
	BucketID  int64           `json:"bucketId"`
}
