package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Goal is a savings target tied to a bucket.
type Goal struct {
	CreatedAt     time.Time       `json:"createdAt"`
	TargetDate    *time.Time      `json:"targetDate,omitempty"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	Name          string          `json:"name"`
	ID            int64           `json:"id"`
	UserID        int64           `json:"userId"`
	BucketID      int64           `json:"bucketId"`
	IsCompleted   bool            `json:"isCompleted"`
}

// Reached reports whether the current amount meets the target.
func (g *Goal) Reached() bool {
	return g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}
