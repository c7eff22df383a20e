package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxBuckets is the most buckets a single user may own.
const MaxBuckets = 5

// DefaultBucketNames are the envelopes created during onboarding.
var DefaultBucketNames = []string{
	"Play Money",
	"Expenses",
	"Savings",
	"Investments",
	"Education",
}

// Bucket is a virtual envelope. Balance is the spendable remainder and may be
// negative; Allocated is the cumulative share of income assigned to it.
type Bucket struct {
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Balance   decimal.Decimal `json:"balance"`
	Allocated decimal.Decimal `json:"allocated"`
	Name      string          `json:"name"`
	ID        int64           `json:"id"`
	UserID    int64           `json:"userId"`
}
