package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidSnapshot is returned when a financial snapshot fails validation.
var ErrInvalidSnapshot = errors.New("invalid financial snapshot")

// SnapshotBucket is one bucket's balance at the time a journal entry was written.
type SnapshotBucket struct {
	BucketName string          `json:"bucketName"`
	Balance    decimal.Decimal `json:"balance"`
}

// FinancialSnapshot captures bucket balances alongside a journal entry.
type FinancialSnapshot struct {
	CapturedAt time.Time        `json:"capturedAt"`
	Buckets    []SnapshotBucket `json:"buckets"`
}

// Validate rejects snapshots that could not have come from real buckets.
func (s *FinancialSnapshot) Validate() error {
	if len(s.Buckets) > MaxBuckets {
		return fmt.Errorf("%w: %d buckets exceeds limit of %d", ErrInvalidSnapshot, len(s.Buckets), MaxBuckets)
	}
	for i, b := range s.Buckets {
		if strings.TrimSpace(b.BucketName) == "" {
			return fmt.Errorf("%w: bucket %d has no name", ErrInvalidSnapshot, i)
		}
	}
	return nil
}

// NewSnapshot builds a snapshot from the given buckets.
func NewSnapshot(buckets []Bucket, at time.Time) *FinancialSnapshot {
	snap := &FinancialSnapshot{
		CapturedAt: at,
		Buckets:    make([]SnapshotBucket, 0, len(buckets)),
	}
	for _, b := range buckets {
		snap.Buckets = append(snap.Buckets, SnapshotBucket{BucketName: b.Name, Balance: b.Balance})
	}
	return snap
}

// JournalEntry is a free-form reflection with an optional snapshot.
type JournalEntry struct {
	CreatedAt time.Time          `json:"createdAt"`
	Snapshot  *FinancialSnapshot `json:"financialSnapshot,omitempty"`
	Content   string             `json:"content"`
	ID        int64              `json:"id"`
	UserID    int64              `json:"userId"`
}
