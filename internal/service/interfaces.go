// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quintave/quintave/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	BucketID  *int64
	Type      model.TransactionType
	Limit     int
	Offset    int
}

// Storage defines the contract for our persistence layer. Every lookup that
// takes a userID only returns rows owned by that user; a row owned by someone
// else is reported as common.ErrNotFound.
type Storage interface {
	// User operations
	UpsertUser(ctx context.Context, identity model.Identity, signedInAt time.Time) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByOpenID(ctx context.Context, openID string) (*model.User, error)
	GetUserByProviderID(ctx context.Context, providerUserID string) (*model.User, error)
	SetOnboardingComplete(ctx context.Context, userID int64, completed bool) error
	SavePurchase(ctx context.Context, userID int64, purchasedAt time.Time, providerUserID string) error
	LinkProviderID(ctx context.Context, userID int64, providerUserID string) error

	// Bucket operations
	GetBuckets(ctx context.Context, userID int64) ([]model.Bucket, error)
	GetBucket(ctx context.Context, userID, bucketID int64) (*model.Bucket, error)
	CountBuckets(ctx context.Context, userID int64) (int, error)
	CreateBucket(ctx context.Context, bucket *model.Bucket) error
	UpdateBucketBalance(ctx context.Context, bucketID int64, balance decimal.Decimal) error
	UpdateBucketAllocation(ctx context.Context, bucketID int64, allocated decimal.Decimal) error

	// Transaction operations
	CreateTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransaction(ctx context.Context, userID, id int64) (*model.Transaction, error)
	GetTransactions(ctx context.Context, userID int64, filter TransactionFilter) ([]model.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id int64) error

	// Goal operations
	GetGoals(ctx context.Context, userID int64) ([]model.Goal, error)
	GetGoal(ctx context.Context, userID, id int64) (*model.Goal, error)
	CreateGoal(ctx context.Context, goal *model.Goal) error
	UpdateGoalProgress(ctx context.Context, id int64, current decimal.Decimal, completed bool) error
	DeleteGoal(ctx context.Context, userID, id int64) error

	// Habit operations
	GetHabits(ctx context.Context, userID int64) ([]model.Habit, error)
	GetHabit(ctx context.Context, userID, id int64) (*model.Habit, error)
	CreateHabit(ctx context.Context, habit *model.Habit) error
	DeleteHabit(ctx context.Context, userID, id int64) error
	CreateHabitCompletion(ctx context.Context, completion *model.HabitCompletion) error
	GetHabitCompletion(ctx context.Context, userID, id int64) (*model.HabitCompletion, error)
	GetHabitCompletions(ctx context.Context, habitID int64) ([]model.HabitCompletion, error)
	DeleteHabitCompletion(ctx context.Context, id int64) error

	// Journal operations
	GetJournalEntries(ctx context.Context, userID int64) ([]model.JournalEntry, error)
	CreateJournalEntry(ctx context.Context, entry *model.JournalEntry) error
	DeleteJournalEntry(ctx context.Context, userID, id int64) error

	// Database management
	Migrate(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
