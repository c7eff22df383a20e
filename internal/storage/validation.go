// Package storage provides the data persistence layer for quintave.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quintave/quintave/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidDateRange   = errors.New("start date must be before end date")
	ErrInvalidID          = errors.New("id must be positive")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidBucket      = errors.New("invalid bucket")
	ErrInvalidGoal        = errors.New("invalid goal")
	ErrInvalidHabit       = errors.New("invalid habit")
	ErrInvalidJournal     = errors.New("invalid journal entry")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateID(id int64, paramName string) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidID, paramName)
	}
	return nil
}

func validateDateRange(start, end *time.Time) error {
	if start != nil && end != nil && start.After(*end) {
		return ErrInvalidDateRange
	}
	return nil
}

func validateBucket(bucket *model.Bucket) error {
	if bucket == nil {
		return fmt.Errorf("%w: bucket", ErrNilParameter)
	}
	if err := validateID(bucket.UserID, "userID"); err != nil {
		return err
	}
	if strings.TrimSpace(bucket.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidBucket)
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.UserID <= 0 || txn.BucketID <= 0 {
		return fmt.Errorf("%w: missing owner or bucket", ErrInvalidTransaction)
	}
	if err := txn.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	return nil
}

func validateGoal(goal *model.Goal) error {
	if goal == nil {
		return fmt.Errorf("%w: goal", ErrNilParameter)
	}
	if goal.UserID <= 0 || goal.BucketID <= 0 {
		return fmt.Errorf("%w: missing owner or bucket", ErrInvalidGoal)
	}
	if strings.TrimSpace(goal.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidGoal)
	}
	return nil
}

func validateHabit(habit *model.Habit) error {
	if habit == nil {
		return fmt.Errorf("%w: habit", ErrNilParameter)
	}
	if habit.UserID <= 0 || habit.BucketID <= 0 {
		return fmt.Errorf("%w: missing owner or bucket", ErrInvalidHabit)
	}
	if strings.TrimSpace(habit.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidHabit)
	}
	if !habit.Type.Valid() {
		return fmt.Errorf("%w: type %q", ErrInvalidHabit, habit.Type)
	}
	return nil
}

func validateJournalEntry(entry *model.JournalEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: journal entry", ErrNilParameter)
	}
	if err := validateID(entry.UserID, "userID"); err != nil {
		return err
	}
	if strings.TrimSpace(entry.Content) == "" {
		return fmt.Errorf("%w: missing content", ErrInvalidJournal)
	}
	if entry.Snapshot != nil {
		if err := entry.Snapshot.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidJournal, err)
		}
	}
	return nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
