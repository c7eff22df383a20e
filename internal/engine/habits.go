package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quintave/quintave/internal/allocation"
	"github.com/quintave/quintave/internal/common"
	"github.com/quintave/quintave/internal/model"
	"github.com/quintave/quintave/internal/service"
)

// ListHabits returns the user's habits.
func (e *Engine) ListHabits(ctx context.Context, userID int64) ([]model.Habit, error) {
	return e.storage.GetHabits(ctx, userID)
}

// CreateHabit stores a recurring transaction template.
func (e *Engine) CreateHabit(ctx context.Context, userID int64, habit model.Habit) (*model.Habit, error) {
	habit.UserID = userID
	habit.Name = strings.TrimSpace(habit.Name)
	habit.Frequency = strings.TrimSpace(habit.Frequency)
	habit.Price = habit.Price.Round(allocation.Places)
	habit.IsActive = true

	switch {
	case habit.Name == "":
		return nil, common.InvalidInput("habit name is required")
	case habit.Frequency == "":
		return nil, common.InvalidInput("habit frequency is required")
	case !habit.Type.Valid():
		return nil, common.InvalidInput("invalid habit type %q", habit.Type)
	case !habit.Price.IsPositive():
		return nil, common.InvalidInput("habit price must be positive")
	case !model.InAmountRange(habit.Price):
		return nil, common.InvalidInput("habit price must not exceed %s", model.MaxAmount)
	}

	if _, err := e.storage.GetBucket(ctx, userID, habit.BucketID); err != nil {
		return nil, err
	}
	if err := e.storage.CreateHabit(ctx, &habit); err != nil {
		return nil, err
	}
	return &habit, nil
}

// CompleteHabit records one completion of a habit. It creates the matching
// transaction, links it from the completion, and for income habits fans the
// price out over the user's buckets. Expense completions leave balances
// alone; they still count towards spending.
func (e *Engine) CompleteHabit(ctx context.Context, userID, habitID int64, completedAt time.Time) (*model.HabitCompletion, error) {
	if completedAt.IsZero() {
		completedAt = e.clock()
	}

	var completion *model.HabitCompletion
	err := e.withTx(ctx, func(tx service.Transaction) error {
		habit, err := tx.GetHabit(ctx, userID, habitID)
		if err != nil {
			return err
		}

		txn := &model.Transaction{
			UserID:      userID,
			BucketID:    habit.BucketID,
			Type:        habit.Type,
			Amount:      habit.Price,
			Category:    model.CategoryPlanned,
			Description: habit.Name + " (Habit)",
			Date:        completedAt.UTC(),
		}
		if err := tx.CreateTransaction(ctx, txn); err != nil {
			return err
		}

		c := &model.HabitCompletion{
			HabitID:       habit.ID,
			CompletedAt:   completedAt.UTC(),
			TransactionID: &txn.ID,
		}
		if err := tx.CreateHabitCompletion(ctx, c); err != nil {
			return err
		}

		if habit.Type == model.TypeIncome {
			if err := e.fanOutIncome(ctx, tx, userID, habit.Price); err != nil {
				return err
			}
		}

		completion = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completion, nil
}

// HabitHistory returns a habit's completions, newest first, each with the
// habit's amount, name, bucket and type.
func (e *Engine) HabitHistory(ctx context.Context, userID, habitID int64) ([]model.HabitHistoryEntry, error) {
	habit, err := e.storage.GetHabit(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}

	completions, err := e.storage.GetHabitCompletions(ctx, habit.ID)
	if err != nil {
		return nil, err
	}

	history := make([]model.HabitHistoryEntry, 0, len(completions))
	for _, c := range completions {
		history = append(history, model.HabitHistoryEntry{
			HabitCompletion: c,
			Amount:          habit.Price,
			HabitName:       habit.Name,
			BucketID:        habit.BucketID,
			Type:            habit.Type,
		})
	}
	return history, nil
}

// DeleteHabit removes a habit and its completion records. Transactions
// generated by past completions stay.
func (e *Engine) DeleteHabit(ctx context.Context, userID, habitID int64) error {
	return e.withTx(ctx, func(tx service.Transaction) error {
		return tx.DeleteHabit(ctx, userID, habitID)
	})
}

// DeleteHabitCompletion removes the linked transaction and then the
// completion itself. Allocation applied by an income completion is not
// reversed.
func (e *Engine) DeleteHabitCompletion(ctx context.Context, userID, completionID int64) error {
	return e.withTx(ctx, func(tx service.Transaction) error {
		completion, err := tx.GetHabitCompletion(ctx, userID, completionID)
		if err != nil {
			return err
		}

		if completion.TransactionID != nil {
			err := tx.DeleteTransaction(ctx, userID, *completion.TransactionID)
			switch {
			case errors.Is(err, common.ErrNotFound):
				e.logger.Warn("habit completion transaction already gone",
					zap.Int64("completion_id", completion.ID),
					zap.Int64("transaction_id", *completion.TransactionID))
			case err != nil:
				return fmt.Errorf("failed to delete completion transaction: %w", err)
			}
		}

		return tx.DeleteHabitCompletion(ctx, completion.ID)
	})
}
