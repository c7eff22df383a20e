package engine

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/quintave/quintave/internal/allocation"
	"github.com/quintave/quintave/internal/common"
	"github.com/quintave/quintave/internal/model"
	"github.com/quintave/quintave/internal/service"
)

// ListGoals returns the user's goals, newest first.
func (e *Engine) ListGoals(ctx context.Context, userID int64) ([]model.Goal, error) {
	return e.storage.GetGoals(ctx, userID)
}

// CreateGoal stores a savings goal against one of the user's buckets.
func (e *Engine) CreateGoal(ctx context.Context, userID int64, goal model.Goal) (*model.Goal, error) {
	goal.UserID = userID
	goal.Name = strings.TrimSpace(goal.Name)
	goal.TargetAmount = goal.TargetAmount.Round(allocation.Places)
	goal.CurrentAmount = goal.CurrentAmount.Round(allocation.Places)

	switch {
	case goal.Name == "":
		return nil, common.InvalidInput("goal name is required")
	case !goal.TargetAmount.IsPositive():
		return nil, common.InvalidInput("goal target amount must be positive")
	case goal.CurrentAmount.IsNegative():
		return nil, common.InvalidInput("goal current amount cannot be negative")
	case !model.InAmountRange(goal.TargetAmount), !model.InAmountRange(goal.CurrentAmount):
		return nil, common.InvalidInput("goal amounts must not exceed %s", model.MaxAmount)
	}
	goal.IsCompleted = goal.Reached()

	if _, err := e.storage.GetBucket(ctx, userID, goal.BucketID); err != nil {
		return nil, err
	}
	if err := e.storage.CreateGoal(ctx, &goal); err != nil {
		return nil, err
	}
	return &goal, nil
}

// UpdateGoalProgress sets the goal's current amount; the goal is completed
// once it reaches its target.
func (e *Engine) UpdateGoalProgress(ctx context.Context, userID, goalID int64, current decimal.Decimal) (*model.Goal, error) {
	current = current.Round(allocation.Places)
	if current.IsNegative() {
		return nil, common.InvalidInput("goal current amount cannot be negative")
	}
	if !model.InAmountRange(current) {
		return nil, common.InvalidInput("goal current amount must not exceed %s", model.MaxAmount)
	}

	var goal *model.Goal
	err := e.withTx(ctx, func(tx service.Transaction) error {
		g, err := tx.GetGoal(ctx, userID, goalID)
		if err != nil {
			return err
		}
		g.CurrentAmount = current
		g.IsCompleted = g.Reached()
		if err := tx.UpdateGoalProgress(ctx, g.ID, g.CurrentAmount, g.IsCompleted); err != nil {
			return err
		}
		goal = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return goal, nil
}

// DeleteGoal removes a goal.
func (e *Engine) DeleteGoal(ctx context.Context, userID, goalID int64) error {
	return e.storage.DeleteGoal(ctx, userID, goalID)
}
