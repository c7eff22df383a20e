package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/quintave/quintave/internal/common"
	"github.com/quintave/quintave/internal/model"
)

const goalColumns = `id, user_id, bucket_id, name, target_amount, current_amount, target_date, is_completed, created_at`

func scanGoal(row rowScanner) (model.Goal, error) {
	var (
		g          model.Goal
		targetDate sql.NullTime
	)
	err := row.Scan(&g.ID, &g.UserID, &g.BucketID, &g.Name, &g.TargetAmount, &g.CurrentAmount,
		&targetDate, &g.IsCompleted, &g.CreatedAt)
	if err != nil {
		return model.Goal{}, err
	}
	if targetDate.Valid {
		t := targetDate.Time.UTC()
		g.TargetDate = &t
	}
	g.CreatedAt = g.CreatedAt.UTC()
	return g, nil
}

// GetGoals returns the user's goals, newest first.
func (s *SQLStorage) GetGoals(ctx context.Context, userID int64) ([]model.Goal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, `SELECT `+goalColumns+` FROM goals WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	goals := []model.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}
	return goals, nil
}

// GetGoal returns one goal owned by userID.
func (s *SQLStorage) GetGoal(ctx context.Context, userID, id int64) (*model.Goal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.queryRow(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ? AND user_id = ?`+s.forUpdate(), id, userID)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("goal %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	return &g, nil
}

// CreateGoal inserts the goal and fills in its id.
func (s *SQLStorage) CreateGoal(ctx context.Context, goal *model.Goal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateGoal(goal); err != nil {
		return err
	}

	var targetDate sql.NullTime
	if goal.TargetDate != nil {
		targetDate = sql.NullTime{Time: goal.TargetDate.UTC(), Valid: true}
	}

	now := nowUTC()
	err := s.queryRow(ctx, `
		INSERT INTO goals (user_id, bucket_id, name, target_amount, current_amount, target_date, is_completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		goal.UserID, goal.BucketID, goal.Name, goal.TargetAmount.Round(2), goal.CurrentAmount.Round(2),
		targetDate, goal.IsCompleted, now).Scan(&goal.ID)
	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}

	goal.CreatedAt = now
	return nil
}

// UpdateGoalProgress sets the goal's current amount and completion flag.
func (s *SQLStorage) UpdateGoalProgress(ctx context.Context, id int64, current decimal.Decimal, completed bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.exec(ctx,
		`UPDATE goals SET current_amount = ?, is_completed = ? WHERE id = ?`,
		current.Round(2), completed, id)
	if err != nil {
		return fmt.Errorf("failed to update goal progress: %w", err)
	}
	return expectAffected(result, fmt.Sprintf("goal %d", id))
}

// DeleteGoal removes one goal owned by userID.
func (s *SQLStorage) DeleteGoal(ctx context.Context, userID, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.exec(ctx, `DELETE FROM goals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	return expectAffected(result, fmt.Sprintf("goal %d", id))
}
