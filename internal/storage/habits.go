package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/quintave/quintave/internal/common"
	"github.com/quintave/quintave/internal/model"
)

const habitColumns = `id, user_id, bucket_id, name, price, frequency, type, is_active, created_at`

func scanHabit(row rowScanner) (model.Habit, error) {
	var (
		h   model.Habit
		typ string
	)
	err := row.Scan(&h.ID, &h.UserID, &h.BucketID, &h.Name, &h.Price, &h.Frequency, &typ, &h.IsActive, &h.CreatedAt)
	if err != nil {
		return model.Habit{}, err
	}
	h.Type = model.TransactionType(typ)
	h.CreatedAt = h.CreatedAt.UTC()
	return h, nil
}

// GetHabits returns the user's habits ordered by id.
func (s *SQLStorage) GetHabits(ctx context.Context, userID int64) ([]model.Habit, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, `SELECT `+habitColumns+` FROM habits WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	habits := []model.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating habits: %w", err)
	}
	return habits, nil
}

// GetHabit returns one habit owned by userID.
func (s *SQLStorage) GetHabit(ctx context.Context, userID, id int64) (*model.Habit, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.queryRow(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = ? AND user_id = ?`, id, userID)
	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("habit %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get habit: %w", err)
	}
	return &h, nil
}

// CreateHabit inserts the habit and fills in its id.
func (s *SQLStorage) CreateHabit(ctx context.Context, habit *model.Habit) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateHabit(habit); err != nil {
		return err
	}

	now := nowUTC()
	err := s.queryRow(ctx, `
		INSERT INTO habits (user_id, bucket_id, name, price, frequency, type, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		habit.UserID, habit.BucketID, habit.Name, habit.Price.Round(2), habit.Frequency,
		string(habit.Type), habit.IsActive, now).Scan(&habit.ID)
	if err != nil {
		return fmt.Errorf("failed to create habit: %w", err)
	}

	habit.CreatedAt = now
	return nil
}

// DeleteHabit removes a habit owned by userID together with its completion
// records. Transactions generated by past completions are kept.
func (s *SQLStorage) DeleteHabit(ctx context.Context, userID, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	_, err := s.exec(ctx, `
		DELETE FROM habit_completions
		WHERE habit_id IN (SELECT id FROM habits WHERE id = ? AND user_id = ?)`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete habit completions: %w", err)
	}

	result, err := s.exec(ctx, `DELETE FROM habits WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	return expectAffected(result, fmt.Sprintf("habit %d", id))
}

// CreateHabitCompletion inserts a completion and fills in its id.
func (s *SQLStorage) CreateHabitCompletion(ctx context.Context, completion *model.HabitCompletion) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if completion == nil {
		return fmt.Errorf("%w: completion", ErrNilParameter)
	}
	if err := validateID(completion.HabitID, "habitID"); err != nil {
		return err
	}

	var txnID sql.NullInt64
	if completion.TransactionID != nil {
		txnID = sql.NullInt64{Int64: *completion.TransactionID, Valid: true}
	}

	now := nowUTC()
	completedAt := completion.CompletedAt
	if completedAt.IsZero() {
		completedAt = now
	}

	err := s.queryRow(ctx, `
		INSERT INTO habit_completions (habit_id, transaction_id, completed_at, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		completion.HabitID, txnID, completedAt.UTC(), now).Scan(&completion.ID)
	if err != nil {
		return fmt.Errorf("failed to create habit completion: %w", err)
	}

	completion.CompletedAt = completedAt.UTC()
	completion.CreatedAt = now
	return nil
}

func scanCompletion(row rowScanner) (model.HabitCompletion, error) {
	var (
		c     model.HabitCompletion
		txnID sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.HabitID, &txnID, &c.CompletedAt, &c.CreatedAt); err != nil {
		return model.HabitCompletion{}, err
	}
	if txnID.Valid {
		id := txnID.Int64
		c.TransactionID = &id
	}
	c.CompletedAt = c.CompletedAt.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

// GetHabitCompletion returns a completion whose habit is owned by userID.
func (s *SQLStorage) GetHabitCompletion(ctx context.Context, userID, id int64) (*model.HabitCompletion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.queryRow(ctx, `
		SELECT c.id, c.habit_id, c.transaction_id, c.completed_at, c.created_at
		FROM habit_completions c
		JOIN habits h ON h.id = c.habit_id
		WHERE c.id = ? AND h.user_id = ?`, id, userID)
	c, err := scanCompletion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("habit completion %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get habit completion: %w", err)
	}
	return &c, nil
}

// GetHabitCompletions returns a habit's completions, newest first.
func (s *SQLStorage) GetHabitCompletions(ctx context.Context, habitID int64) ([]model.HabitCompletion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, `
		SELECT id, habit_id, transaction_id, completed_at, created_at
		FROM habit_completions
		WHERE habit_id = ?
		ORDER BY completed_at DESC, id DESC`, habitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query habit completions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	completions := []model.HabitCompletion{}
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit completion: %w", err)
		}
		completions = append(completions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating habit completions: %w", err)
	}
	return completions, nil
}

// DeleteHabitCompletion removes a completion record by id.
func (s *SQLStorage) DeleteHabitCompletion(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.exec(ctx, `DELETE FROM habit_completions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete habit completion: %w", err)
	}
	return expectAffected(result, fmt.Sprintf("habit completion %d", id))
}
