package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/quintave/quintave/internal/common"
	"github.com/quintave/quintave/internal/model"
	"github.com/quintave/quintave/internal/service"
)

const transactionColumns = `id, user_id, bucket_id, amount, type, category, description,
	occurred_at, is_recurring, recurring_frequency, created_at`

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var (
		t           model.Transaction
		typ, cat    string
		description sql.NullString
		frequency   sql.NullString
	)

	err := row.Scan(&t.ID, &t.UserID, &t.BucketID, &t.Amount, &typ, &cat, &description,
		&t.Date, &t.IsRecurring, &frequency, &t.CreatedAt)
	if err != nil {
		return model.Transaction{}, err
	}

	t.Type = model.TransactionType(typ)
	t.Category = model.SpendingCategory(cat)
	t.Description = description.String
	t.RecurringFrequency = frequency.String
	t.Date = t.Date.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

// CreateTransaction inserts the transaction and fills in its id.
func (s *SQLStorage) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	now := nowUTC()
	err := s.queryRow(ctx, `
		INSERT INTO transactions (user_id, bucket_id, amount, type, category, description,
			occurred_at, is_recurring, recurring_frequency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		txn.UserID, txn.BucketID, txn.Amount.Round(2), string(txn.Type), string(txn.Category),
		nullString(txn.Description), txn.Date.UTC(), txn.IsRecurring, nullString(txn.RecurringFrequency), now,
	).Scan(&txn.ID)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	txn.CreatedAt = now
	return nil
}

// GetTransaction returns one transaction owned by userID.
func (s *SQLStorage) GetTransaction(ctx context.Context, userID, id int64) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.queryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &t, nil
}

// GetTransactions returns the user's transactions, newest first.
func (s *SQLStorage) GetTransactions(ctx context.Context, userID int64, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateDateRange(filter.StartDate, filter.EndDate); err != nil {
		return nil, err
	}

	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if filter.StartDate != nil {
		where = append(where, "occurred_at >= ?")
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		where = append(where, "occurred_at <= ?")
		args = append(args, filter.EndDate.UTC())
	}
	if filter.BucketID != nil {
		where = append(where, "bucket_id = ?")
		args = append(args, *filter.BucketID)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(filter.Type))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY occurred_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	transactions := []model.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

// DeleteTransaction removes one transaction owned by userID.
func (s *SQLStorage) DeleteTransaction(ctx context.Context, userID, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.exec(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return expectAffected(result, fmt.Sprintf("transaction %d", id))
}
