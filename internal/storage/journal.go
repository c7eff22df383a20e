package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/quintave/quintave/internal/model"
)

// GetJournalEntries returns the user's journal entries, newest first.
func (s *SQLStorage) GetJournalEntries(ctx context.Context, userID int64) ([]model.JournalEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, `
		SELECT id, user_id, content, financial_snapshot, created_at
		FROM journal_entries
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []model.JournalEntry{}
	for rows.Next() {
		var (
			e        model.JournalEntry
			snapshot []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Content, &snapshot, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		if len(snapshot) > 0 {
			var fs model.FinancialSnapshot
			if err := json.Unmarshal(snapshot, &fs); err != nil {
				return nil, fmt.Errorf("failed to decode snapshot for journal entry %d: %w", e.ID, err)
			}
			e.Snapshot = &fs
		}
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal entries: %w", err)
	}
	return entries, nil
}

// CreateJournalEntry inserts the entry and fills in its id.
func (s *SQLStorage) CreateJournalEntry(ctx context.Context, entry *model.JournalEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateJournalEntry(entry); err != nil {
		return err
	}

	var snapshot sql.NullString
	if entry.Snapshot != nil {
		data, err := json.Marshal(entry.Snapshot)
		if err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		snapshot = sql.NullString{String: string(data), Valid: true}
	}

	now := nowUTC()
	err := s.queryRow(ctx, `
		INSERT INTO journal_entries (user_id, content, financial_snapshot, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		entry.UserID, entry.Content, snapshot, now).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to create journal entry: %w", err)
	}

	entry.CreatedAt = now
	return nil
}

// DeleteJournalEntry removes one entry owned by userID.
func (s *SQLStorage) DeleteJournalEntry(ctx context.Context, userID, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.exec(ctx, `DELETE FROM journal_entries WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete journal entry: %w", err)
	}
	return expectAffected(result, fmt.Sprintf("journal entry %d", id))
}
