package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/quintave/quintave/internal/common"
	"github.com/quintave/quintave/internal/model"
)

// ListJournalEntries returns the user's entries, newest first.
func (e *Engine) ListJournalEntries(ctx context.Context, userID int64) ([]model.JournalEntry, error) {
	return e.storage.GetJournalEntries(ctx, userID)
}

// CreateJournalEntry stores an entry. When snapshot is nil the current
// bucket balances are captured instead.
func (e *Engine) CreateJournalEntry(ctx context.Context, userID int64, content string, snapshot *model.FinancialSnapshot) (*model.JournalEntry, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, common.InvalidInput("journal content is required")
	}

	if snapshot == nil {
		buckets, err := e.storage.GetBuckets(ctx, userID)
		if err != nil {
			return nil, err
		}
		snapshot = model.NewSnapshot(buckets, e.clock())
	} else {
		if snapshot.CapturedAt.IsZero() {
			snapshot.CapturedAt = e.clock()
		}
		if err := snapshot.Validate(); err != nil {
			return nil, common.NewUserError(err.Error(), errors.Join(common.ErrInvalidInput, err))
		}
	}

	entry := &model.JournalEntry{UserID: userID, Content: content, Snapshot: snapshot}
	if err := e.storage.CreateJournalEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// DeleteJournalEntry removes an entry.
func (e *Engine) DeleteJournalEntry(ctx context.Context, userID, entryID int64) error {
	return e.storage.DeleteJournalEntry(ctx, userID, entryID)
}
