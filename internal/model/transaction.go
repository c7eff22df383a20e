// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType says which way money moves.
type TransactionType string

// Transaction type constants.
const (
	TypeIncome  TransactionType = "INCOME"
	TypeExpense TransactionType = "EXPENSE"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// SpendingCategory classifies how deliberate a transaction was.
type SpendingCategory string

// Spending category constants.
const (
	CategoryPlanned   SpendingCategory = "Planned"
	CategoryUnplanned SpendingCategory = "Unplanned"
	CategoryImpulse   SpendingCategory = "Impulse"
)

// Valid reports whether c is a known spending category.
func (c SpendingCategory) Valid() bool {
	switch c {
	case CategoryPlanned, CategoryUnplanned, CategoryImpulse:
		return true
	}
	return false
}

// Transaction is a single income or expense entry recorded against a bucket.
// Transactions are immutable once created; they can only be deleted.
type Transaction struct {
	Date               time.Time        `json:"date"`
	CreatedAt          time.Time        `json:"createdAt"`
	Amount             decimal.Decimal  `json:"amount"`
	Type               TransactionType  `json:"type"`
	Category           SpendingCategory `json:"category"`
	Description        string           `json:"description,omitempty"`
	RecurringFrequency string           `json:"recurringFrequency,omitempty"`
	ID                 int64            `json:"id"`
	UserID             int64            `json:"userId"`
	BucketID           int64            `json:"bucketId"`
	IsRecurring        bool             `json:"isRecurring"`
}

// Validate checks the fields a caller must supply before a transaction is stored.
func (t *Transaction) Validate() error {
	if !t.Type.Valid() {
		return fmt.Errorf("invalid transaction type %q", t.Type)
	}
	if !t.Category.Valid() {
		return fmt.Errorf("invalid transaction category %q", t.Category)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("transaction amount must be positive, got %s", t.Amount)
	}
	if !InAmountRange(t.Amount) {
		return fmt.Errorf("transaction amount must not exceed %s", MaxAmount)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("transaction date is required")
	}
	return nil
}
