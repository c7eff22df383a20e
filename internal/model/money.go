package model

import "github.com/shopspring/decimal"

// MaxAmount is the largest magnitude a stored money column can hold
// (NUMERIC(12,2) on PostgreSQL).
var MaxAmount = decimal.RequireFromString("9999999999.99")

// InAmountRange reports whether amount fits a money column.
func InAmountRange(amount decimal.Decimal) bool {
	return amount.Abs().LessThanOrEqual(MaxAmount)
}
