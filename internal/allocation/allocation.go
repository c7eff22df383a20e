// Package allocation implements the envelope arithmetic: fanning income out
// across a user's buckets, debiting expenses, and deriving the per-bucket
// figures shown on the dashboard.
package allocation

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/quintave/quintave/internal/model"
)

// Places is the number of decimal places money is kept at.
const Places = 2

var hundred = decimal.NewFromInt(100)

// SplitIncome divides amount into n shares that sum to exactly amount once
// rounded to the cent. Every share gets the truncated per-bucket amount and
// the leftover cents go one each to the first shares.
func SplitIncome(amount decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}

	total := amount.Round(Places)
	count := decimal.NewFromInt(int64(n))
	base := total.Div(count).Truncate(Places)
	// Leftover is below n cents in magnitude.
	rem := total.Sub(base.Mul(count)).Shift(Places).IntPart()

	step := decimal.New(1, -Places)
	if rem < 0 {
		step, rem = step.Neg(), -rem
	}

	shares := make([]decimal.Decimal, n)
	for i := range shares {
		share := base
		if int64(i) < rem {
			share = share.Add(step)
		}
		shares[i] = share
	}
	return shares
}

// ApplyIncome returns copies of buckets, ordered by id, with each bucket's
// Allocated increased by its share of amount. The lowest ids receive any
// leftover cents. Balances are not touched.
func ApplyIncome(buckets []model.Bucket, amount decimal.Decimal) []model.Bucket {
	out := sortedCopy(buckets)
	shares := SplitIncome(amount, len(out))
	for i := range out {
		out[i].Allocated = out[i].Allocated.Add(shares[i]).Round(Places)
	}
	return out
}

// ApplyExpense debits amount from the bucket's balance. The balance may go
// negative.
func ApplyExpense(bucket model.Bucket, amount decimal.Decimal) model.Bucket {
	bucket.Balance = bucket.Balance.Sub(amount).Round(Places)
	return bucket
}

func sortedCopy(buckets []model.Bucket) []model.Bucket {
	out := make([]model.Bucket, len(buckets))
	copy(out, buckets)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
