package allocation

import (
	"github.com/shopspring/decimal"

	"github.com/quintave/quintave/internal/model"
)

// BucketView is a bucket plus the figures derived from its transactions.
// None of the derived fields are stored.
type BucketView struct {
	model.Bucket
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	Debt        decimal.Decimal `json:"debt"`
	PercentUsed decimal.Decimal `json:"percentUsed"`
	IsOverspent bool            `json:"isOverspent"`
}

// Summary aggregates the bucket views for the dashboard.
type Summary struct {
	Buckets        []BucketView    `json:"buckets"`
	TotalBalance   decimal.Decimal `json:"totalBalance"`
	TotalAllocated decimal.Decimal `json:"totalAllocated"`
	TotalSpent     decimal.Decimal `json:"totalSpent"`
	TotalDebt      decimal.Decimal `json:"totalDebt"`
	OverspentCount int             `json:"overspentCount"`
}

// View derives the display figures for a bucket whose expenses total spent.
func View(bucket model.Bucket, spent decimal.Decimal) BucketView {
	v := BucketView{
		Bucket:      bucket,
		Spent:       spent.Round(Places),
		Remaining:   bucket.Allocated.Sub(spent).Round(Places),
		Debt:        decimal.Zero,
		PercentUsed: decimal.Zero,
		IsOverspent: spent.GreaterThan(bucket.Allocated),
	}
	if v.IsOverspent {
		v.Debt = spent.Sub(bucket.Allocated).Round(Places)
	}
	if bucket.Allocated.IsPositive() {
		v.PercentUsed = spent.Div(bucket.Allocated).Mul(hundred).Round(Places)
	}
	return v
}

// SpentByBucket sums EXPENSE amounts per bucket id.
func SpentByBucket(txns []model.Transaction) map[int64]decimal.Decimal {
	spent := make(map[int64]decimal.Decimal)
	for _, t := range txns {
		if t.Type != model.TypeExpense {
			continue
		}
		spent[t.BucketID] = spent[t.BucketID].Add(t.Amount)
	}
	return spent
}

// Summarize builds the dashboard summary from the user's buckets and their
// transactions. Bucket order follows ids.
func Summarize(buckets []model.Bucket, txns []model.Transaction) Summary {
	spent := SpentByBucket(txns)

	s := Summary{
		Buckets:        make([]BucketView, 0, len(buckets)),
		TotalBalance:   decimal.Zero,
		TotalAllocated: decimal.Zero,
		TotalSpent:     decimal.Zero,
		TotalDebt:      decimal.Zero,
	}
	for _, b := range sortedCopy(buckets) {
		v := View(b, spent[b.ID])
		s.Buckets = append(s.Buckets, v)
		s.TotalBalance = s.TotalBalance.Add(v.Balance)
		s.TotalAllocated = s.TotalAllocated.Add(v.Allocated)
		s.TotalSpent = s.TotalSpent.Add(v.Spent)
		s.TotalDebt = s.TotalDebt.Add(v.Debt)
		if v.IsOverspent {
			s.OverspentCount++
		}
	}
	return s
}
