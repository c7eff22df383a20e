package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quintave/quintave/internal/allocation"
	"github.com/quintave/quintave/internal/common"
	"github.com/quintave/quintave/internal/model"
	"github.com/quintave/quintave/internal/service"
)

// Analytics window bounds, in days.
const (
	DefaultProgressDays = 30
	MaxProgressDays     = 3650
)

const dayLayout = "2006-01-02"

// DailyProgress is one day of the financial progress series. Net is the
// running total of MoneyIn - MoneyOut from the start of the window.
type DailyProgress struct {
	Date     string          `json:"date"`
	MoneyIn  decimal.Decimal `json:"moneyIn"`
	MoneyOut decimal.Decimal `json:"moneyOut"`
	Net      decimal.Decimal `json:"net"`
}

// FinancialProgress returns one entry per UTC day from days ago through
// today inclusive. days of 0 means DefaultProgressDays.
func (e *Engine) FinancialProgress(ctx context.Context, userID int64, days int) ([]DailyProgress, error) {
	if days == 0 {
		days = DefaultProgressDays
	}
	if days < 1 || days > MaxProgressDays {
		return nil, common.InvalidInput("days must be between 1 and %d", MaxProgressDays)
	}

	now := e.clock()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -days)
	end := today.Add(24*time.Hour - time.Nanosecond)

	txns, err := e.storage.GetTransactions(ctx, userID, service.TransactionFilter{StartDate: &start, EndDate: &end})
	if err != nil {
		return nil, err
	}

	series := make([]DailyProgress, 0, days+1)
	index := make(map[string]int, days+1)
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format(dayLayout)
		index[key] = len(series)
		series = append(series, DailyProgress{Date: key, MoneyIn: decimal.Zero, MoneyOut: decimal.Zero, Net: decimal.Zero})
	}

	for _, t := range txns {
		i, ok := index[t.Date.UTC().Format(dayLayout)]
		if !ok {
			continue
		}
		if t.Type == model.TypeIncome {
			series[i].MoneyIn = series[i].MoneyIn.Add(t.Amount)
		} else {
			series[i].MoneyOut = series[i].MoneyOut.Add(t.Amount)
		}
	}

	running := decimal.Zero
	for i := range series {
		running = running.Add(series[i].MoneyIn).Sub(series[i].MoneyOut)
		series[i].Net = running.Round(allocation.Places)
	}
	return series, nil
}
