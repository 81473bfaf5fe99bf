// Package reports builds spending summaries, charts and exports.
package reports

import (
	"sort"
	"time"

	"github.com/smartexpense/smartexpense/internal/expenses"
)

// CategoryTotal is the spend of one category.
type CategoryTotal struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// MonthTotal is the spend of one calendar month, keyed YYYY-MM.
type MonthTotal struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
}

// Summary is the aggregated view of a user's expenses.
type Summary struct {
	Total       float64         `json:"total"`
	Count       int             `json:"count"`
	Categories  []CategoryTotal `json:"categories"`
	Months      []MonthTotal    `json:"months"`
	GeneratedAt time.Time       `json:"generatedAt"`
}

// Aggregate groups expenses by category and by month in a single pass.
// Categories keep first-seen order; months are sorted ascending.
func Aggregate(list []expenses.Expense) Summary {
	summary := Summary{
		Count:      len(list),
		Categories: make([]CategoryTotal, 0),
		Months:     make([]MonthTotal, 0),
	}
	catIndex := make(map[string]int)
	monthIndex := make(map[string]int)

	for _, e := range list {
		category := e.Category
		if category == "" {
			category = expenses.DefaultCategory
		}
		if i, ok := catIndex[category]; ok {
			summary.Categories[i].Amount += e.Amount
		} else {
			catIndex[category] = len(summary.Categories)
			summary.Categories = append(summary.Categories, CategoryTotal{Category: category, Amount: e.Amount})
		}

		month := e.Date.UTC().Format("2006-01")
		if i, ok := monthIndex[month]; ok {
			summary.Months[i].Amount += e.Amount
		} else {
			monthIndex[month] = len(summary.Months)
			summary.Months = append(summary.Months, MonthTotal{Month: month, Amount: e.Amount})
		}

		summary.Total += e.Amount
	}

	sort.Slice(summary.Months, func(i, j int) bool {
		return summary.Months[i].Month < summary.Months[j].Month
	})
	return summary
}

// Cumulative returns the running total across the summary's months.
func (s Summary) Cumulative() []float64 {
	out := make([]float64, len(s.Months))
	running := 0.0
	for i, m := range s.Months {
		running += m.Amount
		out[i] = running
	}
	return out
}
