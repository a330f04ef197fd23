// Package report derives read-only monthly analytics from a transaction
// slice. Nothing here mutates ledger state; summaries are rebuilt on demand
// and safe to cache.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/monikanaramsetti/spendwise/internal/core"
)

// Budget statuses. Warning kicks in at 80% of the budget, exceeded at 100%.
type BudgetStatus string

const (
	StatusGood     BudgetStatus = "good"
	StatusWarning  BudgetStatus = "warning"
	StatusExceeded BudgetStatus = "exceeded"
)

var (
	warningThreshold = decimal.NewFromInt(80)
	exceedThreshold  = decimal.NewFromInt(100)
	hundred          = decimal.NewFromInt(100)
)

// CategoryTotal is one category's expense total and its share of the month's
// expenses, as a percentage with one decimal place.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    core.Money      `json:"total"`
	Share    decimal.Decimal `json:"share"`
}

// BudgetProgress compares spending against one configured budget.
type BudgetProgress struct {
	Budget  core.Money      `json:"budget"`
	Spent   core.Money      `json:"spent"`
	Percent decimal.Decimal `json:"percent"`
	Status  BudgetStatus    `json:"status"`
}

// Superlatives are the month's standout datapoints.
type Superlatives struct {
	LargestExpense  *core.Transaction `json:"largestExpense,omitempty"`
	TopCategory     string            `json:"topCategory,omitempty"`
	TopCategorySum  core.Money        `json:"topCategorySum"`
	BusiestDay      core.Date         `json:"busiestDay"`
	BusiestDayCount int               `json:"busiestDayCount"`
}

// MonthlySummary is the full derived report for one calendar month.
type MonthlySummary struct {
	Year    int        `json:"year"`
	Month   int        `json:"month"`
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Net     core.Money `json:"net"`

	Categories    []CategoryTotal `json:"categories"`
	DailyBudget   *BudgetProgress `json:"dailyBudget,omitempty"`
	MonthlyBudget *BudgetProgress `json:"monthlyBudget,omitempty"`
	Superlatives  Superlatives    `json:"superlatives"`
}

// BuildMonthlySummary derives the report for the given month from the full
// transaction slice. Transactions outside the month are ignored. The daily
// budget section is present only when the report month is the current month,
// since it compares today's spending.
func BuildMonthlySummary(transactions []core.Transaction, settings core.Settings, year int, month time.Month) MonthlySummary {
	anchor := core.NewDate(year, int(month), 1)
	summary := MonthlySummary{Year: year, Month: int(month)}

	byCategory := map[string]int64{}
	byDay := map[int]int{}
	var largest *core.Transaction

	for i := range transactions {
		txn := transactions[i]
		if !txn.Date.SameMonth(anchor) {
			continue
		}
		if txn.Type == core.Income {
			summary.Income = summary.Income.Add(txn.Amount)
			continue
		}
		summary.Expense = summary.Expense.Add(txn.Amount)
		byCategory[txn.Category] += txn.Amount.Cents
		byDay[txn.Date.Day()]++
		if largest == nil || txn.Amount.GreaterThan(largest.Amount) {
			largest = &transactions[i]
		}
	}
	summary.Net = summary.Income.Sub(summary.Expense)

	summary.Categories = categoryTotals(byCategory, summary.Expense)
	summary.Superlatives = superlatives(largest, summary.Categories, byDay, year, month)

	if settings.MonthlyBudget.Cents > 0 {
		p := progress(summary.Expense, settings.MonthlyBudget)
		summary.MonthlyBudget = &p
	}
	today := core.Today()
	if settings.DailyBudget.Cents > 0 && today.SameMonth(anchor) {
		var spentToday core.Money
		for _, txn := range transactions {
			if txn.Type == core.Expense && txn.Date.SameDay(today) {
				spentToday = spentToday.Add(txn.Amount)
			}
		}
		p := progress(spentToday, settings.DailyBudget)
		summary.DailyBudget = &p
	}

	return summary
}

func categoryTotals(byCategory map[string]int64, totalExpense core.Money) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(byCategory))
	total := decimal.NewFromInt(totalExpense.Cents)
	for category, cents := range byCategory {
		share := decimal.Zero
		if totalExpense.Cents > 0 {
			share = decimal.NewFromInt(cents).Div(total).Mul(hundred).Round(1)
		}
		out = append(out, CategoryTotal{
			Category: category,
			Total:    core.Money{Cents: cents},
			Share:    share,
		})
	}
	// Largest first; ties break alphabetically so output is deterministic.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total.Cents != out[j].Total.Cents {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func progress(spent, budget core.Money) BudgetProgress {
	percent := decimal.NewFromInt(spent.Cents).
		Div(decimal.NewFromInt(budget.Cents)).
		Mul(hundred).Round(1)

	status := StatusGood
	switch {
	case percent.GreaterThanOrEqual(exceedThreshold):
		status = StatusExceeded
	case percent.GreaterThanOrEqual(warningThreshold):
		status = StatusWarning
	}
	return BudgetProgress{Budget: budget, Spent: spent, Percent: percent, Status: status}
}

func superlatives(largest *core.Transaction, categories []CategoryTotal, byDay map[int]int, year int, month time.Month) Superlatives {
	s := Superlatives{LargestExpense: largest}
	if len(categories) > 0 {
		s.TopCategory = categories[0].Category
		s.TopCategorySum = categories[0].Total
	}
	bestDay, bestCount := 0, 0
	for day, count := range byDay {
		if count > bestCount || (count == bestCount && day < bestDay) {
			bestDay, bestCount = day, count
		}
	}
	if bestCount > 0 {
		s.BusiestDay = core.NewDate(year, int(month), bestDay)
		s.BusiestDayCount = bestCount
	}
	return s
}
