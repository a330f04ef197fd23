package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/monikanaramsetti/spendwise/internal/core"
)

func txn(txnType core.TransactionType, cents int64, category string, day int) core.Transaction {
	return core.Transaction{
		ID:       category + "-" + string(txnType),
		Type:     txnType,
		Amount:   core.Money{Cents: cents},
		Category: category,
		Date:     core.NewDate(2026, 8, day),
	}
}

func TestBuildMonthlySummaryTotals(t *testing.T) {
	transactions := []core.Transaction{
		txn(core.Income, 300000, "Salary", 1),
		txn(core.Expense, 60000, "Rent", 2),
		txn(core.Expense, 30000, "Food", 5),
		txn(core.Expense, 10000, "Food", 12),
		// outside the month, must be ignored
		{ID: "old", Type: core.Expense, Amount: core.Money{Cents: 99999}, Category: "Food", Date: core.NewDate(2026, 7, 30)},
	}

	s := BuildMonthlySummary(transactions, core.Settings{}, 2026, time.August)

	if s.Income.Cents != 300000 {
		t.Fatalf("income = %d, want 300000", s.Income.Cents)
	}
	if s.Expense.Cents != 100000 {
		t.Fatalf("expense = %d, want 100000", s.Expense.Cents)
	}
	if s.Net.Cents != 200000 {
		t.Fatalf("net = %d, want 200000", s.Net.Cents)
	}
}

func TestCategoryShares(t *testing.T) {
	transactions := []core.Transaction{
		txn(core.Expense, 60000, "Rent", 2),
		txn(core.Expense, 30000, "Food", 5),
		txn(core.Expense, 10000, "Transport", 9),
	}

	s := BuildMonthlySummary(transactions, core.Settings{}, 2026, time.August)

	if len(s.Categories) != 3 {
		t.Fatalf("categories = %d, want 3", len(s.Categories))
	}
	want := []struct {
		category string
		cents    int64
		share    string
	}{
		{"Rent", 60000, "60"},
		{"Food", 30000, "30"},
		{"Transport", 10000, "10"},
	}
	for i, w := range want {
		got := s.Categories[i]
		if got.Category != w.category || got.Total.Cents != w.cents {
			t.Fatalf("category %d = %+v, want %+v", i, got, w)
		}
		if !got.Share.Equal(decimal.RequireFromString(w.share)) {
			t.Fatalf("category %s share = %s, want %s", w.category, got.Share, w.share)
		}
	}
}

func TestBudgetStatusThresholds(t *testing.T) {
	tests := []struct {
		name       string
		spentCents int64
		want       BudgetStatus
	}{
		{"well under", 5000, StatusGood},
		{"just under warning", 7999, StatusGood},
		{"at warning", 8000, StatusWarning},
		{"under limit", 9999, StatusWarning},
		{"at limit", 10000, StatusExceeded},
		{"over limit", 15000, StatusExceeded},
	}
	budget := core.Money{Cents: 10000}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := progress(core.Money{Cents: tt.spentCents}, budget)
			if p.Status != tt.want {
				t.Errorf("status = %s, want %s (percent %s)", p.Status, tt.want, p.Percent)
			}
		})
	}
}

func TestMonthlyBudgetSection(t *testing.T) {
	transactions := []core.Transaction{
		txn(core.Expense, 9000, "Food", 3),
	}
	settings := core.Settings{MonthlyBudget: core.Money{Cents: 10000}}

	s := BuildMonthlySummary(transactions, settings, 2026, time.August)

	if s.MonthlyBudget == nil {
		t.Fatalf("monthly budget section missing")
	}
	if s.MonthlyBudget.Status != StatusWarning {
		t.Fatalf("status = %s, want warning", s.MonthlyBudget.Status)
	}

	// No budget configured: no section.
	s = BuildMonthlySummary(transactions, core.Settings{}, 2026, time.August)
	if s.MonthlyBudget != nil {
		t.Fatalf("unexpected budget section: %+v", s.MonthlyBudget)
	}
}

func TestDailyBudgetOnlyForCurrentMonth(t *testing.T) {
	today := core.Today()
	settings := core.Settings{DailyBudget: core.Money{Cents: 1000}}
	transactions := []core.Transaction{
		{ID: "t", Type: core.Expense, Amount: core.Money{Cents: 1500}, Category: "Food", Date: today},
	}

	current := BuildMonthlySummary(transactions, settings, today.Year(), today.Month())
	if current.DailyBudget == nil {
		t.Fatalf("daily budget section missing for current month")
	}
	if current.DailyBudget.Status != StatusExceeded {
		t.Fatalf("status = %s, want exceeded", current.DailyBudget.Status)
	}

	past := BuildMonthlySummary(transactions, settings, today.Year()-1, today.Month())
	if past.DailyBudget != nil {
		t.Fatalf("daily budget section present for a past month")
	}
}

func TestSuperlatives(t *testing.T) {
	transactions := []core.Transaction{
		txn(core.Income, 500000, "Salary", 1),
		txn(core.Expense, 12000, "Food", 3),
		{ID: "big", Type: core.Expense, Amount: core.Money{Cents: 80000}, Category: "Rent", Date: core.NewDate(2026, 8, 2)},
		{ID: "a", Type: core.Expense, Amount: core.Money{Cents: 500}, Category: "Coffee", Date: core.NewDate(2026, 8, 10)},
		{ID: "b", Type: core.Expense, Amount: core.Money{Cents: 700}, Category: "Coffee", Date: core.NewDate(2026, 8, 10)},
		{ID: "c", Type: core.Expense, Amount: core.Money{Cents: 900}, Category: "Snacks", Date: core.NewDate(2026, 8, 10)},
	}

	s := BuildMonthlySummary(transactions, core.Settings{}, 2026, time.August)

	if s.Superlatives.LargestExpense == nil || s.Superlatives.LargestExpense.ID != "big" {
		t.Fatalf("largest expense = %+v", s.Superlatives.LargestExpense)
	}
	if s.Superlatives.TopCategory != "Rent" || s.Superlatives.TopCategorySum.Cents != 80000 {
		t.Fatalf("top category = %s (%d)", s.Superlatives.TopCategory, s.Superlatives.TopCategorySum.Cents)
	}
	if s.Superlatives.BusiestDay.Day() != 10 || s.Superlatives.BusiestDayCount != 3 {
		t.Fatalf("busiest day = %v (%d)", s.Superlatives.BusiestDay, s.Superlatives.BusiestDayCount)
	}
}

func TestEmptyMonth(t *testing.T) {
	s := BuildMonthlySummary(nil, core.Settings{}, 2026, time.August)
	if s.Income.Cents != 0 || s.Expense.Cents != 0 || s.Net.Cents != 0 {
		t.Fatalf("non-zero totals for empty month: %+v", s)
	}
	if len(s.Categories) != 0 {
		t.Fatalf("categories for empty month: %+v", s.Categories)
	}
	if s.Superlatives.LargestExpense != nil {
		t.Fatalf("superlatives for empty month: %+v", s.Superlatives)
	}
}
