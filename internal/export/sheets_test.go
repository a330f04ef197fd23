package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/monikanaramsetti/spendwise/internal/core"
	"github.com/monikanaramsetti/spendwise/internal/report"
)

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Reports", 2026, "2026 Reports"},
		{"  Reports  ", 2026, "2026 Reports"},
		{"2025 Reports", 2026, "2025 Reports"}, // already prefixed
		{"", 2026, ""},
		{"1234", 2026, "2026 1234"}, // too short to carry a year prefix
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestConfigEnabled(t *testing.T) {
	if (Config{}).Enabled() {
		t.Error("empty config should be disabled")
	}
	if !(Config{SpreadsheetID: "abc"}).Enabled() {
		t.Error("config with spreadsheet id should be enabled")
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Run("inline json wins", func(t *testing.T) {
		raw, err := loadCredentials(Config{CredentialsJSON: `{"type":"service_account"}`})
		if err != nil {
			t.Fatalf("loadCredentials: %v", err)
		}
		if string(raw) != `{"type":"service_account"}` {
			t.Fatalf("unexpected credentials: %s", raw)
		}
	})

	t.Run("file fallback", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sa.json")
		if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
			t.Fatal(err)
		}
		raw, err := loadCredentials(Config{CredentialsFile: path})
		if err != nil {
			t.Fatalf("loadCredentials: %v", err)
		}
		if len(raw) == 0 {
			t.Fatal("empty credentials from file")
		}
	})

	t.Run("nothing configured", func(t *testing.T) {
		if _, err := loadCredentials(Config{}); err == nil {
			t.Fatal("expected error with no credentials")
		}
	})
}

func TestSummaryRow(t *testing.T) {
	summary := report.MonthlySummary{
		Year:    2026,
		Month:   8,
		Income:  core.Money{Cents: 300000},
		Expense: core.Money{Cents: 120050},
		Net:     core.Money{Cents: 179950},
		MonthlyBudget: &report.BudgetProgress{
			Status: report.StatusWarning,
		},
		Superlatives: report.Superlatives{TopCategory: "Rent"},
	}

	row := summaryRow("u1", summary)
	if len(row) != 9 {
		t.Fatalf("row length = %d, want 9", len(row))
	}
	if row[1] != "u1" || row[2] != 2026 || row[3] != 8 {
		t.Fatalf("unexpected identity columns: %v", row[:4])
	}
	if row[4] != 3000.0 || row[5] != 1200.5 {
		t.Fatalf("unexpected amount columns: %v %v", row[4], row[5])
	}
	if row[7] != "Rent" || row[8] != "warning" {
		t.Fatalf("unexpected tail columns: %v %v", row[7], row[8])
	}

	// No budget configured defaults to good.
	summary.MonthlyBudget = nil
	row = summaryRow("u1", summary)
	if row[8] != "good" {
		t.Fatalf("status = %v, want good", row[8])
	}
}
