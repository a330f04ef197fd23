// Package export appends derived monthly reports to a Google Sheet. The
// exporter is optional: the worker skips it entirely when no spreadsheet is
// configured.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	applog "github.com/monikanaramsetti/spendwise/internal/log"
	"github.com/monikanaramsetti/spendwise/internal/report"
)

// Config locates the spreadsheet and the service account credentials.
// Exactly one of CredentialsJSON or CredentialsFile must be set.
type Config struct {
	SpreadsheetID   string
	SheetName       string // base name without year, e.g. "Reports"
	CredentialsJSON string
	CredentialsFile string
}

// Enabled reports whether the exporter is configured at all.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.SpreadsheetID) != ""
}

type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	reportSheet   string
	logger        *applog.Logger
}

// New builds the exporter, authenticating with service account credentials.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*SheetsExporter, error) {
	if !cfg.Enabled() {
		return nil, errors.New("missing spreadsheet id")
	}

	credentials, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Reports"
	}

	return &SheetsExporter{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		reportSheet:   yearPrefixedName(base, time.Now().Year()),
		logger:        logger.WithComponent(applog.ComponentExport),
	}, nil
}

func loadCredentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		raw, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return raw, nil
	default:
		return nil, errors.New("missing service account credentials")
	}
}

// ExportMonthlySummary appends one row per export to the report sheet and
// returns the written range reference.
func (e *SheetsExporter) ExportMonthlySummary(ctx context.Context, userID string, summary report.MonthlySummary) (string, error) {
	if e.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	// Find the next empty row from the sheet's first column.
	rng := fmt.Sprintf("%s!A:A", e.reportSheet)
	resp, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get sheet dimensions for %s: %w", e.reportSheet, err)
	}
	nextRow := len(resp.Values) + 1

	row := summaryRow(userID, summary)
	dataRange := fmt.Sprintf("%s!A%d:I%d", e.reportSheet, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{row}}

	_, err = e.svc.Spreadsheets.Values.Update(e.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to append report row to %s: %w", e.reportSheet, err)
	}

	e.logger.InfoContext(ctx, "Report exported",
		applog.FieldUserID, userID,
		applog.FieldYear, summary.Year,
		applog.FieldMonth, summary.Month,
		"range", dataRange)
	return dataRange, nil
}

// summaryRow flattens a summary into the sheet's column layout:
// exported-at, user, year, month, income, expense, net, top category, status.
func summaryRow(userID string, s report.MonthlySummary) []any {
	status := string(report.StatusGood)
	if s.MonthlyBudget != nil {
		status = string(s.MonthlyBudget.Status)
	}
	return []any{
		time.Now().Format(time.RFC3339),
		userID,
		s.Year,
		s.Month,
		s.Income.Float(),
		s.Expense.Float(),
		s.Net.Float(),
		s.Superlatives.TopCategory,
		status,
	}
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
