package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/monikanaramsetti/spendwise/internal/cache"
	"github.com/monikanaramsetti/spendwise/internal/ledger"
	applog "github.com/monikanaramsetti/spendwise/internal/log"
	"github.com/monikanaramsetti/spendwise/internal/report"
)

func parseReportPeriod(r *http.Request) (int, time.Month, bool) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil || year < 1970 || year > 9999 {
		return 0, 0, false
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, time.Month(month), true
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	if !s.store.LoggedIn() {
		writeLedgerError(w, ledger.ErrNotAuthenticated)
		return
	}
	year, month, ok := parseReportPeriod(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid report period")
		return
	}

	userID := s.store.Identity().UserID
	key := cache.ReportKey(userID, year, int(month))
	if summary, hit := s.reportCache.Get(key); hit {
		s.logger.DebugContext(r.Context(), "Report cache hit", applog.FieldStorageKey, key)
		writeJSON(w, http.StatusOK, summary)
		return
	}

	summary := report.BuildMonthlySummary(s.store.Transactions(), s.store.Settings(), year, month)
	s.reportCache.Set(key, summary)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	if !s.store.LoggedIn() {
		writeLedgerError(w, ledger.ErrNotAuthenticated)
		return
	}
	year, month, ok := parseReportPeriod(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid report period")
		return
	}
	if s.publisher == nil {
		writeError(w, http.StatusServiceUnavailable, "export is not configured")
		return
	}

	userID := s.store.Identity().UserID
	if err := s.publisher.PublishReportSync(r.Context(), userID, year, int(month)); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to publish report export",
			applog.FieldUserID, userID,
			applog.FieldYear, year,
			applog.FieldMonth, int(month),
			applog.FieldError, err)
		writeError(w, http.StatusBadGateway, "export request could not be queued")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "queued",
		"year":   year,
		"month":  int(month),
	})
}
