package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/monikanaramsetti/spendwise/internal/core"
)

type transactionRequest struct {
	Type     string `json:"type"`
	Amount   string `json:"amount"`
	Category string `json:"category"`
	Date     string `json:"date,omitempty"` // "YYYY-MM-DD", empty means today
	Notes    string `json:"notes,omitempty"`
}

func (req transactionRequest) toDraft() (core.TransactionDraft, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.TransactionDraft{}, err
	}
	draft := core.TransactionDraft{
		Type:     core.TransactionType(req.Type),
		Amount:   amount,
		Category: sanitizeInput(req.Category),
		Notes:    sanitizeInput(req.Notes),
	}
	if req.Date != "" {
		t, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return core.TransactionDraft{}, core.ErrInvalidDate
		}
		draft.Date = core.Date{Time: t}
	}
	if err := draft.Validate(); err != nil {
		return core.TransactionDraft{}, err
	}
	return draft, nil
}

type transactionListResponse struct {
	Transactions []core.Transaction `json:"transactions"`
	Totals       core.Totals        `json:"totals"`
}

type transactionResponse struct {
	Transaction *core.Transaction `json:"transaction"`
	Totals      core.Totals       `json:"totals"`
	Warnings    []string          `json:"warnings,omitempty"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, transactionListResponse{
		Transactions: s.store.Transactions(),
		Totals:       s.store.Totals(),
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	draft, err := req.toDraft()
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	txn, err := s.store.AddTransaction(r.Context(), draft)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	s.invalidateReports(s.store.Identity().UserID)

	writeJSON(w, http.StatusCreated, transactionResponse{
		Transaction: txn,
		Totals:      s.store.Totals(),
		Warnings:    s.budgetWarnings(),
	})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	draft, err := req.toDraft()
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	txn, err := s.store.UpdateTransaction(r.Context(), r.PathValue("id"), draft)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	s.invalidateReports(s.store.Identity().UserID)

	writeJSON(w, http.StatusOK, transactionResponse{
		Transaction: txn,
		Totals:      s.store.Totals(),
	})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	s.store.DeleteTransaction(r.Context(), r.PathValue("id"))
	s.invalidateReports(s.store.Identity().UserID)
	writeJSON(w, http.StatusOK, transactionListResponse{
		Transactions: s.store.Transactions(),
		Totals:       s.store.Totals(),
	})
}

func (s *Server) handleClearTransactions(w http.ResponseWriter, r *http.Request) {
	s.store.ClearAllTransactions(r.Context())
	s.invalidateReports(s.store.Identity().UserID)
	w.WriteHeader(http.StatusNoContent)
}

// budgetWarnings derives the non-blocking notices the client shows after an
// expense: spending past the daily or monthly budget.
func (s *Server) budgetWarnings() []string {
	settings := s.store.Settings()
	today := core.Today()

	var daily, monthly core.Money
	for _, t := range s.store.Transactions() {
		if t.Type != core.Expense {
			continue
		}
		if t.Date.SameDay(today) {
			daily = daily.Add(t.Amount)
		}
		if t.Date.SameMonth(today) {
			monthly = monthly.Add(t.Amount)
		}
	}

	var warnings []string
	if settings.DailyBudget.Cents > 0 && daily.GreaterThan(settings.DailyBudget) {
		warnings = append(warnings, fmt.Sprintf("daily budget exceeded: spent %s of %s", daily, settings.DailyBudget))
	}
	if settings.MonthlyBudget.Cents > 0 && monthly.GreaterThan(settings.MonthlyBudget) {
		warnings = append(warnings, fmt.Sprintf("monthly budget exceeded: spent %s of %s", monthly, settings.MonthlyBudget))
	}
	return warnings
}
