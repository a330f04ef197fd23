package http

import (
	"net/http"
	"time"

	"github.com/monikanaramsetti/spendwise/internal/core"
	"github.com/monikanaramsetti/spendwise/internal/ledger"
)

type billRequest struct {
	Name    string `json:"name"`
	Amount  string `json:"amount"`
	DueDate string `json:"dueDate"`
	Paid    *bool  `json:"paid,omitempty"`
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return core.Date{}, core.ErrInvalidDate
	}
	return core.Date{Time: t}, nil
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"bills": s.store.Bills()})
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	draft := ledger.BillDraft{
		Name:    sanitizeInput(req.Name),
		Amount:  amount,
		DueDate: dueDate,
	}
	if err := (core.Bill{Name: draft.Name, Amount: draft.Amount, DueDate: draft.DueDate}).Validate(); err != nil {
		writeLedgerError(w, err)
		return
	}

	bill, err := s.store.AddBill(r.Context(), draft)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"bill": bill})
}

func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var patch ledger.BillPatch
	if req.Name != "" {
		name := sanitizeInput(req.Name)
		patch.Name = &name
	}
	if req.Amount != "" {
		amount, err := parseAmount(req.Amount)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		patch.Amount = &amount
	}
	if req.DueDate != "" {
		dueDate, err := parseDate(req.DueDate)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		patch.DueDate = &dueDate
	}
	patch.Paid = req.Paid

	bill, err := s.store.UpdateBill(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	s.invalidateReports(s.store.Identity().UserID)

	// Paying a bill may have produced an expense, so return totals too.
	writeJSON(w, http.StatusOK, map[string]any{
		"bill":     bill,
		"totals":   s.store.Totals(),
		"warnings": s.budgetWarnings(),
	})
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	s.store.RemoveBill(r.Context(), r.PathValue("id"))
	writeJSON(w, http.StatusOK, map[string]any{"bills": s.store.Bills()})
}
