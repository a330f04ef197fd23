package http

import (
	"net/http"

	"github.com/monikanaramsetti/spendwise/internal/core"
	"github.com/monikanaramsetti/spendwise/internal/ledger"
)

type settingsRequest struct {
	Currency      *string `json:"currency,omitempty"`
	Theme         *string `json:"theme,omitempty"`
	DefaultView   *string `json:"defaultView,omitempty"`
	MonthlyBudget *string `json:"monthlyBudget,omitempty"`
	DailyBudget   *string `json:"dailyBudget,omitempty"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"settings": s.store.Settings()})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	if !s.store.LoggedIn() {
		writeLedgerError(w, ledger.ErrNotAuthenticated)
		return
	}

	var req settingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var patch core.SettingsPatch
	patch.Currency = req.Currency
	patch.Theme = req.Theme
	patch.DefaultView = req.DefaultView
	if req.MonthlyBudget != nil {
		// An empty string clears the budget.
		budget := core.Money{}
		if *req.MonthlyBudget != "" {
			var err error
			if budget, err = parseAmount(*req.MonthlyBudget); err != nil {
				writeLedgerError(w, err)
				return
			}
		}
		patch.MonthlyBudget = &budget
	}
	if req.DailyBudget != nil {
		budget := core.Money{}
		if *req.DailyBudget != "" {
			var err error
			if budget, err = parseAmount(*req.DailyBudget); err != nil {
				writeLedgerError(w, err)
				return
			}
		}
		patch.DailyBudget = &budget
	}

	settings := s.store.UpdateSettings(r.Context(), patch)
	s.invalidateReports(s.store.Identity().UserID)
	writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
}

type spareChangeResponse struct {
	Balance  core.Money           `json:"balance"`
	Recent   []core.RoundUpRecord `json:"recent"`
	Computed core.Money           `json:"computedFromAll"`
}

func (s *Server) handleSpareChange(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, spareChangeResponse{
		Balance:  s.store.SpareBalance(),
		Recent:   s.store.RecentRoundUps(),
		Computed: s.store.ComputeSpareFromAll(),
	})
}

func (s *Server) handleSpareTransfer(w http.ResponseWriter, r *http.Request) {
	var req contributeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	balance := s.store.TransferSpareToBalance(r.Context(), amount)
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

func (s *Server) handleSpareReset(w http.ResponseWriter, r *http.Request) {
	s.store.ResetSpareBalance(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"balance": s.store.SpareBalance()})
}

type profileRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	if !s.store.LoggedIn() {
		writeLedgerError(w, ledger.ErrNotAuthenticated)
		return
	}

	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	update := ledger.ProfileUpdate{Name: req.Name, Email: req.Email}
	outcome := s.store.UpdateUserProfile(r.Context(), update)
	identity := s.store.Identity()

	writeJSON(w, http.StatusOK, map[string]any{
		"identity": identity,
		"outcome":  outcome,
	})
}

func (s *Server) handleSaveLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"saveLogs": s.store.SaveLogs()})
}

func (s *Server) handleClearSaveLogs(w http.ResponseWriter, r *http.Request) {
	s.store.ClearSaveLogs(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
