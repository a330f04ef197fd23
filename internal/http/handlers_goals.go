package http

import (
	"net/http"

	"github.com/monikanaramsetti/spendwise/internal/core"
	"github.com/monikanaramsetti/spendwise/internal/ledger"
)

type goalRequest struct {
	Title  string `json:"title"`
	Target string `json:"target"`
	Saved  string `json:"saved,omitempty"`
}

type contributeRequest struct {
	Amount string `json:"amount"`
}

// goalView decorates a goal with its display progress.
type goalView struct {
	core.SavingsGoal
	Progress float64 `json:"progress"`
}

func goalViews(goals []core.SavingsGoal) []goalView {
	out := make([]goalView, len(goals))
	for i, g := range goals {
		out[i] = goalView{SavingsGoal: g, Progress: g.ProgressPercent()}
	}
	return out
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"goals": goalViews(s.store.Goals())})
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	target, err := parseAmount(req.Target)
	if err != nil {
		writeLedgerError(w, core.ErrInvalidTarget)
		return
	}
	draft := ledger.GoalDraft{
		Title:  sanitizeInput(req.Title),
		Target: target,
	}
	if req.Saved != "" {
		saved, err := parseAmount(req.Saved)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		draft.Saved = saved
	}
	if err := (core.SavingsGoal{Title: draft.Title, Target: draft.Target, Saved: draft.Saved}).Validate(); err != nil {
		writeLedgerError(w, err)
		return
	}

	goal, err := s.store.CreateGoal(r.Context(), draft)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"goal": goalView{SavingsGoal: *goal, Progress: goal.ProgressPercent()},
	})
}

func (s *Server) handleContributeGoal(w http.ResponseWriter, r *http.Request) {
	var req contributeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	goal, err := s.store.ContributeToGoal(r.Context(), r.PathValue("id"), amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"goal": goalView{SavingsGoal: *goal, Progress: goal.ProgressPercent()},
	})
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	s.store.RemoveGoal(r.Context(), r.PathValue("id"))
	writeJSON(w, http.StatusOK, map[string]any{"goals": goalViews(s.store.Goals())})
}
