package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/monikanaramsetti/spendwise/internal/core"
	applog "github.com/monikanaramsetti/spendwise/internal/log"
	"github.com/monikanaramsetti/spendwise/internal/storage"
)

// GoalDraft is the input for creating a savings goal. Saved is the optional
// initial amount.
type GoalDraft struct {
	Title  string
	Target core.Money
	Saved  core.Money
}

// Goals returns the current collection, most recent first.
func (s *Store) Goals() []core.SavingsGoal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.SavingsGoal(nil), s.goals...)
}

func (s *Store) CreateGoal(ctx context.Context, draft GoalDraft) (*core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loggedIn {
		return nil, ErrNotAuthenticated
	}

	goal := core.SavingsGoal{
		ID:     uuid.NewString(),
		Title:  draft.Title,
		Target: draft.Target,
		Saved:  draft.Saved,
	}
	s.goals = append([]core.SavingsGoal{goal}, s.goals...)
	s.persistLocked(ctx, storage.KeyGoals, s.goals)
	s.publishSyncLocked(ctx, EntityGoal, goal.ID)

	s.logger.InfoContext(ctx, "Goal created",
		applog.FieldEntityID, goal.ID,
		"target_cents", goal.Target.Cents)
	return &goal, nil
}

// ContributeToGoal adds the amount to the goal's saved balance. Contributions
// are monotonic and uncapped: saved may exceed the target; only the display
// progress is capped.
func (s *Store) ContributeToGoal(ctx context.Context, id string, amount core.Money) (*core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loggedIn {
		return nil, ErrNotAuthenticated
	}

	for i, g := range s.goals {
		if g.ID != id {
			continue
		}
		g.Saved = g.Saved.Add(amount)
		s.goals[i] = g
		s.persistLocked(ctx, storage.KeyGoals, s.goals)
		s.publishSyncLocked(ctx, EntityGoal, g.ID)

		s.logger.InfoContext(ctx, "Goal contribution",
			applog.FieldEntityID, id,
			applog.FieldAmountCents, amount.Cents,
			"saved_cents", g.Saved.Cents)
		return &g, nil
	}
	return nil, ErrNotFound
}

func (s *Store) RemoveGoal(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loggedIn {
		return
	}

	kept := s.goals[:0]
	removed := false
	for _, g := range s.goals {
		if g.ID == id {
			removed = true
			continue
		}
		kept = append(kept, g)
	}
	s.goals = kept
	if !removed {
		return
	}
	s.persistLocked(ctx, storage.KeyGoals, s.goals)
	s.publishSyncLocked(ctx, EntityGoal, id)
	s.logger.InfoContext(ctx, "Goal removed", applog.FieldEntityID, id)
}
