package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/monikanaramsetti/spendwise/internal/core"
	applog "github.com/monikanaramsetti/spendwise/internal/log"
	"github.com/monikanaramsetti/spendwise/internal/storage"
)

// BillDraft is the input for creating a bill.
type BillDraft struct {
	Name    string
	Amount  core.Money
	DueDate core.Date
}

// BillPatch carries the fields of a bill update. Nil fields are untouched.
type BillPatch struct {
	Name    *string
	Amount  *core.Money
	DueDate *core.Date
	Paid    *bool
}

// Bills returns the current collection, most recent first.
func (s *Store) Bills() []core.Bill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Bill(nil), s.bills...)
}

func (s *Store) AddBill(ctx context.Context, draft BillDraft) (*core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loggedIn {
		return nil, ErrNotAuthenticated
	}

	bill := core.Bill{
		ID:      uuid.NewString(),
		Name:    draft.Name,
		Amount:  draft.Amount,
		DueDate: draft.DueDate,
	}
	s.bills = append([]core.Bill{bill}, s.bills...)
	s.persistLocked(ctx, storage.KeyBills, s.bills)

	s.logger.InfoContext(ctx, "Bill added",
		applog.FieldEntityID, bill.ID,
		applog.FieldAmountCents, bill.Amount.Cents)
	return &bill, nil
}

// UpdateBill applies the patch. Transitioning paid from false to true creates
// exactly one expense transaction (category "Bills", amount = bill amount,
// dated today); a true-to-true update does not re-trigger it. The bill update
// itself goes through even when that expense is rejected for low balance.
func (s *Store) UpdateBill(ctx context.Context, id string, patch BillPatch) (*core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loggedIn {
		return nil, ErrNotAuthenticated
	}

	idx := -1
	for i, b := range s.bills {
		if b.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrNotFound
	}

	bill := s.bills[idx]
	if patch.Paid != nil && *patch.Paid && !bill.Paid {
		_, err := s.addTransactionLocked(ctx, core.TransactionDraft{
			Type:     core.Expense,
			Category: core.BillsCategory,
			Amount:   bill.Amount,
			Notes:    "Bill payment: " + bill.Name,
			Date:     core.Today(),
		})
		if err != nil && !errors.Is(err, ErrInsufficientBalance) {
			return nil, err
		}
	}

	if patch.Name != nil {
		bill.Name = *patch.Name
	}
	if patch.Amount != nil {
		bill.Amount = *patch.Amount
	}
	if patch.DueDate != nil {
		bill.DueDate = *patch.DueDate
	}
	if patch.Paid != nil {
		bill.Paid = *patch.Paid
	}
	s.bills[idx] = bill
	s.persistLocked(ctx, storage.KeyBills, s.bills)

	s.logger.InfoContext(ctx, "Bill updated", applog.FieldEntityID, id, "paid", bill.Paid)
	return &bill, nil
}

func (s *Store) RemoveBill(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loggedIn {
		return
	}

	kept := s.bills[:0]
	removed := false
	for _, b := range s.bills {
		if b.ID == id {
			removed = true
			continue
		}
		kept = append(kept, b)
	}
	s.bills = kept
	if !removed {
		return
	}
	s.persistLocked(ctx, storage.KeyBills, s.bills)
	s.logger.InfoContext(ctx, "Bill removed", applog.FieldEntityID, id)
}
