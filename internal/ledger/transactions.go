package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/monikanaramsetti/spendwise/internal/core"
	applog "github.com/monikanaramsetti/spendwise/internal/log"
	"github.com/monikanaramsetti/spendwise/internal/storage"
)

// Transactions returns the current collection, most recent first.
func (s *Store) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.transactions...)
}

// Totals derives income, expense and balance over the held transactions.
// Recomputed on every read, never stored.
func (s *Store) Totals() core.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalsOf(s.transactions)
}

func totalsOf(transactions []core.Transaction) core.Totals {
	var t core.Totals
	for _, txn := range transactions {
		if txn.Type == core.Income {
			t.Income = t.Income.Add(txn.Amount)
		} else {
			t.Expense = t.Expense.Add(txn.Amount)
		}
	}
	t.Balance = t.Income.Sub(t.Expense)
	return t
}

// AddTransaction validates the balance invariant, prepends the new
// transaction, applies round-up bookkeeping and budget-threshold checks for
// expenses, and persists. Returns ErrInsufficientBalance when an expense
// exceeds the balance of the existing transactions.
func (s *Store) AddTransaction(ctx context.Context, draft core.TransactionDraft) (*core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addTransactionLocked(ctx, draft)
}

func (s *Store) addTransactionLocked(ctx context.Context, draft core.TransactionDraft) (*core.Transaction, error) {
	if !s.loggedIn {
		return nil, ErrNotAuthenticated
	}

	if draft.Type == core.Expense {
		balance := totalsOf(s.transactions).Balance
		if draft.Amount.GreaterThan(balance) {
			s.notifier.LowBalance(ctx, draft.Amount, balance)
			return nil, ErrInsufficientBalance
		}
	}

	txn := core.Transaction{
		ID:       uuid.NewString(),
		Type:     draft.Type,
		Amount:   draft.Amount,
		Category: draft.Category,
		Date:     draft.Date,
		Notes:    draft.Notes,
	}
	if txn.Date.IsZero() {
		txn.Date = core.Today()
	}

	// Canonical order is most recent first.
	s.transactions = append([]core.Transaction{txn}, s.transactions...)

	if txn.Type == core.Expense {
		s.applyRoundUpLocked(ctx, txn)
		s.checkBudgetsLocked(ctx)
	}

	s.persistLocked(ctx, storage.KeyTransactions, s.transactions)

	s.logger.InfoContext(ctx, "Transaction added", applog.NewFields().
		WithTransaction(txn.ID, string(txn.Type), txn.Category, txn.Amount.Cents).
		WithOperation(applog.OpCreate).
		ToSlice()...)
	return &txn, nil
}

// applyRoundUpLocked credits the spare-change remainder of an expense and
// records it in the capped round-up history. Exactly one record per expense
// with a positive remainder.
func (s *Store) applyRoundUpLocked(ctx context.Context, txn core.Transaction) {
	roundUp := txn.Amount.RoundUp()
	if roundUp.Cents <= 0 {
		return
	}
	s.spareBalance = s.spareBalance.Add(roundUp)
	record := core.RoundUpRecord{
		ID:            "r_" + uuid.NewString(),
		TransactionID: txn.ID,
		Amount:        roundUp,
		Category:      txn.Category,
		Date:          txn.Date,
	}
	s.recentRoundUps = append([]core.RoundUpRecord{record}, s.recentRoundUps...)
	if len(s.recentRoundUps) > core.MaxRecentRoundUps {
		s.recentRoundUps = s.recentRoundUps[:core.MaxRecentRoundUps]
	}
	s.persistSpareLocked(ctx)
	s.persistLocked(ctx, storage.KeyRecentRoundUps, s.recentRoundUps)
}

// checkBudgetsLocked raises informational warnings when today's or this
// month's expense total exceeds the configured budget. It never blocks the
// insertion that triggered it.
func (s *Store) checkBudgetsLocked(ctx context.Context) {
	today := core.Today()
	if s.settings.DailyBudget.Cents > 0 {
		var spent core.Money
		for _, t := range s.transactions {
			if t.Type == core.Expense && t.Date.SameDay(today) {
				spent = spent.Add(t.Amount)
			}
		}
		if spent.GreaterThan(s.settings.DailyBudget) {
			s.notifier.BudgetExceeded(ctx, PeriodDaily, spent, s.settings.DailyBudget)
		}
	}
	if s.settings.MonthlyBudget.Cents > 0 {
		var spent core.Money
		for _, t := range s.transactions {
			if t.Type == core.Expense && t.Date.SameMonth(today) {
				spent = spent.Add(t.Amount)
			}
		}
		if spent.GreaterThan(s.settings.MonthlyBudget) {
			s.notifier.BudgetExceeded(ctx, PeriodMonthly, spent, s.settings.MonthlyBudget)
		}
	}
}

// UpdateTransaction replaces the fields of an existing transaction,
// preserving its ID. The balance invariant is recomputed excluding the
// target. Round-up and budget side effects do not run on update.
func (s *Store) UpdateTransaction(ctx context.Context, id string, draft core.TransactionDraft) (*core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loggedIn {
		return nil, ErrNotAuthenticated
	}

	idx := -1
	for i, t := range s.transactions {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrNotFound
	}

	if draft.Type == core.Expense {
		others := make([]core.Transaction, 0, len(s.transactions)-1)
		others = append(others, s.transactions[:idx]...)
		others = append(others, s.transactions[idx+1:]...)
		balance := totalsOf(others).Balance
		if draft.Amount.GreaterThan(balance) {
			s.notifier.LowBalance(ctx, draft.Amount, balance)
			return nil, ErrInsufficientBalance
		}
	}

	updated := s.transactions[idx]
	updated.Type = draft.Type
	updated.Amount = draft.Amount
	updated.Category = draft.Category
	updated.Notes = draft.Notes
	if !draft.Date.IsZero() {
		updated.Date = draft.Date
	}
	s.transactions[idx] = updated

	s.persistLocked(ctx, storage.KeyTransactions, s.transactions)

	s.logger.InfoContext(ctx, "Transaction updated",
		applog.FieldTxnID, id,
		applog.FieldAmountCents, updated.Amount.Cents)
	return &updated, nil
}

// DeleteTransaction removes a transaction unconditionally. Round-up and
// spare-balance effects previously attributed to it are not reversed.
func (s *Store) DeleteTransaction(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loggedIn {
		return
	}

	kept := s.transactions[:0]
	removed := false
	for _, t := range s.transactions {
		if t.ID == id {
			removed = true
			continue
		}
		kept = append(kept, t)
	}
	s.transactions = kept
	if !removed {
		return
	}

	s.persistLocked(ctx, storage.KeyTransactions, s.transactions)
	s.logger.InfoContext(ctx, "Transaction deleted", applog.FieldTxnID, id)
}

// ClearAllTransactions empties the collection and erases its persisted
// snapshot from both storage tiers. Bills, goals and settings are untouched.
func (s *Store) ClearAllTransactions(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loggedIn {
		return
	}

	s.transactions = nil
	key := storage.UserKey(storage.KeyTransactions, s.identity.UserID)
	for _, tier := range []storage.Tier{s.persistent, s.session} {
		if err := tier.Remove(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "Transaction snapshot erase failed",
				applog.FieldStorageKey, key, applog.FieldError, err)
		}
	}
	s.logger.InfoContext(ctx, "All transactions cleared", applog.FieldUserID, s.identity.UserID)
}
