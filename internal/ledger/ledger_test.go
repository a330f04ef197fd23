package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/monikanaramsetti/spendwise/internal/core"
	"github.com/monikanaramsetti/spendwise/internal/storage"
)

type recordedNotice struct {
	kind   string
	period string
}

// recordingNotifier captures notices instead of logging them.
type recordingNotifier struct {
	mu      sync.Mutex
	notices []recordedNotice
}

func (n *recordingNotifier) LowBalance(_ context.Context, _, _ core.Money) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, recordedNotice{kind: "low_balance"})
}

func (n *recordingNotifier) BudgetExceeded(_ context.Context, period string, _, _ core.Money) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, recordedNotice{kind: "budget", period: period})
}

func (n *recordingNotifier) byKind(kind string) []recordedNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []recordedNotice
	for _, notice := range n.notices {
		if notice.kind == kind {
			out = append(out, notice)
		}
	}
	return out
}

type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *fakePublisher) PublishEntitySync(_ context.Context, entity, userID, entityID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, entity+":"+userID)
	return nil
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *recordingNotifier, storage.Tier, storage.Tier) {
	t.Helper()
	notifier := &recordingNotifier{}
	persistent := storage.NewSessionTier()
	session := storage.NewSessionTier()
	opts = append([]Option{WithNotifier(notifier)}, opts...)
	store := New(persistent, session, opts...)
	return store, notifier, persistent, session
}

func login(t *testing.T, s *Store, userID string) {
	t.Helper()
	err := s.Login(context.Background(), core.Identity{
		UserID:    userID,
		UserName:  "Test User",
		UserEmail: userID + "@example.com",
	}, true)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
}

func addIncome(t *testing.T, s *Store, cents int64) {
	t.Helper()
	_, err := s.AddTransaction(context.Background(), core.TransactionDraft{
		Type:     core.Income,
		Amount:   core.Money{Cents: cents},
		Category: "Salary",
	})
	if err != nil {
		t.Fatalf("add income: %v", err)
	}
}

func TestTotalsInvariant(t *testing.T) {
	ctx := context.Background()
	s, _, _, _ := newTestStore(t)
	login(t, s, "u1")

	steps := []struct {
		draft       core.TransactionDraft
		wantBalance int64
	}{
		{core.TransactionDraft{Type: core.Income, Amount: core.Money{Cents: 10000}, Category: "Salary"}, 10000},
		{core.TransactionDraft{Type: core.Expense, Amount: core.Money{Cents: 2500}, Category: "Food"}, 7500},
		{core.TransactionDraft{Type: core.Income, Amount: core.Money{Cents: 500}, Category: "Gift"}, 8000},
		{core.TransactionDraft{Type: core.Expense, Amount: core.Money{Cents: 8000}, Category: "Rent"}, 0},
	}
	for i, step := range steps {
		if _, err := s.AddTransaction(ctx, step.draft); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got := s.Totals().Balance.Cents; got != step.wantBalance {
			t.Fatalf("step %d: balance = %d, want %d", i, got, step.wantBalance)
		}
	}
}

func TestExpenseRejectedOnLowBalance(t *testing.T) {
	ctx := context.Background()
	s, notifier, _, _ := newTestStore(t)
	login(t, s, "u1")
	addIncome(t, s, 10000) // balance 100.00

	txn, err := s.AddTransaction(ctx, core.TransactionDraft{
		Type:     core.Expense,
		Amount:   core.Money{Cents: 15000},
		Category: "Electronics",
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if txn != nil {
		t.Fatalf("expected nil transaction on rejection")
	}
	if got := len(s.Transactions()); got != 1 {
		t.Fatalf("collection length = %d, want 1", got)
	}
	if len(notifier.byKind("low_balance")) != 1 {
		t.Fatalf("expected one low balance notice")
	}

	// Spending exactly the balance is allowed.
	if _, err := s.AddTransaction(ctx, core.TransactionDraft{
		Type:     core.Expense,
		Amount:   core.Money{Cents: 10000},
		Category: "Rent",
	}); err != nil {
		t.Fatalf("exact-balance expense rejected: %v", err)
	}
}

func TestRoundUpBookkeeping(t *testing.T) {
	ctx := context.Background()
	s, _, _, _ := newTestStore(t)
	login(t, s, "u1")
	addIncome(t, s, 100000)

	txn, err := s.AddTransaction(ctx, core.TransactionDraft{
		Type:     core.Expense,
		Amount:   core.Money{Cents: 4735},
		Category: "Food",
	})
	if err != nil {
		t.Fatalf("add expense: %v", err)
	}

	if got := s.SpareBalance().Cents; got != 65 {
		t.Fatalf("spare balance = %d, want 65", got)
	}
	ups := s.RecentRoundUps()
	if len(ups) != 1 {
		t.Fatalf("round-up records = %d, want 1", len(ups))
	}
	if ups[0].Amount.Cents != 65 || ups[0].TransactionID != txn.ID || ups[0].Category != "Food" {
		t.Fatalf("unexpected round-up record: %+v", ups[0])
	}

	// Integral amounts produce no record.
	if _, err := s.AddTransaction(ctx, core.TransactionDraft{
		Type:     core.Expense,
		Amount:   core.Money{Cents: 2000},
		Category: "Transport",
	}); err != nil {
		t.Fatalf("add expense: %v", err)
	}
	if got := len(s.RecentRoundUps()); got != 1 {
		t.Fatalf("round-up records = %d, want 1", got)
	}
	if got := s.SpareBalance().Cents; got != 65 {
		t.Fatalf("spare balance changed: %d", got)
	}
}

func TestRoundUpHistoryCapped(t *testing.T) {
	ctx := context.Background()
	s, _, _, _ := newTestStore(t)
	login(t, s, "u1")
	addIncome(t, s, 1000000)

	for i := 0; i < core.MaxRecentRoundUps+5; i++ {
		if _, err := s.AddTransaction(ctx, core.TransactionDraft{
			Type:     core.Expense,
			Amount:   core.Money{Cents: 150}, // 0.50 round-up each
			Category: "Coffee",
		}); err != nil {
			t.Fatalf("add expense %d: %v", i, err)
		}
	}
	if got := len(s.RecentRoundUps()); got != core.MaxRecentRoundUps {
		t.Fatalf("round-up history = %d, want %d", got, core.MaxRecentRoundUps)
	}
	// the balance still reflects every round-up
	want := int64(core.MaxRecentRoundUps+5) * 50
	if got := s.SpareBalance().Cents; got != want {
		t.Fatalf("spare balance = %d, want %d", got, want)
	}
}

func TestBudgetWarningsDoNotBlock(t *testing.T) {
	ctx := context.Background()
	s, notifier, _, _ := newTestStore(t)
	login(t, s, "u1")
	addIncome(t, s, 100000)

	daily := core.Money{Cents: 1000}
	monthly := core.Money{Cents: 2000}
	s.UpdateSettings(ctx, core.SettingsPatch{DailyBudget: &daily, MonthlyBudget: &monthly})

	if _, err := s.AddTransaction(ctx, core.TransactionDraft{
		Type:     core.Expense,
		Amount:   core.Money{Cents: 2500},
		Category: "Shopping",
	}); err != nil {
		t.Fatalf("insertion blocked by budget: %v", err)
	}

	budgets := notifier.byKind("budget")
	if len(budgets) != 2 {
		t.Fatalf("budget notices = %d, want 2 (daily and monthly)", len(budgets))
	}
	periods := map[string]bool{}
	for _, n := range budgets {
		periods[n.period] = true
	}
	if !periods[PeriodDaily] || !periods[PeriodMonthly] {
		t.Fatalf("unexpected periods: %v", periods)
	}
}

func TestUpdateTransactionExcludesTarget(t *testing.T) {
	ctx := context.Background()
	s, _, _, _ := newTestStore(t)
	login(t, s, "u1")
	addIncome(t, s, 10000)

	txn, err := s.AddTransaction(ctx, core.TransactionDraft{
		Type:     core.Expense,
		Amount:   core.Money{Cents: 8000},
		Category: "Rent",
	})
	if err != nil {
		t.Fatalf("add expense: %v", err)
	}

	// Raising the same expense to the full income must pass: the balance is
	// computed excluding the transaction being edited.
	updated, err := s.UpdateTransaction(ctx, txn.ID, core.TransactionDraft{
		Type:     core.Expense,
		Amount:   core.Money{Cents: 10000},
		Category: "Rent",
	})
	if err != nil {
		t.Fatalf("update rejected: %v", err)
	}
	if updated.ID != txn.ID {
		t.Fatalf("id changed on update: %s -> %s", txn.ID, updated.ID)
	}

	// One cent beyond is rejected with no state change.
	if _, err := s.UpdateTransaction(ctx, txn.ID, core.TransactionDraft{
		Type:     core.Expense,
		Amount:   core.Money{Cents: 10001},
		Category: "Rent",
	}); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if got := s.Totals().Expense.Cents; got != 10000 {
		t.Fatalf("expense total after failed update = %d, want 10000", got)
	}

	if _, err := s.UpdateTransaction(ctx, "missing", core.TransactionDraft{
		Type:     core.Income,
		Amount:   core.Money{Cents: 1},
		Category: "x",
	}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateDoesNotRecomputeRoundUps(t *testing.T) {
	ctx := context.Background()
	s, _, _, _ := newTestStore(t)
	login(t, s, "u1")
	addIncome(t, s, 100000)

	txn, _ := s.AddTransaction(ctx, core.TransactionDraft{
		Type:     core.Expense,
		Amount:   core.Money{Cents: 4735},
		Category: "Food",
	})
	if _, err := s.UpdateTransaction(ctx, txn.ID, core.TransactionDraft{
		Type:     core.Expense,
		Amount:   core.Money{Cents: 1220},
		Category: "Food",
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	// Round-up side effects run on create only.
	if got := s.SpareBalance().Cents; got != 65 {
		t.Fatalf("spare balance = %d, want 65", got)
	}
	if got := len(s.RecentRoundUps()); got != 1 {
		t.Fatalf("round-up records = %d, want 1", got)
	}
}

func TestDeleteDoesNotReverseRoundUp(t *testing.T) {
	ctx := context.Background()
	s, _, _, _ := newTestStore(t)
	login(t, s, "u1")
	addIncome(t, s, 100000)

	txn, _ := s.AddTransaction(ctx, core.TransactionDraft{
		Type:     core.Expense,
		Amount:   core.Money{Cents: 4735},
		Category: "Food",
	})
	s.DeleteTransaction(ctx, txn.ID)

	if got := len(s.Transactions()); got != 1 {
		t.Fatalf("transactions = %d, want 1", got)
	}
	if got := s.SpareBalance().Cents; got != 65 {
		t.Fatalf("spare balance reversed on delete: %d", got)
	}
}

func TestClearAllTransactions(t *testing.T) {
	ctx := context.Background()
	s, _, persistent, session := newTestStore(t)
	login(t, s, "u1")
	addIncome(t, s, 5000)

	s.ClearAllTransactions(ctx)

	if got := len(s.Transactions()); got != 0 {
		t.Fatalf("transactions = %d, want 0", got)
	}
	key := storage.UserKey(storage.KeyTransactions, "u1")
	for name, tier := range map[string]storage.Tier{"persistent": persistent, "session": session} {
		if _, found, _ := tier.Get(ctx, key); found {
			t.Fatalf("%s tier still holds the transaction snapshot", name)
		}
	}

	// Bills, goals and settings survive a clear.
	if _, err := s.AddBill(ctx, BillDraft{Name: "Rent", Amount: core.Money{Cents: 100}, DueDate: core.Today()}); err != nil {
		t.Fatalf("bills unusable after clear: %v", err)
	}
}

func TestBillPaidCreatesExactlyOneExpense(t *testing.T) {
	ctx := context.Background()
	s, _, _, _ := newTestStore(t)
	login(t, s, "u1")
	addIncome(t, s, 100000)

	bill, err := s.AddBill(ctx, BillDraft{
		Name:    "Electricity",
		Amount:  core.Money{Cents: 4300},
		DueDate: core.Today(),
	})
	if err != nil {
		t.Fatalf("add bill: %v", err)
	}

	paid := true
	if _, err := s.UpdateBill(ctx, bill.ID, BillPatch{Paid: &paid}); err != nil {
		t.Fatalf("update bill: %v", err)
	}

	var billExpenses []core.Transaction
	for _, txn := range s.Transactions() {
		if txn.Type == core.Expense && txn.Category == core.BillsCategory {
			billExpenses = append(billExpenses, txn)
		}
	}
	if len(billExpenses) != 1 {
		t.Fatalf("bill expenses = %d, want 1", len(billExpenses))
	}
	if billExpenses[0].Amount.Cents != 4300 {
		t.Fatalf("bill expense amount = %d, want 4300", billExpenses[0].Amount.Cents)
	}

	// A true-to-true update must not re-trigger the side effect.
	if _, err := s.UpdateBill(ctx, bill.ID, BillPatch{Paid: &paid}); err != nil {
		t.Fatalf("second update: %v", err)
	}
	count := 0
	for _, txn := range s.Transactions() {
		if txn.Category == core.BillsCategory {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("bill expenses after re-update = %d, want 1", count)
	}
}

func TestBillPaidSurvivesRejectedExpense(t *testing.T) {
	ctx := context.Background()
	s, notifier, _, _ := newTestStore(t)
	login(t, s, "u1")
	// No income: the generated expense will be rejected for low balance.

	bill, _ := s.AddBill(ctx, BillDraft{
		Name:    "Internet",
		Amount:  core.Money{Cents: 2000},
		DueDate: core.Today(),
	})
	paid := true
	updated, err := s.UpdateBill(ctx, bill.ID, BillPatch{Paid: &paid})
	if err != nil {
		t.Fatalf("update bill: %v", err)
	}
	if !updated.Paid {
		t.Fatalf("bill not marked paid")
	}
	if got := len(s.Transactions()); got != 0 {
		t.Fatalf("transactions = %d, want 0", got)
	}
	if len(notifier.byKind("low_balance")) != 1 {
		t.Fatalf("expected low balance notice")
	}
}

func TestGoalOverContribution(t *testing.T) {
	ctx := context.Background()
	s, _, _, _ := newTestStore(t)
	login(t, s, "u1")

	goal, err := s.CreateGoal(ctx, GoalDraft{
		Title:  "Vacation",
		Target: core.Money{Cents: 10000},
		Saved:  core.Money{Cents: 8000},
	})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	updated, err := s.ContributeToGoal(ctx, goal.ID, core.Money{Cents: 3000})
	if err != nil {
		t.Fatalf("contribute: %v", err)
	}
	if updated.Saved.Cents != 11000 {
		t.Fatalf("saved = %d, want 11000 (no cap)", updated.Saved.Cents)
	}
	if got := updated.ProgressPercent(); got != 100 {
		t.Fatalf("progress = %v, want 100 (display cap)", got)
	}

	if _, err := s.ContributeToGoal(ctx, "missing", core.Money{Cents: 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGoalMutationsPublishSyncEvents(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	s, _, _, _ := newTestStore(t, WithPublisher(pub))
	login(t, s, "u1")

	goal, _ := s.CreateGoal(ctx, GoalDraft{Title: "Car", Target: core.Money{Cents: 100}})
	_, _ = s.ContributeToGoal(ctx, goal.ID, core.Money{Cents: 10})
	s.RemoveGoal(ctx, goal.ID)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 3 {
		t.Fatalf("events = %d, want 3", len(pub.events))
	}
	for _, e := range pub.events {
		if e != "goal:u1" {
			t.Fatalf("unexpected event %q", e)
		}
	}
}

func TestLoginIsolationAndRestore(t *testing.T) {
	s, _, _, _ := newTestStore(t)

	login(t, s, "userA")
	addIncome(t, s, 12345)
	if got := len(s.Transactions()); got != 1 {
		t.Fatalf("userA transactions = %d", got)
	}

	login(t, s, "userB")
	if got := len(s.Transactions()); got != 0 {
		t.Fatalf("userB sees userA's transactions: %d", got)
	}
	addIncome(t, s, 777)

	login(t, s, "userA")
	txns := s.Transactions()
	if len(txns) != 1 || txns[0].Amount.Cents != 12345 {
		t.Fatalf("userA state not restored: %+v", txns)
	}
}

func TestLogoutKeepsSnapshots(t *testing.T) {
	ctx := context.Background()
	s, _, persistent, _ := newTestStore(t)
	login(t, s, "u1")
	addIncome(t, s, 5000)

	s.Logout(ctx)

	if s.LoggedIn() {
		t.Fatalf("still logged in")
	}
	if got := len(s.Transactions()); got != 0 {
		t.Fatalf("transactions after logout = %d", got)
	}
	if _, err := s.AddTransaction(ctx, core.TransactionDraft{
		Type: core.Income, Amount: core.Money{Cents: 1}, Category: "x",
	}); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}

	// Markers are gone from both tiers, snapshots stay.
	if _, found, _ := persistent.Get(ctx, storage.KeyAuthMarker); found {
		t.Fatalf("auth marker survived logout")
	}
	if _, found, _ := persistent.Get(ctx, storage.UserKey(storage.KeyTransactions, "u1")); !found {
		t.Fatalf("snapshot erased on logout")
	}

	login(t, s, "u1")
	if got := s.Totals().Income.Cents; got != 5000 {
		t.Fatalf("state not restored after re-login: %d", got)
	}
}

func TestSessionTierLoginDoesNotTouchPersistent(t *testing.T) {
	ctx := context.Background()
	s, _, persistent, session := newTestStore(t)

	if err := s.Login(ctx, core.Identity{UserID: "u1"}, false); err != nil {
		t.Fatalf("login: %v", err)
	}
	addIncome(t, s, 900)

	key := storage.UserKey(storage.KeyTransactions, "u1")
	if _, found, _ := persistent.Get(ctx, key); found {
		t.Fatalf("session login wrote to the persistent tier")
	}
	if _, found, _ := session.Get(ctx, key); !found {
		t.Fatalf("session tier missing the snapshot")
	}
}

func TestResume(t *testing.T) {
	ctx := context.Background()
	persistent := storage.NewSessionTier()
	session := storage.NewSessionTier()

	first := New(persistent, session, WithNotifier(&recordingNotifier{}))
	login(t, first, "u1")
	addIncome(t, first, 4200)

	// A new store over the same tiers picks the marker up.
	second := New(persistent, session, WithNotifier(&recordingNotifier{}))
	resumed, err := second.Resume(ctx)
	if err != nil || !resumed {
		t.Fatalf("resume: resumed=%v err=%v", resumed, err)
	}
	if got := second.Identity().UserID; got != "u1" {
		t.Fatalf("resumed identity = %q", got)
	}
	if got := second.Totals().Income.Cents; got != 4200 {
		t.Fatalf("resumed totals = %d", got)
	}

	// No marker anywhere: nothing to resume.
	second.Logout(ctx)
	third := New(persistent, session, WithNotifier(&recordingNotifier{}))
	if resumed, _ := third.Resume(ctx); resumed {
		t.Fatalf("resumed with no marker")
	}
}

func TestSpareChangeHelpers(t *testing.T) {
	ctx := context.Background()
	s, _, _, _ := newTestStore(t)
	login(t, s, "u1")
	addIncome(t, s, 100000)
	_, _ = s.AddTransaction(ctx, core.TransactionDraft{
		Type: core.Expense, Amount: core.Money{Cents: 4735}, Category: "Food",
	})

	if got := s.ComputeSpareFromAll().Cents; got != 65 {
		t.Fatalf("ComputeSpareFromAll = %d, want 65", got)
	}

	s.TransferSpareToBalance(ctx, core.Money{Cents: 100})
	if got := s.SpareBalance().Cents; got != 165 {
		t.Fatalf("spare after transfer = %d, want 165", got)
	}

	s.ResetSpareBalance(ctx)
	if got := s.SpareBalance().Cents; got != 0 {
		t.Fatalf("spare after reset = %d", got)
	}
	// history is not part of the reset
	if got := len(s.RecentRoundUps()); got != 1 {
		t.Fatalf("round-up history = %d, want 1", got)
	}
}
