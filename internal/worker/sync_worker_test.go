package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/monikanaramsetti/spendwise/internal/bus"
	"github.com/monikanaramsetti/spendwise/internal/core"
	applog "github.com/monikanaramsetti/spendwise/internal/log"
	"github.com/monikanaramsetti/spendwise/internal/report"
	"github.com/monikanaramsetti/spendwise/internal/storage"
)

type fakeRemote struct {
	goals    []core.SavingsGoal
	profiles []core.Identity
	reports  []report.MonthlySummary
	err      error
}

func (f *fakeRemote) PushGoal(_ context.Context, _ string, goal core.SavingsGoal) error {
	if f.err != nil {
		return f.err
	}
	f.goals = append(f.goals, goal)
	return nil
}

func (f *fakeRemote) PersistProfile(_ context.Context, identity core.Identity) error {
	if f.err != nil {
		return f.err
	}
	f.profiles = append(f.profiles, identity)
	return nil
}

func (f *fakeRemote) PushReport(_ context.Context, _ string, payload any) error {
	if f.err != nil {
		return f.err
	}
	if summary, ok := payload.(report.MonthlySummary); ok {
		f.reports = append(f.reports, summary)
	}
	return nil
}

type fakeExporter struct {
	exported []report.MonthlySummary
	err      error
}

func (f *fakeExporter) ExportMonthlySummary(_ context.Context, _ string, s report.MonthlySummary) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.exported = append(f.exported, s)
	return "Reports!A2:I2", nil
}

func seed(t *testing.T, tier storage.Tier, key string, v any) {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := tier.Set(context.Background(), key, raw); err != nil {
		t.Fatal(err)
	}
}

func newWorker(t *testing.T, remote *fakeRemote, exporter ReportExporter) (*SyncWorker, storage.Tier) {
	t.Helper()
	tier := storage.NewSessionTier()
	logger := applog.New(applog.Config{Level: slog.LevelError})
	return NewSyncWorker(tier, remote, exporter, logger), tier
}

func TestHandleGoalSync(t *testing.T) {
	remote := &fakeRemote{}
	w, tier := newWorker(t, remote, nil)

	goals := []core.SavingsGoal{
		{ID: "g1", Title: "Trip", Target: core.Money{Cents: 100000}, Saved: core.Money{Cents: 2500}},
		{ID: "g2", Title: "Car", Target: core.Money{Cents: 500000}},
	}
	seed(t, tier, storage.UserKey(storage.KeyGoals, "u1"), goals)

	msg := bus.NewSyncMessage("goal", "u1", "g1")
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(remote.goals) != 1 || remote.goals[0].ID != "g1" {
		t.Fatalf("pushed goals = %+v", remote.goals)
	}
}

func TestHandleGoalSyncGoneGoal(t *testing.T) {
	remote := &fakeRemote{}
	w, tier := newWorker(t, remote, nil)
	seed(t, tier, storage.UserKey(storage.KeyGoals, "u1"), []core.SavingsGoal{})

	// A goal deleted between publish and consume is not an error.
	msg := bus.NewSyncMessage("goal", "u1", "gone")
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle should drop a vanished goal, got: %v", err)
	}
	if len(remote.goals) != 0 {
		t.Fatalf("unexpected pushes: %+v", remote.goals)
	}
}

func TestHandleGoalSyncRemoteFailureRequeues(t *testing.T) {
	remote := &fakeRemote{err: errors.New("server down")}
	w, tier := newWorker(t, remote, nil)
	seed(t, tier, storage.UserKey(storage.KeyGoals, "u1"), []core.SavingsGoal{{ID: "g1"}})

	msg := bus.NewSyncMessage("goal", "u1", "g1")
	if err := w.HandleSyncMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error so the delivery is requeued")
	}
}

func TestHandleProfileSync(t *testing.T) {
	remote := &fakeRemote{}
	w, tier := newWorker(t, remote, nil)
	seed(t, tier, storage.KeyAuthMarker, core.Identity{UserID: "u1", UserName: "Alice", UserEmail: "a@example.com"})

	if err := w.HandleSyncMessage(context.Background(), bus.NewSyncMessage("profile", "u1", "u1")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(remote.profiles) != 1 || remote.profiles[0].UserName != "Alice" {
		t.Fatalf("pushed profiles = %+v", remote.profiles)
	}

	// A marker for a different user means the session moved on: skip.
	if err := w.HandleSyncMessage(context.Background(), bus.NewSyncMessage("profile", "u2", "u2")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(remote.profiles) != 1 {
		t.Fatalf("profile pushed for wrong user: %+v", remote.profiles)
	}
}

func TestHandleReportSync(t *testing.T) {
	remote := &fakeRemote{}
	exporter := &fakeExporter{}
	w, tier := newWorker(t, remote, exporter)

	transactions := []core.Transaction{
		{ID: "t1", Type: core.Income, Amount: core.Money{Cents: 100000}, Category: "Salary", Date: core.NewDate(2026, 8, 1)},
		{ID: "t2", Type: core.Expense, Amount: core.Money{Cents: 30000}, Category: "Food", Date: core.NewDate(2026, 8, 5)},
	}
	seed(t, tier, storage.UserKey(storage.KeyTransactions, "u1"), transactions)
	seed(t, tier, storage.UserKey(storage.KeySettings, "u1"), core.Settings{MonthlyBudget: core.Money{Cents: 40000}})

	msg := &bus.SyncMessage{Entity: "report", UserID: "u1", Year: 2026, Month: 8, Timestamp: time.Now()}
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(remote.reports) != 1 {
		t.Fatalf("pushed reports = %d", len(remote.reports))
	}
	summary := remote.reports[0]
	if summary.Income.Cents != 100000 || summary.Expense.Cents != 30000 {
		t.Fatalf("summary totals = %+v", summary)
	}
	if summary.MonthlyBudget == nil || summary.MonthlyBudget.Status != report.StatusGood {
		t.Fatalf("summary budget = %+v", summary.MonthlyBudget)
	}
	if len(exporter.exported) != 1 {
		t.Fatalf("exported reports = %d", len(exporter.exported))
	}
}

func TestReportExportFailureDoesNotRequeue(t *testing.T) {
	remote := &fakeRemote{}
	exporter := &fakeExporter{err: errors.New("quota exceeded")}
	w, tier := newWorker(t, remote, exporter)
	seed(t, tier, storage.UserKey(storage.KeyTransactions, "u1"), []core.Transaction{})

	msg := &bus.SyncMessage{Entity: "report", UserID: "u1", Year: 2026, Month: 8}
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("export failure must not fail the handler: %v", err)
	}
	if len(remote.reports) != 1 {
		t.Fatalf("report not pushed: %d", len(remote.reports))
	}
}

func TestUnknownEntityDropped(t *testing.T) {
	remote := &fakeRemote{}
	w, _ := newWorker(t, remote, nil)

	if err := w.HandleSyncMessage(context.Background(), bus.NewSyncMessage("widget", "u1", "x")); err != nil {
		t.Fatalf("unknown entity must be dropped, got: %v", err)
	}
}

func TestPeriodicReportPass(t *testing.T) {
	remote := &fakeRemote{}
	w, tier := newWorker(t, remote, nil)

	// No marker: nothing happens.
	if err := w.PeriodicReportPass(context.Background()); err != nil {
		t.Fatalf("pass without marker: %v", err)
	}
	if len(remote.reports) != 0 {
		t.Fatalf("report pushed with no remembered user")
	}

	seed(t, tier, storage.KeyAuthMarker, core.Identity{UserID: "u1"})
	today := core.Today()
	seed(t, tier, storage.UserKey(storage.KeyTransactions, "u1"), []core.Transaction{
		{ID: "t1", Type: core.Expense, Amount: core.Money{Cents: 1200}, Category: "Food", Date: today},
	})

	if err := w.PeriodicReportPass(context.Background()); err != nil {
		t.Fatalf("pass: %v", err)
	}
	if len(remote.reports) != 1 || remote.reports[0].Expense.Cents != 1200 {
		t.Fatalf("pushed reports = %+v", remote.reports)
	}
}
