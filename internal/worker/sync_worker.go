// Package worker reconciles locally persisted state with the remote
// collaborator. It consumes sync messages from the bus, reads the referenced
// snapshot from the persistent tier and pushes it out; a periodic pass
// rebuilds the current month's report as a backstop for lost messages.
// The worker only ever reads the persistent tier.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/monikanaramsetti/spendwise/internal/bus"
	"github.com/monikanaramsetti/spendwise/internal/core"
	"github.com/monikanaramsetti/spendwise/internal/ledger"
	applog "github.com/monikanaramsetti/spendwise/internal/log"
	"github.com/monikanaramsetti/spendwise/internal/report"
	"github.com/monikanaramsetti/spendwise/internal/storage"
)

// RemotePusher is the slice of the remote client the worker needs.
type RemotePusher interface {
	PushGoal(ctx context.Context, userID string, goal core.SavingsGoal) error
	PersistProfile(ctx context.Context, identity core.Identity) error
	PushReport(ctx context.Context, userID string, payload any) error
}

// ReportExporter appends a built report to an external sheet. Optional.
type ReportExporter interface {
	ExportMonthlySummary(ctx context.Context, userID string, summary report.MonthlySummary) (string, error)
}

// Consumer delivers bus messages to a handler until the context is done.
type Consumer interface {
	ConsumeSyncLoop(ctx context.Context, handler func(*bus.SyncMessage) error) error
}

type SyncWorker struct {
	tier     storage.Tier
	remote   RemotePusher
	exporter ReportExporter // nil when export is not configured
	logger   *applog.Logger
}

func NewSyncWorker(tier storage.Tier, remote RemotePusher, exporter ReportExporter, logger *applog.Logger) *SyncWorker {
	return &SyncWorker{
		tier:     tier,
		remote:   remote,
		exporter: exporter,
		logger:   logger.WithComponent(applog.ComponentWorker),
	}
}

// Run drives the worker: one goroutine consumes the bus, another rebuilds the
// current month's report on a timer. Returns when the context is cancelled or
// the consumer fails hard.
func (w *SyncWorker) Run(ctx context.Context, consumer Consumer, reportInterval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.ConsumeSyncLoop(ctx, func(msg *bus.SyncMessage) error {
			return w.HandleSyncMessage(ctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(reportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.PeriodicReportPass(ctx); err != nil {
					w.logger.WarnContext(ctx, "Periodic report pass failed", applog.FieldError, err)
				}
			}
		}
	})

	return g.Wait()
}

// HandleSyncMessage reconciles one entity. An error requeues the delivery, so
// anything permanently unprocessable must return nil after logging.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *bus.SyncMessage) error {
	w.logger.InfoContext(ctx, "Processing sync message",
		applog.FieldEntity, msg.Entity,
		applog.FieldUserID, msg.UserID,
		applog.FieldEntityID, msg.EntityID)

	switch msg.Entity {
	case ledger.EntityGoal:
		return w.syncGoal(ctx, msg.UserID, msg.EntityID)
	case ledger.EntityProfile:
		return w.syncProfile(ctx, msg.UserID)
	case ledger.EntityReport:
		return w.syncReport(ctx, msg.UserID, msg.Year, time.Month(msg.Month))
	default:
		w.logger.WarnContext(ctx, "Unknown sync entity, dropping",
			applog.FieldEntity, msg.Entity)
		return nil
	}
}

func (w *SyncWorker) syncGoal(ctx context.Context, userID, goalID string) error {
	goals, found, err := readSnapshot[[]core.SavingsGoal](ctx, w.tier, storage.UserKey(storage.KeyGoals, userID))
	if err != nil {
		return fmt.Errorf("read goals snapshot: %w", err)
	}
	if !found {
		w.logger.InfoContext(ctx, "No goals snapshot, nothing to push",
			applog.FieldUserID, userID)
		return nil
	}
	for _, goal := range goals {
		if goal.ID != goalID {
			continue
		}
		if err := w.remote.PushGoal(ctx, userID, goal); err != nil {
			return fmt.Errorf("push goal: %w", err)
		}
		w.logger.InfoContext(ctx, "Goal pushed",
			applog.FieldUserID, userID,
			applog.FieldEntityID, goalID)
		return nil
	}
	// The goal was removed locally after the message was published. Remote
	// deletion is not supported; the next full sync reconciles it.
	w.logger.InfoContext(ctx, "Goal gone from snapshot, skipping",
		applog.FieldUserID, userID,
		applog.FieldEntityID, goalID)
	return nil
}

func (w *SyncWorker) syncProfile(ctx context.Context, userID string) error {
	identity, ok := w.markerIdentity(ctx)
	if !ok || identity.UserID != userID {
		w.logger.InfoContext(ctx, "No matching auth marker, skipping profile push",
			applog.FieldUserID, userID)
		return nil
	}
	if err := w.remote.PersistProfile(ctx, identity); err != nil {
		return fmt.Errorf("persist profile: %w", err)
	}
	w.logger.InfoContext(ctx, "Profile pushed", applog.FieldUserID, userID)
	return nil
}

func (w *SyncWorker) syncReport(ctx context.Context, userID string, year int, month time.Month) error {
	summary, err := w.buildReport(ctx, userID, year, month)
	if err != nil {
		return err
	}
	if err := w.remote.PushReport(ctx, userID, summary); err != nil {
		return fmt.Errorf("push report: %w", err)
	}

	if w.exporter != nil {
		ref, err := w.exporter.ExportMonthlySummary(ctx, userID, summary)
		if err != nil {
			// The remote push already succeeded; export failures are not
			// worth a requeue cycle.
			w.logger.WarnContext(ctx, "Report export failed",
				applog.FieldUserID, userID,
				applog.FieldError, err)
		} else {
			w.logger.InfoContext(ctx, "Report exported",
				applog.FieldUserID, userID, "sheets_ref", ref)
		}
	}

	w.logger.InfoContext(ctx, "Report pushed",
		applog.FieldUserID, userID,
		applog.FieldYear, year,
		applog.FieldMonth, int(month))
	return nil
}

// PeriodicReportPass rebuilds and pushes the current month's report for the
// remembered user. A backstop for dropped report messages.
func (w *SyncWorker) PeriodicReportPass(ctx context.Context) error {
	identity, ok := w.markerIdentity(ctx)
	if !ok {
		return nil
	}
	now := time.Now()
	return w.syncReport(ctx, identity.UserID, now.Year(), now.Month())
}

func (w *SyncWorker) buildReport(ctx context.Context, userID string, year int, month time.Month) (report.MonthlySummary, error) {
	transactions, _, err := readSnapshot[[]core.Transaction](ctx, w.tier, storage.UserKey(storage.KeyTransactions, userID))
	if err != nil {
		return report.MonthlySummary{}, fmt.Errorf("read transactions snapshot: %w", err)
	}
	settings, found, err := readSnapshot[core.Settings](ctx, w.tier, storage.UserKey(storage.KeySettings, userID))
	if err != nil {
		return report.MonthlySummary{}, fmt.Errorf("read settings snapshot: %w", err)
	}
	if !found {
		settings = core.DefaultSettings()
	}
	return report.BuildMonthlySummary(transactions, settings, year, month), nil
}

func (w *SyncWorker) markerIdentity(ctx context.Context) (core.Identity, bool) {
	raw, found, err := w.tier.Get(ctx, storage.KeyAuthMarker)
	if err != nil || !found {
		return core.Identity{}, false
	}
	var identity core.Identity
	if err := json.Unmarshal(raw, &identity); err != nil || identity.UserID == "" {
		return core.Identity{}, false
	}
	return identity, true
}

func readSnapshot[T any](ctx context.Context, tier storage.Tier, key string) (T, bool, error) {
	var out T
	raw, found, err := tier.Get(ctx, key)
	if err != nil || !found {
		return out, false, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return out, true, nil
}
