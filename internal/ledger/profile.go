package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/monikanaramsetti/spendwise/internal/core"
	applog "github.com/monikanaramsetti/spendwise/internal/log"
	"github.com/monikanaramsetti/spendwise/internal/storage"
)

// ProfileUpdate carries the fields of a profile change. Nil fields are
// untouched.
type ProfileUpdate struct {
	Name  *string
	Email *string
}

// SaveLogs returns the capped audit log of profile persistence attempts,
// most recent first.
func (s *Store) SaveLogs() []core.SaveLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.SaveLog(nil), s.saveLogs...)
}

// ClearSaveLogs empties the audit log.
func (s *Store) ClearSaveLogs(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveLogs = nil
	s.persistLocked(ctx, storage.KeySaveLogs, s.saveLogs)
}

// UpdateUserProfile applies the change locally first, then attempts a
// best-effort remote persistence call. The local update never depends on the
// remote outcome; that outcome only lands in the audit log.
func (s *Store) UpdateUserProfile(ctx context.Context, update ProfileUpdate) SaveOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loggedIn {
		return SaveOutcome{Persisted: false, Message: "no active user"}
	}

	if update.Name != nil {
		s.identity.UserName = *update.Name
	}
	if update.Email != nil {
		s.identity.UserEmail = *update.Email
	}
	s.writeMarker(ctx, s.active, s.identity)
	s.publishSyncLocked(ctx, EntityProfile, s.identity.UserID)

	outcome := s.persistProfileLocked(ctx)
	s.appendSaveLogLocked(ctx, outcome)
	return outcome
}

func (s *Store) persistProfileLocked(ctx context.Context) SaveOutcome {
	if s.profiles == nil {
		return SaveOutcome{Persisted: false, Message: "No server (local-only)"}
	}
	if err := s.profiles.PersistProfile(ctx, s.identity); err != nil {
		s.logger.WarnContext(ctx, "Profile remote persistence failed",
			applog.FieldUserID, s.identity.UserID,
			applog.FieldError, err)
		return SaveOutcome{Persisted: false, Message: err.Error()}
	}
	return SaveOutcome{Persisted: true, Message: "Persisted to server"}
}

func (s *Store) appendSaveLogLocked(ctx context.Context, outcome SaveOutcome) {
	entry := core.SaveLog{
		ID:        "log_" + uuid.NewString(),
		When:      time.Now(),
		Persisted: outcome.Persisted,
		Message:   outcome.Message,
	}
	s.saveLogs = append([]core.SaveLog{entry}, s.saveLogs...)
	if len(s.saveLogs) > core.MaxSaveLogs {
		s.saveLogs = s.saveLogs[:core.MaxSaveLogs]
	}
	s.persistLocked(ctx, storage.KeySaveLogs, s.saveLogs)
}
