// Package ledger implements the per-user financial state store: the only
// code path allowed to mutate transactions, bills, savings goals, settings
// and the spare-change balance. It enforces the balance invariant, applies
// cross-entity side effects (bill payment, round-ups, budget warnings),
// derives aggregate totals and persists JSON snapshots to the storage tier
// selected at login.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/monikanaramsetti/spendwise/internal/core"
	applog "github.com/monikanaramsetti/spendwise/internal/log"
	"github.com/monikanaramsetti/spendwise/internal/storage"
)

var (
	// ErrInsufficientBalance rejects an expense that would drive the balance
	// negative. It is a business rejection, not a failure: no state changes.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNotAuthenticated is returned by mutations invoked with no active user.
	ErrNotAuthenticated = errors.New("no authenticated user")

	// ErrNotFound is returned when an update targets an unknown entity.
	ErrNotFound = errors.New("entity not found")
)

// Notifier receives the non-blocking user-facing notices the store raises.
// Implementations must not fail; the store ignores their outcome.
type Notifier interface {
	LowBalance(ctx context.Context, attempted, available core.Money)
	BudgetExceeded(ctx context.Context, period string, spent, budget core.Money)
}

// Budget periods reported through Notifier.BudgetExceeded.
const (
	PeriodDaily   = "daily"
	PeriodMonthly = "monthly"
)

// ProfileSyncer is the optional remote collaborator for profile persistence.
// The store invokes it best-effort after the local update has already landed.
type ProfileSyncer interface {
	PersistProfile(ctx context.Context, identity core.Identity) error
}

// Publisher emits best-effort entity sync events. A nil Publisher means sync
// is disabled; publish errors are logged and swallowed.
type Publisher interface {
	PublishEntitySync(ctx context.Context, entity, userID, entityID string) error
}

// Entity names carried in sync events.
const (
	EntityGoal    = "goal"
	EntityProfile = "profile"
	EntityReport  = "report"
)

// SaveOutcome describes one profile persistence attempt.
type SaveOutcome struct {
	Persisted bool   `json:"persisted"`
	Message   string `json:"message"`
}

// Store owns the in-memory collections for the active user. All exported
// methods are safe for concurrent use, though the expected execution model
// is one mutation at a time.
type Store struct {
	mu sync.Mutex

	persistent storage.Tier
	session    storage.Tier
	active     storage.Tier // nil while logged out
	remember   bool

	identity core.Identity
	loggedIn bool

	transactions   []core.Transaction
	bills          []core.Bill
	goals          []core.SavingsGoal
	settings       core.Settings
	spareBalance   core.Money
	recentRoundUps []core.RoundUpRecord
	saveLogs       []core.SaveLog

	notifier Notifier
	profiles ProfileSyncer
	events   Publisher
	logger   *applog.Logger
}

// Option configures optional collaborators on a Store.
type Option func(*Store)

func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

func WithProfileSyncer(p ProfileSyncer) Option {
	return func(s *Store) { s.profiles = p }
}

func WithPublisher(p Publisher) Option {
	return func(s *Store) { s.events = p }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New builds a logged-out store over the two tiers. Call Login or Resume
// before mutating.
func New(persistent, session storage.Tier, opts ...Option) *Store {
	s := &Store{
		persistent: persistent,
		session:    session,
		settings:   core.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentLedger)
	}
	if s.notifier == nil {
		s.notifier = NewLogNotifier(s.logger)
	}
	return s
}

// Login switches the active user context. The remember flag selects the
// storage tier for all subsequent reads and writes; every per-user
// collection is reloaded from that tier, fully replacing in-memory state.
func (s *Store) Login(ctx context.Context, identity core.Identity, remember bool) error {
	if identity.UserID == "" {
		return ErrNotAuthenticated
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = identity
	s.remember = remember
	s.loggedIn = true
	if remember {
		s.active = s.persistent
	} else {
		s.active = s.session
	}

	// The marker lives in the chosen tier only; the other tier must not
	// carry stale auth state.
	s.writeMarker(ctx, s.active, identity)
	other := s.session
	if !remember {
		other = s.persistent
	}
	s.removeMarker(ctx, other)

	s.reloadLocked(ctx)

	s.logger.InfoContext(ctx, "User logged in", applog.NewFields().
		WithUser(identity.UserID).
		WithOperation(applog.OpLogin).
		ToSlice()...)
	s.logger.DebugContext(ctx, "Storage tier selected",
		applog.FieldStorageTier, s.tierName())
	return nil
}

// Resume restores the session recorded by the auth markers, preferring the
// persistent tier. It returns false when no marker is present.
func (s *Store) Resume(ctx context.Context) (bool, error) {
	for _, tier := range []struct {
		t        storage.Tier
		remember bool
	}{{s.persistent, true}, {s.session, false}} {
		identity, ok := s.readMarker(ctx, tier.t)
		if !ok {
			continue
		}
		return true, s.Login(ctx, identity, tier.remember)
	}
	return false, nil
}

// Logout resets every collection to its default and removes the auth markers
// from both tiers. Persisted per-user snapshots stay behind for the next
// login of the same user.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID := s.identity.UserID
	s.identity = core.Identity{}
	s.loggedIn = false
	s.active = nil
	s.transactions = nil
	s.bills = nil
	s.goals = nil
	s.settings = core.DefaultSettings()
	s.spareBalance = core.Money{}
	s.recentRoundUps = nil
	s.saveLogs = nil

	s.removeMarker(ctx, s.persistent)
	s.removeMarker(ctx, s.session)

	s.logger.InfoContext(ctx, "User logged out", applog.FieldUserID, userID)
}

// LoggedIn reports whether a user context is active.
func (s *Store) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn
}

// Identity returns the active user identity.
func (s *Store) Identity() core.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// reloadLocked replaces every in-memory collection from the active tier,
// seeding defaults where a snapshot is absent or unreadable.
func (s *Store) reloadLocked(ctx context.Context) {
	s.transactions = loadSnapshot(ctx, s, storage.KeyTransactions, []core.Transaction(nil))
	s.settings = loadSnapshot(ctx, s, storage.KeySettings, core.DefaultSettings())
	s.bills = loadSnapshot(ctx, s, storage.KeyBills, []core.Bill(nil))
	s.goals = loadSnapshot(ctx, s, storage.KeyGoals, []core.SavingsGoal(nil))
	s.recentRoundUps = loadSnapshot(ctx, s, storage.KeyRecentRoundUps, []core.RoundUpRecord(nil))
	s.saveLogs = loadSnapshot(ctx, s, storage.KeySaveLogs, []core.SaveLog(nil))
	s.spareBalance = s.loadSpareLocked(ctx)
}

// loadSnapshot reads and decodes one per-user snapshot. Any storage or
// decode failure degrades to the default value; the store never fails a
// login because persistence is broken.
func loadSnapshot[T any](ctx context.Context, s *Store, baseKey string, def T) T {
	if s.active == nil || s.identity.UserID == "" {
		return def
	}
	key := storage.UserKey(baseKey, s.identity.UserID)
	raw, found, err := s.active.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "Snapshot read failed, using default",
			applog.FieldStorageKey, key, applog.FieldError, err)
		return def
	}
	if !found {
		return def
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		s.logger.WarnContext(ctx, "Snapshot decode failed, using default",
			applog.FieldStorageKey, key, applog.FieldError, err)
		return def
	}
	return out
}

// persistLocked writes one per-user snapshot to the active tier. Failures
// are logged and otherwise ignored: the in-memory state is authoritative.
func (s *Store) persistLocked(ctx context.Context, baseKey string, v any) {
	if s.active == nil || s.identity.UserID == "" {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.WarnContext(ctx, "Snapshot encode failed",
			applog.FieldStorageKey, baseKey, applog.FieldError, err)
		return
	}
	key := storage.UserKey(baseKey, s.identity.UserID)
	if err := s.active.Set(ctx, key, raw); err != nil {
		s.logger.WarnContext(ctx, "Snapshot write failed",
			applog.FieldStorageKey, key, applog.FieldError, err)
	}
}

// The spare balance snapshot is a stringified decimal, not JSON.
func (s *Store) persistSpareLocked(ctx context.Context) {
	if s.active == nil || s.identity.UserID == "" {
		return
	}
	key := storage.UserKey(storage.KeySpareChange, s.identity.UserID)
	if err := s.active.Set(ctx, key, []byte(s.spareBalance.String())); err != nil {
		s.logger.WarnContext(ctx, "Spare balance write failed",
			applog.FieldStorageKey, key, applog.FieldError, err)
	}
}

func (s *Store) loadSpareLocked(ctx context.Context) core.Money {
	if s.active == nil || s.identity.UserID == "" {
		return core.Money{}
	}
	key := storage.UserKey(storage.KeySpareChange, s.identity.UserID)
	raw, found, err := s.active.Get(ctx, key)
	if err != nil || !found {
		return core.Money{}
	}
	cents, err := core.ParseDecimalToCents(string(raw))
	if err != nil {
		// zero or unreadable snapshot, either way the default applies
		return core.Money{}
	}
	return core.Money{Cents: cents}
}

func (s *Store) writeMarker(ctx context.Context, tier storage.Tier, identity core.Identity) {
	raw, err := json.Marshal(identity)
	if err != nil {
		return
	}
	if err := tier.Set(ctx, storage.KeyAuthMarker, raw); err != nil {
		s.logger.WarnContext(ctx, "Auth marker write failed", applog.FieldError, err)
	}
}

func (s *Store) readMarker(ctx context.Context, tier storage.Tier) (core.Identity, bool) {
	raw, found, err := tier.Get(ctx, storage.KeyAuthMarker)
	if err != nil || !found {
		return core.Identity{}, false
	}
	var identity core.Identity
	if err := json.Unmarshal(raw, &identity); err != nil || identity.UserID == "" {
		return core.Identity{}, false
	}
	return identity, true
}

func (s *Store) removeMarker(ctx context.Context, tier storage.Tier) {
	if err := tier.Remove(ctx, storage.KeyAuthMarker); err != nil {
		s.logger.WarnContext(ctx, "Auth marker remove failed", applog.FieldError, err)
	}
}

// publishSyncLocked emits a best-effort sync event. Nil publisher skips.
func (s *Store) publishSyncLocked(ctx context.Context, entity, entityID string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEntitySync(ctx, entity, s.identity.UserID, entityID); err != nil {
		s.logger.WarnContext(ctx, "Sync event publish failed",
			applog.FieldEntity, entity,
			applog.FieldEntityID, entityID,
			applog.FieldError, err)
	}
}

func (s *Store) tierName() string {
	if s.remember {
		return "persistent"
	}
	return "session"
}
