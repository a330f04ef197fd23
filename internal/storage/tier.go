// Package storage provides the two snapshot tiers the ledger persists to:
// a SQLite-backed persistent tier and an in-memory session tier. Which tier
// is active is decided once, at login, by the "remember" choice.
package storage

import (
	"context"
	"fmt"
)

// Base keys for per-user snapshots. Each is namespaced by user before it
// reaches a tier.
const (
	KeyTransactions   = "transactions"
	KeySettings       = "settings"
	KeyBills          = "bills"
	KeyGoals          = "goals"
	KeySpareChange    = "sparechange"
	KeyRecentRoundUps = "recent-roundups"
	KeySaveLogs       = "user-save-logs"
)

// KeyAuthMarker holds the active identity. It is not user-namespaced: it is
// the marker that says which user a tier currently belongs to.
const KeyAuthMarker = "auth"

// UserKey namespaces a base key by user identity.
func UserKey(baseKey, userID string) string {
	return fmt.Sprintf("%s_user_%s", baseKey, userID)
}

// Tier is the uniform get/set/remove contract both tiers expose. A missing
// key is not an error; Get reports it via the found flag.
type Tier interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Close() error
}
