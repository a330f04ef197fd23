package ledger

import (
	"context"

	"github.com/monikanaramsetti/spendwise/internal/core"
	applog "github.com/monikanaramsetti/spendwise/internal/log"
	"github.com/monikanaramsetti/spendwise/internal/storage"
)

// Settings returns the active user's settings.
func (s *Store) Settings() core.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings shallow-merges the patch. The result is immediately
// observable by budget checks and formatting on the next read.
func (s *Store) UpdateSettings(ctx context.Context, patch core.SettingsPatch) core.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = patch.Apply(s.settings)
	s.persistLocked(ctx, storage.KeySettings, s.settings)
	s.logger.InfoContext(ctx, "Settings updated", applog.FieldOperation, applog.OpUpdate)
	return s.settings
}

// SpareBalance returns the accumulated spare-change balance.
func (s *Store) SpareBalance() core.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spareBalance
}

// RecentRoundUps returns the capped round-up history, most recent first.
func (s *Store) RecentRoundUps() []core.RoundUpRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.RoundUpRecord(nil), s.recentRoundUps...)
}

// ComputeRoundUp returns the spare-change remainder a transaction would
// produce. Income transactions never produce one.
func ComputeRoundUp(t core.Transaction) core.Money {
	if t.Type != core.Expense {
		return core.Money{}
	}
	return t.Amount.RoundUp()
}

// ComputeSpareFromAll sums the round-up remainders over every held
// transaction. Unlike the running balance, this ignores deletions.
func (s *Store) ComputeSpareFromAll() core.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total core.Money
	for _, t := range s.transactions {
		total = total.Add(ComputeRoundUp(t))
	}
	return total
}

// TransferSpareToBalance credits an arbitrary amount to the spare balance.
func (s *Store) TransferSpareToBalance(ctx context.Context, amount core.Money) core.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spareBalance = s.spareBalance.Add(amount)
	s.persistSpareLocked(ctx)
	return s.spareBalance
}

// ResetSpareBalance zeroes the spare balance. The round-up history stays.
func (s *Store) ResetSpareBalance(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spareBalance = core.Money{}
	s.persistSpareLocked(ctx)
}
