package ledger

import (
	"context"

	"github.com/monikanaramsetti/spendwise/internal/core"
	applog "github.com/monikanaramsetti/spendwise/internal/log"
)

// LogNotifier is the default Notifier: notices go to the structured log.
// Presentation surfaces install their own implementation to forward notices
// to the user.
type LogNotifier struct {
	logger *applog.Logger
}

func NewLogNotifier(logger *applog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) LowBalance(ctx context.Context, attempted, available core.Money) {
	n.logger.WarnContext(ctx, "Low balance, transaction cancelled",
		"attempted", attempted.String(),
		"available", available.String())
}

func (n *LogNotifier) BudgetExceeded(ctx context.Context, period string, spent, budget core.Money) {
	n.logger.WarnContext(ctx, "Budget exceeded",
		"period", period,
		"spent", spent.String(),
		"budget", budget.String())
}
