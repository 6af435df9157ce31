package fleet

import (
	"context"

	"myfleet/internal/pnl"
)

// Overview computes the dashboard stats from the cached vehicles.
func (w *Workspace) Overview(ctx context.Context) (pnl.Stats, error) {
	var out pnl.Stats
	err := w.read("overview", func() error {
		if err := w.vehicles.ensure(ctx); err != nil {
			return err
		}
		out = pnl.Overview(w.vehicles.items)
		return nil
	})
	return out, err
}

// ProfitLoss aggregates the owner's ledger over the period ending today.
func (w *Workspace) ProfitLoss(ctx context.Context, period pnl.Period) (pnl.Summary, error) {
	var out pnl.Summary
	err := w.read("profit and loss", func() error {
		if err := w.vehicles.ensure(ctx); err != nil {
			return err
		}
		if err := w.transactions.ensure(ctx); err != nil {
			return err
		}
		ledgers := pnl.LedgersFromTransactions(w.vehicles.items, w.transactions.items)
		out = pnl.ProfitLoss(ledgers, period, w.reg.now())
		return nil
	})
	return out, err
}
