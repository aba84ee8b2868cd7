package admin

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/taskpago/backend/internal/observability"
)

// ReconcileArgs is enqueued on a periodic schedule; the worker reports wallet
// balances that disagree with the signed ledger. Detection only; drift is
// never auto-repaired.
type ReconcileArgs struct{}

func (ReconcileArgs) Kind() string { return "reconcile_wallets" }

type ReconcileWorker struct {
	river.WorkerDefaults[ReconcileArgs]
	reconciler Reconciler
	log        *slog.Logger
}

func NewReconcileWorker(reconciler Reconciler, log *slog.Logger) *ReconcileWorker {
	if log == nil {
		log = slog.Default()
	}
	return &ReconcileWorker{reconciler: reconciler, log: log}
}

func (w *ReconcileWorker) Work(ctx context.Context, job *river.Job[ReconcileArgs]) error {
	drifts, err := w.reconciler.Reconcile(ctx)
	if err != nil {
		return err
	}
	for _, d := range drifts {
		w.log.Error("wallet drift detected",
			"user_id", d.UserID, "ledger_cents", d.LedgerCents, "balance_cents", d.BalanceCents)
		observability.ReconcileDriftTotal.Inc()
	}
	return nil
}
