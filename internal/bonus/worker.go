package bonus

import (
	"context"

	"github.com/riverqueue/river"
)

// SweepArgs is enqueued on a periodic schedule; the worker expires stale
// bonus balances in one pass.
type SweepArgs struct{}

func (SweepArgs) Kind() string { return "sweep_expired_bonuses" }

type SweepWorker struct {
	river.WorkerDefaults[SweepArgs]
	svc *Service
}

func NewSweepWorker(svc *Service) *SweepWorker {
	return &SweepWorker{svc: svc}
}

func (w *SweepWorker) Work(ctx context.Context, job *river.Job[SweepArgs]) error {
	_, err := w.svc.Sweep(ctx)
	return err
}
