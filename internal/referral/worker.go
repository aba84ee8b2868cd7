package referral

import (
	"context"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// CompleteRewardArgs is enqueued inside the approval transaction when the
// commission is paid; the worker flips the referral record after commit.
type CompleteRewardArgs struct {
	ReferredID  uuid.UUID `json:"referred_id"`
	RewardCents int64     `json:"reward_cents"`
}

func (CompleteRewardArgs) Kind() string { return "complete_referral_reward" }

type CompleteRewardWorker struct {
	river.WorkerDefaults[CompleteRewardArgs]
	svc *Service
}

func NewCompleteRewardWorker(svc *Service) *CompleteRewardWorker {
	return &CompleteRewardWorker{svc: svc}
}

func (w *CompleteRewardWorker) Work(ctx context.Context, job *river.Job[CompleteRewardArgs]) error {
	return w.svc.RecordCompletion(ctx, job.Args.ReferredID, job.Args.RewardCents)
}
