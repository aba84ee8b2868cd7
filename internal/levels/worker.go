package levels

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/taskpago/backend/internal/models"
)

// AwardXPArgs is the river payload for one XP-earning event. The enqueuing
// side inserts it exactly once per event inside the event's transaction.
type AwardXPArgs struct {
	UserID uuid.UUID `json:"user_id"`
	Amount int       `json:"amount"`
	Reason string    `json:"reason"`
}

func (AwardXPArgs) Kind() string { return "award_xp" }

// Notifier lets the worker announce level-ups without importing the
// notification package.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType, title, message string, metadata json.RawMessage) error
}

type AwardXPWorker struct {
	river.WorkerDefaults[AwardXPArgs]
	svc      *Service
	notifier Notifier
}

func NewAwardXPWorker(svc *Service, notifier Notifier) *AwardXPWorker {
	return &AwardXPWorker{svc: svc, notifier: notifier}
}

func (w *AwardXPWorker) Work(ctx context.Context, job *river.Job[AwardXPArgs]) error {
	args := job.Args
	newLevel, leveledUp, err := w.svc.AddXP(ctx, args.UserID, args.Amount, args.Reason)
	if err != nil {
		return err
	}
	if leveledUp && w.notifier != nil {
		_ = w.notifier.Notify(ctx, args.UserID, models.NotifyLevelUp,
			"Level up!", fmt.Sprintf("You reached level %d.", newLevel), nil)
	}
	return nil
}
