package jobs

import (
	"context"
	"time"

	"github.com/riverqueue/river"
)

// RepublishArgs is enqueued on a periodic schedule; the worker re-opens
// lapsed recurring jobs.
type RepublishArgs struct{}

func (RepublishArgs) Kind() string { return "republish_recurring_jobs" }

type RepublishWorker struct {
	river.WorkerDefaults[RepublishArgs]
	svc *Service
}

func NewRepublishWorker(svc *Service) *RepublishWorker {
	return &RepublishWorker{svc: svc}
}

func (w *RepublishWorker) Work(ctx context.Context, job *river.Job[RepublishArgs]) error {
	_, err := w.svc.RepublishExpired(ctx)
	return err
}

// StaleReminderArgs is enqueued on a periodic schedule; the worker nudges
// posters whose reviews are overdue.
type StaleReminderArgs struct {
	MaxAgeHours int `json:"max_age_hours"`
}

func (StaleReminderArgs) Kind() string { return "remind_stale_submissions" }

type StaleReminderWorker struct {
	river.WorkerDefaults[StaleReminderArgs]
	svc *Service
}

func NewStaleReminderWorker(svc *Service) *StaleReminderWorker {
	return &StaleReminderWorker{svc: svc}
}

func (w *StaleReminderWorker) Work(ctx context.Context, job *river.Job[StaleReminderArgs]) error {
	age := time.Duration(job.Args.MaxAgeHours) * time.Hour
	if age <= 0 {
		age = 48 * time.Hour
	}
	_, err := w.svc.RemindStale(ctx, age)
	return err
}
