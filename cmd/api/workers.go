package main

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/taskpago/backend/internal/admin"
	"github.com/taskpago/backend/internal/bonus"
	"github.com/taskpago/backend/internal/config"
	"github.com/taskpago/backend/internal/jobs"
	"github.com/taskpago/backend/internal/levels"
	"github.com/taskpago/backend/internal/notify"
	"github.com/taskpago/backend/internal/referral"
	"github.com/taskpago/backend/internal/repository"
)

type riverDeps struct {
	notifySvc   *notify.Service
	mailer      *notify.Mailer
	levelsSvc   *levels.Service
	referralSvc *referral.Service
	bonusSvc    *bonus.Service
	jobsSvc     *jobs.Service
	walletRepo  *repository.WalletRepo
	logger      *slog.Logger
}

// newRiverClient registers every background worker and the periodic
// maintenance schedule. Side effects of financial transactions run here, not
// on the request path.
func newRiverClient(cfg *config.Config, pool *pgxpool.Pool, d riverDeps) (*river.Client[pgx.Tx], error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, notify.NewNotificationWorker(d.notifySvc))
	river.AddWorker(workers, notify.NewEmailWorker(d.mailer, d.logger))
	river.AddWorker(workers, levels.NewAwardXPWorker(d.levelsSvc, d.notifySvc))
	river.AddWorker(workers, referral.NewCompleteRewardWorker(d.referralSvc))
	river.AddWorker(workers, bonus.NewSweepWorker(d.bonusSvc))
	river.AddWorker(workers, jobs.NewRepublishWorker(d.jobsSvc))
	river.AddWorker(workers, jobs.NewStaleReminderWorker(d.jobsSvc))
	river.AddWorker(workers, admin.NewReconcileWorker(d.walletRepo, d.logger))

	staleHours := cfg.StaleReviewHours

	return river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.RiverWorkers},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(time.Hour),
				func() (river.JobArgs, *river.InsertOpts) {
					return bonus.SweepArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
			river.NewPeriodicJob(
				river.PeriodicInterval(time.Hour),
				func() (river.JobArgs, *river.InsertOpts) {
					return jobs.RepublishArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
			river.NewPeriodicJob(
				river.PeriodicInterval(6*time.Hour),
				func() (river.JobArgs, *river.InsertOpts) {
					return jobs.StaleReminderArgs{MaxAgeHours: staleHours}, nil
				},
				nil,
			),
			river.NewPeriodicJob(
				river.PeriodicInterval(24*time.Hour),
				func() (river.JobArgs, *river.InsertOpts) {
					return admin.ReconcileArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
}
