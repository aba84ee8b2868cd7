package notify

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// NotificationWorker persists in-app notifications enqueued by the engine.
// Delivery is at-least-once; a duplicate insert just shows the user the same
// notification twice, which is tolerable and rare.
type NotificationWorker struct {
	river.WorkerDefaults[NotificationArgs]
	svc *Service
}

func NewNotificationWorker(svc *Service) *NotificationWorker {
	return &NotificationWorker{svc: svc}
}

func (w *NotificationWorker) Work(ctx context.Context, job *river.Job[NotificationArgs]) error {
	args := job.Args
	return w.svc.Notify(ctx, args.UserID, args.Type, args.Title, args.Message, args.Metadata)
}

// EmailWorker sends templated emails. Send failures are logged and swallowed
// after river's retry budget; email is never allowed to fail an operation.
type EmailWorker struct {
	river.WorkerDefaults[EmailArgs]
	mailer *Mailer
	log    *slog.Logger
}

func NewEmailWorker(mailer *Mailer, log *slog.Logger) *EmailWorker {
	if log == nil {
		log = slog.Default()
	}
	return &EmailWorker{mailer: mailer, log: log}
}

func (w *EmailWorker) Work(ctx context.Context, job *river.Job[EmailArgs]) error {
	args := job.Args
	if err := w.mailer.SendTemplated(ctx, args.To, args.Template, args.Variables); err != nil {
		w.log.Error("send email", "to", args.To, "template", args.Template, "error", err)
		return err
	}
	return nil
}
