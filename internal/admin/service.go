// Package admin implements support interventions: force-approving a rejected
// submission over the poster's decision, and direct balance adjustments. Every
// intervention leaves an immutable audit record.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskpago/backend/internal/models"
)

var (
	// ErrReasonRequired is returned before anything is written when an
	// override carries no reason.
	ErrReasonRequired = errors.New("intervention reason is required")
	// ErrNotRejected is returned when force-approval targets an application
	// that is not currently rejected.
	ErrNotRejected = errors.New("application is not rejected")
)

// Overrider is the escrow engine's force-approval entry point.
type Overrider interface {
	ForceApprove(ctx context.Context, applicationID, adminID uuid.UUID) error
}

// ApplicationReader resolves the application under intervention.
type ApplicationReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
}

// JobReader resolves the owning job for notification text.
type JobReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

// AuditStore persists intervention records.
type AuditStore interface {
	Create(ctx context.Context, iv *models.AdminIntervention) error
}

// WalletStore covers the balance-adjustment path.
type WalletStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	CreditBalance(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) error
}

// LedgerStore appends the adjustment entry inside the same transaction.
type LedgerStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
}

// Notifier sends the override notices after the money has moved.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType, title, message string, metadata json.RawMessage) error
}

type Service struct {
	engine   Overrider
	apps     ApplicationReader
	jobs     JobReader
	audit    AuditStore
	wallets  WalletStore
	ledger   LedgerStore
	notifier Notifier
	log      *slog.Logger
}

func NewService(engine Overrider, apps ApplicationReader, jobs JobReader, audit AuditStore, wallets WalletStore, ledger LedgerStore, notifier Notifier, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		engine:   engine,
		apps:     apps,
		jobs:     jobs,
		audit:    audit,
		wallets:  wallets,
		ledger:   ledger,
		notifier: notifier,
		log:      log,
	}
}

// ForceApprove overrides a poster's rejection. The audit record is written
// before the release runs; the release itself is the same guarded path as a
// regular approval, so a concurrent regular approval cannot double-pay.
func (s *Service) ForceApprove(ctx context.Context, applicationID, adminID uuid.UUID, reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.Status != models.AppStatusRejected {
		return ErrNotRejected
	}
	job, err := s.jobs.GetByID(ctx, app.JobID)
	if err != nil {
		return err
	}

	iv := &models.AdminIntervention{
		ID:                      uuid.New(),
		ApplicationID:           applicationID,
		AdminID:                 adminID,
		Reason:                  reason,
		OriginalReviewerID:      app.ReviewedBy,
		OriginalRejectionReason: app.RejectionReason,
	}
	if err := s.audit.Create(ctx, iv); err != nil {
		return err
	}

	if err := s.engine.ForceApprove(ctx, applicationID, adminID); err != nil {
		s.log.Error("force-approve failed after audit write",
			"application_id", applicationID, "admin_id", adminID, "error", err)
		return err
	}
	s.log.Info("admin override applied",
		"application_id", applicationID, "admin_id", adminID, "job_id", job.ID)

	if s.notifier != nil {
		_ = s.notifier.Notify(ctx, app.TesterID, models.NotifyAdminOverride,
			"Submission approved by support",
			fmt.Sprintf("Support reviewed your rejected proof for %q and approved it. The bounty is now available.", job.Title), nil)
		_ = s.notifier.Notify(ctx, job.PosterID, models.NotifyAdminOverride,
			"Rejection overturned by support",
			fmt.Sprintf("Support overturned your rejection on %q: %s", job.Title, reason), nil)
	}
	return nil
}

// AddBalance credits a poster wallet directly and records the adjustment in
// the ledger, both in one transaction.
func (s *Service) AddBalance(ctx context.Context, adminID, userID uuid.UUID, amountCents int64, note string) error {
	tx, err := s.wallets.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := s.wallets.CreditBalance(ctx, tx, userID, amountCents); err != nil {
		return err
	}
	entry := models.NewTransaction(userID, models.TxTypeAdminDeposit, amountCents,
		models.TxStatusCompleted, note, models.TxMetadata{AdminID: &adminID})
	if err := s.ledger.CreateTx(ctx, tx, entry); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.log.Info("admin balance adjustment", "admin_id", adminID, "user_id", userID, "amount_cents", amountCents)
	if s.notifier != nil {
		_ = s.notifier.Notify(ctx, userID, models.NotifyDepositReceived,
			"Balance adjusted",
			fmt.Sprintf("Support added %d.%02d KZ to your balance.", amountCents/100, amountCents%100), nil)
	}
	return nil
}
