// Package escrow implements the wallet and escrow lifecycle for one unit of
// work: reservation at proof submission, release on approval, reversal on
// rejection. Every multi-row mutation runs in a single database transaction;
// side effects (notifications, emails, XP, referral bookkeeping) are enqueued
// through river inside the same transaction and delivered only after commit.
package escrow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"github.com/taskpago/backend/internal/levels"
	"github.com/taskpago/backend/internal/models"
	"github.com/taskpago/backend/internal/notify"
	"github.com/taskpago/backend/internal/observability"
	"github.com/taskpago/backend/internal/referral"
)

var (
	// ErrDuplicateSubmission is returned when the application already left
	// the reviewable window (submitted or approved).
	ErrDuplicateSubmission = errors.New("application already submitted or approved")
	// ErrAlreadyReviewed is returned when a review lands on an application
	// that is no longer in the expected state. Callers should refresh.
	ErrAlreadyReviewed = errors.New("application already reviewed")
	// ErrNotSubmissionOwner is returned when a tester submits proof against
	// someone else's application.
	ErrNotSubmissionOwner = errors.New("application belongs to another tester")
	// ErrRejectionReasonRequired is returned before any store access when a
	// rejection carries no reason.
	ErrRejectionReasonRequired = errors.New("rejection reason is required")
	// ErrJobNotActive is returned when submitting against a completed or
	// cancelled job.
	ErrJobNotActive = errors.New("job is not active")
)

// TxBeginner starts database transactions. *pgxpool.Pool and the wallet
// repository both satisfy it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WalletStore is the minimal wallet interface for the engine. All methods run
// inside the caller's transaction; subtractions floor at zero.
type WalletStore interface {
	ReserveEscrow(ctx context.Context, tx pgx.Tx, testerID, posterID uuid.UUID, amountCents int64) error
	ReleaseToAvailable(ctx context.Context, tx pgx.Tx, testerID uuid.UUID, amountCents int64) (completedBefore int, referredBy *uuid.UUID, err error)
	ReduceTesterPending(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) error
	ReducePosterPending(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) error
	CreditAvailable(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) error
}

// LedgerStore appends ledger entries inside the engine's transaction and
// settles the pending escrow entry when a review lands.
type LedgerStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
	SettleEscrowTx(ctx context.Context, tx pgx.Tx, applicationID uuid.UUID, status string) error
}

// ApplicationStore reads applications and performs the guarded status
// transitions that make reviews at-most-once.
type ApplicationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	MarkSubmitted(ctx context.Context, tx pgx.Tx, id uuid.UUID, proof json.RawMessage) (bool, error)
	MarkReviewed(ctx context.Context, tx pgx.Tx, id uuid.UUID, fromStatus, toStatus string, reviewerID uuid.UUID, rejectionReason *string) (bool, error)
}

// JobStore resolves the owning job. Read-only from the engine's perspective.
type JobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

// UserStore resolves users for notification addressing and admin fan-out.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListAdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

// ProofChecker validates proof payloads before any store access.
type ProofChecker interface {
	Validate(jobType string, payload json.RawMessage) error
}

// EnqueueTxFunc inserts a river job within the given transaction. Provided by
// main as a closure over river.Client.InsertTx.
type EnqueueTxFunc func(ctx context.Context, tx pgx.Tx, args river.JobArgs) error

// Engine orchestrates the escrow state transitions.
type Engine struct {
	db      TxBeginner
	wallets WalletStore
	ledger  LedgerStore
	apps    ApplicationStore
	jobs    JobStore
	users   UserStore
	proofs  ProofChecker
	enqueue EnqueueTxFunc
	log     *slog.Logger
}

func NewEngine(db TxBeginner, wallets WalletStore, ledger LedgerStore, apps ApplicationStore, jobs JobStore, users UserStore, proofs ProofChecker, enqueue EnqueueTxFunc, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		db:      db,
		wallets: wallets,
		ledger:  ledger,
		apps:    apps,
		jobs:    jobs,
		users:   users,
		proofs:  proofs,
		enqueue: enqueue,
		log:     log,
	}
}

// SubmitProof stores the proof, moves the application to submitted, and
// places the escrow hold: bounty pending on the tester wallet, mirrored on
// the poster wallet, plus one escrow/pending ledger entry. Re-submission
// after rejection is allowed; after submitted/approved it fails with
// ErrDuplicateSubmission and mutates nothing. For auto-approving job types
// the approval path runs immediately after commit, best-effort.
func (e *Engine) SubmitProof(ctx context.Context, applicationID, testerID uuid.UUID, proof json.RawMessage) error {
	app, err := e.apps.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.TesterID != testerID {
		return ErrNotSubmissionOwner
	}
	job, err := e.jobs.GetByID(ctx, app.JobID)
	if err != nil {
		return err
	}
	if job.Status != models.JobStatusActive {
		return ErrJobNotActive
	}
	if e.proofs != nil {
		if err := e.proofs.Validate(job.Type, proof); err != nil {
			return err
		}
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ok, err := e.apps.MarkSubmitted(ctx, tx, applicationID, proof)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicateSubmission
	}
	if err := e.wallets.ReserveEscrow(ctx, tx, testerID, job.PosterID, job.BountyCents); err != nil {
		return err
	}
	meta := models.TxMetadata{JobID: &job.ID, ApplicationID: &applicationID}
	entry := models.NewTransaction(testerID, models.TxTypeEscrow, job.BountyCents,
		models.TxStatusPending, "Escrow hold for proof submission", meta)
	if err := e.ledger.CreateTx(ctx, tx, entry); err != nil {
		return err
	}

	if err := e.enqueue(ctx, tx, notify.NotificationArgs{
		UserID:  job.PosterID,
		Type:    models.NotifyProofSubmitted,
		Title:   "New proof submitted",
		Message: fmt.Sprintf("A tester submitted proof for %q.", job.Title),
	}); err != nil {
		return err
	}
	if poster, err := e.users.GetByID(ctx, job.PosterID); err == nil {
		if err := e.enqueue(ctx, tx, notify.EmailArgs{
			To:       poster.Email,
			Template: "proof_submitted",
			Variables: map[string]string{
				"job_title": job.Title,
				"bounty":    centsToKZ(job.BountyCents),
			},
		}); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	observability.SubmissionsTotal.Inc()

	if job.AutoApproves() {
		if err := e.Approve(ctx, applicationID, job.PosterID); err != nil {
			e.log.Warn("auto-approve failed, submission left for manual review",
				"application_id", applicationID, "error", err)
		}
	}
	return nil
}

// Approve releases the escrow for a submitted application.
func (e *Engine) Approve(ctx context.Context, applicationID, reviewerID uuid.UUID) error {
	return e.approve(ctx, applicationID, reviewerID, models.AppStatusSubmitted)
}

// ForceApprove runs the same release path against a rejected application.
// Only the admin intervention module calls this, after writing its audit
// record.
func (e *Engine) ForceApprove(ctx context.Context, applicationID, adminID uuid.UUID) error {
	return e.approve(ctx, applicationID, adminID, models.AppStatusRejected)
}

// approve moves bounty from the tester's pending to available balance, pays
// the referral commission on the tester's first completion, clears the poster
// mirror, and appends the payout entry — all in one transaction. The guarded
// status transition makes the release at-most-once: a concurrent duplicate
// observes ErrAlreadyReviewed and no funds move twice.
func (e *Engine) approve(ctx context.Context, applicationID, reviewerID uuid.UUID, fromStatus string) error {
	app, err := e.apps.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}
	job, err := e.jobs.GetByID(ctx, app.JobID)
	if err != nil {
		return err
	}
	tester, err := e.users.GetByID(ctx, app.TesterID)
	if err != nil {
		return err
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ok, err := e.apps.MarkReviewed(ctx, tx, applicationID, fromStatus, models.AppStatusApproved, reviewerID, nil)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyReviewed
	}

	completedBefore, referredBy, err := e.wallets.ReleaseToAvailable(ctx, tx, app.TesterID, job.BountyCents)
	if err != nil {
		return err
	}
	if err := e.ledger.SettleEscrowTx(ctx, tx, applicationID, models.TxStatusCompleted); err != nil {
		return err
	}
	meta := models.TxMetadata{JobID: &job.ID, ApplicationID: &applicationID}

	// Referral commission fires on the first completion only. The decision
	// uses the pre-increment counter read in the same statement that bumped
	// it, so two concurrent approvals cannot both be "the first".
	if referredBy != nil && completedBefore == 0 {
		commission := models.CommissionFor(job.BountyCents)
		if commission > 0 {
			if err := e.wallets.CreditAvailable(ctx, tx, *referredBy, commission); err != nil {
				return err
			}
			reward := models.NewTransaction(*referredBy, models.TxTypeReferralReward, commission,
				models.TxStatusCompleted, "Referral commission for referred tester's first completed task", meta)
			if err := e.ledger.CreateTx(ctx, tx, reward); err != nil {
				return err
			}
			if err := e.enqueue(ctx, tx, referral.CompleteRewardArgs{
				ReferredID:  app.TesterID,
				RewardCents: commission,
			}); err != nil {
				return err
			}
			if err := e.enqueue(ctx, tx, notify.NotificationArgs{
				UserID:  *referredBy,
				Type:    models.NotifyReferralReward,
				Title:   "Referral commission earned",
				Message: fmt.Sprintf("You earned %s KZ because a tester you referred completed their first task.", centsToKZ(commission)),
			}); err != nil {
				return err
			}
			observability.ReferralRewardsTotal.Inc()
		}
	}

	if err := e.wallets.ReducePosterPending(ctx, tx, job.PosterID, job.BountyCents); err != nil {
		return err
	}
	payout := models.NewTransaction(app.TesterID, models.TxTypePayout, job.BountyCents,
		models.TxStatusCompleted, fmt.Sprintf("Payout for approved submission on %q", job.Title), meta)
	if err := e.ledger.CreateTx(ctx, tx, payout); err != nil {
		return err
	}

	if err := e.enqueue(ctx, tx, notify.NotificationArgs{
		UserID:  app.TesterID,
		Type:    models.NotifyProofApproved,
		Title:   "Submission approved",
		Message: fmt.Sprintf("Your proof for %q was approved. %s KZ is now available.", job.Title, centsToKZ(job.BountyCents)),
	}); err != nil {
		return err
	}
	if err := e.enqueue(ctx, tx, notify.EmailArgs{
		To:       tester.Email,
		Template: "proof_approved",
		Variables: map[string]string{
			"job_title": job.Title,
			"bounty":    centsToKZ(job.BountyCents),
		},
	}); err != nil {
		return err
	}
	if err := e.enqueue(ctx, tx, levels.AwardXPArgs{
		UserID: app.TesterID,
		Amount: models.XPPerApproval,
		Reason: "approved submission",
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	observability.ApprovalsTotal.Inc()
	observability.PayoutCentsTotal.Add(float64(job.BountyCents))
	return nil
}

// Reject reverses the escrow hold on a submitted application: both pending
// mirrors shrink by the bounty (floored at zero), no funds move, and the
// escrow ledger entry settles to failed.
func (e *Engine) Reject(ctx context.Context, applicationID, reviewerID uuid.UUID, reason string) error {
	if reason == "" {
		return ErrRejectionReasonRequired
	}
	app, err := e.apps.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}
	job, err := e.jobs.GetByID(ctx, app.JobID)
	if err != nil {
		return err
	}
	var adminIDs []uuid.UUID
	if job.Category == models.JobCategoryCrypto {
		if adminIDs, err = e.users.ListAdminIDs(ctx); err != nil {
			e.log.Error("list admins for fraud alert", "error", err)
		}
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ok, err := e.apps.MarkReviewed(ctx, tx, applicationID, models.AppStatusSubmitted, models.AppStatusRejected, reviewerID, &reason)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyReviewed
	}
	if err := e.wallets.ReduceTesterPending(ctx, tx, app.TesterID, job.BountyCents); err != nil {
		return err
	}
	if err := e.wallets.ReducePosterPending(ctx, tx, job.PosterID, job.BountyCents); err != nil {
		return err
	}
	if err := e.ledger.SettleEscrowTx(ctx, tx, applicationID, models.TxStatusFailed); err != nil {
		return err
	}

	if err := e.enqueue(ctx, tx, notify.NotificationArgs{
		UserID:  app.TesterID,
		Type:    models.NotifyProofRejected,
		Title:   "Submission rejected",
		Message: fmt.Sprintf("Your proof for %q was rejected: %s", job.Title, reason),
	}); err != nil {
		return err
	}
	for _, adminID := range adminIDs {
		if err := e.enqueue(ctx, tx, notify.NotificationArgs{
			UserID:  adminID,
			Type:    models.NotifyFraudAlert,
			Title:   "Rejection in high-risk category",
			Message: fmt.Sprintf("Submission %s on crypto job %q was rejected: %s", applicationID, job.Title, reason),
		}); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	observability.RejectionsTotal.Inc()
	return nil
}

func centsToKZ(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
