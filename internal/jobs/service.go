// Package jobs owns the job board: posting (which funds the full escrow pool
// up front), applying, rating, and the recurring/stale maintenance sweeps.
// Review-time money movement lives in the escrow engine, not here.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taskpago/backend/internal/models"
)

var (
	// ErrInvalidJob is returned for job input that fails validation.
	ErrInvalidJob = errors.New("invalid job")
	// ErrAlreadyApplied is returned when a tester applies to the same job
	// twice.
	ErrAlreadyApplied = errors.New("already applied to this job")
	// ErrJobNotActive is returned when applying to a completed or cancelled
	// job.
	ErrJobNotActive = errors.New("job is not active")
	// ErrInvalidRating is returned for ratings outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	// ErrAlreadyRated is returned when an approved submission already has
	// feedback, or is not approved yet.
	ErrAlreadyRated = errors.New("application cannot be rated")
	// ErrNotJobOwner is returned when someone other than the poster rates.
	ErrNotJobOwner = errors.New("job belongs to another poster")
)

// CreateJobInput is the validated poster request.
type CreateJobInput struct {
	Title         string
	Description   string
	Type          string
	Category      string
	BountyCents   int64
	MaxApplicants int
	Recurring     bool
	ExpiresAt     *time.Time
}

// WalletStore covers the funding debit.
type WalletStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	SpendWithBonus(ctx context.Context, tx pgx.Tx, userID uuid.UUID, costCents int64, now time.Time) (bonusUsed, cashUsed int64, err error)
}

// LedgerStore appends the funding entry inside the posting transaction.
type LedgerStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
}

// JobStore is the job persistence the service needs.
type JobStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, j *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListActive(ctx context.Context) ([]*models.Job, error)
	ListByPoster(ctx context.Context, posterID uuid.UUID) ([]*models.Job, error)
	ListExpiredRecurring(ctx context.Context) ([]*models.Job, error)
	Republish(ctx context.Context, id uuid.UUID) error
}

// ApplicationStore is the application persistence the service needs.
type ApplicationStore interface {
	Create(ctx context.Context, jobID, testerID uuid.UUID) (*models.Application, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	SetFeedback(ctx context.Context, id uuid.UUID, rating int) (bool, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]*models.Application, error)
	ListByTester(ctx context.Context, testerID uuid.UUID) ([]*models.Application, error)
	ListStaleSubmitted(ctx context.Context, age time.Duration) ([]*models.Application, error)
}

// XPAwarder credits rating XP to the tester.
type XPAwarder interface {
	AddXP(ctx context.Context, userID uuid.UUID, amount int, reason string) (newLevel int, leveledUp bool, err error)
}

// Notifier delivers stale-review reminders.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType, title, message string, metadata json.RawMessage) error
}

type Service struct {
	wallets  WalletStore
	ledger   LedgerStore
	jobs     JobStore
	apps     ApplicationStore
	xp       XPAwarder
	notifier Notifier
	log      *slog.Logger
}

func NewService(wallets WalletStore, ledger LedgerStore, jobs JobStore, apps ApplicationStore, xp XPAwarder, notifier Notifier, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{wallets: wallets, ledger: ledger, jobs: jobs, apps: apps, xp: xp, notifier: notifier, log: log}
}

func validJobType(t string) bool {
	return t == models.JobTypeManual || t == models.JobTypeWatch || t == models.JobTypeVisit
}

// Create validates and funds a new job. The poster pays bounty times
// max_applicants up front, bonus before cash; the debit, the job row, and the
// funding ledger entry commit together.
func (s *Service) Create(ctx context.Context, posterID uuid.UUID, in CreateJobInput) (*models.Job, error) {
	if in.Title == "" || in.BountyCents <= 0 || in.MaxApplicants < 1 || !validJobType(in.Type) {
		return nil, ErrInvalidJob
	}
	cost := in.BountyCents * int64(in.MaxApplicants)

	tx, err := s.wallets.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	bonusUsed, cashUsed, err := s.wallets.SpendWithBonus(ctx, tx, posterID, cost, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	job := &models.Job{
		PosterID:      posterID,
		Title:         in.Title,
		Description:   in.Description,
		Type:          in.Type,
		Category:      in.Category,
		BountyCents:   in.BountyCents,
		MaxApplicants: in.MaxApplicants,
		Status:        models.JobStatusActive,
		Recurring:     in.Recurring,
		ExpiresAt:     in.ExpiresAt,
	}
	if err := s.jobs.CreateTx(ctx, tx, job); err != nil {
		return nil, err
	}
	entry := models.NewTransaction(posterID, models.TxTypeEscrow, cost, models.TxStatusCompleted,
		fmt.Sprintf("Funding for %q (%d slots)", in.Title, in.MaxApplicants),
		models.TxMetadata{JobID: &job.ID})
	if err := s.ledger.CreateTx(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.log.Info("job created", "job_id", job.ID, "poster_id", posterID,
		"cost_cents", cost, "bonus_used_cents", bonusUsed, "cash_used_cents", cashUsed)
	return job, nil
}

// Apply creates the tester's application. The unique (job, tester) index is
// the double-application guard.
func (s *Service) Apply(ctx context.Context, jobID, testerID uuid.UUID) (*models.Application, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusActive {
		return nil, ErrJobNotActive
	}
	app, err := s.apps.Create(ctx, jobID, testerID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyApplied
		}
		return nil, err
	}
	return app, nil
}

// Rate records the poster's 1..5 feedback on an approved submission and
// awards the tester rating XP. Each application can be rated once.
func (s *Service) Rate(ctx context.Context, applicationID, posterID uuid.UUID, rating int) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}
	job, err := s.jobs.GetByID(ctx, app.JobID)
	if err != nil {
		return err
	}
	if job.PosterID != posterID {
		return ErrNotJobOwner
	}
	ok, err := s.apps.SetFeedback(ctx, applicationID, rating)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyRated
	}
	if s.xp != nil {
		if _, _, err := s.xp.AddXP(ctx, app.TesterID, models.XPPerRating, "rated submission"); err != nil {
			s.log.Error("award rating xp", "application_id", applicationID, "error", err)
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return s.jobs.GetByID(ctx, id)
}

func (s *Service) ListActive(ctx context.Context) ([]*models.Job, error) {
	return s.jobs.ListActive(ctx)
}

func (s *Service) ListByPoster(ctx context.Context, posterID uuid.UUID) ([]*models.Job, error) {
	return s.jobs.ListByPoster(ctx, posterID)
}

func (s *Service) ListApplicationsByJob(ctx context.Context, jobID uuid.UUID) ([]*models.Application, error) {
	return s.apps.ListByJob(ctx, jobID)
}

func (s *Service) ListApplicationsByTester(ctx context.Context, testerID uuid.UUID) ([]*models.Application, error) {
	return s.apps.ListByTester(ctx, testerID)
}

// RepublishExpired pushes every lapsed recurring job's window forward.
// Returns how many were republished.
func (s *Service) RepublishExpired(ctx context.Context) (int, error) {
	expired, err := s.jobs.ListExpiredRecurring(ctx)
	if err != nil {
		return 0, err
	}
	republished := 0
	for _, job := range expired {
		if err := s.jobs.Republish(ctx, job.ID); err != nil {
			s.log.Error("republish job", "job_id", job.ID, "error", err)
			continue
		}
		republished++
	}
	if republished > 0 {
		s.log.Info("recurring jobs republished", "count", republished)
	}
	return republished, nil
}

// RemindStale nudges posters about submissions that sat unreviewed longer
// than age.
func (s *Service) RemindStale(ctx context.Context, age time.Duration) (int, error) {
	stale, err := s.apps.ListStaleSubmitted(ctx, age)
	if err != nil {
		return 0, err
	}
	reminded := 0
	for _, app := range stale {
		job, err := s.jobs.GetByID(ctx, app.JobID)
		if err != nil {
			s.log.Error("resolve job for stale reminder", "application_id", app.ID, "error", err)
			continue
		}
		if s.notifier != nil {
			if err := s.notifier.Notify(ctx, job.PosterID, models.NotifyStaleSubmission,
				"Submission awaiting review",
				fmt.Sprintf("A proof on %q has been waiting for review since %s. The bounty stays locked until you decide.",
					job.Title, app.SubmittedAt.Format(time.RFC1123)), nil); err != nil {
				continue
			}
		}
		reminded++
	}
	return reminded, nil
}
