package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpago/backend/internal/models"
)

const applicationColumns = `id, job_id, tester_id, status, proof_submission, feedback,
	rejection_reason, submitted_at, reviewed_at, reviewed_by, created_at, updated_at`

type ApplicationRepo struct {
	pool *pgxpool.Pool
}

func NewApplicationRepo(pool *pgxpool.Pool) *ApplicationRepo {
	return &ApplicationRepo{pool: pool}
}

func scanApplication(row interface{ Scan(dest ...any) error }) (*models.Application, error) {
	var a models.Application
	err := row.Scan(&a.ID, &a.JobID, &a.TesterID, &a.Status, &a.ProofSubmission, &a.Feedback,
		&a.RejectionReason, &a.SubmittedAt, &a.ReviewedAt, &a.ReviewedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ApplicationRepo) Create(ctx context.Context, jobID, testerID uuid.UUID) (*models.Application, error) {
	return scanApplication(r.pool.QueryRow(ctx, `
		INSERT INTO applications (job_id, tester_id, status)
		VALUES ($1, $2, 'applied')
		RETURNING `+applicationColumns, jobID, testerID))
}

func (r *ApplicationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	return scanApplication(r.pool.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id))
}

// MarkSubmitted moves an application to submitted and stores the proof.
// The status guard makes re-submission of a submitted or approved application
// a no-op; callers check the returned flag. Re-submission after rejection
// passes the guard.
func (r *ApplicationRepo) MarkSubmitted(ctx context.Context, tx pgx.Tx, id uuid.UUID, proof json.RawMessage) (bool, error) {
	result, err := tx.Exec(ctx, `
		UPDATE applications SET status = 'submitted', proof_submission = $1,
			rejection_reason = NULL, submitted_at = now(), updated_at = now()
		WHERE id = $2 AND status IN ('applied', 'accepted', 'rejected')
	`, proof, id)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

// MarkReviewed moves an application from fromStatus to toStatus and stamps
// the reviewer. The conditional WHERE is the at-most-once review guard: two
// concurrent reviews serialize on the row and the loser sees zero rows.
func (r *ApplicationRepo) MarkReviewed(ctx context.Context, tx pgx.Tx, id uuid.UUID, fromStatus, toStatus string, reviewerID uuid.UUID, rejectionReason *string) (bool, error) {
	result, err := tx.Exec(ctx, `
		UPDATE applications SET status = $1, reviewed_at = now(), reviewed_by = $2,
			rejection_reason = $3, updated_at = now()
		WHERE id = $4 AND status = $5
	`, toStatus, reviewerID, rejectionReason, id, fromStatus)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

// SetFeedback records the poster's post-approval rating.
func (r *ApplicationRepo) SetFeedback(ctx context.Context, id uuid.UUID, rating int) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE applications SET feedback = $1, updated_at = now()
		WHERE id = $2 AND status = 'approved' AND feedback IS NULL
	`, rating, id)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

func (r *ApplicationRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*models.Application, error) {
	return r.list(ctx, `SELECT `+applicationColumns+` FROM applications WHERE job_id = $1 ORDER BY created_at DESC`, jobID)
}

func (r *ApplicationRepo) ListByTester(ctx context.Context, testerID uuid.UUID) ([]*models.Application, error) {
	return r.list(ctx, `SELECT `+applicationColumns+` FROM applications WHERE tester_id = $1 ORDER BY created_at DESC`, testerID)
}

// ListStaleSubmitted returns submissions awaiting review for longer than age,
// for the reminder sweep.
func (r *ApplicationRepo) ListStaleSubmitted(ctx context.Context, age time.Duration) ([]*models.Application, error) {
	return r.list(ctx, `
		SELECT `+applicationColumns+` FROM applications
		WHERE status = 'submitted' AND submitted_at < now() - $1::interval
		ORDER BY submitted_at ASC
	`, age.String())
}

func (r *ApplicationRepo) list(ctx context.Context, query string, args ...any) ([]*models.Application, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
