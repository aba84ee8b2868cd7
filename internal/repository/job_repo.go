package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpago/backend/internal/models"
)

const jobColumns = `id, poster_id, title, description, type, category, bounty_cents,
	max_applicants, status, recurring, expires_at, created_at, updated_at`

type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

func scanJob(row interface{ Scan(dest ...any) error }) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.PosterID, &j.Title, &j.Description, &j.Type, &j.Category, &j.BountyCents,
		&j.MaxApplicants, &j.Status, &j.Recurring, &j.ExpiresAt, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// CreateTx inserts the job inside the funding transaction.
func (r *JobRepo) CreateTx(ctx context.Context, tx pgx.Tx, j *models.Job) error {
	return tx.QueryRow(ctx, `
		INSERT INTO jobs (poster_id, title, description, type, category, bounty_cents, max_applicants, status, recurring, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'active', $8, $9)
		RETURNING id, created_at, updated_at
	`, j.PosterID, j.Title, j.Description, j.Type, j.Category, j.BountyCents, j.MaxApplicants, j.Recurring, j.ExpiresAt).Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
}

func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return scanJob(r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
}

func (r *JobRepo) ListActive(ctx context.Context) ([]*models.Job, error) {
	return r.list(ctx, `SELECT `+jobColumns+` FROM jobs WHERE status = 'active' ORDER BY created_at DESC`)
}

func (r *JobRepo) ListByPoster(ctx context.Context, posterID uuid.UUID) ([]*models.Job, error) {
	return r.list(ctx, `SELECT `+jobColumns+` FROM jobs WHERE poster_id = $1 ORDER BY created_at DESC`, posterID)
}

// ListExpiredRecurring returns recurring jobs whose window lapsed, for the
// republication sweep.
func (r *JobRepo) ListExpiredRecurring(ctx context.Context) ([]*models.Job, error) {
	return r.list(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE recurring AND status = 'active' AND expires_at IS NOT NULL AND expires_at < now()
	`)
}

// Republish pushes a recurring job's expiry forward by its original window.
func (r *JobRepo) Republish(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE jobs SET expires_at = now() + (expires_at - created_at), updated_at = now()
		WHERE id = $1 AND recurring
	`, id)
	return err
}

func (r *JobRepo) list(ctx context.Context, query string, args ...any) ([]*models.Job, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, j)
	}
	return list, rows.Err()
}
