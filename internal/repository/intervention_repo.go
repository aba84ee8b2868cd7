package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpago/backend/internal/models"
)

type InterventionRepo struct {
	pool *pgxpool.Pool
}

func NewInterventionRepo(pool *pgxpool.Pool) *InterventionRepo {
	return &InterventionRepo{pool: pool}
}

// Create writes the audit record. It commits on its own, before the release
// path runs, so the intervention is recorded even if the override then fails.
func (r *InterventionRepo) Create(ctx context.Context, iv *models.AdminIntervention) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO admin_interventions (id, application_id, admin_id, reason, original_reviewer_id, original_rejection_reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, iv.ID, iv.ApplicationID, iv.AdminID, iv.Reason, iv.OriginalReviewerID, iv.OriginalRejectionReason).Scan(&iv.CreatedAt)
}

// ListByApplication returns the intervention history for one application,
// oldest first.
func (r *InterventionRepo) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]*models.AdminIntervention, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, application_id, admin_id, reason, original_reviewer_id, original_rejection_reason, created_at
		FROM admin_interventions WHERE application_id = $1 ORDER BY created_at
	`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.AdminIntervention
	for rows.Next() {
		var iv models.AdminIntervention
		if err := rows.Scan(&iv.ID, &iv.ApplicationID, &iv.AdminID, &iv.Reason, &iv.OriginalReviewerID, &iv.OriginalRejectionReason, &iv.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &iv)
	}
	return list, rows.Err()
}
