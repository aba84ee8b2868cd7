package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpago/backend/internal/models"
)

type ReferralRepo struct {
	pool *pgxpool.Pool
}

func NewReferralRepo(pool *pgxpool.Pool) *ReferralRepo {
	return &ReferralRepo{pool: pool}
}

// Create records a pending referral at sign-up time.
func (r *ReferralRepo) Create(ctx context.Context, referrerID, referredID uuid.UUID) (*models.Referral, error) {
	var ref models.Referral
	err := r.pool.QueryRow(ctx, `
		INSERT INTO referrals (referrer_id, referred_id, status)
		VALUES ($1, $2, 'pending')
		RETURNING id, referrer_id, referred_id, status, reward_amount_cents, created_at, completed_at
	`, referrerID, referredID).Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredID, &ref.Status, &ref.RewardAmountCents, &ref.CreatedAt, &ref.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// Complete flips the referred user's referral to completed and stamps the
// reward. The status guard makes at-least-once delivery safe: redelivery
// matches zero rows.
func (r *ReferralRepo) Complete(ctx context.Context, referredID uuid.UUID, rewardCents int64) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE referrals SET status = 'completed', reward_amount_cents = $1, completed_at = now()
		WHERE referred_id = $2 AND status = 'pending'
	`, rewardCents, referredID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

func (r *ReferralRepo) ListByReferrer(ctx context.Context, referrerID uuid.UUID) ([]*models.Referral, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, referrer_id, referred_id, status, reward_amount_cents, created_at, completed_at
		FROM referrals WHERE referrer_id = $1 ORDER BY created_at DESC
	`, referrerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Referral
	for rows.Next() {
		var ref models.Referral
		if err := rows.Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredID, &ref.Status, &ref.RewardAmountCents, &ref.CreatedAt, &ref.CompletedAt); err != nil {
			return nil, err
		}
		list = append(list, &ref)
	}
	return list, rows.Err()
}
