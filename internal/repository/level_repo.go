package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpago/backend/internal/models"
)

type LevelRepo struct {
	pool *pgxpool.Pool
}

func NewLevelRepo(pool *pgxpool.Pool) *LevelRepo {
	return &LevelRepo{pool: pool}
}

// AddXP atomically accumulates points and returns the new total. The upsert
// makes the first award create the row.
func (r *LevelRepo) AddXP(ctx context.Context, userID uuid.UUID, amount int) (newXP int, err error) {
	err = r.pool.QueryRow(ctx, `
		INSERT INTO user_levels (user_id, xp, level) VALUES ($1, $2, 1)
		ON CONFLICT (user_id) DO UPDATE SET xp = user_levels.xp + $2, updated_at = now()
		RETURNING xp
	`, userID, amount).Scan(&newXP)
	return newXP, err
}

// SetLevel stores the recomputed level for a user.
func (r *LevelRepo) SetLevel(ctx context.Context, userID uuid.UUID, level int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE user_levels SET level = $1, updated_at = now() WHERE user_id = $2
	`, level, userID)
	return err
}

func (r *LevelRepo) Get(ctx context.Context, userID uuid.UUID) (*models.UserLevel, error) {
	var l models.UserLevel
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, xp, level, updated_at FROM user_levels WHERE user_id = $1
	`, userID).Scan(&l.UserID, &l.XP, &l.Level, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
