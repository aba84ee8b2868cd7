package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpago/backend/internal/models"
)

const userColumns = `id, email, name, password_hash, role,
	tester_available_cents, tester_pending_cents, tester_total_earnings_cents,
	poster_balance_cents, poster_pending_cents, poster_total_deposits_cents,
	bonus_cents, bonus_issued_at, bonus_expires_at,
	completed_tests, referred_by, referral_code, created_at, updated_at`

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role,
		&u.TesterWallet.AvailableCents, &u.TesterWallet.PendingCents, &u.TesterWallet.TotalEarningsCents,
		&u.PosterWallet.BalanceCents, &u.PosterWallet.PendingCents, &u.PosterWallet.TotalDepositsCents,
		&u.PosterWallet.BonusCents, &u.PosterWallet.BonusIssuedAt, &u.PosterWallet.BonusExpiresAt,
		&u.CompletedTests, &u.ReferredBy, &u.ReferralCode, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a zero-balance user. Wallets initialize empty at sign-up.
func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, password_hash, role, referred_by, referral_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.ReferredBy, u.ReferralCode).Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// GetByReferralCode resolves a sign-up referral code to the referrer.
func (r *UserRepo) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE referral_code = $1`, code))
}

// ListAdminIDs returns every admin account, for fraud-alert fan-out.
func (r *UserRepo) ListAdminIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM users WHERE role = 'admin'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
