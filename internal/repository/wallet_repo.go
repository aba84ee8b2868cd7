package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrInsufficientFunds is returned when a spend would drive the poster's cash
// balance negative. Reservations fail instead of clamping.
var ErrInsufficientFunds = errors.New("insufficient funds")

// WalletRepo is the only writer of wallet balance columns. Every mutation is
// a single conditional UPDATE so concurrent callers linearize on the user row.
// Release-side subtractions floor at zero; the reservation path never does.
type WalletRepo struct {
	pool *pgxpool.Pool
}

func NewWalletRepo(pool *pgxpool.Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

func (r *WalletRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// ReserveEscrow places the submission hold: bounty is marked pending on the
// tester wallet and mirrored on the poster wallet. Call within a transaction.
func (r *WalletRepo) ReserveEscrow(ctx context.Context, tx pgx.Tx, testerID, posterID uuid.UUID, amountCents int64) error {
	if _, err := tx.Exec(ctx, `
		UPDATE users SET tester_pending_cents = tester_pending_cents + $1, updated_at = now() WHERE id = $2
	`, amountCents, testerID); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `
		UPDATE users SET poster_pending_cents = poster_pending_cents + $1, updated_at = now() WHERE id = $2
	`, amountCents, posterID)
	return err
}

// ReleaseToAvailable moves bounty from the tester's pending balance to
// available, bumps total earnings, and increments completed_tests. Returns
// the pre-increment completed count and the referrer id (if any) read in the
// same statement, so first-completion detection cannot race.
func (r *WalletRepo) ReleaseToAvailable(ctx context.Context, tx pgx.Tx, testerID uuid.UUID, amountCents int64) (completedBefore int, referredBy *uuid.UUID, err error) {
	var completedAfter int
	err = tx.QueryRow(ctx, `
		UPDATE users SET
			tester_pending_cents = GREATEST(tester_pending_cents - $1, 0),
			tester_available_cents = tester_available_cents + $1,
			tester_total_earnings_cents = tester_total_earnings_cents + $1,
			completed_tests = completed_tests + 1,
			updated_at = now()
		WHERE id = $2
		RETURNING completed_tests, referred_by
	`, amountCents, testerID).Scan(&completedAfter, &referredBy)
	if err != nil {
		return 0, nil, err
	}
	return completedAfter - 1, referredBy, nil
}

// ReduceTesterPending and ReducePosterPending clear a pending mirror,
// flooring at zero to tolerate prior partial corrections.
func (r *WalletRepo) ReduceTesterPending(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET tester_pending_cents = GREATEST(tester_pending_cents - $1, 0), updated_at = now() WHERE id = $2
	`, amountCents, userID)
	return err
}

func (r *WalletRepo) ReducePosterPending(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET poster_pending_cents = GREATEST(poster_pending_cents - $1, 0), updated_at = now() WHERE id = $2
	`, amountCents, userID)
	return err
}

// CreditAvailable credits the tester available balance directly (referral
// commission payout).
func (r *WalletRepo) CreditAvailable(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET tester_available_cents = tester_available_cents + $1, updated_at = now() WHERE id = $2
	`, amountCents, userID)
	return err
}

// CreditDeposit credits the poster cash balance and total deposits.
func (r *WalletRepo) CreditDeposit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET
			poster_balance_cents = poster_balance_cents + $1,
			poster_total_deposits_cents = poster_total_deposits_cents + $1,
			updated_at = now()
		WHERE id = $2
	`, amountCents, userID)
	return err
}

// CreditBalance credits the poster cash balance only (admin adjustment).
func (r *WalletRepo) CreditBalance(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET poster_balance_cents = poster_balance_cents + $1, updated_at = now() WHERE id = $2
	`, amountCents, userID)
	return err
}

// SpendWithBonus debits cost from the poster wallet, consuming unexpired
// bonus before cash. All-or-nothing: if cash cannot cover the remainder the
// whole spend fails with ErrInsufficientFunds and nothing is debited.
// Locks the user row; call within a transaction.
func (r *WalletRepo) SpendWithBonus(ctx context.Context, tx pgx.Tx, userID uuid.UUID, costCents int64, now time.Time) (bonusUsed, cashUsed int64, err error) {
	var balance, bonus int64
	var expiresAt *time.Time
	err = tx.QueryRow(ctx, `
		SELECT poster_balance_cents, bonus_cents, bonus_expires_at FROM users WHERE id = $1 FOR UPDATE
	`, userID).Scan(&balance, &bonus, &expiresAt)
	if err != nil {
		return 0, 0, err
	}

	bonusUsed, cashUsed, err = splitSpend(balance, bonus, expiresAt, costCents, now)
	if err != nil {
		return 0, 0, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE users SET
			bonus_cents = bonus_cents - $1,
			poster_balance_cents = poster_balance_cents - $2,
			updated_at = now()
		WHERE id = $3
	`, bonusUsed, cashUsed, userID)
	if err != nil {
		return 0, 0, err
	}
	return bonusUsed, cashUsed, nil
}

// splitSpend computes the bonus/cash split for a debit. Unexpired bonus is
// consumed first; the remainder must fit in cash or the whole spend fails.
func splitSpend(balance, bonus int64, expiresAt *time.Time, costCents int64, now time.Time) (bonusUsed, cashUsed int64, err error) {
	if bonus > 0 && (expiresAt == nil || now.Before(*expiresAt)) {
		bonusUsed = min(bonus, costCents)
	}
	cashUsed = costCents - bonusUsed
	if cashUsed > balance {
		return 0, 0, ErrInsufficientFunds
	}
	return bonusUsed, cashUsed, nil
}

// GrantBonus sets a fresh promotional credit with its expiry window.
func (r *WalletRepo) GrantBonus(ctx context.Context, userID uuid.UUID, amountCents int64, issuedAt, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET
			bonus_cents = bonus_cents + $1,
			bonus_issued_at = $2,
			bonus_expires_at = $3,
			updated_at = now()
		WHERE id = $4
	`, amountCents, issuedAt, expiresAt, userID)
	return err
}

// SweepExpiredBonuses zeroes every bonus whose expiry has passed, regardless
// of whether it was ever spent. Returns the number of wallets swept.
func (r *WalletRepo) SweepExpiredBonuses(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET bonus_cents = 0, updated_at = now()
		WHERE bonus_cents > 0 AND bonus_expires_at IS NOT NULL AND bonus_expires_at < $1
	`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// Drift is one user whose wallet no longer matches the signed ledger sum.
type Drift struct {
	UserID       uuid.UUID
	LedgerCents  int64
	BalanceCents int64
}

// Reconcile compares each user's completed credit-side ledger sum against
// tester available + earnings-independent poster cash movements. It detects
// drift only; it never repairs.
func (r *WalletRepo) Reconcile(ctx context.Context) ([]Drift, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id,
			COALESCE(SUM(CASE
				WHEN t.type IN ('payout', 'referral_reward') AND t.status = 'completed' THEN t.amount_cents
				ELSE 0 END), 0) AS ledger_sum,
			u.tester_available_cents
		FROM users u
		LEFT JOIN transactions t ON t.user_id = u.id
		GROUP BY u.id, u.tester_available_cents
		HAVING COALESCE(SUM(CASE
			WHEN t.type IN ('payout', 'referral_reward') AND t.status = 'completed' THEN t.amount_cents
			ELSE 0 END), 0) <> u.tester_available_cents
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var drifts []Drift
	for rows.Next() {
		var d Drift
		if err := rows.Scan(&d.UserID, &d.LedgerCents, &d.BalanceCents); err != nil {
			return nil, err
		}
		drifts = append(drifts, d)
	}
	return drifts, rows.Err()
}
