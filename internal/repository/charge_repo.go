package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpago/backend/internal/models"
)

type ChargeRepo struct {
	pool *pgxpool.Pool
}

func NewChargeRepo(pool *pgxpool.Pool) *ChargeRepo {
	return &ChargeRepo{pool: pool}
}

// InsertTx records a charge inside the deposit transaction. Returns false
// when the charge was already processed; the caller must then credit nothing.
func (r *ChargeRepo) InsertTx(ctx context.Context, tx pgx.Tx, c *models.DepositCharge) (bool, error) {
	result, err := tx.Exec(ctx, `
		INSERT INTO deposit_charges (charge_id, user_id, amount_cents, currency, credited_cents_kz)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (charge_id) DO NOTHING
	`, c.ChargeID, c.UserID, c.AmountCents, c.Currency, c.CreditedCentsKZ)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}
