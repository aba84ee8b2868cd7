package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpago/backend/internal/models"
)

// TransactionRepo appends ledger entries. Entries are never updated or
// deleted; reconciliation relies on the full history being intact.
type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// CreateTx appends a ledger entry inside the given transaction.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, type, amount_cents, currency, status, description, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, t.ID, t.UserID, t.Type, t.AmountCents, t.Currency, t.Status, t.Description, t.Metadata).Scan(&t.CreatedAt)
}

// SettleEscrowTx flips the pending escrow entry for an application to
// completed or failed. This is the only in-place mutation the ledger allows.
func (r *TransactionRepo) SettleEscrowTx(ctx context.Context, tx pgx.Tx, applicationID uuid.UUID, status string) error {
	_, err := tx.Exec(ctx, `
		UPDATE transactions SET status = $1
		WHERE type = 'escrow' AND status = 'pending' AND metadata->>'application_id' = $2
	`, status, applicationID.String())
	return err
}

func (r *TransactionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, type, amount_cents, currency, status, description, metadata, created_at
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.AmountCents, &t.Currency, &t.Status, &t.Description, &t.Metadata, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
