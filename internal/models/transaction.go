package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Ledger entry types.
const (
	TxTypeDeposit            = "deposit"
	TxTypeAdminDeposit       = "admin_deposit"
	TxTypeEscrow             = "escrow"
	TxTypePayout             = "payout"
	TxTypeFee                = "fee"
	TxTypeReferralReward     = "referral_reward"
	TxTypeRefund             = "refund"
	TxTypeServiceSalePending = "service_sale_pending"
)

// Ledger entry statuses. Entries are append-only; only status may move,
// pending -> completed or pending -> failed.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
)

// CurrencyKZ is the single platform currency (amounts in centavos).
const CurrencyKZ = "KZ"

// TxMetadata links a ledger entry to the job/application that caused it.
type TxMetadata struct {
	JobID         *uuid.UUID `json:"job_id,omitempty"`
	ApplicationID *uuid.UUID `json:"application_id,omitempty"`
	ChargeID      string     `json:"charge_id,omitempty"`
	AdminID       *uuid.UUID `json:"admin_id,omitempty"`
}

type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	Type        string          `json:"type"`
	AmountCents int64           `json:"amount_cents"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewTransaction builds a KZ ledger entry with marshalled metadata.
func NewTransaction(userID uuid.UUID, txType string, amountCents int64, status, description string, meta TxMetadata) *Transaction {
	raw, _ := json.Marshal(meta)
	return &Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        txType,
		AmountCents: amountCents,
		Currency:    CurrencyKZ,
		Status:      status,
		Description: description,
		Metadata:    raw,
	}
}
