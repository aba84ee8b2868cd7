package models

import (
	"time"

	"github.com/google/uuid"
)

// DepositCharge records a processed payment-provider charge. The webhook is
// idempotent on ChargeID: a second event for the same charge credits nothing.
type DepositCharge struct {
	ChargeID        string    `json:"charge_id"`
	UserID          uuid.UUID `json:"user_id"`
	AmountCents     int64     `json:"amount_cents"`
	Currency        string    `json:"currency"`
	CreditedCentsKZ int64     `json:"credited_cents_kz"`
	CreatedAt       time.Time `json:"created_at"`
}
