package models

import (
	"time"

	"github.com/google/uuid"
)

// Referral status enums. A referral completes exactly once, on the referred
// user's first approved submission.
const (
	ReferralStatusPending   = "pending"
	ReferralStatusCompleted = "completed"
)

// ReferralCommissionPercent of the first completed bounty goes to the referrer.
const ReferralCommissionPercent = 5

type Referral struct {
	ID                uuid.UUID  `json:"id"`
	ReferrerID        uuid.UUID  `json:"referrer_id"`
	ReferredID        uuid.UUID  `json:"referred_id"`
	Status            string     `json:"status"`
	RewardAmountCents int64      `json:"reward_amount_cents"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// CommissionFor returns the referrer's cut of a bounty.
func CommissionFor(bountyCents int64) int64 {
	return bountyCents * ReferralCommissionPercent / 100
}
