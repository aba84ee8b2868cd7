package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notification types used by the engine's side effects.
const (
	NotifyProofSubmitted  = "proof_submitted"
	NotifyProofApproved   = "proof_approved"
	NotifyProofRejected   = "proof_rejected"
	NotifyReferralReward  = "referral_reward"
	NotifyAdminOverride   = "admin_override"
	NotifyFraudAlert      = "fraud_alert"
	NotifyLevelUp         = "level_up"
	NotifyStaleSubmission = "stale_submission"
	NotifyBonusGranted    = "bonus_granted"
	NotifyDepositReceived = "deposit_received"
)

type Notification struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Read      bool            `json:"read"`
	CreatedAt time.Time       `json:"created_at"`
}
