package models

import (
	"time"

	"github.com/google/uuid"
)

// AdminIntervention is the immutable audit record written before an admin
// force-approves a rejected application.
type AdminIntervention struct {
	ID                      uuid.UUID  `json:"id"`
	ApplicationID           uuid.UUID  `json:"application_id"`
	AdminID                 uuid.UUID  `json:"admin_id"`
	Reason                  string     `json:"reason"`
	OriginalReviewerID      *uuid.UUID `json:"original_reviewer_id,omitempty"`
	OriginalRejectionReason *string    `json:"original_rejection_reason,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
}
