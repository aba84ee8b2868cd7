package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Application status enums. Approved and rejected are terminal for review
// purposes; a rejected application may be re-submitted, an approved one may not.
const (
	AppStatusApplied   = "applied"
	AppStatusAccepted  = "accepted"
	AppStatusSubmitted = "submitted"
	AppStatusApproved  = "approved"
	AppStatusRejected  = "rejected"
)

type Application struct {
	ID              uuid.UUID       `json:"id"`
	JobID           uuid.UUID       `json:"job_id"`
	TesterID        uuid.UUID       `json:"tester_id"`
	Status          string          `json:"status"`
	ProofSubmission json.RawMessage `json:"proof_submission,omitempty"`
	Feedback        *int            `json:"feedback,omitempty"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
	SubmittedAt     *time.Time      `json:"submitted_at,omitempty"`
	ReviewedAt      *time.Time      `json:"reviewed_at,omitempty"`
	ReviewedBy      *uuid.UUID      `json:"reviewed_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
