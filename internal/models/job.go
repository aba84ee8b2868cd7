package models

import (
	"time"

	"github.com/google/uuid"
)

// Job status enums.
const (
	JobStatusActive    = "active"
	JobStatusCompleted = "completed"
	JobStatusCancelled = "cancelled"
)

// Job types. Watch and visit submissions carry machine-checkable proof and
// are approved automatically right after submission.
const (
	JobTypeManual = "manual"
	JobTypeWatch  = "watch"
	JobTypeVisit  = "visit"
)

// JobCategoryCrypto submissions carry elevated fraud risk; rejections in this
// category escalate a critical alert to every admin account.
const JobCategoryCrypto = "crypto"

type Job struct {
	ID            uuid.UUID  `json:"id"`
	PosterID      uuid.UUID  `json:"poster_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Type          string     `json:"type"`
	Category      string     `json:"category"`
	BountyCents   int64      `json:"bounty_cents"`
	MaxApplicants int        `json:"max_applicants"`
	Status        string     `json:"status"`
	Recurring     bool       `json:"recurring"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// AutoApproves reports whether submissions to this job skip manual review.
func (j *Job) AutoApproves() bool {
	return j.Type == JobTypeWatch || j.Type == JobTypeVisit
}
