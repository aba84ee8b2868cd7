package models

import (
	"time"

	"github.com/google/uuid"
)

// XP awards per qualifying event. Callers invoke the levels service at most
// once per event; the service itself only accumulates.
const (
	XPPerApproval = 50
	XPPerRating   = 15
)

type UserLevel struct {
	UserID    uuid.UUID `json:"user_id"`
	XP        int       `json:"xp"`
	Level     int       `json:"level"`
	UpdatedAt time.Time `json:"updated_at"`
}
