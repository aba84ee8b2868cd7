package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles.
const (
	RoleTester = "tester"
	RolePoster = "poster"
	RoleAdmin  = "admin"
)

// TesterWallet holds earnings-side balances. All amounts are KZ centavos.
type TesterWallet struct {
	AvailableCents     int64 `json:"available_cents"`
	PendingCents       int64 `json:"pending_cents"`
	TotalEarningsCents int64 `json:"total_earnings_cents"`
}

// PosterWallet holds funding-side balances, including the time-limited
// promotional bonus. Bonus is consumed before cash at spend time.
type PosterWallet struct {
	BalanceCents       int64      `json:"balance_cents"`
	PendingCents       int64      `json:"pending_cents"`
	TotalDepositsCents int64      `json:"total_deposits_cents"`
	BonusCents         int64      `json:"bonus_cents"`
	BonusIssuedAt      *time.Time `json:"bonus_issued_at,omitempty"`
	BonusExpiresAt     *time.Time `json:"bonus_expires_at,omitempty"`
}

type User struct {
	ID             uuid.UUID    `json:"id"`
	Email          string       `json:"email"`
	Name           string       `json:"name"`
	PasswordHash   string       `json:"-"`
	Role           string       `json:"role"`
	TesterWallet   TesterWallet `json:"tester_wallet"`
	PosterWallet   PosterWallet `json:"poster_wallet"`
	CompletedTests int          `json:"completed_tests"`
	ReferredBy     *uuid.UUID   `json:"referred_by,omitempty"`
	ReferralCode   string       `json:"referral_code"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
