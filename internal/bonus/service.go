// Package bonus manages the time-limited promotional balance on poster
// wallets. Bonus funds are consumed before cash at spend time and vanish
// entirely when the expiry window passes, spent or not.
package bonus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskpago/backend/internal/models"
	"github.com/taskpago/backend/internal/observability"
)

// DefaultTTL is how long a granted bonus stays spendable.
const DefaultTTL = 30 * 24 * time.Hour

// Store is the wallet-side persistence the service needs.
type Store interface {
	GrantBonus(ctx context.Context, userID uuid.UUID, amountCents int64, issuedAt, expiresAt time.Time) error
	SweepExpiredBonuses(ctx context.Context, now time.Time) (int64, error)
}

// Notifier announces grants to the wallet owner.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType, title, message string, metadata json.RawMessage) error
}

type Service struct {
	store    Store
	notifier Notifier
	ttl      time.Duration
	log      *slog.Logger
}

func NewService(store Store, notifier Notifier, ttl time.Duration, log *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, notifier: notifier, ttl: ttl, log: log}
}

// Grant credits a promotional bonus and starts its expiry clock.
func (s *Service) Grant(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl)
	if err := s.store.GrantBonus(ctx, userID, amountCents, now, expiresAt); err != nil {
		return err
	}
	s.log.Info("bonus granted", "user_id", userID, "amount_cents", amountCents, "expires_at", expiresAt)
	if s.notifier != nil {
		days := int(s.ttl.Hours() / 24)
		_ = s.notifier.Notify(ctx, userID, models.NotifyBonusGranted,
			"Bonus credited",
			fmt.Sprintf("A %d.%02d KZ bonus was added to your wallet. It is spent before cash and expires in %d days.",
				amountCents/100, amountCents%100, days), nil)
	}
	return nil
}

// Sweep zeroes every expired bonus balance. Returns how many wallets were
// touched.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	swept, err := s.store.SweepExpiredBonuses(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		s.log.Info("expired bonuses swept", "wallets", swept)
		observability.BonusSweepsTotal.Add(float64(swept))
	}
	return swept, nil
}
