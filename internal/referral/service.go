package referral

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskpago/backend/internal/models"
)

// ErrUnknownCode is returned when a sign-up supplies a referral code that
// matches no user.
var ErrUnknownCode = errors.New("unknown referral code")

// ReferralStore is the minimal referral persistence interface.
type ReferralStore interface {
	Create(ctx context.Context, referrerID, referredID uuid.UUID) (*models.Referral, error)
	Complete(ctx context.Context, referredID uuid.UUID, rewardCents int64) (bool, error)
	ListByReferrer(ctx context.Context, referrerID uuid.UUID) ([]*models.Referral, error)
}

// CodeResolver maps a referral code to the referring user.
type CodeResolver interface {
	GetByReferralCode(ctx context.Context, code string) (*models.User, error)
}

// Service owns referral record bookkeeping. The commission money itself moves
// inside the approval transaction; this service records the outcome.
type Service struct {
	store ReferralStore
	users CodeResolver
	log   *slog.Logger
}

func NewService(store ReferralStore, users CodeResolver, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, users: users, log: log}
}

// Resolve maps a sign-up referral code to the referrer's id. Called before
// the new user row exists, so it only reads.
func (s *Service) Resolve(ctx context.Context, code string) (uuid.UUID, error) {
	referrer, err := s.users.GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrUnknownCode
		}
		return uuid.Nil, err
	}
	return referrer.ID, nil
}

// Record writes the pending referral once the referred user's row exists.
func (s *Service) Record(ctx context.Context, referrerID, referredID uuid.UUID) error {
	_, err := s.store.Create(ctx, referrerID, referredID)
	return err
}

// RecordCompletion marks the referred user's referral completed and stamps
// the reward. Safe under at-least-once delivery: a redelivered completion
// matches nothing and is logged as such.
func (s *Service) RecordCompletion(ctx context.Context, referredID uuid.UUID, rewardCents int64) error {
	flipped, err := s.store.Complete(ctx, referredID, rewardCents)
	if err != nil {
		return err
	}
	if !flipped {
		s.log.Info("referral already completed", "referred_id", referredID)
	}
	return nil
}

func (s *Service) ListByReferrer(ctx context.Context, referrerID uuid.UUID) ([]*models.Referral, error) {
	return s.store.ListByReferrer(ctx, referrerID)
}
