// Package auth issues and validates the JWTs every authenticated route
// requires, and owns sign-up (including referral-code resolution).
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskpago/backend/internal/models"
)

var (
	// ErrDuplicateEmail is returned when registering with an email that
	// already exists.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials is returned on login failure. Deliberately the
	// same for unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRole is returned when sign-up requests a role outside
	// tester/poster. Admin accounts are provisioned out of band.
	ErrInvalidRole = errors.New("invalid role")
)

// UserStore is the persistence the auth service needs.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ReferralRegistrar resolves sign-up codes and records the pending referral.
type ReferralRegistrar interface {
	Resolve(ctx context.Context, code string) (uuid.UUID, error)
	Record(ctx context.Context, referrerID, referredID uuid.UUID) error
}

type Service struct {
	users     UserStore
	referrals ReferralRegistrar
	secret    []byte
	tokenTTL  time.Duration
}

func NewService(users UserStore, referrals ReferralRegistrar, secret string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{users: users, referrals: referrals, secret: []byte(secret), tokenTTL: tokenTTL}
}

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Register creates a tester or poster account. A referral code, when given,
// must resolve; the referral record is written right after the user row so
// the first-completion commission can find it.
func (s *Service) Register(ctx context.Context, email, password, name, role, referralCode string) (*models.User, error) {
	if role != models.RoleTester && role != models.RolePoster {
		return nil, ErrInvalidRole
	}
	var referredBy *uuid.UUID
	if referralCode != "" {
		referrerID, err := s.referrals.Resolve(ctx, referralCode)
		if err != nil {
			return nil, err
		}
		referredBy = &referrerID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
		ReferredBy:   referredBy,
		ReferralCode: newReferralCode(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	if referredBy != nil {
		if err := s.referrals.Record(ctx, *referredBy, user.ID); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.issueToken(user.ID, user.Role)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *Service) issueToken(userID uuid.UUID, role string) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

// ValidateToken returns the user id and role encoded in a valid token.
func (s *Service) ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, "", err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return uuid.Nil, "", errors.New("invalid token")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, "", err
	}
	return id, c.Role, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// newReferralCode returns a short shareable code. Uniqueness is enforced by
// the database; a collision surfaces as a retryable insert error.
func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
