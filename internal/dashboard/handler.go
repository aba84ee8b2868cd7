// Package dashboard serves the read-side of the wallet: profile, balances,
// ledger history, notifications, and referral progress for the authenticated
// user.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskpago/backend/internal/middleware"
	"github.com/taskpago/backend/internal/models"
)

// UserReader resolves the authenticated user's profile and balances.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// LedgerReader lists the user's ledger history.
type LedgerReader interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error)
}

// LevelReader resolves the user's XP standing.
type LevelReader interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.UserLevel, error)
}

// ReferralLister lists referrals made by the user.
type ReferralLister interface {
	ListByReferrer(ctx context.Context, referrerID uuid.UUID) ([]*models.Referral, error)
}

// NotificationStore lists and acknowledges the user's notifications.
type NotificationStore interface {
	List(ctx context.Context, userID uuid.UUID) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}

type Handler struct {
	users         UserReader
	ledger        LedgerReader
	levels        LevelReader
	referrals     ReferralLister
	notifications NotificationStore
	log           *slog.Logger
}

func NewHandler(users UserReader, ledger LedgerReader, levels LevelReader, referrals ReferralLister, notifications NotificationStore, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		users:         users,
		ledger:        ledger,
		levels:        levels,
		referrals:     referrals,
		notifications: notifications,
		log:           log,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GetMe handles GET /me: profile, both wallet sides, and XP standing.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		h.log.Error("get user failed", "user_id", userID, "error", err)
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	// Users without XP rows are simply level 1 with zero XP.
	xp, level := 0, 1
	if standing, err := h.levels.Get(r.Context(), userID); err == nil {
		xp, level = standing.XP, standing.Level
	} else if !errors.Is(err, pgx.ErrNoRows) {
		h.log.Error("get level failed", "user_id", userID, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":              user.ID,
		"email":           user.Email,
		"name":            user.Name,
		"role":            user.Role,
		"tester_wallet":   user.TesterWallet,
		"poster_wallet":   user.PosterWallet,
		"completed_tests": user.CompletedTests,
		"referral_code":   user.ReferralCode,
		"xp":              xp,
		"level":           level,
		"created_at":      user.CreatedAt,
	})
}

// ListTransactions handles GET /me/transactions.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	entries, err := h.ledger.ListByUser(r.Context(), userID)
	if err != nil {
		h.log.Error("list transactions failed", "user_id", userID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*models.Transaction{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// ListReferrals handles GET /me/referrals.
func (h *Handler) ListReferrals(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	list, err := h.referrals.ListByReferrer(r.Context(), userID)
	if err != nil {
		h.log.Error("list referrals failed", "user_id", userID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Referral{}
	}
	writeJSON(w, http.StatusOK, list)
}

// ListNotifications handles GET /me/notifications.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	list, err := h.notifications.List(r.Context(), userID)
	if err != nil {
		h.log.Error("list notifications failed", "user_id", userID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Notification{}
	}
	writeJSON(w, http.StatusOK, list)
}

// MarkNotificationRead handles POST /me/notifications/{id}/read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid notification id", http.StatusBadRequest)
		return
	}
	if err := h.notifications.MarkRead(r.Context(), id, userID); err != nil {
		h.log.Error("mark notification read failed", "notification_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
