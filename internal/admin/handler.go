package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/taskpago/backend/internal/middleware"
	"github.com/taskpago/backend/internal/models"
	"github.com/taskpago/backend/internal/repository"
)

// Reconciler compares wallet balances against the ledger.
type Reconciler interface {
	Reconcile(ctx context.Context) ([]repository.Drift, error)
}

// AuditLog reads the intervention history.
type AuditLog interface {
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]*models.AdminIntervention, error)
}

// BonusGranter credits promotional balance.
type BonusGranter interface {
	Grant(ctx context.Context, userID uuid.UUID, amountCents int64) error
}

type Handler struct {
	svc        *Service
	reconciler Reconciler
	audit      AuditLog
	bonus      BonusGranter
	log        *slog.Logger
}

func NewHandler(svc *Service, reconciler Reconciler, audit AuditLog, bonus BonusGranter, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, reconciler: reconciler, audit: audit, bonus: bonus, log: log}
}

type forceApproveRequest struct {
	Reason string `json:"reason"`
}

type addBalanceRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Note        string `json:"note"`
}

// ForceApprove handles POST /admin/applications/{id}/force-approve.
func (h *Handler) ForceApprove(w http.ResponseWriter, r *http.Request) {
	adminID := middleware.UserIDFromCtx(r.Context())
	appID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid application id"}`, http.StatusBadRequest)
		return
	}
	var req forceApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := h.svc.ForceApprove(r.Context(), appID, adminID, req.Reason); err != nil {
		switch {
		case errors.Is(err, ErrReasonRequired):
			http.Error(w, `{"error":"intervention reason is required"}`, http.StatusBadRequest)
		case errors.Is(err, ErrNotRejected):
			http.Error(w, `{"error":"application is not rejected"}`, http.StatusConflict)
		default:
			h.log.Error("force approve", "application_id", appID, "error", err)
			http.Error(w, `{"error":"force approve failed"}`, http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"application_id": appID.String(), "status": "approved"})
}

// AddBalance handles POST /admin/users/{id}/balance.
func (h *Handler) AddBalance(w http.ResponseWriter, r *http.Request) {
	adminID := middleware.UserIDFromCtx(r.Context())
	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
		return
	}
	var req addBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.AmountCents <= 0 {
		http.Error(w, `{"error":"amount_cents must be positive"}`, http.StatusBadRequest)
		return
	}
	if err := h.svc.AddBalance(r.Context(), adminID, userID, req.AmountCents, req.Note); err != nil {
		h.log.Error("add balance", "user_id", userID, "error", err)
		http.Error(w, `{"error":"balance adjustment failed"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GrantBonus handles POST /admin/users/{id}/bonus: a promotional credit with
// the standard expiry window.
func (h *Handler) GrantBonus(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
		return
	}
	var req addBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.AmountCents <= 0 {
		http.Error(w, `{"error":"amount_cents must be positive"}`, http.StatusBadRequest)
		return
	}
	if err := h.bonus.Grant(r.Context(), userID, req.AmountCents); err != nil {
		h.log.Error("grant bonus", "user_id", userID, "error", err)
		http.Error(w, `{"error":"bonus grant failed"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListInterventions handles GET /admin/applications/{id}/interventions.
func (h *Handler) ListInterventions(w http.ResponseWriter, r *http.Request) {
	appID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid application id"}`, http.StatusBadRequest)
		return
	}
	ivs, err := h.audit.ListByApplication(r.Context(), appID)
	if err != nil {
		h.log.Error("list interventions", "application_id", appID, "error", err)
		http.Error(w, `{"error":"list interventions failed"}`, http.StatusInternalServerError)
		return
	}
	if ivs == nil {
		ivs = []*models.AdminIntervention{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ivs)
}

// Reconcile handles GET /admin/reconcile: an on-demand drift report.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	drifts, err := h.reconciler.Reconcile(r.Context())
	if err != nil {
		h.log.Error("reconcile", "error", err)
		http.Error(w, `{"error":"reconcile failed"}`, http.StatusInternalServerError)
		return
	}
	if drifts == nil {
		drifts = []repository.Drift{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"drift_count": len(drifts), "drifts": drifts})
}
