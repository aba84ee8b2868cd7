package escrow

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/taskpago/backend/internal/middleware"
	"github.com/taskpago/backend/internal/proof"
)

// Handler serves the submission and review endpoints.
type Handler struct {
	engine *Engine
	log    *slog.Logger
}

func NewHandler(engine *Engine, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{engine: engine, log: log}
}

type submitRequest struct {
	Proof json.RawMessage `json:"proof"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// SubmitProof handles POST /applications/{id}/submit.
// Auth -> Validate proof -> Reserve escrow -> 202.
func (h *Handler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	testerID := middleware.UserIDFromCtx(r.Context())
	appID, ok := applicationID(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if len(req.Proof) == 0 {
		http.Error(w, `{"error":"proof is required"}`, http.StatusBadRequest)
		return
	}

	err := h.engine.SubmitProof(r.Context(), appID, testerID, req.Proof)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotSubmissionOwner):
			http.Error(w, `{"error":"application belongs to another tester"}`, http.StatusForbidden)
		case errors.Is(err, ErrDuplicateSubmission):
			http.Error(w, `{"error":"application already submitted or approved"}`, http.StatusConflict)
		case errors.Is(err, ErrJobNotActive):
			http.Error(w, `{"error":"job is not active"}`, http.StatusConflict)
		case errors.Is(err, proof.ErrValidation):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		default:
			h.log.Error("submit proof", "application_id", appID, "error", err)
			http.Error(w, `{"error":"submit failed"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"application_id": appID.String(), "status": "submitted"})
}

// Approve handles POST /applications/{id}/approve — the poster releases the
// escrow.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	reviewerID := middleware.UserIDFromCtx(r.Context())
	appID, ok := applicationID(w, r)
	if !ok {
		return
	}
	if err := h.engine.Approve(r.Context(), appID, reviewerID); err != nil {
		if errors.Is(err, ErrAlreadyReviewed) {
			http.Error(w, `{"error":"application already reviewed"}`, http.StatusConflict)
			return
		}
		h.log.Error("approve", "application_id", appID, "error", err)
		http.Error(w, `{"error":"approve failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"application_id": appID.String(), "status": "approved"})
}

// Reject handles POST /applications/{id}/reject — the poster reverses the
// hold. A reason is mandatory.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	reviewerID := middleware.UserIDFromCtx(r.Context())
	appID, ok := applicationID(w, r)
	if !ok {
		return
	}
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := h.engine.Reject(r.Context(), appID, reviewerID, req.Reason); err != nil {
		switch {
		case errors.Is(err, ErrRejectionReasonRequired):
			http.Error(w, `{"error":"rejection reason is required"}`, http.StatusBadRequest)
		case errors.Is(err, ErrAlreadyReviewed):
			http.Error(w, `{"error":"application already reviewed"}`, http.StatusConflict)
		default:
			h.log.Error("reject", "application_id", appID, "error", err)
			http.Error(w, `{"error":"reject failed"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"application_id": appID.String(), "status": "rejected"})
}

func applicationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid application id"}`, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
