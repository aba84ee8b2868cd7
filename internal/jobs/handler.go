package jobs

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/taskpago/backend/internal/middleware"
	"github.com/taskpago/backend/internal/repository"
)

type CreateJobRequest struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Type          string     `json:"type"`
	Category      string     `json:"category"`
	BountyCents   int64      `json:"bounty_cents"`
	MaxApplicants int        `json:"max_applicants"`
	Recurring     bool       `json:"recurring"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

type RateRequest struct {
	Rating int `json:"rating"`
}

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	posterID := middleware.UserIDFromCtx(r.Context())
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	job, err := h.svc.Create(r.Context(), posterID, CreateJobInput{
		Title:         req.Title,
		Description:   req.Description,
		Type:          req.Type,
		Category:      req.Category,
		BountyCents:   req.BountyCents,
		MaxApplicants: req.MaxApplicants,
		Recurring:     req.Recurring,
		ExpiresAt:     req.ExpiresAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidJob):
			http.Error(w, "missing or invalid required fields", http.StatusBadRequest)
		case errors.Is(err, repository.ErrInsufficientFunds):
			http.Error(w, "insufficient funds to post this job", http.StatusPaymentRequired)
		default:
			h.log.Error("create job failed", "error", err)
			http.Error(w, "create job failed", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListActive(r.Context())
	if err != nil {
		h.log.Error("list jobs failed", "error", err)
		http.Error(w, "list jobs failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	posterID := middleware.UserIDFromCtx(r.Context())
	list, err := h.svc.ListByPoster(r.Context(), posterID)
	if err != nil {
		h.log.Error("list own jobs failed", "error", err)
		http.Error(w, "list jobs failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}
	job, err := h.svc.Get(r.Context(), jobID)
	if err != nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	testerID := middleware.UserIDFromCtx(r.Context())
	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}
	app, err := h.svc.Apply(r.Context(), jobID, testerID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyApplied):
			http.Error(w, "already applied to this job", http.StatusConflict)
		case errors.Is(err, ErrJobNotActive):
			http.Error(w, "job is not active", http.StatusConflict)
		default:
			h.log.Error("apply failed", "job_id", jobID, "error", err)
			http.Error(w, "apply failed", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}
	list, err := h.svc.ListApplicationsByJob(r.Context(), jobID)
	if err != nil {
		h.log.Error("list applications failed", "job_id", jobID, "error", err)
		http.Error(w, "list applications failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) ListMyApplications(w http.ResponseWriter, r *http.Request) {
	testerID := middleware.UserIDFromCtx(r.Context())
	list, err := h.svc.ListApplicationsByTester(r.Context(), testerID)
	if err != nil {
		h.log.Error("list own applications failed", "error", err)
		http.Error(w, "list applications failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) Rate(w http.ResponseWriter, r *http.Request) {
	posterID := middleware.UserIDFromCtx(r.Context())
	appID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid application id", http.StatusBadRequest)
		return
	}
	var req RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.svc.Rate(r.Context(), appID, posterID, req.Rating); err != nil {
		switch {
		case errors.Is(err, ErrInvalidRating):
			http.Error(w, "rating must be between 1 and 5", http.StatusBadRequest)
		case errors.Is(err, ErrNotJobOwner):
			http.Error(w, "job belongs to another poster", http.StatusForbidden)
		case errors.Is(err, ErrAlreadyRated):
			http.Error(w, "application cannot be rated", http.StatusConflict)
		default:
			h.log.Error("rate failed", "application_id", appID, "error", err)
			http.Error(w, "rate failed", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
