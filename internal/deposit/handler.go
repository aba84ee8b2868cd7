package deposit

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// Handler serves the payment-provider webhook.
type Handler struct {
	svc    *Service
	secret string
	log    *slog.Logger
}

func NewHandler(svc *Service, secret string, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, secret: secret, log: log}
}

// Webhook handles POST /webhooks/deposit. The provider authenticates with a
// shared secret header. Replayed charge ids return 200 so the provider stops
// retrying.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" {
		given := r.Header.Get("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(given), []byte(h.secret)) != 1 {
			http.Error(w, `{"error":"invalid webhook secret"}`, http.StatusUnauthorized)
			return
		}
	}
	var ev ChargeEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	credited, err := h.svc.Process(r.Context(), ev)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCharge):
			http.Error(w, `{"error":"invalid charge event"}`, http.StatusBadRequest)
		case errors.Is(err, ErrUnsupportedCurrency):
			http.Error(w, `{"error":"unsupported currency"}`, http.StatusUnprocessableEntity)
		default:
			h.log.Error("process charge", "charge_id", ev.ChargeID, "error", err)
			http.Error(w, `{"error":"deposit processing failed"}`, http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"charge_id": ev.ChargeID, "credited": credited})
}
