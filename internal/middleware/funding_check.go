package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// fundingRequest is the subset of the create-job body the check needs.
type fundingRequest struct {
	BountyCents   int64 `json:"bounty_cents"`
	MaxApplicants int   `json:"max_applicants"`
}

// FundingCheck rejects job postings the poster cannot afford before the
// funding transaction starts. The spend itself re-checks inside the
// transaction; this only keeps obviously underfunded requests off the
// database. Reads the body to extract the cost, then replaces r.Body so the
// handler can re-read it.
func FundingCheck(pool *pgxpool.Pool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserIDFromCtx(r.Context())
			if userID == uuid.Nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			bodyBytes, err := io.ReadAll(r.Body)
			r.Body.Close()
			if err != nil {
				http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			var peek fundingRequest
			if err := json.Unmarshal(bodyBytes, &peek); err != nil {
				http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
				return
			}
			if peek.BountyCents <= 0 || peek.MaxApplicants < 1 {
				http.Error(w, `{"error":"bounty_cents and max_applicants must be positive"}`, http.StatusBadRequest)
				return
			}
			cost := peek.BountyCents * int64(peek.MaxApplicants)

			spendable, err := spendableFn(r.Context(), pool, userID)
			if err != nil {
				http.Error(w, `{"error":"failed to check balance"}`, http.StatusInternalServerError)
				return
			}
			if cost > spendable {
				http.Error(w, fmt.Sprintf(`{"error":"cost %d exceeds spendable balance %d"}`, cost, spendable), http.StatusPaymentRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// spendableFn computes the poster's spendable balance (cash plus unexpired
// bonus). Tests replace this to avoid hitting a real database.
var spendableFn = defaultSpendable

func defaultSpendable(ctx context.Context, pool *pgxpool.Pool, userID uuid.UUID) (int64, error) {
	var total int64
	err := pool.QueryRow(ctx, `
		SELECT poster_balance_cents + CASE
			WHEN bonus_expires_at IS NOT NULL AND bonus_expires_at > now() THEN bonus_cents
			ELSE 0 END
		FROM users WHERE id = $1
	`, userID).Scan(&total)
	return total, err
}
