package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// injectUser wraps a handler to pre-set the identity in context, simulating
// what JWTAuth would do upstream.
func injectUser(userID uuid.UUID, role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID, role)))
	})
}

// ok200 proves the middleware let the request through.
var ok200 = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func withSpendable(t *testing.T, cents int64) {
	t.Helper()
	original := spendableFn
	spendableFn = func(_ context.Context, _ *pgxpool.Pool, _ uuid.UUID) (int64, error) {
		return cents, nil
	}
	t.Cleanup(func() { spendableFn = original })
}

func TestFundingCheckWithinBalance(t *testing.T) {
	withSpendable(t, 5000_00)
	handler := injectUser(uuid.New(), "poster", FundingCheck(nil)(ok200))

	body := `{"bounty_cents":100000,"max_applicants":3}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestFundingCheckInsufficientBalance(t *testing.T) {
	withSpendable(t, 100_00)
	handler := injectUser(uuid.New(), "poster", FundingCheck(nil)(ok200))

	// 500 KZ x 5 slots = 2500 KZ against a 100 KZ balance.
	body := `{"bounty_cents":50000,"max_applicants":5}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "exceeds spendable balance") {
		t.Errorf("expected balance error message, got: %s", rec.Body.String())
	}
}

func TestFundingCheckRejectsNonPositiveCost(t *testing.T) {
	withSpendable(t, 5000_00)
	handler := injectUser(uuid.New(), "poster", FundingCheck(nil)(ok200))

	for _, body := range []string{
		`{"bounty_cents":0,"max_applicants":3}`,
		`{"bounty_cents":1000,"max_applicants":0}`,
		`{"bounty_cents":-500,"max_applicants":2}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestFundingCheckRequiresAuth(t *testing.T) {
	handler := FundingCheck(nil)(ok200)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"bounty_cents":1000,"max_applicants":1}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestFundingCheckPreservesBody(t *testing.T) {
	withSpendable(t, 5000_00)
	var seen string
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := make([]byte, 1024)
		n, _ := r.Body.Read(b)
		seen = string(b[:n])
		w.WriteHeader(http.StatusOK)
	})
	handler := injectUser(uuid.New(), "poster", FundingCheck(nil)(capture))

	body := `{"bounty_cents":100000,"max_applicants":1,"title":"Test my app"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != body {
		t.Errorf("handler saw altered body: %s", seen)
	}
}
