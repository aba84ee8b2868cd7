package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

type stubValidator struct {
	userID uuid.UUID
	role   string
	err    error
}

func (s *stubValidator) ValidateToken(context.Context, string) (uuid.UUID, string, error) {
	return s.userID, s.role, s.err
}

func TestJWTAuthSetsIdentity(t *testing.T) {
	userID := uuid.New()
	var gotID uuid.UUID
	var gotRole string
	handler := JWTAuth(&stubValidator{userID: userID, role: "tester"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotID = UserIDFromCtx(r.Context())
			gotRole = RoleFromCtx(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotID != userID || gotRole != "tester" {
		t.Errorf("context identity: got %s/%s", gotID, gotRole)
	}
}

func TestJWTAuthRejectsMissingHeader(t *testing.T) {
	handler := JWTAuth(&stubValidator{})(ok200)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestJWTAuthRejectsInvalidToken(t *testing.T) {
	handler := JWTAuth(&stubValidator{err: errors.New("expired")})(ok200)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer expiredtoken")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	handler := injectUser(uuid.New(), "admin", RequireAdmin(ok200))
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", rec.Code)
	}

	handler = injectUser(uuid.New(), "poster", RequireAdmin(ok200))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("poster: expected 403, got %d", rec.Code)
	}
}
