package escrow

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/taskpago/backend/internal/middleware"
	"github.com/taskpago/backend/internal/models"
)

func newTestServer(f *fixture) http.Handler {
	h := NewHandler(f.engine, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /applications/{id}/submit", h.SubmitProof)
	mux.HandleFunc("POST /applications/{id}/approve", h.Approve)
	mux.HandleFunc("POST /applications/{id}/reject", h.Reject)
	return mux
}

func doAs(t *testing.T, srv http.Handler, userID uuid.UUID, role, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req = req.WithContext(middleware.WithUser(req.Context(), userID, role))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestSubmitEndpointAcceptsProof(t *testing.T) {
	f := newFixture(t, nil)
	srv := newTestServer(f)

	path := fmt.Sprintf("/applications/%s/submit", f.appID)
	rec := doAs(t, srv, f.testerID, models.RoleTester, path, `{"proof":{"description":"done"}}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := f.apps.status(f.appID); got != models.AppStatusSubmitted {
		t.Errorf("application status: got %q, want submitted", got)
	}
}

func TestSubmitEndpointRejectsMissingProof(t *testing.T) {
	f := newFixture(t, nil)
	srv := newTestServer(f)

	path := fmt.Sprintf("/applications/%s/submit", f.appID)
	rec := doAs(t, srv, f.testerID, models.RoleTester, path, `{}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitEndpointForbidsOtherTester(t *testing.T) {
	f := newFixture(t, nil)
	srv := newTestServer(f)

	path := fmt.Sprintf("/applications/%s/submit", f.appID)
	rec := doAs(t, srv, uuid.New(), models.RoleTester, path, `{"proof":{"description":"done"}}`)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitEndpointBadID(t *testing.T) {
	f := newFixture(t, nil)
	srv := newTestServer(f)

	rec := doAs(t, srv, f.testerID, models.RoleTester, "/applications/not-a-uuid/submit", `{"proof":{}}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestApproveEndpointReleases(t *testing.T) {
	f := newFixture(t, nil)
	srv := newTestServer(f)

	submit := fmt.Sprintf("/applications/%s/submit", f.appID)
	if rec := doAs(t, srv, f.testerID, models.RoleTester, submit, `{"proof":{"description":"done"}}`); rec.Code != http.StatusAccepted {
		t.Fatalf("submit: expected 202, got %d", rec.Code)
	}

	approve := fmt.Sprintf("/applications/%s/approve", f.appID)
	rec := doAs(t, srv, f.posterID, models.RolePoster, approve, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	tester := f.wallets.snapshot(f.testerID)
	if tester.testerAvailable != bounty {
		t.Errorf("tester available: got %d, want %d", tester.testerAvailable, bounty)
	}
}

func TestApproveEndpointConflictsOnSecondReview(t *testing.T) {
	f := newFixture(t, nil)
	srv := newTestServer(f)

	submit := fmt.Sprintf("/applications/%s/submit", f.appID)
	doAs(t, srv, f.testerID, models.RoleTester, submit, `{"proof":{"description":"done"}}`)

	approve := fmt.Sprintf("/applications/%s/approve", f.appID)
	if rec := doAs(t, srv, f.posterID, models.RolePoster, approve, ""); rec.Code != http.StatusOK {
		t.Fatalf("first approve: expected 200, got %d", rec.Code)
	}
	rec := doAs(t, srv, f.posterID, models.RolePoster, approve, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("second approve: expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRejectEndpointRequiresReason(t *testing.T) {
	f := newFixture(t, nil)
	srv := newTestServer(f)

	submit := fmt.Sprintf("/applications/%s/submit", f.appID)
	doAs(t, srv, f.testerID, models.RoleTester, submit, `{"proof":{"description":"done"}}`)

	reject := fmt.Sprintf("/applications/%s/reject", f.appID)
	rec := doAs(t, srv, f.posterID, models.RolePoster, reject, `{"reason":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doAs(t, srv, f.posterID, models.RolePoster, reject, `{"reason":"proof does not match the job"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := f.apps.status(f.appID); got != models.AppStatusRejected {
		t.Errorf("application status: got %q, want rejected", got)
	}
}
