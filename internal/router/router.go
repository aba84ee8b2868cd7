// Package router wires every HTTP endpoint under /api/v1.
package router

import (
	"net/http"

	"github.com/taskpago/backend/internal/admin"
	"github.com/taskpago/backend/internal/auth"
	"github.com/taskpago/backend/internal/dashboard"
	"github.com/taskpago/backend/internal/deposit"
	"github.com/taskpago/backend/internal/escrow"
	"github.com/taskpago/backend/internal/jobs"
	"github.com/taskpago/backend/internal/middleware"
)

// Deps are the handlers and middleware chains the router mounts.
type Deps struct {
	Auth      *auth.Handler
	Jobs      *jobs.Handler
	Escrow    *escrow.Handler
	Dashboard *dashboard.Handler
	Admin     *admin.Handler
	Deposits  *deposit.Handler
	AuthMW    func(http.Handler) http.Handler
	FundingMW func(http.Handler) http.Handler
}

// New returns an http.Handler serving the API under /api/v1.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	authed := func(h http.HandlerFunc) http.Handler { return d.AuthMW(h) }
	adminOnly := func(h http.HandlerFunc) http.Handler { return d.AuthMW(middleware.RequireAdmin(h)) }

	// Public.
	mux.HandleFunc("POST "+base+"/auth/register", d.Auth.Register)
	mux.HandleFunc("POST "+base+"/auth/login", d.Auth.Login)
	mux.HandleFunc("GET "+base+"/jobs", d.Jobs.ListActive)
	mux.HandleFunc("POST "+base+"/webhooks/deposit", d.Deposits.Webhook)

	// Job board.
	mux.Handle("POST "+base+"/jobs", d.AuthMW(d.FundingMW(http.HandlerFunc(d.Jobs.Create))))
	mux.Handle("GET "+base+"/jobs/mine", authed(d.Jobs.ListMine))
	mux.Handle("GET "+base+"/jobs/{id}", authed(d.Jobs.Get))
	mux.Handle("POST "+base+"/jobs/{id}/apply", authed(d.Jobs.Apply))
	mux.Handle("GET "+base+"/jobs/{id}/applications", authed(d.Jobs.ListApplications))

	// Submission and review.
	mux.Handle("GET "+base+"/applications/mine", authed(d.Jobs.ListMyApplications))
	mux.Handle("POST "+base+"/applications/{id}/submit", authed(d.Escrow.SubmitProof))
	mux.Handle("POST "+base+"/applications/{id}/approve", authed(d.Escrow.Approve))
	mux.Handle("POST "+base+"/applications/{id}/reject", authed(d.Escrow.Reject))
	mux.Handle("POST "+base+"/applications/{id}/rate", authed(d.Jobs.Rate))

	// Wallet dashboard.
	mux.Handle("GET "+base+"/me", authed(d.Dashboard.GetMe))
	mux.Handle("GET "+base+"/me/transactions", authed(d.Dashboard.ListTransactions))
	mux.Handle("GET "+base+"/me/referrals", authed(d.Dashboard.ListReferrals))
	mux.Handle("GET "+base+"/me/notifications", authed(d.Dashboard.ListNotifications))
	mux.Handle("POST "+base+"/me/notifications/{id}/read", authed(d.Dashboard.MarkNotificationRead))

	// Admin interventions.
	mux.Handle("POST "+base+"/admin/applications/{id}/force-approve", adminOnly(d.Admin.ForceApprove))
	mux.Handle("GET "+base+"/admin/applications/{id}/interventions", adminOnly(d.Admin.ListInterventions))
	mux.Handle("POST "+base+"/admin/users/{id}/balance", adminOnly(d.Admin.AddBalance))
	mux.Handle("POST "+base+"/admin/users/{id}/bonus", adminOnly(d.Admin.GrantBonus))
	mux.Handle("GET "+base+"/admin/reconcile", adminOnly(d.Admin.Reconcile))

	return mux
}
