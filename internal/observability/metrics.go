// Package observability exposes Prometheus counters for the money-moving
// operations. Handlers serve them on /metrics via promhttp.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskpago_submissions_total",
		Help: "Proof submissions that placed an escrow hold.",
	})
	ApprovalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskpago_approvals_total",
		Help: "Approved submissions (funds released).",
	})
	RejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskpago_rejections_total",
		Help: "Rejected submissions (escrow reversed).",
	})
	PayoutCentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskpago_payout_cents_total",
		Help: "Total centavos released to testers.",
	})
	ReferralRewardsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskpago_referral_rewards_total",
		Help: "Referral commissions paid.",
	})
	DepositsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskpago_deposits_total",
		Help: "Processed deposit webhooks (new charges only).",
	})
	BonusSweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskpago_bonus_sweeps_total",
		Help: "Wallets whose expired bonus was zeroed by the sweep.",
	})
	ReconcileDriftTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskpago_reconcile_drift_total",
		Help: "Users flagged by the ledger reconciliation sweep.",
	})
)
