package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/taskpago/backend/internal/admin"
	"github.com/taskpago/backend/internal/auth"
	"github.com/taskpago/backend/internal/bonus"
	"github.com/taskpago/backend/internal/config"
	"github.com/taskpago/backend/internal/dashboard"
	"github.com/taskpago/backend/internal/deposit"
	"github.com/taskpago/backend/internal/escrow"
	"github.com/taskpago/backend/internal/jobs"
	"github.com/taskpago/backend/internal/levels"
	"github.com/taskpago/backend/internal/middleware"
	"github.com/taskpago/backend/internal/notify"
	"github.com/taskpago/backend/internal/proof"
	"github.com/taskpago/backend/internal/referral"
	"github.com/taskpago/backend/internal/repository"
	"github.com/taskpago/backend/internal/router"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		slog.Error("cannot reach PostgreSQL; start it first (e.g. make dev-up)", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to PostgreSQL")

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("create river migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("river migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("river migrations applied")

	// Repositories.
	userRepo := repository.NewUserRepo(pool)
	walletRepo := repository.NewWalletRepo(pool)
	txRepo := repository.NewTransactionRepo(pool)
	appRepo := repository.NewApplicationRepo(pool)
	jobRepo := repository.NewJobRepo(pool)
	referralRepo := repository.NewReferralRepo(pool)
	levelRepo := repository.NewLevelRepo(pool)
	chargeRepo := repository.NewChargeRepo(pool)
	interventionRepo := repository.NewInterventionRepo(pool)
	notifyRepo := notify.NewRepository(pool)

	validator, err := proof.NewValidator()
	if err != nil {
		slog.Error("compile proof schemas", "error", err)
		os.Exit(1)
	}

	// Services.
	notifySvc := notify.NewService(notifyRepo, logger)
	mailer := notify.NewMailer(cfg.MailerURL, cfg.MailerAPIKey, logger)
	levelsSvc := levels.NewService(levelRepo, logger)
	referralSvc := referral.NewService(referralRepo, userRepo, logger)
	bonusSvc := bonus.NewService(walletRepo, notifySvc, time.Duration(cfg.BonusTTLDays)*24*time.Hour, logger)

	// The engine's enqueue func is set after the river client exists; river
	// needs the workers, some of which need the engine's services.
	var insertMu sync.Mutex
	var insertFn escrow.EnqueueTxFunc
	enqueue := func(ctx context.Context, tx pgx.Tx, args river.JobArgs) error {
		insertMu.Lock()
		fn := insertFn
		insertMu.Unlock()
		if fn == nil {
			panic("river insert not wired")
		}
		return fn(ctx, tx, args)
	}

	engine := escrow.NewEngine(pool, walletRepo, txRepo, appRepo, jobRepo, userRepo, validator, enqueue, logger)
	jobsSvc := jobs.NewService(walletRepo, txRepo, jobRepo, appRepo, levelsSvc, notifySvc, logger)
	depositSvc := deposit.NewService(chargeRepo, walletRepo, txRepo, userRepo, mailer, notifySvc, logger)
	adminSvc := admin.NewService(engine, appRepo, jobRepo, interventionRepo, walletRepo, txRepo, notifySvc, logger)

	riverClient, err := newRiverClient(cfg, pool, riverDeps{
		notifySvc:   notifySvc,
		mailer:      mailer,
		levelsSvc:   levelsSvc,
		referralSvc: referralSvc,
		bonusSvc:    bonusSvc,
		jobsSvc:     jobsSvc,
		walletRepo:  walletRepo,
		logger:      logger,
	})
	if err != nil {
		slog.Error("create river client", "error", err)
		os.Exit(1)
	}
	insertMu.Lock()
	insertFn = func(ctx context.Context, tx pgx.Tx, args river.JobArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}
	insertMu.Unlock()

	// Handlers.
	authSvc := auth.NewService(userRepo, referralSvc, cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)
	apiRouter := router.New(router.Deps{
		Auth:      auth.NewHandler(authSvc, logger),
		Jobs:      jobs.NewHandler(jobsSvc, logger),
		Escrow:    escrow.NewHandler(engine, logger),
		Dashboard: dashboard.NewHandler(userRepo, txRepo, levelRepo, referralSvc, notifySvc, logger),
		Admin:     admin.NewHandler(adminSvc, walletRepo, interventionRepo, bonusSvc, logger),
		Deposits:  deposit.NewHandler(depositSvc, cfg.WebhookSecret, logger),
		AuthMW:    middleware.JWTAuth(authSvc),
		FundingMW: middleware.FundingCheck(pool),
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(mux)

	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("river client stopped", "error", err)
		}
	}()

	addr := "0.0.0.0:" + cfg.Port
	slog.Info("starting HTTP server", "addr", addr)
	if err := http.ListenAndServe(addr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
