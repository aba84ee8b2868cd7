package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taskpago/backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory mocks. These let us test the posting and rating logic without a
// database.
// ---------------------------------------------------------------------------

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

var errNoFunds = errors.New("spendable balance too low")

type mockWallet struct {
	mu          sync.Mutex
	cash        int64
	bonus       int64
	bonusExpiry time.Time
}

func (m *mockWallet) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

func (m *mockWallet) SpendWithBonus(_ context.Context, _ pgx.Tx, _ uuid.UUID, cost int64, now time.Time) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bonus := m.bonus
	if !now.Before(m.bonusExpiry) {
		bonus = 0
	}
	if bonus+m.cash < cost {
		return 0, 0, errNoFunds
	}
	bonusUsed := min64(bonus, cost)
	cashUsed := cost - bonusUsed
	m.bonus -= bonusUsed
	m.cash -= cashUsed
	return bonusUsed, cashUsed, nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

type mockJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*models.Job
}

func newMockJobStore(js ...*models.Job) *mockJobStore {
	m := &mockJobStore{jobs: make(map[uuid.UUID]*models.Job)}
	for _, j := range js {
		cp := *j
		m.jobs[j.ID] = &cp
	}
	return m
}

func (m *mockJobStore) CreateTx(_ context.Context, _ pgx.Tx, j *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j.ID = uuid.New()
	cp := *j
	m.jobs[j.ID] = &cp
	return nil
}

func (m *mockJobStore) GetByID(_ context.Context, id uuid.UUID) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s not found", id)
	}
	cp := *j
	return &cp, nil
}

func (m *mockJobStore) ListActive(context.Context) ([]*models.Job, error)              { return nil, nil }
func (m *mockJobStore) ListByPoster(context.Context, uuid.UUID) ([]*models.Job, error) { return nil, nil }
func (m *mockJobStore) ListExpiredRecurring(context.Context) ([]*models.Job, error)    { return nil, nil }
func (m *mockJobStore) Republish(context.Context, uuid.UUID) error                     { return nil }

type mockAppStore struct {
	mu      sync.Mutex
	apps    map[uuid.UUID]*models.Application
	applied map[string]bool
	rated   map[uuid.UUID]bool
	stale   []*models.Application
}

func newMockAppStore(apps ...*models.Application) *mockAppStore {
	m := &mockAppStore{
		apps:    make(map[uuid.UUID]*models.Application),
		applied: make(map[string]bool),
		rated:   make(map[uuid.UUID]bool),
	}
	for _, a := range apps {
		cp := *a
		m.apps[a.ID] = &cp
	}
	return m
}

func (m *mockAppStore) Create(_ context.Context, jobID, testerID uuid.UUID) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := jobID.String() + "/" + testerID.String()
	if m.applied[key] {
		return nil, &pgconn.PgError{Code: "23505", ConstraintName: "applications_job_tester_key"}
	}
	m.applied[key] = true
	app := &models.Application{ID: uuid.New(), JobID: jobID, TesterID: testerID, Status: models.AppStatusApplied}
	m.apps[app.ID] = app
	return app, nil
}

func (m *mockAppStore) GetByID(_ context.Context, id uuid.UUID) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id]
	if !ok {
		return nil, fmt.Errorf("application %s not found", id)
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppStore) SetFeedback(_ context.Context, id uuid.UUID, rating int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id]
	if !ok || a.Status != models.AppStatusApproved || m.rated[id] {
		return false, nil
	}
	m.rated[id] = true
	a.Feedback = &rating
	return true, nil
}

func (m *mockAppStore) ListByJob(context.Context, uuid.UUID) ([]*models.Application, error) {
	return nil, nil
}
func (m *mockAppStore) ListByTester(context.Context, uuid.UUID) ([]*models.Application, error) {
	return nil, nil
}
func (m *mockAppStore) ListStaleSubmitted(context.Context, time.Duration) ([]*models.Application, error) {
	return m.stale, nil
}

type mockLedgerStore struct {
	mu      sync.Mutex
	entries []*models.Transaction
}

func (m *mockLedgerStore) CreateTx(_ context.Context, _ pgx.Tx, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.entries = append(m.entries, &cp)
	return nil
}

type mockXP struct {
	mu     sync.Mutex
	awards []int
}

func (m *mockXP) AddXP(_ context.Context, _ uuid.UUID, amount int, _ string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.awards = append(m.awards, amount)
	return 1, false, nil
}

type mockNotify struct {
	mu    sync.Mutex
	sent  []uuid.UUID
	types []string
}

func (m *mockNotify) Notify(_ context.Context, userID uuid.UUID, notifType, _, _ string, _ json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, userID)
	m.types = append(m.types, notifType)
	return nil
}

// ---------------------------------------------------------------------------
// Posting
// ---------------------------------------------------------------------------

func validInput() CreateJobInput {
	return CreateJobInput{
		Title:         "Test the signup flow",
		Type:          models.JobTypeManual,
		Category:      "web",
		BountyCents:   200_00,
		MaxApplicants: 5,
	}
}

func TestCreateFundsFullPool(t *testing.T) {
	wallet := &mockWallet{cash: 700_00, bonus: 300_00, bonusExpiry: time.Now().Add(time.Hour)}
	ledger := &mockLedgerStore{}
	jobStore := newMockJobStore()
	svc := NewService(wallet, ledger, jobStore, newMockAppStore(), nil, nil, nil)

	job, err := svc.Create(context.Background(), uuid.New(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if job.Status != models.JobStatusActive {
		t.Errorf("job status: got %q, want active", job.Status)
	}
	if wallet.cash != 0 || wallet.bonus != 0 {
		t.Errorf("wallet after funding: cash %d bonus %d, want both 0", wallet.cash, wallet.bonus)
	}
	if len(ledger.entries) != 1 {
		t.Fatalf("ledger entries: got %d, want 1", len(ledger.entries))
	}
	e := ledger.entries[0]
	if e.Type != models.TxTypeEscrow || e.Status != models.TxStatusCompleted || e.AmountCents != 1000_00 {
		t.Errorf("funding entry: type %q status %q amount %d", e.Type, e.Status, e.AmountCents)
	}
}

func TestCreateBonusSpentBeforeCash(t *testing.T) {
	wallet := &mockWallet{cash: 2000_00, bonus: 300_00, bonusExpiry: time.Now().Add(time.Hour)}
	svc := NewService(wallet, &mockLedgerStore{}, newMockJobStore(), newMockAppStore(), nil, nil, nil)

	if _, err := svc.Create(context.Background(), uuid.New(), validInput()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if wallet.bonus != 0 {
		t.Errorf("bonus after funding: got %d, want 0", wallet.bonus)
	}
	if wallet.cash != 1300_00 {
		t.Errorf("cash after funding: got %d, want 130000", wallet.cash)
	}
}

func TestCreateExpiredBonusIsIgnored(t *testing.T) {
	wallet := &mockWallet{cash: 500_00, bonus: 900_00, bonusExpiry: time.Now().Add(-time.Hour)}
	svc := NewService(wallet, &mockLedgerStore{}, newMockJobStore(), newMockAppStore(), nil, nil, nil)

	_, err := svc.Create(context.Background(), uuid.New(), validInput())
	if !errors.Is(err, errNoFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestCreateInsufficientFundsLeavesNothingBehind(t *testing.T) {
	wallet := &mockWallet{cash: 100_00}
	ledger := &mockLedgerStore{}
	jobStore := newMockJobStore()
	svc := NewService(wallet, ledger, jobStore, newMockAppStore(), nil, nil, nil)

	_, err := svc.Create(context.Background(), uuid.New(), validInput())
	if !errors.Is(err, errNoFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if len(jobStore.jobs) != 0 {
		t.Errorf("jobs created: got %d, want 0", len(jobStore.jobs))
	}
	if len(ledger.entries) != 0 {
		t.Errorf("ledger entries: got %d, want 0", len(ledger.entries))
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc := NewService(&mockWallet{cash: 10000_00}, &mockLedgerStore{}, newMockJobStore(), newMockAppStore(), nil, nil, nil)

	cases := map[string]func(*CreateJobInput){
		"empty title":     func(in *CreateJobInput) { in.Title = "" },
		"zero bounty":     func(in *CreateJobInput) { in.BountyCents = 0 },
		"zero slots":      func(in *CreateJobInput) { in.MaxApplicants = 0 },
		"unknown type":    func(in *CreateJobInput) { in.Type = "survey" },
		"negative bounty": func(in *CreateJobInput) { in.BountyCents = -5 },
	}
	for name, mutate := range cases {
		in := validInput()
		mutate(&in)
		if _, err := svc.Create(context.Background(), uuid.New(), in); !errors.Is(err, ErrInvalidJob) {
			t.Errorf("%s: expected ErrInvalidJob, got %v", name, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Applying
// ---------------------------------------------------------------------------

func TestApplyTwiceIsRejected(t *testing.T) {
	jobID := uuid.New()
	jobStore := newMockJobStore(&models.Job{ID: jobID, Status: models.JobStatusActive})
	svc := NewService(&mockWallet{}, &mockLedgerStore{}, jobStore, newMockAppStore(), nil, nil, nil)

	testerID := uuid.New()
	if _, err := svc.Apply(context.Background(), jobID, testerID); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	_, err := svc.Apply(context.Background(), jobID, testerID)
	if !errors.Is(err, ErrAlreadyApplied) {
		t.Fatalf("second apply: expected ErrAlreadyApplied, got %v", err)
	}
}

func TestApplyInactiveJob(t *testing.T) {
	jobID := uuid.New()
	jobStore := newMockJobStore(&models.Job{ID: jobID, Status: models.JobStatusCompleted})
	svc := NewService(&mockWallet{}, &mockLedgerStore{}, jobStore, newMockAppStore(), nil, nil, nil)

	_, err := svc.Apply(context.Background(), jobID, uuid.New())
	if !errors.Is(err, ErrJobNotActive) {
		t.Fatalf("expected ErrJobNotActive, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Rating
// ---------------------------------------------------------------------------

func ratedFixture() (svc *Service, appID, posterID uuid.UUID, xp *mockXP) {
	posterID = uuid.New()
	jobID := uuid.New()
	appID = uuid.New()
	jobStore := newMockJobStore(&models.Job{ID: jobID, PosterID: posterID, Status: models.JobStatusActive})
	apps := newMockAppStore(&models.Application{
		ID: appID, JobID: jobID, TesterID: uuid.New(), Status: models.AppStatusApproved,
	})
	xp = &mockXP{}
	svc = NewService(&mockWallet{}, &mockLedgerStore{}, jobStore, apps, xp, nil, nil)
	return svc, appID, posterID, xp
}

func TestRateAwardsXP(t *testing.T) {
	svc, appID, posterID, xp := ratedFixture()

	if err := svc.Rate(context.Background(), appID, posterID, 4); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if len(xp.awards) != 1 || xp.awards[0] != models.XPPerRating {
		t.Errorf("xp awards: got %v, want [%d]", xp.awards, models.XPPerRating)
	}
}

func TestRateOnlyOnce(t *testing.T) {
	svc, appID, posterID, xp := ratedFixture()

	if err := svc.Rate(context.Background(), appID, posterID, 5); err != nil {
		t.Fatalf("first rate: %v", err)
	}
	if err := svc.Rate(context.Background(), appID, posterID, 2); !errors.Is(err, ErrAlreadyRated) {
		t.Fatalf("second rate: expected ErrAlreadyRated, got %v", err)
	}
	if len(xp.awards) != 1 {
		t.Errorf("xp awarded %d times, want 1", len(xp.awards))
	}
}

func TestRateWrongPoster(t *testing.T) {
	svc, appID, _, _ := ratedFixture()

	err := svc.Rate(context.Background(), appID, uuid.New(), 3)
	if !errors.Is(err, ErrNotJobOwner) {
		t.Fatalf("expected ErrNotJobOwner, got %v", err)
	}
}

func TestRateOutOfRange(t *testing.T) {
	svc, appID, posterID, _ := ratedFixture()

	for _, rating := range []int{0, 6, -1} {
		if err := svc.Rate(context.Background(), appID, posterID, rating); !errors.Is(err, ErrInvalidRating) {
			t.Errorf("rating %d: expected ErrInvalidRating, got %v", rating, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Stale reminders
// ---------------------------------------------------------------------------

func TestRemindStaleNotifiesPoster(t *testing.T) {
	posterID := uuid.New()
	jobID := uuid.New()
	jobStore := newMockJobStore(&models.Job{ID: jobID, PosterID: posterID, Title: "Old job", Status: models.JobStatusActive})
	apps := newMockAppStore()
	submitted := time.Now().Add(-72 * time.Hour)
	apps.stale = []*models.Application{
		{ID: uuid.New(), JobID: jobID, Status: models.AppStatusSubmitted, SubmittedAt: &submitted},
	}
	notifier := &mockNotify{}
	svc := NewService(&mockWallet{}, &mockLedgerStore{}, jobStore, apps, nil, notifier, nil)

	n, err := svc.RemindStale(context.Background(), 48*time.Hour)
	if err != nil {
		t.Fatalf("RemindStale: %v", err)
	}
	if n != 1 {
		t.Fatalf("reminded: got %d, want 1", n)
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != posterID {
		t.Fatalf("notified %v, want [%s]", notifier.sent, posterID)
	}
	if notifier.types[0] != models.NotifyStaleSubmission {
		t.Errorf("notification type: got %q", notifier.types[0])
	}
}
