// Package deposit processes payment-provider webhook events. Each charge is
// converted to KZ at a fixed table rate and credited exactly once; replays of
// the same charge id are acknowledged without crediting.
package deposit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskpago/backend/internal/models"
	"github.com/taskpago/backend/internal/observability"
)

var (
	// ErrUnsupportedCurrency is returned for charge currencies outside the
	// conversion table.
	ErrUnsupportedCurrency = errors.New("unsupported deposit currency")
	// ErrInvalidCharge is returned for malformed webhook payloads.
	ErrInvalidCharge = errors.New("invalid charge event")
)

// kzPerUnit converts one minor unit of the charge currency to KZ centavos.
// BTC charges arrive denominated in satoshi.
var kzPerUnit = map[string]int64{
	"USD": 550,    // 1 cent USD -> 5.50 KZ
	"EUR": 600,    // 1 cent EUR -> 6.00 KZ
	"BTC": 33_000, // 1 satoshi  -> 330 KZ
	"KZ":  1,
}

// ChargeEvent is the provider webhook payload after signature verification.
type ChargeEvent struct {
	ChargeID    string    `json:"charge_id"`
	UserID      uuid.UUID `json:"user_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
}

// ChargeStore records processed charges; the insert is the idempotency guard.
type ChargeStore interface {
	InsertTx(ctx context.Context, tx pgx.Tx, c *models.DepositCharge) (bool, error)
}

// WalletStore credits the poster wallet inside the deposit transaction.
type WalletStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	CreditDeposit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) error
}

// LedgerStore appends the deposit entry.
type LedgerStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
}

// Mailer sends the receipt email after the credit lands.
type Mailer interface {
	SendTemplated(ctx context.Context, to, template string, variables map[string]string) error
}

// Notifier stores the in-app deposit notice.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType, title, message string, metadata json.RawMessage) error
}

// UserReader resolves the recipient's email address.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type Service struct {
	charges  ChargeStore
	wallets  WalletStore
	ledger   LedgerStore
	users    UserReader
	mailer   Mailer
	notifier Notifier
	log      *slog.Logger
}

func NewService(charges ChargeStore, wallets WalletStore, ledger LedgerStore, users UserReader, mailer Mailer, notifier Notifier, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{charges: charges, wallets: wallets, ledger: ledger, users: users, mailer: mailer, notifier: notifier, log: log}
}

// Convert returns the KZ centavo value of a charge amount.
func Convert(amountCents int64, currency string) (int64, error) {
	rate, ok := kzPerUnit[strings.ToUpper(currency)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, currency)
	}
	return amountCents * rate, nil
}

// Process credits one charge. The charge insert, wallet credit, and ledger
// entry commit together; a replayed charge id inserts nothing and returns
// (false, nil) so the webhook can be acknowledged without a second credit.
func (s *Service) Process(ctx context.Context, ev ChargeEvent) (credited bool, err error) {
	if ev.ChargeID == "" || ev.UserID == uuid.Nil || ev.AmountCents <= 0 {
		return false, ErrInvalidCharge
	}
	kz, err := Convert(ev.AmountCents, ev.Currency)
	if err != nil {
		return false, err
	}

	tx, err := s.wallets.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	inserted, err := s.charges.InsertTx(ctx, tx, &models.DepositCharge{
		ChargeID:        ev.ChargeID,
		UserID:          ev.UserID,
		AmountCents:     ev.AmountCents,
		Currency:        strings.ToUpper(ev.Currency),
		CreditedCentsKZ: kz,
	})
	if err != nil {
		return false, err
	}
	if !inserted {
		s.log.Info("duplicate charge event ignored", "charge_id", ev.ChargeID)
		return false, nil
	}

	if err := s.wallets.CreditDeposit(ctx, tx, ev.UserID, kz); err != nil {
		return false, err
	}
	entry := models.NewTransaction(ev.UserID, models.TxTypeDeposit, kz, models.TxStatusCompleted,
		fmt.Sprintf("Deposit of %d %s", ev.AmountCents, strings.ToUpper(ev.Currency)),
		models.TxMetadata{ChargeID: ev.ChargeID})
	if err := s.ledger.CreateTx(ctx, tx, entry); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}

	observability.DepositsTotal.Inc()
	s.log.Info("deposit credited", "charge_id", ev.ChargeID, "user_id", ev.UserID, "credited_cents_kz", kz)

	creditedKZ := fmt.Sprintf("%d.%02d", kz/100, kz%100)
	if s.notifier != nil {
		_ = s.notifier.Notify(ctx, ev.UserID, models.NotifyDepositReceived,
			"Deposit received", fmt.Sprintf("%s KZ was credited to your balance.", creditedKZ), nil)
	}
	if s.mailer != nil && s.users != nil {
		if user, err := s.users.GetByID(ctx, ev.UserID); err == nil {
			_ = s.mailer.SendTemplated(ctx, user.Email, "deposit_received", map[string]string{
				"original": fmt.Sprintf("%d %s", ev.AmountCents, strings.ToUpper(ev.Currency)),
				"credited": creditedKZ,
			})
		}
	}
	return true, nil
}
