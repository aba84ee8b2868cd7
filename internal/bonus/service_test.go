package bonus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	grants []grant
	swept  int64
}

type grant struct {
	userID    uuid.UUID
	amount    int64
	issuedAt  time.Time
	expiresAt time.Time
}

func (m *memStore) GrantBonus(_ context.Context, userID uuid.UUID, amountCents int64, issuedAt, expiresAt time.Time) error {
	m.grants = append(m.grants, grant{userID, amountCents, issuedAt, expiresAt})
	return nil
}

func (m *memStore) SweepExpiredBonuses(_ context.Context, _ time.Time) (int64, error) {
	return m.swept, nil
}

type memNotifier struct {
	notices int
}

func (m *memNotifier) Notify(context.Context, uuid.UUID, string, string, string, json.RawMessage) error {
	m.notices++
	return nil
}

func TestGrantSetsExpiryWindow(t *testing.T) {
	store := &memStore{}
	notifier := &memNotifier{}
	svc := NewService(store, notifier, 0, nil)

	userID := uuid.New()
	require.NoError(t, svc.Grant(context.Background(), userID, 500_00))

	require.Len(t, store.grants, 1)
	g := store.grants[0]
	require.Equal(t, userID, g.userID)
	require.Equal(t, int64(500_00), g.amount)
	require.Equal(t, DefaultTTL, g.expiresAt.Sub(g.issuedAt))
	require.Equal(t, 1, notifier.notices)
}

func TestGrantHonorsCustomTTL(t *testing.T) {
	store := &memStore{}
	svc := NewService(store, nil, 7*24*time.Hour, nil)

	require.NoError(t, svc.Grant(context.Background(), uuid.New(), 100_00))
	g := store.grants[0]
	require.Equal(t, 7*24*time.Hour, g.expiresAt.Sub(g.issuedAt))
}

func TestSweepReportsCount(t *testing.T) {
	svc := NewService(&memStore{swept: 3}, nil, 0, nil)
	swept, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), swept)
}
