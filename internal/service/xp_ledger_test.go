package service

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/code-duels/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXPLedgerCreditIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.addUser(t, "alice")
	reason := "duel:" + uuid.NewString()

	credited, err := env.ledger.Credit(ctx, u1, 45, reason)
	require.NoError(t, err)
	assert.True(t, credited)

	credited, err = env.ledger.Credit(ctx, u1, 45, reason)
	require.NoError(t, err)
	assert.False(t, credited)

	assert.Equal(t, 45, env.xp(t, u1))

	credited, err = env.ledger.Credit(ctx, u1, 15, "duel:"+uuid.NewString())
	require.NoError(t, err)
	assert.True(t, credited)

	total, err := env.ledger.Total(ctx, u1)
	require.NoError(t, err)
	assert.Equal(t, 60, total)
	assert.Equal(t, 60, env.xp(t, u1))
}

func TestXPLedgerUnknownUser(t *testing.T) {
	database := setupTestDB(t)
	ledger := NewXPLedger(database, store.NewLedgerStore(database))

	_, err := ledger.Credit(context.Background(), uuid.New(), 10, "duel:x")
	assert.Error(t, err)
}

func TestSubmitWithoutLedgerStillDecides(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.svc.ledger = nil
	u1 := env.addUser(t, "alice")
	u2 := env.addUser(t, "bob")
	d := env.startHumanDuel(t, u1, u2)

	outcome, err := env.svc.Submit(ctx, submission(d, u1, correctCode, 5))
	require.NoError(t, err)
	require.NotNil(t, outcome.Winner)
	assert.Equal(t, 0, env.xp(t, u1))
}
