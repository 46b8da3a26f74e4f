package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AdamBeresnev/code-duels/internal/duel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedWaiting stores a waiting duel directly, bypassing the match attempt
// CreateDuel makes.
func (env *testEnv) seedWaiting(t *testing.T, challengerID uuid.UUID, createdAt time.Time) *duel.Duel {
	t.Helper()
	ctx := context.Background()
	d := &duel.Duel{
		ID:             uuid.New(),
		ChallengerID:   challengerID,
		QuestionID:     env.question.ID,
		Status:         duel.StatusWaiting,
		CreatedAt:      createdAt,
		LastActivityAt: createdAt,
	}
	tx, err := env.db.Beginx()
	require.NoError(t, err)
	require.NoError(t, env.duels.CreateDuel(ctx, tx, d))
	require.NoError(t, env.duels.ClaimSlotTx(ctx, tx, challengerID, d.ID))
	require.NoError(t, tx.Commit())
	return d
}

func TestCreateDuelMatchesWaitingPeer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.addUser(t, "alice")
	u2 := env.addUser(t, "bob")

	first, err := env.svc.CreateDuel(ctx, env.question.ID, u1)
	require.NoError(t, err)
	require.Equal(t, duel.StatusWaiting, first.Status)

	env.clock.Advance(5 * time.Second)
	second, err := env.svc.CreateDuel(ctx, env.question.ID, u2)
	require.NoError(t, err)

	assert.Equal(t, duel.StatusActive, second.Status)
	assert.Equal(t, u2, second.ChallengerID)
	opponent, ok := second.Opponent()
	require.True(t, ok)
	assert.Equal(t, duel.Human(u1), opponent)

	// The peer's own duel is gone and its slot follows it into the match.
	_, err = env.svc.GetDuel(ctx, first.ID, u1)
	assert.ErrorIs(t, err, ErrDuelNotFound)
	holder, err := env.duels.SlotHolder(ctx, u1)
	require.NoError(t, err)
	require.NotNil(t, holder)
	assert.Equal(t, second.ID, *holder)

	details, err := env.svc.GetDuel(ctx, second.ID, u1)
	require.NoError(t, err)
	assert.Equal(t, "alice", details.OpponentName)
	assert.Equal(t, []string{EventMatched}, env.notifier.Types(second.ID))
	assert.Equal(t, 0, env.roller.calls, "no bot for a peer match")

	// Alice only knows her own duel id; its room learns where the match went.
	events := env.notifier.Events(first.ID)
	require.Len(t, events, 1)
	assert.Equal(t, EventMatched, events[0].Type)
	require.NotNil(t, events[0].Duel)
	assert.Equal(t, second.ID, events[0].Duel.ID)
	assert.Equal(t, duel.StatusActive, events[0].Duel.Status)
}

func TestTryMatchRespectsGracePeriod(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.addUser(t, "alice")

	d, err := env.svc.CreateDuel(ctx, env.question.ID, u1)
	require.NoError(t, err)

	env.clock.Advance(DefaultMatchGracePeriod)
	matched, err := env.svc.TryMatch(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, matched, "exactly the grace period is still within it")
	assert.Equal(t, duel.StatusWaiting, env.reload(t, d.ID).Status)

	env.clock.Advance(time.Second)
	matched, err = env.svc.TryMatch(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, matched)

	active := env.reload(t, d.ID)
	assert.Equal(t, duel.StatusActive, active.Status)
	assert.True(t, active.HasBotOpponent())
	roll, ok := active.BotOutcome()
	require.True(t, ok)
	assert.Equal(t, env.roller.roll, roll)

	// A second attempt is a no-op
	matched, err = env.svc.TryMatch(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, matched)
	assert.Equal(t, 1, env.roller.calls)
}

func TestTryMatchBotTierFollowsDifficulty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.addUser(t, "alice")
	hard := env.addQuestion(t, "code", 5, 50)

	d, err := env.svc.CreateDuel(ctx, hard.ID, u1)
	require.NoError(t, err)
	env.clock.Advance(time.Minute)

	matched, err := env.svc.TryMatch(ctx, d.ID)
	require.NoError(t, err)
	require.True(t, matched)

	opponent, ok := env.reload(t, d.ID).Opponent()
	require.True(t, ok)
	assert.Equal(t, duel.Bot(5), opponent)
}

func TestTryMatchUnknownDuel(t *testing.T) {
	env := newTestEnv(t)
	matched, err := env.svc.TryMatch(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestMatchWaitingPairsOldestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.addUser(t, "alice")
	u2 := env.addUser(t, "bob")
	u3 := env.addUser(t, "carol")

	w1 := env.seedWaiting(t, u1, epoch)
	w2 := env.seedWaiting(t, u2, epoch.Add(time.Second))
	w3 := env.seedWaiting(t, u3, epoch.Add(2*time.Second))

	// Still inside everyone's grace period: only peers pair up.
	env.clock.Advance(10 * time.Second)
	matched, err := env.svc.MatchWaiting(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, matched)

	survivor := env.reload(t, w1.ID)
	assert.Equal(t, duel.StatusActive, survivor.Status)
	opponent, ok := survivor.Opponent()
	require.True(t, ok)
	assert.Equal(t, duel.Human(u2), opponent, "oldest peer is taken first")

	_, err = env.duels.GetDuel(ctx, w2.ID)
	assert.Error(t, err)
	assert.Equal(t, duel.StatusWaiting, env.reload(t, w3.ID).Status)

	// Once the grace period lapses the leftover gets a bot.
	env.clock.Advance(time.Minute)
	matched, err = env.svc.MatchWaiting(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, matched)
	assert.True(t, env.reload(t, w3.ID).HasBotOpponent())
}

func TestConcurrentTryMatchAssignsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.addUser(t, "alice")

	d, err := env.svc.CreateDuel(ctx, env.question.ID, u1)
	require.NoError(t, err)
	env.clock.Advance(time.Minute)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := env.svc.TryMatch(ctx, d.ID)
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, duel.StatusActive, env.reload(t, d.ID).Status)
}
