package views

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/AdamBeresnev/code-duels/internal/duel"
	users "github.com/AdamBeresnev/code-duels/internal/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareLobbyData(t *testing.T) {
	me := uuid.New()
	rival := uuid.New()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	won := duel.Human(me)
	lost := duel.Human(rival)
	bot := duel.Bot(3)

	history := []duel.Summary{
		{ID: uuid.New(), Status: duel.StatusActive, CreatedAt: base.Add(4 * time.Minute)},
		{ID: uuid.New(), Status: duel.StatusCompleted, Winner: &won, CreatedAt: base.Add(3 * time.Minute)},
		{ID: uuid.New(), Status: duel.StatusCompleted, Winner: &lost, CreatedAt: base.Add(time.Minute)},
		{ID: uuid.New(), Status: duel.StatusCompleted, Winner: &bot, CreatedAt: base.Add(2 * time.Minute)},
		{ID: uuid.New(), Status: duel.StatusExpired, CreatedAt: base},
	}

	data := PrepareLobbyData(me, nil, history)

	require.NotNil(t, data.Current)
	assert.Equal(t, history[0].ID, data.Current.ID)
	assert.Equal(t, Record{Wins: 1, Losses: 2, Expired: 1}, data.Record)
	assert.Equal(t, 4, data.Record.Played())

	require.Len(t, data.Past, 4)
	for i := 1; i < len(data.Past); i++ {
		assert.True(t, data.Past[i-1].CreatedAt.After(data.Past[i].CreatedAt), "past duels should be newest first")
	}
}

func TestResultFor(t *testing.T) {
	me := uuid.New()
	mine := duel.Human(me)
	bot := duel.Bot(1)

	assert.Equal(t, "Won", ResultFor(me, duel.Summary{Status: duel.StatusCompleted, Winner: &mine}))
	assert.Equal(t, "Lost", ResultFor(me, duel.Summary{Status: duel.StatusCompleted, Winner: &bot}))
	assert.Equal(t, "Expired", ResultFor(me, duel.Summary{Status: duel.StatusExpired}))
	assert.Equal(t, "In progress", ResultFor(me, duel.Summary{Status: duel.StatusWaiting}))
}

func TestLobbyPageEscapesNames(t *testing.T) {
	user := &users.User{ID: uuid.New(), Username: "<alice>", XP: 45}
	data := LobbyData{
		Available: []duel.Summary{{
			ID:             uuid.New(),
			ChallengerName: "<script>bob</script>",
			QuestionText:   "Reverse a string",
			Status:         duel.StatusWaiting,
		}},
	}

	var b strings.Builder
	require.NoError(t, LobbyPage(user, data).Render(context.Background(), &b))

	html := b.String()
	assert.Contains(t, html, "&lt;alice&gt; &middot; 45 XP")
	assert.Contains(t, html, "&lt;script&gt;bob&lt;/script&gt;")
	assert.NotContains(t, html, "<script>bob")
	assert.Contains(t, html, "/duels/"+data.Available[0].ID.String()+"/join")
	assert.Contains(t, html, "No finished duels yet.")
}
