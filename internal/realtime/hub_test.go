package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, duelID uuid.UUID) (*Hub, string) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, duelID)
	}))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})

	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestHubPublishReachesWatchers(t *testing.T) {
	duelID := uuid.New()
	hub, url := startHub(t, duelID)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Watchers(duelID) == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(duelID, map[string]string{"type": "duel_matched"})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var got map[string]string
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "duel_matched", got["type"])
}

func TestHubPublishIgnoresOtherRooms(t *testing.T) {
	duelID := uuid.New()
	hub, url := startHub(t, duelID)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Watchers(duelID) == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(uuid.New(), map[string]string{"type": "duel_completed"})

	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestHubDropsClosedWatchers(t *testing.T) {
	duelID := uuid.New()
	hub, url := startHub(t, duelID)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Watchers(duelID) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Watchers(duelID) == 0 }, time.Second, 10*time.Millisecond)

	// Nobody left to receive it; must not panic or block.
	hub.Publish(duelID, map[string]string{"type": "duel_expired"})
}
