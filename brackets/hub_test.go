package brackets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHubServer(t *testing.T, room string) (*Hub, string) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, room)
		if !hub.Register(client) {
			conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	}))

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestRoomForTournament(t *testing.T) {
	assert.Equal(t, "tournament_42", RoomForTournament(42))
}

func TestHubPublishReachesRoom(t *testing.T) {
	room := RoomForTournament(1)
	hub, url := startHubServer(t, room)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount(room) == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(1, EventBracketUpdated, map[string]int{"remaining": 3})
	hub.Publish(2, EventBracketUpdated, map[string]int{"remaining": 1})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type    string         `json:"type"`
		RoomID  string         `json:"room_id"`
		Payload map[string]int `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, EventBracketUpdated, msg.Type)
	assert.Equal(t, room, msg.RoomID)
	assert.Equal(t, 3, msg.Payload["remaining"])
}

func TestHubUnregistersClosedClients(t *testing.T) {
	room := RoomForTournament(5)
	hub, url := startHubServer(t, room)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.ClientCount(room) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount(room) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubRegisterAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zerolog.Nop())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	assert.False(t, hub.Register(&Client{room: RoomForTournament(1), send: make(chan []byte, 1)}))
	assert.Equal(t, 0, hub.ClientCount(RoomForTournament(1)))
}
