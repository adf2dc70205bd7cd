package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogastudio/internal/model"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(10)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		cctx, ccancel := context.WithCancel(context.Background())
		c := NewClient(hub, conn, 7)
		c.Start(cctx, ccancel)
		hub.Register(c)
	}))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestHub_PublishReachesClient(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(model.RosterEvent{Type: model.EventParticipantJoined, SessionID: 3, UserID: 7, Users: []int64{5, 7}})

	msg := readMessage(t, conn)
	assert.Equal(t, "participant_joined", msg["type"])
	payload := msg["payload"].(map[string]any)
	assert.EqualValues(t, 3, payload["sessionId"])
	assert.EqualValues(t, 7, payload["userId"])
	assert.Equal(t, []any{float64(5), float64(7)}, payload["users"])
}

func TestHub_SubscriptionFilters(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(IncomingMessage{Type: EventSubscribe, SessionID: 2}))
	ack := readMessage(t, conn)
	assert.Equal(t, "subscribed", ack["type"])

	hub.Publish(model.RosterEvent{Type: model.EventSessionDeleted, SessionID: 1})
	hub.Publish(model.RosterEvent{Type: model.EventSessionUpdated, SessionID: 2})

	msg := readMessage(t, conn)
	assert.Equal(t, "session_updated", msg["type"], "session 1 event must be filtered out")
}

func TestHub_UnknownEvent(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "typing"}))
	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg["type"])
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
