package notifyhub

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/scandrop/types"
)

func TestHubBroadcastToWebSocketClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := New()
	t.Cleanup(hub.Close)
	router := gin.New()
	router.GET("/notify-ws", HandleNotifyWS(hub, func() []byte { return []byte(`{"type":"snapshot"}`) }))
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/notify-ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	_, first, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"snapshot"}`, string(first))

	require.Eventually(t, func() bool { return hub.Len() == 1 }, 2*time.Second, 5*time.Millisecond)
	hub.Broadcast(&types.Notification{Type: types.NotifyTypeTaskRemoved, Data: map[string]any{"id": "t1"}})
	hub.Broadcast(nil)

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"task_removed","data":{"id":"t1"}}`, string(msg))

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestBroadcastDoesNotWaitForSlowClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := New()
	t.Cleanup(hub.Close)
	router := gin.New()
	router.GET("/notify-ws", HandleNotifyWS(hub, nil))
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/notify-ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	// hold the client's write lock so every write to it stalls
	hub.mu.RLock()
	var stalled *client
	for _, c := range hub.conns {
		stalled = c
	}
	hub.mu.RUnlock()
	stalled.mu.Lock()

	start := time.Now()
	for i := 0; i < 3; i++ {
		hub.Broadcast(&types.Notification{Type: types.NotifyTypeTaskUpdated})
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	stalled.mu.Unlock()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < 3; i++ {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"task_updated"}`, string(msg))
	}
}

func TestBroadcastAfterCloseIsDropped(t *testing.T) {
	hub := New()
	hub.Close()
	hub.Close()
	hub.Broadcast(&types.Notification{Type: types.NotifyTypeTaskUpdated})
	assert.Equal(t, 0, hub.Len())
}
