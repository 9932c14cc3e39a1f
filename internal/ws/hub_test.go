package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcastReachesAllViewers(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Close()
	server := httptest.NewServer(hub)
	defer server.Close()

	first := dial(t, server)
	second := dial(t, server)

	require.Eventually(t, func() bool { return hub.Count() == 2 }, time.Second, 10*time.Millisecond)

	hub.Broadcast(Caption{Transcript: "hello", Translation: "안녕하세요"})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		var got Caption
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, "hello", got.Transcript)
		assert.Equal(t, "안녕하세요", got.Translation)
	}
}

func TestDisconnectedViewerPruned(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Close()
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()

	// The read loop notices the peer going away and removes it.
	assert.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 20*time.Millisecond)
}

func TestCloseDropsAllViewers(t *testing.T) {
	hub := NewHub(zap.NewNop())
	server := httptest.NewServer(hub)
	defer server.Close()

	dial(t, server)
	dial(t, server)
	require.Eventually(t, func() bool { return hub.Count() == 2 }, time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.Count())
}

func TestBroadcastWithNoViewers(t *testing.T) {
	hub := NewHub(zap.NewNop())
	hub.Broadcast(Caption{Transcript: "nobody", Translation: "home"})
	assert.Equal(t, 0, hub.Count())
}
