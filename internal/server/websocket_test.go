package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialStream(t *testing.T, f *fixture) (*websocket.Conn, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(f.handler)
	t.Cleanup(ts.Close)

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	return conn, ts
}

func readList(t *testing.T, conn *websocket.Conn) []characterResponse {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)

	var list []characterResponse
	require.NoError(t, json.Unmarshal(raw, &list))
	return list
}

func TestStreamPushesCharacterList(t *testing.T) {
	config := DefaultServerConfig()
	config.StreamInterval = 5 * time.Millisecond
	f := newFixture(t, config, nil, nil)
	f.spawn(0, "Alphinaud")

	conn, _ := dialStream(t, f)
	defer conn.Close()

	list := readList(t, conn)
	require.Len(t, list, 1)
	assert.Equal(t, "Alphinaud", list[0].Name)

	f.spawn(0, "Alisaie")
	deadline := time.Now().Add(2 * time.Second)
	for len(list) != 2 && time.Now().Before(deadline) {
		list = readList(t, conn)
	}
	assert.Len(t, list, 2)

	assert.Equal(t, 1, f.server.broadcaster.Count())
}

func TestStreamDeregistersOnDisconnect(t *testing.T) {
	config := DefaultServerConfig()
	config.StreamInterval = 5 * time.Millisecond
	f := newFixture(t, config, nil, nil)

	first, _ := dialStream(t, f)
	second, _ := dialStream(t, f)
	readList(t, first)
	readList(t, second)
	assert.Equal(t, 2, f.server.broadcaster.Count())

	require.NoError(t, first.Close())
	assert.Eventually(t, func() bool {
		return f.server.broadcaster.Count() == 1
	}, 2*time.Second, 5*time.Millisecond)

	readList(t, second)
	require.NoError(t, second.Close())
	assert.Eventually(t, func() bool {
		return f.server.broadcaster.Count() == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestBroadcasterCloseEndsStreams(t *testing.T) {
	config := DefaultServerConfig()
	config.StreamInterval = 5 * time.Millisecond
	f := newFixture(t, config, nil, nil)

	conn, ts := dialStream(t, f)
	defer conn.Close()
	readList(t, conn)

	f.server.broadcaster.Close()
	assert.Equal(t, 0, f.server.broadcaster.Count())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/stream"
	_, res, err := websocket.DefaultDialer.Dial(u, nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 503, res.StatusCode)
}
