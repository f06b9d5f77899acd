package sniffer

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdginn/xtouch-gw/midi"
)

func TestWebHubBroadcastsFrameToConnectedClient(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	hub := NewWebHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(err)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond) // let ServeHTTP register the client
	hub.Observe("xtouch-in", midi.Message{Status: midi.StatusCC, Channel: 1, Data1: 7, Value: 64}, time.Now())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(err)
	assert.Contains(string(data), `"port":"xtouch-in"`)
	assert.Contains(string(data), `"status":"cc"`)
}

func TestWebHubClientRemovedOnDisconnect(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	hub := NewWebHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(err)

	time.Sleep(20 * time.Millisecond)
	hub.mu.RLock()
	assert.Len(hub.clients, 1)
	hub.mu.RUnlock()

	conn.Close()
	time.Sleep(50 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	assert.Len(hub.clients, 0)
}
