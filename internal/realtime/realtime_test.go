// Copyright (c) 2026 Folio Works. All rights reserved.

package realtime_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioworks/folio/internal/post"
	"github.com/folioworks/folio/internal/realtime"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// dialHub spins up a test server that upgrades and registers connections for
// a fixed user, then dials it.
func dialHub(t *testing.T, hub *realtime.Hub, userID string) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		conn, err := upgrader.Upgrade(writer, request, nil)
		require.NoError(t, err)
		_, err = hub.Register(userID, conn)
		require.NoError(t, err)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readText(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	return payload
}

/*
TestHub_Broadcast verifies per-user isolation: a payload broadcast for one
user reaches that user's socket and nobody else's.
*/
func TestHub_Broadcast(t *testing.T) {
	hub := realtime.NewHub(nil, discardLogger())

	adaConn := dialHub(t, hub, "ada")
	graceConn := dialHub(t, hub, "grace")

	// Wait until both registrations are visible.
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.Broadcast("ada", []byte(`{"hello":"ada"}`))

	assert.JSONEq(t, `{"hello":"ada"}`, string(readText(t, adaConn)))

	// Grace's socket stays silent.
	graceConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := graceConn.ReadMessage()
	assert.Error(t, err, "no payload may arrive on another user's socket")
}

/*
TestBroker_EndToEnd publishes a post change through Redis pub/sub and
verifies it reaches a subscribed websocket client, carrying the post ID as
the dedup key.
*/
func TestBroker_EndToEnd(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	broker := realtime.NewBroker(client, discardLogger())
	hub := realtime.NewHub(nil, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, hub.StartWiring(ctx, broker))

	conn := dialHub(t, hub, "ada")
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	event := post.ChangeEvent{
		Type: post.ChangeCreated,
		Post: &post.Post{ID: "post-1", UserID: "ada", Title: "Hello"},
	}
	require.NoError(t, broker.PublishPostChange(ctx, "ada", event))

	var received post.ChangeEvent
	require.NoError(t, json.Unmarshal(readText(t, conn), &received))
	assert.Equal(t, post.ChangeCreated, received.Type)
	assert.Equal(t, "post-1", received.Post.ID)
}

// countingGauge tallies connect/disconnect transitions like the Prometheus
// gauge does in production.
type countingGauge struct {
	connected    atomic.Int64
	disconnected atomic.Int64
}

func (g *countingGauge) RealtimeClientConnected()    { g.connected.Add(1) }
func (g *countingGauge) RealtimeClientDisconnected() { g.disconnected.Add(1) }

/*
TestHub_Shutdown verifies the drain path: every socket is closed, the hub
empties, and the client gauge returns to zero rather than staying stuck at
the pre-drain value.
*/
func TestHub_Shutdown(t *testing.T) {
	gauge := &countingGauge{}
	hub := realtime.NewHub(gauge, discardLogger())

	adaConn := dialHub(t, hub, "ada")
	dialHub(t, hub, "grace")
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 2 }, time.Second, 10*time.Millisecond)
	require.EqualValues(t, 2, gauge.connected.Load())

	require.NoError(t, hub.Shutdown(context.Background()))

	assert.Equal(t, 0, hub.ConnectionCount())
	assert.EqualValues(t, 2, gauge.disconnected.Load(), "every drained client settles the gauge")

	// The peer observes the close.
	adaConn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := adaConn.ReadMessage()
	assert.Error(t, err)

	// The pumps winding down afterwards must not double-settle.
	require.Never(t, func() bool { return gauge.disconnected.Load() > 2 }, 300*time.Millisecond, 50*time.Millisecond)
}

/*
TestUserChannel pins the channel naming scheme other services rely on.
*/
func TestUserChannel(t *testing.T) {
	assert.Equal(t, "posts:user:ada", realtime.UserChannel("ada"))
}
