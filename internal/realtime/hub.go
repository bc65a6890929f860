// Copyright (c) 2026 Folio Works. All rights reserved.

package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/folioworks/folio/internal/platform/apperr"
)

const (
	// maxConnsPerUser bounds how many simultaneous sockets one account may hold.
	maxConnsPerUser = 8
	// maxTotalConns bounds the instance-wide socket count.
	maxTotalConns = 10000

	// sendBuffer is the per-client outbound queue. A client that cannot
	// drain this many messages is considered dead slow and is dropped.
	sendBuffer = 32

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// ClientCounter observes connect/disconnect transitions, typically a
// Prometheus gauge.
type ClientCounter interface {
	RealtimeClientConnected()
	RealtimeClientDisconnected()
}

// Client is one websocket connection owned by a user.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// trySend queues a payload without blocking. A full queue closes the client:
// dropping a slow consumer beats stalling the fan-out for everyone else.
func (client *Client) trySend(payload []byte) {
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.closed {
		return
	}

	select {
	case client.send <- payload:
	default:
		client.closed = true
		close(client.send)
	}
}

// close tears the connection down exactly once.
func (client *Client) close() {
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.closed {
		return
	}
	client.closed = true
	close(client.send)
}

// writePump drains the send queue onto the socket and keeps the connection
// alive with pings. It owns all writes; gorilla connections allow only one
// concurrent writer.
func (client *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
		client.hub.unregister(client)
	}()

	for {
		select {
		case payload, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames (the stream is server-to-client only) and
// notices the peer going away.
func (client *Client) readPump() {
	defer client.close()

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Hub maps userID to that user's live websocket connections on this instance.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string]map[*Client]struct{}
	totalConns int
	counter    ClientCounter
	logger     *slog.Logger
}

// NewHub creates an empty [Hub].
func NewHub(counter ClientCounter, logger *slog.Logger) *Hub {
	return &Hub{
		conns:   make(map[string]map[*Client]struct{}),
		counter: counter,
		logger:  logger,
	}
}

// Register attaches a freshly upgraded connection to the hub and starts its
// pumps.
//
// # Returns
//   - Returns [apperr.ServiceUnavailable] when a connection limit is hit.
func (hub *Hub) Register(userID string, conn *websocket.Conn) (*Client, error) {
	hub.mu.Lock()

	if hub.totalConns >= maxTotalConns {
		hub.mu.Unlock()
		return nil, apperr.ServiceUnavailable("Realtime capacity reached")
	}

	clients, ok := hub.conns[userID]
	if !ok {
		clients = make(map[*Client]struct{})
		hub.conns[userID] = clients
	}

	if len(clients) >= maxConnsPerUser {
		hub.mu.Unlock()
		return nil, apperr.ServiceUnavailable("Too many realtime connections for this account")
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBuffer),
	}
	clients[client] = struct{}{}
	hub.totalConns++
	hub.mu.Unlock()

	if hub.counter != nil {
		hub.counter.RealtimeClientConnected()
	}

	go client.writePump()
	go client.readPump()

	return client, nil
}

// unregister detaches a client after its pumps stop.
func (hub *Hub) unregister(client *Client) {
	hub.mu.Lock()
	removed := false
	if clients, ok := hub.conns[client.userID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			hub.totalConns--
			removed = true
		}
		if len(clients) == 0 {
			delete(hub.conns, client.userID)
		}
	}
	hub.mu.Unlock()

	if removed && hub.counter != nil {
		hub.counter.RealtimeClientDisconnected()
	}
}

// Broadcast queues a payload onto every live connection the user holds on
// this instance.
func (hub *Hub) Broadcast(userID string, payload []byte) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for client := range hub.conns[userID] {
		client.trySend(payload)
	}
}

// ConnectionCount reports how many sockets are currently attached.
func (hub *Hub) ConnectionCount() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return hub.totalConns
}

// StartWiring connects the broker's subscriber side to this hub: every event
// published for a user is forwarded to that user's local connections.
func (hub *Hub) StartWiring(ctx context.Context, broker *Broker) error {
	return broker.StartSubscriber(ctx, func(userID string, payload []byte) {
		hub.Broadcast(userID, payload)
	})
}

// Shutdown closes every connection gracefully.
func (hub *Hub) Shutdown(_ context.Context) error {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for userID, clients := range hub.conns {
		for client := range clients {
			message := websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")
			if err := client.conn.WriteMessage(websocket.CloseMessage, message); err != nil {
				hub.logger.Debug("realtime_close_message_failed",
					slog.String("user_id", userID),
					slog.Any("error", err),
				)
			}
			client.conn.Close()

			// The pumps' own unregister will miss these clients once the maps
			// are reset below, so the gauge is settled here.
			if hub.counter != nil {
				hub.counter.RealtimeClientDisconnected()
			}
		}
	}

	hub.conns = make(map[string]map[*Client]struct{})
	hub.totalConns = 0

	return nil
}
