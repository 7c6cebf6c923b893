// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package diag

import (
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsSendBuffer = 64
)

// EventHub streams log entries to connected WebSocket clients. It implements
// logrus.Hook; registering it on a logger forwards every entry to all clients.
//
// A client too slow to drain its buffer is dropped instead of stalling the
// logging path.
type EventHub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewEventHub creates an EventHub without any clients.
func NewEventHub() *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*wsClient]struct{}),
	}
}

// ServeHTTP upgrades the request to a WebSocket and attaches the client.
func (hub *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("EventHub failed to upgrade a connection")
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
	}

	hub.mu.Lock()
	hub.clients[client] = struct{}{}
	hub.mu.Unlock()

	go hub.writePump(client)
	go hub.readPump(client)
}

// ClientCount returns the number of attached clients.
func (hub *EventHub) ClientCount() int {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	return len(hub.clients)
}

// Levels implements logrus.Hook; every level is forwarded.
func (hub *EventHub) Levels() []log.Level {
	return log.AllLevels
}

// Fire implements logrus.Hook by broadcasting the formatted entry. It never
// logs itself, as that would loop straight back into this hook.
func (hub *EventHub) Fire(entry *log.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()

	for client := range hub.clients {
		select {
		case client.send <- []byte(line):
		default:
			hub.dropLocked(client)
		}
	}
	return nil
}

// dropLocked detaches a client; hub.mu must be held.
func (hub *EventHub) dropLocked(client *wsClient) {
	if _, ok := hub.clients[client]; ok {
		delete(hub.clients, client)
		close(client.send)
	}
}

func (hub *EventHub) drop(client *wsClient) {
	hub.mu.Lock()
	hub.dropLocked(client)
	hub.mu.Unlock()
}

// writePump forwards broadcasted entries to one client's socket.
func (hub *EventHub) writePump(client *wsClient) {
	defer func() { _ = client.conn.Close() }()

	for line := range client.send {
		_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := client.conn.WriteMessage(websocket.TextMessage, line); err != nil {
			hub.drop(client)
			return
		}
	}

	_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump discards client messages and detects a closed socket.
func (hub *EventHub) readPump(client *wsClient) {
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			hub.drop(client)
			return
		}
	}
}
