// Package websocket pushes notifications to connected portal and staff
// sessions as they are stored.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	gorilla "github.com/gorilla/websocket"

	"freight-backoffice/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

type recipient struct {
	role string
	id   string
}

type message struct {
	Type string             `json:"type"`
	Data model.Notification `json:"data"`
}

// Hub tracks live connections per recipient. All map access happens on the
// Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	deliver    chan model.Notification
	disconnect chan recipient
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan model.Notification, 64),
		disconnect: make(chan recipient),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
			}
		case target := <-h.disconnect:
			for client := range h.clients {
				if client.is(target) {
					h.drop(client)
				}
			}
		case n := <-h.deliver:
			payload, err := json.Marshal(message{Type: "notification", Data: n})
			if err != nil {
				slog.Error("failed to marshal notification", "id", n.ID, "error", err)
				continue
			}
			target := recipient{role: n.RecipientRole, id: n.RecipientID}
			for client := range h.clients {
				if !client.is(target) {
					continue
				}
				select {
				case client.send <- payload:
				default:
					// slow reader
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
}

// Push queues n for every connection of its recipient. It returns without
// blocking once the hub has stopped.
func (h *Hub) Push(n model.Notification) {
	select {
	case h.deliver <- n:
	case <-h.done:
	}
}

// Disconnect closes every connection held by the identity.
func (h *Hub) Disconnect(role string, id string) {
	select {
	case h.disconnect <- recipient{role: role, id: id}:
	case <-h.done:
	}
}

// Serve registers conn for the identity and starts its pumps.
func (h *Hub) Serve(conn *gorilla.Conn, role string, id string) {
	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		recipient: recipient{role: role, id: id},
	}

	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
