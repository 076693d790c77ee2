package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"returns-insight-service/models"
)

// InsightHub manages dashboard WebSocket connections and pushes freshly
// regenerated insight sets to the clients of the owning merchant.
type InsightHub struct {
	clients    map[*InsightClient]bool
	broadcast  chan models.InsightBroadcast
	register   chan *InsightClient
	unregister chan *InsightClient
	mutex      sync.RWMutex
}

// InsightClient represents one dashboard WebSocket connection, scoped
// to the merchant the session token was minted for.
type InsightClient struct {
	hub        *InsightHub
	conn       *websocket.Conn
	send       chan []byte
	merchantID string
}

// NewInsightHub creates a new hub.
func NewInsightHub() *InsightHub {
	return &InsightHub{
		clients:    make(map[*InsightClient]bool),
		broadcast:  make(chan models.InsightBroadcast),
		register:   make(chan *InsightClient),
		unregister: make(chan *InsightClient),
	}
}

// Start runs the hub loop. Call in a goroutine.
func (h *InsightHub) Start() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("INFO: WebSocket client registered for merchant %s", client.merchantID)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			log.Printf("INFO: WebSocket client unregistered for merchant %s", client.merchantID)

		case message := <-h.broadcast:
			payload := h.serializeMessage(message)
			h.mutex.Lock()
			for client := range h.clients {
				// Only the owning merchant's dashboards see the update.
				if client.merchantID != message.MerchantID {
					continue
				}
				select {
				case client.send <- payload:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Stop disconnects all clients.
func (h *InsightHub) Stop() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// RegisterClient registers a new dashboard connection.
func (h *InsightHub) RegisterClient(conn *websocket.Conn, merchantID string) {
	client := &InsightClient{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, 256),
		merchantID: merchantID,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// BroadcastInsights pushes a regenerated insight set to the owning
// merchant's connected dashboards.
func (h *InsightHub) BroadcastInsights(broadcast models.InsightBroadcast) {
	if broadcast.Timestamp.IsZero() {
		broadcast.Timestamp = time.Now()
	}
	h.broadcast <- broadcast
}

// ConnectedClients returns the number of connected dashboards.
func (h *InsightHub) ConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// serializeMessage serializes a broadcast to JSON.
func (h *InsightHub) serializeMessage(message models.InsightBroadcast) []byte {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("ERROR: Failed to serialize broadcast: %v", err)
		return []byte("{}")
	}
	return data
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *InsightClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ERROR: WebSocket read error for merchant %s: %v", c.merchantID, err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *InsightClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
