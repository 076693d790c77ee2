package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"returns-insight-service/middleware"
	"returns-insight-service/services"
)

// WebSocketHandler handles dashboard WebSocket connections
type WebSocketHandler struct {
	hub       *services.InsightHub
	jwtSecret []byte
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.InsightHub, jwtSecret []byte) *WebSocketHandler {
	return &WebSocketHandler{
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

// ListenInsights upgrades the connection and subscribes the dashboard
// to the merchant's insight feed. Browsers cannot set an Authorization
// header on WebSocket requests, so the session token arrives as a
// query parameter instead.
func (h *WebSocketHandler) ListenInsights(c *gin.Context) {
	token := c.Query("token")
	merchantID, shop, err := middleware.ValidateSessionToken(h.jwtSecret, token)
	if err != nil {
		c.JSON(401, gin.H{"error": "Invalid token"})
		return
	}
	log.Printf("INFO: WebSocket connection request for shop %s", shop)

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // Allow all origins for now
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Error upgrading connection to WebSocket: %v", err)
		return
	}

	h.hub.RegisterClient(conn, merchantID)
}
