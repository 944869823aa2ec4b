package handler

import (
	"log"
	"net/http"

	"roomchat/backend/internal/chathub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(h.Config.AllowedOrigins) == 0 {
				return true
			}
			return lo.Contains(h.Config.AllowedOrigins, origin)
		},
	}
}

// ServeWebSocket authenticates the request and only then upgrades it.
// Unauthenticated requests never reach the Hub.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	identity, err := h.Gateway.Authenticate(c.Request.Context(), bearerToken(c))
	if err != nil {
		abortAuth(c, err)
		return
	}

	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		log.Printf("WARNING: websocket upgrade failed for %s: %v", identity.ID, err)
		return
	}

	client := chathub.NewWebSocketClient(conn, identity, h.Hub, h.Config.SessionBuffer, h.Gateway.Disconnect)
	if err := h.Gateway.Attach(client); err != nil {
		log.Printf("ERROR: Failed to attach session for %s: %v", identity.ID, err)
		conn.Close()
	}
}
