package chathub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"roomchat/backend/internal/config"
	"roomchat/backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// WebSocketClient implements Client over a gorilla websocket connection.
type WebSocketClient struct {
	SessionID string
	Identity  models.Identity
	Conn      *websocket.Conn
	Hub       *Hub

	// OnDisconnect runs when the read pump stops.
	OnDisconnect func(Client)

	send   chan models.OutboundEvent
	mu     sync.Mutex
	closed bool
}

func NewWebSocketClient(conn *websocket.Conn, identity models.Identity, hub *Hub, buffer int, onDisconnect func(Client)) *WebSocketClient {
	if buffer <= 0 {
		buffer = config.DefaultSessionBuffer
	}
	return &WebSocketClient{
		SessionID:    uuid.New().String(),
		Identity:     identity,
		Conn:         conn,
		Hub:          hub,
		OnDisconnect: onDisconnect,
		send:         make(chan models.OutboundEvent, buffer),
	}
}

func (c *WebSocketClient) GetSessionID() string         { return c.SessionID }
func (c *WebSocketClient) GetIdentity() models.Identity { return c.Identity }

func (c *WebSocketClient) Deliver(evt models.OutboundEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- evt:
		return true
	default:
		log.Printf("WARNING: session %s is not keeping up, closing it", c.SessionID)
		c.closeLocked()
		return false
	}
}

// Run starts the pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes the send channel, which makes writePump send a close frame
// and drop the connection.
func (c *WebSocketClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *WebSocketClient) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Close()
		c.Conn.Close()
		if c.OnDisconnect != nil {
			c.OnDisconnect(c)
		}
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("ERROR: reading from session %s: %v", c.SessionID, err)
			}
			return
		}

		var evt models.InboundEvent
		if err := json.Unmarshal(frame, &evt); err != nil {
			c.Hub.reportError(c, "", ErrBadPayload)
			continue
		}
		c.Hub.Dispatch(c, evt)
	}
}

// writePump writes one text frame per event and pings the peer.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case evt, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.Conn.WriteJSON(evt); err != nil {
				log.Printf("ERROR: writing to session %s: %v", c.SessionID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
