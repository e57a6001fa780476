// internal/messaging/client.go

package messaging

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer
	maxMessageSize = 64 * 1024
)

// Client is one user's websocket connection
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	userID  int64
	service Service

	mu     sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64, service Service) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, 256),
		userID:  userID,
		service: service,
	}
}

func (c *Client) Start() {
	c.hub.register <- c
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		c.processFrame(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Flush queued frames into the same write
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processFrame handles client-to-server frames: message sends and read
// receipts. Other frame types are logged and dropped.
func (c *Client) processFrame(data []byte) {
	var frame WSMessage
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Printf("Error unmarshaling frame: %v", err)
		return
	}

	ctx := context.Background()

	switch frame.Type {
	case WSTypeMessage:
		var dto SendMessageDTO
		if err := json.Unmarshal(frame.Data, &dto); err != nil {
			log.Printf("Invalid message frame from user %d: %v", c.userID, err)
			return
		}
		if _, _, err := c.service.SendMessage(ctx, c.userID, &dto); err != nil {
			log.Printf("Error sending message from user %d: %v", c.userID, err)
		}

	case WSTypeRead:
		var event struct {
			MatchID uuid.UUID `json:"match_id"`
		}
		if err := json.Unmarshal(frame.Data, &event); err != nil {
			return
		}
		if _, err := c.service.MarkRead(ctx, c.userID, event.MatchID); err != nil {
			log.Printf("Error marking conversation read for user %d: %v", c.userID, err)
		}

	default:
		log.Printf("Unknown frame type: %s", frame.Type)
	}
}

// trySend queues a frame for the write pump. It reports false when the
// client is closed or its buffer is full; a delivery racing a reconnect
// must never hit a closed channel.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
