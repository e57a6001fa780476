// internal/messaging/hub.go

package messaging

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Hub maintains the active websocket connections, one per user, and fans
// conversation events out to the connected members.
type Hub struct {
	clients    map[int64]*Client
	clientsMux sync.RWMutex

	register   chan *Client
	unregister chan *Client

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:    make(map[int64]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (h *Hub) Run() {
	defer h.cleanup()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	// One connection per user; a new one replaces the old
	if old, exists := h.clients[client.userID]; exists {
		old.close()
	}
	h.clients[client.userID] = client

	log.Printf("User %d connected. Total clients: %d", client.userID, len(h.clients))
}

func (h *Hub) unregisterClient(client *Client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	if current, exists := h.clients[client.userID]; exists && current == client {
		client.close()
		delete(h.clients, client.userID)
		log.Printf("User %d disconnected. Total clients: %d", client.userID, len(h.clients))
	}
}

func (h *Hub) SendToUser(userID int64, message WSMessage) {
	h.clientsMux.RLock()
	client, exists := h.clients[userID]
	h.clientsMux.RUnlock()

	if !exists {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshalling websocket frame: %v", err)
		return
	}

	// The client guards its own channel; a closed or slow client loses
	// the connection rather than blocking or panicking the caller
	if !client.trySend(data) {
		go func() {
			select {
			case h.unregister <- client:
			case <-h.ctx.Done():
			}
		}()
	}
}

// ActiveConnections reports the number of connected clients, surfaced on
// the health endpoint.
func (h *Hub) ActiveConnections() int {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	return len(h.clients)
}

func (h *Hub) Shutdown() {
	h.cancel()
	h.wg.Wait()
}

func (h *Hub) cleanup() {
	h.clientsMux.Lock()
	for _, client := range h.clients {
		client.close()
	}
	h.clients = make(map[int64]*Client)
	h.clientsMux.Unlock()

	h.wg.Wait()
}

// Events implementation

func (h *Hub) MessageSent(message *Message) {
	h.SendToUser(message.ReceiverID, WSMessage{
		Type:      WSTypeMessage,
		Data:      mustMarshalJSON(message),
		Timestamp: message.CreatedAt,
	})
}

func (h *Hub) MilestoneReached(matchID uuid.UUID, members []int64, count int, at time.Time) {
	frame := WSMessage{
		Type: WSTypeMilestone,
		Data: mustMarshalJSON(&MilestoneEvent{
			MatchID:      matchID,
			MessageCount: count,
			ReachedAt:    at,
		}),
		Timestamp: at,
	}

	for _, userID := range members {
		h.SendToUser(userID, frame)
	}
}

func (h *Hub) ConversationRead(matchID uuid.UUID, notifyUserID, readerID int64, count int) {
	h.SendToUser(notifyUserID, WSMessage{
		Type: WSTypeRead,
		Data: mustMarshalJSON(&ReadEvent{
			MatchID:  matchID,
			ReaderID: readerID,
			Count:    count,
		}),
		Timestamp: time.Now(),
	})
}

func mustMarshalJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error marshaling: %v", err)
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(data)
}
