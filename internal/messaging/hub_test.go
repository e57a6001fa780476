package messaging

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendToUserDuringReconnect(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	// Each registration replaces and closes the previous connection while
	// deliveries for the same user keep arriving
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			hub.register <- NewClient(hub, nil, 1, nil)
		}
	}()

	frame := WSMessage{
		Type:      WSTypeMessage,
		Data:      mustMarshalJSON(&Message{ID: uuid.New()}),
		Timestamp: time.Now(),
	}
	for {
		select {
		case <-done:
			return
		default:
			hub.SendToUser(1, frame)
		}
	}
}

func TestSendToClosedClientDropsFrame(t *testing.T) {
	hub := NewHub()
	client := NewClient(hub, nil, 7, nil)
	client.close()
	client.close() // idempotent

	assert.False(t, client.trySend([]byte("{}")))
}

func TestActiveConnections(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	hub.register <- NewClient(hub, nil, 1, nil)
	hub.register <- NewClient(hub, nil, 2, nil)

	require.Eventually(t, func() bool {
		return hub.ActiveConnections() == 2
	}, time.Second, 5*time.Millisecond)

	// Reconnect replaces, not adds
	hub.register <- NewClient(hub, nil, 1, nil)
	require.Eventually(t, func() bool {
		return hub.ActiveConnections() == 2
	}, time.Second, 5*time.Millisecond)
}
