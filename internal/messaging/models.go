// internal/messaging/models.go
package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageVoice MessageType = "voice"
)

// Message is one chat message inside a match conversation. MessageNumber is
// the message's position among the milestone-contributing messages of the
// conversation, assigned when the message is accounted.
type Message struct {
	ID                     uuid.UUID   `json:"id" db:"id"`
	MatchID                uuid.UUID   `json:"match_id" db:"match_id"`
	SenderID               int64       `json:"sender_id" db:"sender_id"`
	ReceiverID             int64       `json:"receiver_id" db:"receiver_id"`
	Content                string      `json:"content" db:"content"`
	Type                   MessageType `json:"message_type" db:"message_type"`
	VoiceURL               *string     `json:"voice_url,omitempty" db:"voice_url"`
	Duration               *int        `json:"duration,omitempty" db:"duration"`
	MessageNumber          int         `json:"message_number" db:"message_number"`
	ContributesToMilestone bool        `json:"contributes_to_milestone" db:"contributes_to_milestone"`
	IsRead                 bool        `json:"is_read" db:"is_read"`
	ReadAt                 *time.Time  `json:"read_at,omitempty" db:"read_at"`
	ClientMessageID        *uuid.UUID  `json:"client_message_id,omitempty" db:"client_message_id"`
	CreatedAt              time.Time   `json:"created_at" db:"created_at"`
}

// SendMessageDTO is the payload for sending a message. ClientMessageID is a
// client-generated idempotency key; resends with the same key return the
// original message instead of creating a duplicate.
type SendMessageDTO struct {
	MatchID         uuid.UUID   `json:"match_id" validate:"required"`
	Content         string      `json:"content" validate:"required_unless=Type voice,max=2000"`
	Type            MessageType `json:"message_type" validate:"omitempty,oneof=text voice"`
	VoiceURL        string      `json:"voice_url,omitempty" validate:"omitempty,url"`
	Duration        int         `json:"duration,omitempty" validate:"omitempty,min=1,max=300"`
	ClientMessageID *uuid.UUID  `json:"client_message_id,omitempty"`
}

// MilestoneStatus is the conversation progress view shown on the chat
// screen. Deadline is the advisory conversation window; it carries no
// enforcement and disappears once the milestone is reached.
type MilestoneStatus struct {
	MatchID            uuid.UUID  `json:"match_id"`
	MessageCount       int        `json:"message_count"`
	Threshold          int        `json:"threshold"`
	Remaining          int        `json:"remaining"`
	MilestoneReached   bool       `json:"milestone_reached"`
	MilestoneReachedAt *time.Time `json:"milestone_reached_at,omitempty"`
	CanVideoCall       bool       `json:"can_video_call"`
	Deadline           *time.Time `json:"deadline,omitempty"`
}

// Websocket event envelope
type WSMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

const (
	WSTypeMessage   = "message"
	WSTypeMilestone = "milestone"
	WSTypeRead      = "read"
)

// MilestoneEvent is the payload of a WSTypeMilestone frame
type MilestoneEvent struct {
	MatchID      uuid.UUID `json:"match_id"`
	MessageCount int       `json:"message_count"`
	ReachedAt    time.Time `json:"reached_at"`
}

// ReadEvent is the payload of a WSTypeRead frame
type ReadEvent struct {
	MatchID  uuid.UUID `json:"match_id"`
	ReaderID int64     `json:"reader_id"`
	Count    int       `json:"count"`
}
