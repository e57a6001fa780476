// internal/notifications/models.go
package notifications

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	TypeFeedback   NotificationType = "feedback"
	TypeReflection NotificationType = "reflection"
	TypeMilestone  NotificationType = "milestone"
)

// Notification is a derived, read-only entry. Nothing is stored: the list
// is recomputed from the user's current state on every request.
type Notification struct {
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type NotificationList struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unread_count"`
}

// HourBucket is one hour of chat activity
type HourBucket struct {
	Hour  time.Time `json:"hour"`
	Count int       `json:"count"`
}

// ChatActivity is the hourly message histogram for a conversation
type ChatActivity struct {
	MatchID uuid.UUID    `json:"match_id"`
	Since   time.Time    `json:"since"`
	Total   int          `json:"total"`
	Buckets []HourBucket `json:"buckets"`
}
