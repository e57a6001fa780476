// internal/matchmaking/models.go

package matchmaking

import (
	"time"

	"github.com/google/uuid"
)

// UserStateKind is the mutually-exclusive lifecycle state of a user.
// Exactly one value is active per user at all times.
type UserStateKind string

const (
	StateAvailable UserStateKind = "available"
	StateMatched   UserStateKind = "matched"
	StatePinned    UserStateKind = "pinned"
	// StateUnpinned is a transition label only: transitioning to it records
	// an "unpinned" history entry and lands the user in StateFrozen.
	StateUnpinned UserStateKind = "unpinned"
	StateFrozen   UserStateKind = "frozen"
)

// MatchStatus is the lifecycle status of a match
type MatchStatus string

const (
	MatchActive   MatchStatus = "active"
	MatchPinned   MatchStatus = "pinned"
	MatchUnpinned MatchStatus = "unpinned"
	MatchExpired  MatchStatus = "expired"
	MatchEnded    MatchStatus = "ended"
)

// History entry statuses
const (
	HistoryCompleted = "completed"
	HistoryUnpinned  = "unpinned"
	HistoryExpired   = "expired"
)

// LastFeedback is the reason a user's previous match was ended on them.
// Only the user who did NOT initiate the ending receives it.
type LastFeedback struct {
	Reason     string    `json:"reason" db:"last_feedback_reason"`
	Details    string    `json:"details" db:"last_feedback_details"`
	ReceivedAt time.Time `json:"received_at" db:"last_feedback_received_at"`
}

// MatchHistoryEntry is an append-only snapshot of a past match interval
type MatchHistoryEntry struct {
	Match            uuid.UUID `json:"match" db:"match_id"`
	StartDate        time.Time `json:"start_date" db:"start_date"`
	EndDate          time.Time `json:"end_date" db:"end_date"`
	Status           string    `json:"status" db:"status"`
	MessageCount     int       `json:"message_count" db:"message_count"`
	MilestoneReached bool      `json:"milestone_reached" db:"milestone_reached"`
}

// UserState is the per-user state machine record, one row per user
type UserState struct {
	UserID              int64               `json:"user_id" db:"user_id"`
	CurrentState        UserStateKind       `json:"current_state" db:"current_state"`
	CurrentMatch        *uuid.UUID          `json:"current_match,omitempty" db:"current_match"`
	StateStartTime      time.Time           `json:"state_start_time" db:"state_start_time"`
	StateEndTime        *time.Time          `json:"state_end_time,omitempty" db:"state_end_time"`
	ReflectionPeriodEnd *time.Time          `json:"reflection_period_end,omitempty" db:"reflection_period_end"`
	MessageCount        int                 `json:"message_count" db:"message_count"`
	MilestoneReached    bool                `json:"milestone_reached" db:"milestone_reached"`
	LastFeedback        *LastFeedback       `json:"last_feedback,omitempty"`
	MatchHistory        []MatchHistoryEntry `json:"match_history"`
	UpdatedAt           time.Time           `json:"updated_at" db:"updated_at"`

	// Number of history entries already persisted; set by the repository
	// so SaveUserState only inserts the tail.
	storedHistory int
}

// CompatibilityFactors are the four 0-100 sub-scores behind a match's total
type CompatibilityFactors struct {
	PersonalityMatch       float64 `json:"personality_match" db:"personality_match"`
	EmotionalMatch         float64 `json:"emotional_match" db:"emotional_match"`
	InterestMatch          float64 `json:"interest_match" db:"interest_match"`
	RelationshipGoalsMatch float64 `json:"relationship_goals_match" db:"relationship_goals_match"`
}

// Match pairs exactly two users. Matches are never deleted; they are
// status-transitioned and retained for history.
type Match struct {
	ID                 uuid.UUID            `json:"id" db:"id"`
	User1ID            int64                `json:"user1_id" db:"user1_id"`
	User2ID            int64                `json:"user2_id" db:"user2_id"`
	MatchDate          time.Time            `json:"match_date" db:"match_date"`
	EndDate            *time.Time           `json:"end_date,omitempty" db:"end_date"`
	Status             MatchStatus          `json:"status" db:"status"`
	CompatibilityScore float64              `json:"compatibility_score" db:"compatibility_score"`
	Factors            CompatibilityFactors `json:"compatibility_factors"`
	MessageCount       int                  `json:"message_count" db:"message_count"`
	MilestoneReached   bool                 `json:"milestone_reached" db:"milestone_reached"`
	MilestoneReachedAt *time.Time           `json:"milestone_reached_at,omitempty" db:"milestone_reached_at"`
	UnpinnedBy         *int64               `json:"unpinned_by,omitempty" db:"unpinned_by"`
	UnpinReason        *string              `json:"unpin_reason,omitempty" db:"unpin_reason"`
	UnpinDetails       *string              `json:"unpin_details,omitempty" db:"unpin_details"`
}

// HasUser reports whether the user is one of the two match members
func (m *Match) HasUser(userID int64) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// OtherUser returns the match member that is not the given user
func (m *Match) OtherUser(userID int64) int64 {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// IsOngoing reports whether the match still represents an active conversation
func (m *Match) IsOngoing() bool {
	return m.Status == MatchActive || m.Status == MatchPinned
}
