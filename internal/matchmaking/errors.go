// internal/matchmaking/errors.go

package matchmaking

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserStateNotFound = errors.New("user state not found")
	ErrMatchNotFound     = errors.New("match not found")
	ErrNotMatchMember    = errors.New("not authorized to access this match")
	ErrMatchNotOngoing   = errors.New("match is no longer active")
	ErrNoCandidates      = errors.New("no potential matches found")
	ErrInvalidRecipient  = errors.New("receiver is not the other member of this match")
)

// NotEligibleError is the expected, non-exceptional outcome when the state
// machine denies a match request. It carries the diagnostics the client
// shows the user.
type NotEligibleError struct {
	CurrentState        UserStateKind
	StateStartTime      time.Time
	ReflectionPeriodEnd *time.Time
	LastFeedback        *LastFeedback
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("not eligible for a new match in state %q", e.CurrentState)
}

// InconsistentStateError is fatal: a two-party transition was partially
// applied and the single retry did not repair it. It must reach an
// operator-visible channel, never be silently swallowed.
type InconsistentStateError struct {
	MatchID uuid.UUID
	UserID  int64
	Err     error
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("match %s: user %d state transition failed, pair left inconsistent: %v", e.MatchID, e.UserID, e.Err)
}

func (e *InconsistentStateError) Unwrap() error {
	return e.Err
}
