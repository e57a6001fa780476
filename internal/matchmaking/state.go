// internal/matchmaking/state.go
// The per-user state machine. Transitions snapshot the outgoing match
// interval into the history before mutating the current state.

package matchmaking

import (
	"time"

	"github.com/google/uuid"
)

// NewUserState returns the initial state for a freshly registered user
func NewUserState(userID int64, now time.Time) *UserState {
	return &UserState{
		UserID:         userID,
		CurrentState:   StateAvailable,
		StateStartTime: now,
	}
}

// TransitionTo moves the user to a new state.
//
// If a match is currently attached, the outgoing interval is appended to
// MatchHistory first. StateUnpinned is accepted only as a label: the history
// entry records "unpinned" and the user lands in StateFrozen.
//
// reflection is the cooldown applied when entering the frozen state; it is
// ignored for every other target state. Callers persist the result.
func (s *UserState) TransitionTo(newState UserStateKind, matchID *uuid.UUID, reflection time.Duration, now time.Time) {
	end := now
	s.StateEndTime = &end

	if s.CurrentMatch != nil {
		status := HistoryCompleted
		if newState == StateUnpinned {
			status = HistoryUnpinned
		}
		s.MatchHistory = append(s.MatchHistory, MatchHistoryEntry{
			Match:            *s.CurrentMatch,
			StartDate:        s.StateStartTime,
			EndDate:          end,
			Status:           status,
			MessageCount:     s.MessageCount,
			MilestoneReached: s.MilestoneReached,
		})
	}

	if newState == StateUnpinned {
		newState = StateFrozen
	}

	s.CurrentState = newState
	s.StateStartTime = now
	s.StateEndTime = nil

	switch newState {
	case StateMatched, StatePinned:
		s.CurrentMatch = matchID
		if newState == StateMatched {
			// Counters belong to the new conversation
			s.MessageCount = 0
			s.MilestoneReached = false
		}
	case StateFrozen:
		reflectionEnd := now.Add(reflection)
		s.ReflectionPeriodEnd = &reflectionEnd
		s.CurrentMatch = nil
	case StateAvailable:
		s.CurrentMatch = nil
		s.ReflectionPeriodEnd = nil
	}
}

// CanReceiveMatch reports whether the user is eligible for a new match.
// Frozen users become eligible the instant their reflection period ends;
// expiry is evaluated lazily here rather than by a background timer.
func (s *UserState) CanReceiveMatch(now time.Time) bool {
	if s.CurrentState == StateAvailable {
		return true
	}

	if s.CurrentState == StateFrozen && s.ReflectionPeriodEnd != nil {
		return !now.Before(*s.ReflectionPeriodEnd)
	}

	return false
}

// IncrementMessageCount bumps the per-conversation counter and reports
// whether this increment crossed the milestone threshold. The milestone
// flag is one-shot: it stays set until the next transition to matched.
func (s *UserState) IncrementMessageCount(threshold int) bool {
	s.MessageCount++

	if s.MessageCount >= threshold && !s.MilestoneReached {
		s.MilestoneReached = true
		return true
	}

	return false
}
