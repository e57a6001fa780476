// internal/notifications/service.go

package notifications

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/onematch/onematch-backend/internal/matchmaking"
)

// StateSource provides the user state notifications are derived from
type StateSource interface {
	GetUserState(ctx context.Context, userID int64) (*matchmaking.UserState, error)
	GetMatch(ctx context.Context, userID int64, matchID uuid.UUID) (*matchmaking.Match, error)
}

// ActivitySource provides message timestamps for the activity histogram
type ActivitySource interface {
	MessageTimestamps(ctx context.Context, matchID uuid.UUID, since time.Time) ([]time.Time, error)
}

type Service interface {
	List(ctx context.Context, userID int64) (*NotificationList, error)
	ChatActivity(ctx context.Context, userID int64, matchID uuid.UUID) (*ChatActivity, error)
}

type service struct {
	states   StateSource
	activity ActivitySource
	now      func() time.Time
}

func NewService(states StateSource, activity ActivitySource) Service {
	return &service{
		states:   states,
		activity: activity,
		now:      time.Now,
	}
}

func (s *service) List(ctx context.Context, userID int64) (*NotificationList, error) {
	state, err := s.states.GetUserState(ctx, userID)
	if err != nil {
		return nil, err
	}

	notifications := Derive(state, s.now())
	return &NotificationList{
		Notifications: notifications,
		UnreadCount:   len(notifications),
	}, nil
}

// Derive builds the notification list from a user state snapshot,
// newest first. Pure function, no I/O.
func Derive(state *matchmaking.UserState, now time.Time) []Notification {
	var notifications []Notification

	if state.LastFeedback != nil {
		notifications = append(notifications, feedbackNotification(state.LastFeedback))
	}

	if state.CurrentState == matchmaking.StateFrozen && state.ReflectionPeriodEnd != nil {
		notifications = append(notifications, reflectionNotification(state, now))
	}

	// The milestone entry survives the end of the match: the flag is only
	// reset when a new match starts, so there may be no current match.
	if state.MilestoneReached {
		data := map[string]interface{}{
			"message_count": state.MessageCount,
		}
		if state.CurrentMatch != nil {
			data["match_id"] = state.CurrentMatch.String()
		}

		createdAt := state.UpdatedAt
		if createdAt.IsZero() {
			createdAt = state.StateStartTime
		}

		notifications = append(notifications, Notification{
			Type:      TypeMilestone,
			Title:     "Milestone reached",
			Message:   "You two have really hit it off! Video calling is now unlocked.",
			Data:      data,
			CreatedAt: createdAt,
		})
	}

	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications
}

func feedbackNotification(feedback *matchmaking.LastFeedback) Notification {
	message := fmt.Sprintf("Your previous match shared why it ended: %s.", reasonText(feedback.Reason))
	if feedback.Details != "" {
		message += " They added: " + feedback.Details
	}

	return Notification{
		Type:      TypeFeedback,
		Title:     "Feedback from your match",
		Message:   message,
		Data:      map[string]interface{}{"reason": feedback.Reason},
		CreatedAt: feedback.ReceivedAt,
	}
}

// reflectionNotification frames the reflection period by role: feedback on
// the state means the other member ended the match, its absence means this
// user did.
func reflectionNotification(state *matchmaking.UserState, now time.Time) Notification {
	end := *state.ReflectionPeriodEnd

	if !now.Before(end) {
		return Notification{
			Type:      TypeReflection,
			Title:     "Ready for something new",
			Message:   "Your reflection period is over. Request your next match whenever you feel ready.",
			CreatedAt: end,
		}
	}

	message := fmt.Sprintf("Take time to reflect on your decision to end the match. You'll be ready for a new match in %s.", formatRemaining(end.Sub(now)))
	if state.LastFeedback != nil {
		message = fmt.Sprintf("Take time to reflect on the feedback you received. You'll be ready for a new match in %s.", formatRemaining(end.Sub(now)))
	}

	return Notification{
		Type:    TypeReflection,
		Title:   "Time for reflection",
		Message: message,
		Data: map[string]interface{}{
			"reflection_period_end": end,
		},
		CreatedAt: state.StateStartTime,
	}
}

func reasonText(reason string) string {
	switch reason {
	case "not_compatible":
		return "you weren't quite compatible"
	case "no_chemistry":
		return "the chemistry wasn't there"
	case "communication_issues":
		return "communication was difficult"
	case "different_goals":
		return "you wanted different things"
	default:
		return "it wasn't the right fit"
	}
}

func formatRemaining(d time.Duration) string {
	if d < time.Minute {
		return "less than a minute"
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) - hours*60
	if minutes == 0 {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// ChatActivity returns the hourly message histogram for the last 24 hours
// of a conversation the user belongs to.
func (s *service) ChatActivity(ctx context.Context, userID int64, matchID uuid.UUID) (*ChatActivity, error) {
	if _, err := s.states.GetMatch(ctx, userID, matchID); err != nil {
		return nil, err
	}

	now := s.now()
	since := now.Add(-24 * time.Hour).Truncate(time.Hour)

	timestamps, err := s.activity.MessageTimestamps(ctx, matchID, since)
	if err != nil {
		return nil, err
	}

	counts := make(map[time.Time]int)
	for _, ts := range timestamps {
		counts[ts.Truncate(time.Hour)]++
	}

	activity := &ChatActivity{
		MatchID: matchID,
		Since:   since,
		Total:   len(timestamps),
	}
	for hour := since; hour.Before(now); hour = hour.Add(time.Hour) {
		activity.Buckets = append(activity.Buckets, HourBucket{
			Hour:  hour,
			Count: counts[hour],
		})
	}

	return activity, nil
}
