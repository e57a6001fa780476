package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onematch/onematch-backend/internal/matchmaking"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeStates struct {
	state *matchmaking.UserState
	match *matchmaking.Match
}

func (f *fakeStates) GetUserState(ctx context.Context, userID int64) (*matchmaking.UserState, error) {
	return f.state, nil
}

func (f *fakeStates) GetMatch(ctx context.Context, userID int64, matchID uuid.UUID) (*matchmaking.Match, error) {
	if f.match == nil || f.match.ID != matchID {
		return nil, matchmaking.ErrMatchNotFound
	}
	if !f.match.HasUser(userID) {
		return nil, matchmaking.ErrNotMatchMember
	}
	return f.match, nil
}

type fakeActivity struct {
	timestamps []time.Time
}

func (f *fakeActivity) MessageTimestamps(ctx context.Context, matchID uuid.UUID, since time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, ts := range f.timestamps {
		if !ts.Before(since) {
			out = append(out, ts)
		}
	}
	return out, nil
}

func TestDeriveNothingToReport(t *testing.T) {
	state := matchmaking.NewUserState(1, baseTime)

	notifications := Derive(state, baseTime)
	assert.Empty(t, notifications)
}

func TestDeriveFeedbackAndReflection(t *testing.T) {
	reflectionEnd := baseTime.Add(2 * time.Hour)
	state := &matchmaking.UserState{
		UserID:              1,
		CurrentState:        matchmaking.StateFrozen,
		StateStartTime:      baseTime,
		ReflectionPeriodEnd: &reflectionEnd,
		LastFeedback: &matchmaking.LastFeedback{
			Reason:     "no_chemistry",
			Details:    "sorry",
			ReceivedAt: baseTime,
		},
	}

	notifications := Derive(state, baseTime.Add(time.Hour))
	require.Len(t, notifications, 2)

	// Both derived at baseTime; stable order keeps feedback first
	types := []NotificationType{notifications[0].Type, notifications[1].Type}
	assert.Contains(t, types, TypeFeedback)
	assert.Contains(t, types, TypeReflection)

	for _, n := range notifications {
		switch n.Type {
		case TypeFeedback:
			assert.Contains(t, n.Message, "chemistry")
			assert.Contains(t, n.Message, "sorry")
		case TypeReflection:
			// Feedback present means the other member ended the match
			assert.Contains(t, n.Message, "reflect on the feedback you received")
			assert.Contains(t, n.Message, "1 hour")
		}
	}
}

func TestDeriveReflectionForInitiator(t *testing.T) {
	reflectionEnd := baseTime.Add(24 * time.Hour)
	state := &matchmaking.UserState{
		UserID:              1,
		CurrentState:        matchmaking.StateFrozen,
		StateStartTime:      baseTime,
		ReflectionPeriodEnd: &reflectionEnd,
	}

	notifications := Derive(state, baseTime.Add(time.Hour))
	require.Len(t, notifications, 1)
	assert.Equal(t, TypeReflection, notifications[0].Type)
	assert.Contains(t, notifications[0].Message, "reflect on your decision to end the match")
	assert.Contains(t, notifications[0].Message, "23 hours")
}

func TestDeriveReflectionOver(t *testing.T) {
	reflectionEnd := baseTime.Add(-time.Minute)
	state := &matchmaking.UserState{
		UserID:              1,
		CurrentState:        matchmaking.StateFrozen,
		StateStartTime:      baseTime.Add(-24 * time.Hour),
		ReflectionPeriodEnd: &reflectionEnd,
	}

	notifications := Derive(state, baseTime)
	require.Len(t, notifications, 1)
	assert.Equal(t, TypeReflection, notifications[0].Type)
	assert.Contains(t, notifications[0].Message, "reflection period is over")
}

func TestDeriveMilestone(t *testing.T) {
	matchID := uuid.New()
	state := &matchmaking.UserState{
		UserID:           1,
		CurrentState:     matchmaking.StateMatched,
		CurrentMatch:     &matchID,
		MessageCount:     120,
		MilestoneReached: true,
		UpdatedAt:        baseTime,
	}

	notifications := Derive(state, baseTime)
	require.Len(t, notifications, 1)
	assert.Equal(t, TypeMilestone, notifications[0].Type)
	assert.Contains(t, notifications[0].Message, "Video calling")
	assert.Equal(t, 120, notifications[0].Data["message_count"])
}

func TestDeriveMilestoneAfterMatchEnded(t *testing.T) {
	// The milestone flag survives the frozen transition; the entry must
	// not depend on a current match
	state := &matchmaking.UserState{
		UserID:           1,
		CurrentState:     matchmaking.StateFrozen,
		StateStartTime:   baseTime,
		MessageCount:     105,
		MilestoneReached: true,
	}

	notifications := Derive(state, baseTime)
	require.Len(t, notifications, 1)
	assert.Equal(t, TypeMilestone, notifications[0].Type)
	assert.Equal(t, 105, notifications[0].Data["message_count"])
	assert.NotContains(t, notifications[0].Data, "match_id")
	assert.Equal(t, baseTime, notifications[0].CreatedAt)
}

func TestDeriveNewestFirst(t *testing.T) {
	reflectionEnd := baseTime.Add(26 * time.Hour)
	state := &matchmaking.UserState{
		UserID:              1,
		CurrentState:        matchmaking.StateFrozen,
		StateStartTime:      baseTime.Add(2 * time.Hour),
		ReflectionPeriodEnd: &reflectionEnd,
		LastFeedback: &matchmaking.LastFeedback{
			Reason:     "other",
			ReceivedAt: baseTime,
		},
	}

	notifications := Derive(state, baseTime.Add(3*time.Hour))
	require.Len(t, notifications, 2)
	assert.Equal(t, TypeReflection, notifications[0].Type, "newer entry comes first")
	assert.Equal(t, TypeFeedback, notifications[1].Type)
}

func TestListUnreadCount(t *testing.T) {
	reflectionEnd := baseTime.Add(time.Hour)
	states := &fakeStates{
		state: &matchmaking.UserState{
			UserID:              1,
			CurrentState:        matchmaking.StateFrozen,
			StateStartTime:      baseTime,
			ReflectionPeriodEnd: &reflectionEnd,
			LastFeedback: &matchmaking.LastFeedback{
				Reason:     "other",
				ReceivedAt: baseTime,
			},
		},
	}

	svc := NewService(states, &fakeActivity{}).(*service)
	svc.now = func() time.Time { return baseTime }

	list, err := svc.List(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, list.Notifications, 2)
	assert.Equal(t, 2, list.UnreadCount)
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "less than a minute"},
		{time.Minute, "1 minute"},
		{45 * time.Minute, "45 minutes"},
		{time.Hour, "1 hour"},
		{2 * time.Hour, "2 hours"},
		{90 * time.Minute, "1h 30m"},
		{26*time.Hour + 15*time.Minute, "26h 15m"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatRemaining(tt.d))
		})
	}
}

func TestChatActivity(t *testing.T) {
	matchID := uuid.New()
	states := &fakeStates{
		match: &matchmaking.Match{
			ID:      matchID,
			User1ID: 1,
			User2ID: 2,
			Status:  matchmaking.MatchActive,
		},
	}

	now := baseTime
	activity := &fakeActivity{timestamps: []time.Time{
		now.Add(-30 * time.Minute),
		now.Add(-35 * time.Minute),
		now.Add(-2 * time.Hour),
		now.Add(-30 * time.Hour), // outside the window
	}}

	svc := NewService(states, activity).(*service)
	svc.now = func() time.Time { return now }

	result, err := svc.ChatActivity(context.Background(), 1, matchID)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)

	counts := make(map[time.Time]int)
	for _, bucket := range result.Buckets {
		counts[bucket.Hour] = bucket.Count
	}
	assert.Equal(t, 2, counts[now.Add(-time.Hour).Truncate(time.Hour)])
	assert.Equal(t, 1, counts[now.Add(-2*time.Hour).Truncate(time.Hour)])
}

func TestChatActivityNotMember(t *testing.T) {
	matchID := uuid.New()
	states := &fakeStates{
		match: &matchmaking.Match{ID: matchID, User1ID: 1, User2ID: 2},
	}

	svc := NewService(states, &fakeActivity{})

	_, err := svc.ChatActivity(context.Background(), 99, matchID)
	assert.ErrorIs(t, err, matchmaking.ErrNotMatchMember)
}
