// internal/messaging/service.go

package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/onematch/onematch-backend/internal/matchmaking"
)

var (
	ErrVoiceURLRequired = errors.New("voice messages require a voice URL")
	ErrMessageTooLong   = errors.New("message exceeds the maximum length")
)

// Tracker is the slice of the matchmaking engine messaging depends on:
// match lookup plus message accounting. Satisfied by matchmaking.Service.
type Tracker interface {
	GetMatch(ctx context.Context, userID int64, matchID uuid.UUID) (*matchmaking.Match, error)
	RecordMessage(ctx context.Context, matchID uuid.UUID, senderID, receiverID int64) (int, bool, error)
}

// Events receives conversation events for realtime delivery. The hub
// implements it; a nil Events drops events silently.
type Events interface {
	MessageSent(message *Message)
	MilestoneReached(matchID uuid.UUID, members []int64, count int, at time.Time)
	ConversationRead(matchID uuid.UUID, notifyUserID, readerID int64, count int)
}

type Settings struct {
	MilestoneThreshold int
	ConversationWindow time.Duration
	MaxMessageLength   int
}

type Service interface {
	SendMessage(ctx context.Context, senderID int64, dto *SendMessageDTO) (*Message, bool, error)
	GetMessages(ctx context.Context, userID int64, matchID uuid.UUID, limit, offset int) ([]*Message, error)
	MarkRead(ctx context.Context, userID int64, matchID uuid.UUID) (int, error)
	MilestoneStatus(ctx context.Context, userID int64, matchID uuid.UUID) (*MilestoneStatus, error)
	UnreadCount(ctx context.Context, userID int64, matchID uuid.UUID) (int, error)
}

type service struct {
	repo     Repository
	tracker  Tracker
	events   Events
	settings Settings
	now      func() time.Time
}

func NewService(repo Repository, tracker Tracker, events Events, settings Settings) Service {
	return &service{
		repo:     repo,
		tracker:  tracker,
		events:   events,
		settings: settings,
		now:      time.Now,
	}
}

// SendMessage validates, accounts, and persists one message. The returned
// bool reports whether this message crossed the conversation milestone.
func (s *service) SendMessage(ctx context.Context, senderID int64, dto *SendMessageDTO) (*Message, bool, error) {
	if dto.Type == "" {
		dto.Type = MessageText
	}
	if dto.Type == MessageVoice && dto.VoiceURL == "" {
		return nil, false, ErrVoiceURLRequired
	}
	if len(dto.Content) > s.settings.MaxMessageLength {
		return nil, false, ErrMessageTooLong
	}

	// Resend with a known idempotency key returns the original
	if dto.ClientMessageID != nil {
		existing, err := s.repo.GetByClientMessageID(ctx, dto.MatchID, *dto.ClientMessageID)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, ErrMessageNotFound) {
			return nil, false, err
		}
	}

	match, err := s.tracker.GetMatch(ctx, senderID, dto.MatchID)
	if err != nil {
		return nil, false, err
	}
	receiverID := match.OtherUser(senderID)

	messageNumber, milestone, err := s.tracker.RecordMessage(ctx, dto.MatchID, senderID, receiverID)
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	message := &Message{
		ID:                     uuid.New(),
		MatchID:                dto.MatchID,
		SenderID:               senderID,
		ReceiverID:             receiverID,
		Content:                dto.Content,
		Type:                   dto.Type,
		MessageNumber:          messageNumber,
		ContributesToMilestone: true,
		ClientMessageID:        dto.ClientMessageID,
		CreatedAt:              now,
	}
	if dto.Type == MessageVoice {
		message.VoiceURL = &dto.VoiceURL
		if dto.Duration > 0 {
			duration := dto.Duration
			message.Duration = &duration
		}
	}

	if err := s.repo.CreateMessage(ctx, message); err != nil {
		// A racing resend with the same idempotency key can win the insert
		if dto.ClientMessageID != nil && isUniqueViolation(err) {
			existing, getErr := s.repo.GetByClientMessageID(ctx, dto.MatchID, *dto.ClientMessageID)
			if getErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("persist message: %w", err)
	}

	if s.events != nil {
		s.events.MessageSent(message)
		if milestone {
			s.events.MilestoneReached(dto.MatchID, []int64{match.User1ID, match.User2ID}, messageNumber, now)
		}
	}

	return message, milestone, nil
}

func (s *service) GetMessages(ctx context.Context, userID int64, matchID uuid.UUID, limit, offset int) ([]*Message, error) {
	if _, err := s.tracker.GetMatch(ctx, userID, matchID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.ListByMatch(ctx, matchID, limit, offset)
}

func (s *service) MarkRead(ctx context.Context, userID int64, matchID uuid.UUID) (int, error) {
	match, err := s.tracker.GetMatch(ctx, userID, matchID)
	if err != nil {
		return 0, err
	}

	count, err := s.repo.MarkConversationRead(ctx, matchID, userID, s.now())
	if err != nil {
		return 0, err
	}

	if count > 0 && s.events != nil {
		s.events.ConversationRead(matchID, match.OtherUser(userID), userID, count)
	}
	return count, nil
}

// MilestoneStatus reports conversation progress toward the message
// milestone. Video calling unlocks when the milestone is reached; before
// that the advisory conversation window deadline is included.
func (s *service) MilestoneStatus(ctx context.Context, userID int64, matchID uuid.UUID) (*MilestoneStatus, error) {
	match, err := s.tracker.GetMatch(ctx, userID, matchID)
	if err != nil {
		return nil, err
	}

	status := &MilestoneStatus{
		MatchID:            matchID,
		MessageCount:       match.MessageCount,
		Threshold:          s.settings.MilestoneThreshold,
		MilestoneReached:   match.MilestoneReached,
		MilestoneReachedAt: match.MilestoneReachedAt,
		CanVideoCall:       match.MilestoneReached,
	}

	if remaining := s.settings.MilestoneThreshold - match.MessageCount; remaining > 0 {
		status.Remaining = remaining
	}
	if !match.MilestoneReached {
		deadline := match.MatchDate.Add(s.settings.ConversationWindow)
		status.Deadline = &deadline
	}

	return status, nil
}

func (s *service) UnreadCount(ctx context.Context, userID int64, matchID uuid.UUID) (int, error) {
	if _, err := s.tracker.GetMatch(ctx, userID, matchID); err != nil {
		return 0, err
	}
	return s.repo.UnreadCount(ctx, matchID, userID)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
