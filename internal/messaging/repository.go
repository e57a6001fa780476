// internal/messaging/repository.go

package messaging

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrMessageNotFound = errors.New("message not found")

type Repository interface {
	CreateMessage(ctx context.Context, message *Message) error
	GetByClientMessageID(ctx context.Context, matchID, clientMessageID uuid.UUID) (*Message, error)
	ListByMatch(ctx context.Context, matchID uuid.UUID, limit, offset int) ([]*Message, error)
	MarkConversationRead(ctx context.Context, matchID uuid.UUID, readerID int64, at time.Time) (int, error)
	UnreadCount(ctx context.Context, matchID uuid.UUID, userID int64) (int, error)
	MessageTimestamps(ctx context.Context, matchID uuid.UUID, since time.Time) ([]time.Time, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const messageColumns = `
	id, match_id, sender_id, receiver_id, content, message_type, voice_url,
	duration, message_number, contributes_to_milestone, is_read, read_at,
	client_message_id, created_at
`

func (r *postgresRepository) CreateMessage(ctx context.Context, message *Message) error {
	query := `
		INSERT INTO messages (
			id, match_id, sender_id, receiver_id, content, message_type,
			voice_url, duration, message_number, contributes_to_milestone,
			client_message_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(
		ctx, query,
		message.ID, message.MatchID, message.SenderID, message.ReceiverID,
		message.Content, message.Type, message.VoiceURL, message.Duration,
		message.MessageNumber, message.ContributesToMilestone,
		message.ClientMessageID, message.CreatedAt,
	)
	return err
}

func (r *postgresRepository) GetByClientMessageID(ctx context.Context, matchID, clientMessageID uuid.UUID) (*Message, error) {
	var message Message
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE match_id = $1 AND client_message_id = $2
	`

	err := r.db.GetContext(ctx, &message, query, matchID, clientMessageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *postgresRepository) ListByMatch(ctx context.Context, matchID uuid.UUID, limit, offset int) ([]*Message, error) {
	var messages []*Message
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE match_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	err := r.db.SelectContext(ctx, &messages, query, matchID, limit, offset)
	return messages, err
}

// MarkConversationRead marks every unread message addressed to the reader
// and returns how many were marked.
func (r *postgresRepository) MarkConversationRead(ctx context.Context, matchID uuid.UUID, readerID int64, at time.Time) (int, error) {
	query := `
		UPDATE messages
		SET is_read = TRUE, read_at = $3
		WHERE match_id = $1 AND receiver_id = $2 AND is_read = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, matchID, readerID, at)
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()
	return int(affected), err
}

func (r *postgresRepository) UnreadCount(ctx context.Context, matchID uuid.UUID, userID int64) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM messages
		WHERE match_id = $1 AND receiver_id = $2 AND is_read = FALSE
	`

	err := r.db.GetContext(ctx, &count, query, matchID, userID)
	return count, err
}

// MessageTimestamps returns the send times of messages newer than since,
// oldest first. Feeds the chat activity histogram.
func (r *postgresRepository) MessageTimestamps(ctx context.Context, matchID uuid.UUID, since time.Time) ([]time.Time, error) {
	var timestamps []time.Time
	query := `
		SELECT created_at FROM messages
		WHERE match_id = $1 AND created_at >= $2
		ORDER BY created_at
	`

	err := r.db.SelectContext(ctx, &timestamps, query, matchID, since)
	return timestamps, err
}
