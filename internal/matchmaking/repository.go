// internal/matchmaking/repository.go

package matchmaking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository interface {
	// User states
	GetUserState(ctx context.Context, userID int64) (*UserState, error)
	CreateUserState(ctx context.Context, state *UserState) error
	SaveUserState(ctx context.Context, state *UserState) error
	AvailableUserIDs(ctx context.Context, userIDs []int64) ([]int64, error)

	// Matches
	CreateMatch(ctx context.Context, match *Match) error
	GetMatch(ctx context.Context, id uuid.UUID) (*Match, error)
	GetOngoingMatchForUser(ctx context.Context, userID int64) (*Match, error)
	UpdateMatchStatus(ctx context.Context, id uuid.UUID, status MatchStatus) error
	UpdateMatchUnpin(ctx context.Context, match *Match) error
	SetMatchMessageCount(ctx context.Context, id uuid.UUID, count int) error
	MarkMilestoneReached(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// Message accounting (messages are owned by the messaging module; the
	// engine only needs the milestone-contributing count per match)
	CountContributingMessages(ctx context.Context, matchID uuid.UUID) (int, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// User state methods

type userStateRow struct {
	UserID              int64         `db:"user_id"`
	CurrentState        UserStateKind `db:"current_state"`
	CurrentMatch        *uuid.UUID    `db:"current_match"`
	StateStartTime      time.Time     `db:"state_start_time"`
	StateEndTime        *time.Time    `db:"state_end_time"`
	ReflectionPeriodEnd *time.Time    `db:"reflection_period_end"`
	MessageCount        int           `db:"message_count"`
	MilestoneReached    bool          `db:"milestone_reached"`
	FeedbackReason      *string       `db:"last_feedback_reason"`
	FeedbackDetails     *string       `db:"last_feedback_details"`
	FeedbackReceivedAt  *time.Time    `db:"last_feedback_received_at"`
	UpdatedAt           time.Time     `db:"updated_at"`
}

func (r *postgresRepository) GetUserState(ctx context.Context, userID int64) (*UserState, error) {
	var row userStateRow
	query := `
		SELECT user_id, current_state, current_match, state_start_time,
		       state_end_time, reflection_period_end, message_count,
		       milestone_reached, last_feedback_reason, last_feedback_details,
		       last_feedback_received_at, updated_at
		FROM user_states
		WHERE user_id = $1
	`

	err := r.db.GetContext(ctx, &row, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserStateNotFound
	}
	if err != nil {
		return nil, err
	}

	state := &UserState{
		UserID:              row.UserID,
		CurrentState:        row.CurrentState,
		CurrentMatch:        row.CurrentMatch,
		StateStartTime:      row.StateStartTime,
		StateEndTime:        row.StateEndTime,
		ReflectionPeriodEnd: row.ReflectionPeriodEnd,
		MessageCount:        row.MessageCount,
		MilestoneReached:    row.MilestoneReached,
		UpdatedAt:           row.UpdatedAt,
	}

	if row.FeedbackReceivedAt != nil {
		feedback := LastFeedback{ReceivedAt: *row.FeedbackReceivedAt}
		if row.FeedbackReason != nil {
			feedback.Reason = *row.FeedbackReason
		}
		if row.FeedbackDetails != nil {
			feedback.Details = *row.FeedbackDetails
		}
		state.LastFeedback = &feedback
	}

	historyQuery := `
		SELECT match_id, start_date, end_date, status, message_count, milestone_reached
		FROM user_match_history
		WHERE user_id = $1
		ORDER BY id
	`
	if err := r.db.SelectContext(ctx, &state.MatchHistory, historyQuery, userID); err != nil {
		return nil, err
	}
	state.storedHistory = len(state.MatchHistory)

	return state, nil
}

func (r *postgresRepository) CreateUserState(ctx context.Context, state *UserState) error {
	query := `
		INSERT INTO user_states (user_id, current_state, state_start_time)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query, state.UserID, state.CurrentState, state.StateStartTime)
	return err
}

func (r *postgresRepository) SaveUserState(ctx context.Context, state *UserState) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE user_states
		SET current_state = $2, current_match = $3, state_start_time = $4,
		    state_end_time = $5, reflection_period_end = $6, message_count = $7,
		    milestone_reached = $8, last_feedback_reason = $9,
		    last_feedback_details = $10, last_feedback_received_at = $11,
		    updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1
	`

	var feedbackReason, feedbackDetails *string
	var feedbackReceivedAt *time.Time
	if state.LastFeedback != nil {
		feedbackReason = &state.LastFeedback.Reason
		feedbackDetails = &state.LastFeedback.Details
		feedbackReceivedAt = &state.LastFeedback.ReceivedAt
	}

	_, err = tx.ExecContext(
		ctx, query,
		state.UserID, state.CurrentState, state.CurrentMatch,
		state.StateStartTime, state.StateEndTime, state.ReflectionPeriodEnd,
		state.MessageCount, state.MilestoneReached,
		feedbackReason, feedbackDetails, feedbackReceivedAt,
	)
	if err != nil {
		return err
	}

	// Append only the history entries added since the state was loaded
	historyQuery := `
		INSERT INTO user_match_history (
			user_id, match_id, start_date, end_date, status,
			message_count, milestone_reached
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, entry := range state.MatchHistory[state.storedHistory:] {
		_, err = tx.ExecContext(
			ctx, historyQuery,
			state.UserID, entry.Match, entry.StartDate, entry.EndDate,
			entry.Status, entry.MessageCount, entry.MilestoneReached,
		)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	state.storedHistory = len(state.MatchHistory)
	return nil
}

func (r *postgresRepository) AvailableUserIDs(ctx context.Context, userIDs []int64) ([]int64, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	// A user with no state row has never engaged with matchmaking and is
	// treated as being in the initial available state.
	var available []int64
	query := `
		SELECT c.user_id
		FROM unnest($1::bigint[]) AS c(user_id)
		LEFT JOIN user_states s ON s.user_id = c.user_id
		WHERE s.user_id IS NULL OR s.current_state = 'available'
	`

	err := r.db.SelectContext(ctx, &available, query, pq.Array(userIDs))
	return available, err
}

// Match methods

const matchColumns = `
	id, user1_id, user2_id, match_date, end_date, status,
	compatibility_score, personality_match, emotional_match,
	interest_match, relationship_goals_match, message_count,
	milestone_reached, milestone_reached_at, unpinned_by,
	unpin_reason, unpin_details
`

func (r *postgresRepository) CreateMatch(ctx context.Context, match *Match) error {
	// Canonical ordering keeps the pair unique index effective
	if match.User1ID > match.User2ID {
		match.User1ID, match.User2ID = match.User2ID, match.User1ID
	}

	query := `
		INSERT INTO matches (
			id, user1_id, user2_id, match_date, status, compatibility_score,
			personality_match, emotional_match, interest_match,
			relationship_goals_match
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(
		ctx, query,
		match.ID, match.User1ID, match.User2ID, match.MatchDate, match.Status,
		match.CompatibilityScore, match.Factors.PersonalityMatch,
		match.Factors.EmotionalMatch, match.Factors.InterestMatch,
		match.Factors.RelationshipGoalsMatch,
	)
	return err
}

func (r *postgresRepository) scanMatch(row *sqlx.Row) (*Match, error) {
	var m Match
	err := row.Scan(
		&m.ID, &m.User1ID, &m.User2ID, &m.MatchDate, &m.EndDate, &m.Status,
		&m.CompatibilityScore, &m.Factors.PersonalityMatch,
		&m.Factors.EmotionalMatch, &m.Factors.InterestMatch,
		&m.Factors.RelationshipGoalsMatch, &m.MessageCount,
		&m.MilestoneReached, &m.MilestoneReachedAt, &m.UnpinnedBy,
		&m.UnpinReason, &m.UnpinDetails,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *postgresRepository) GetMatch(ctx context.Context, id uuid.UUID) (*Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return r.scanMatch(r.db.QueryRowxContext(ctx, query, id))
}

func (r *postgresRepository) GetOngoingMatchForUser(ctx context.Context, userID int64) (*Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE (user1_id = $1 OR user2_id = $1) AND status IN ('active', 'pinned')
		ORDER BY match_date DESC
		LIMIT 1
	`
	return r.scanMatch(r.db.QueryRowxContext(ctx, query, userID))
}

func (r *postgresRepository) UpdateMatchStatus(ctx context.Context, id uuid.UUID, status MatchStatus) error {
	query := `UPDATE matches SET status = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return err
	}
	return requireRowAffected(result)
}

func (r *postgresRepository) UpdateMatchUnpin(ctx context.Context, match *Match) error {
	query := `
		UPDATE matches
		SET status = $2, end_date = $3, unpinned_by = $4,
		    unpin_reason = $5, unpin_details = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx, query,
		match.ID, match.Status, match.EndDate,
		match.UnpinnedBy, match.UnpinReason, match.UnpinDetails,
	)
	if err != nil {
		return err
	}
	return requireRowAffected(result)
}

func (r *postgresRepository) SetMatchMessageCount(ctx context.Context, id uuid.UUID, count int) error {
	query := `UPDATE matches SET message_count = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, count)
	if err != nil {
		return err
	}
	return requireRowAffected(result)
}

// MarkMilestoneReached flips the milestone flag exactly once; the returned
// bool reports whether this call was the one that flipped it.
func (r *postgresRepository) MarkMilestoneReached(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE matches
		SET milestone_reached = TRUE, milestone_reached_at = $2
		WHERE id = $1 AND milestone_reached = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *postgresRepository) CountContributingMessages(ctx context.Context, matchID uuid.UUID) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM messages
		WHERE match_id = $1 AND contributes_to_milestone = TRUE
	`

	err := r.db.GetContext(ctx, &count, query, matchID)
	return count, err
}

// isUniqueViolation reports whether the error is a Postgres unique
// constraint violation (code 23505)
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func requireRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMatchNotFound
	}
	return nil
}
