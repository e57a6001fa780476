// internal/profile/repository.go

package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/onematch/onematch-backend/internal/common/utils"
)

var ErrProfileNotFound = errors.New("profile not found")

// Provider is the profile lookup interface the matchmaking engine consumes
type Provider interface {
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	FindCandidates(ctx context.Context, filter *CandidateFilter) ([]*Profile, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Provider {
	return &postgresRepository{db: db}
}

// profileRow carries the raw JSONB columns before decoding
type profileRow struct {
	ID                int64          `db:"id"`
	Name              string         `db:"name"`
	Age               int            `db:"age"`
	Gender            string         `db:"gender"`
	Location          string         `db:"location"`
	Bio               sql.NullString `db:"bio"`
	ProfilePicture    sql.NullString `db:"profile_picture"`
	IsProfileComplete bool           `db:"is_profile_complete"`
	Personality       []byte         `db:"personality"`
	EmotionalPatterns []byte         `db:"emotional_patterns"`
	Preferences       []byte         `db:"relationship_preferences"`
	Interests         pq.StringArray `db:"interests"`
}

const profileColumns = `
	id, name, age, gender, location, bio, profile_picture,
	is_profile_complete, personality, emotional_patterns,
	relationship_preferences, interests
`

func (r *postgresRepository) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	var row profileRow
	query := `SELECT ` + profileColumns + ` FROM users WHERE id = $1`

	err := r.db.GetContext(ctx, &row, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	return row.toProfile()
}

func (r *postgresRepository) FindCandidates(ctx context.Context, filter *CandidateFilter) ([]*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM users WHERE id != $1`
	args := []interface{}{filter.ExcludeUserID}

	if filter.Gender != "" {
		args = append(args, filter.Gender)
		query += fmt.Sprintf(" AND gender = $%d", len(args))
	}
	if filter.RequireComplete {
		query += " AND is_profile_complete = TRUE"
	}
	query += " ORDER BY id"

	var rows []profileRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	profiles := make([]*Profile, 0, len(rows))
	for i := range rows {
		p, err := rows[i].toProfile()
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	return profiles, nil
}

// toProfile decodes the JSONB columns and validates them at the provider
// boundary, so the scorer never sees malformed nested objects.
func (row *profileRow) toProfile() (*Profile, error) {
	p := &Profile{
		UserID:            row.ID,
		Name:              row.Name,
		Age:               row.Age,
		Gender:            row.Gender,
		Location:          row.Location,
		Bio:               row.Bio.String,
		ProfilePicture:    row.ProfilePicture.String,
		IsProfileComplete: row.IsProfileComplete,
		Interests:         row.Interests,
	}

	if len(row.Personality) > 0 {
		var personality Personality
		if err := json.Unmarshal(row.Personality, &personality); err != nil {
			return nil, fmt.Errorf("user %d: invalid personality: %w", row.ID, err)
		}
		p.Personality = &personality
	}
	if len(row.EmotionalPatterns) > 0 {
		var patterns EmotionalPatterns
		if err := json.Unmarshal(row.EmotionalPatterns, &patterns); err != nil {
			return nil, fmt.Errorf("user %d: invalid emotional patterns: %w", row.ID, err)
		}
		p.EmotionalPatterns = &patterns
	}
	if len(row.Preferences) > 0 {
		var prefs RelationshipPreferences
		if err := json.Unmarshal(row.Preferences, &prefs); err != nil {
			return nil, fmt.Errorf("user %d: invalid relationship preferences: %w", row.ID, err)
		}
		p.Preferences = &prefs
	}

	if err := utils.ValidateStruct(p); err != nil {
		return nil, fmt.Errorf("user %d: %w", row.ID, err)
	}

	return p, nil
}
