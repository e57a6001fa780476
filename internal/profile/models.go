// internal/profile/models.go
// Read-only projection of user profiles. Profile CRUD is owned by the
// profile service; matchmaking only consumes these shapes.

package profile

import "time"

// Personality traits, each scaled 1-10
type Personality struct {
	IntrovertExtrovert  *int `json:"introvert_extrovert,omitempty" validate:"omitempty,min=1,max=10"`
	ThinkingFeeling     *int `json:"thinking_feeling,omitempty" validate:"omitempty,min=1,max=10"`
	PlanningFlexibility *int `json:"planning_flexibility,omitempty" validate:"omitempty,min=1,max=10"`
	StressManagement    *int `json:"stress_management,omitempty" validate:"omitempty,min=1,max=10"`
}

// EmotionalPatterns describes how a user communicates and handles conflict
type EmotionalPatterns struct {
	CommunicationStyle  string `json:"communication_style,omitempty" validate:"omitempty,oneof=direct indirect analytical intuitive functional"`
	ConflictResolution  string `json:"conflict_resolution,omitempty" validate:"omitempty,oneof=compromising accommodating competing avoiding collaborating"`
	EmotionalExpression *int   `json:"emotional_expression,omitempty" validate:"omitempty,min=1,max=10"`
}

// RelationshipPreferences describes what a user is looking for
type RelationshipPreferences struct {
	RelationshipType string   `json:"relationship_type,omitempty" validate:"omitempty,oneof=casual serious marriage-minded undecided"`
	DealBreakers     []string `json:"deal_breakers,omitempty"`
	ImportantValues  []string `json:"important_values,omitempty"`
}

// Profile is the full profile shape the compatibility scorer consumes.
// The nested objects are optional; the scorer falls back to a neutral
// factor score when one is absent.
type Profile struct {
	UserID            int64                    `json:"user_id" db:"id"`
	Name              string                   `json:"name" db:"name"`
	Age               int                      `json:"age" db:"age"`
	Gender            string                   `json:"gender" db:"gender"`
	Location          string                   `json:"location" db:"location"`
	Bio               string                   `json:"bio" db:"bio"`
	ProfilePicture    string                   `json:"profile_picture" db:"profile_picture"`
	IsProfileComplete bool                     `json:"is_profile_complete" db:"is_profile_complete"`
	Personality       *Personality             `json:"personality,omitempty"`
	EmotionalPatterns *EmotionalPatterns       `json:"emotional_patterns,omitempty"`
	Preferences       *RelationshipPreferences `json:"relationship_preferences,omitempty"`
	Interests         []string                 `json:"interests"`
	CreatedAt         time.Time                `json:"created_at" db:"created_at"`
}

// PublicProfile is the projection returned alongside a match
type PublicProfile struct {
	UserID         int64    `json:"user_id"`
	Name           string   `json:"name"`
	Age            int      `json:"age"`
	Gender         string   `json:"gender"`
	Location       string   `json:"location"`
	ProfilePicture string   `json:"profile_picture"`
	Bio            string   `json:"bio"`
	Interests      []string `json:"interests"`
}

// Public returns the projection of a profile safe to show to a match
func (p *Profile) Public() *PublicProfile {
	return &PublicProfile{
		UserID:         p.UserID,
		Name:           p.Name,
		Age:            p.Age,
		Gender:         p.Gender,
		Location:       p.Location,
		ProfilePicture: p.ProfilePicture,
		Bio:            p.Bio,
		Interests:      p.Interests,
	}
}

// CandidateFilter narrows the candidate pool for matchmaking
type CandidateFilter struct {
	ExcludeUserID   int64
	Gender          string
	RequireComplete bool
}
