package matchmaking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/onematch/onematch-backend/internal/profile"
)

func intPtr(v int) *int { return &v }

func defaultWeights() ScoreWeights {
	return ScoreWeights{
		Personality:       0.3,
		Emotional:         0.3,
		Interest:          0.2,
		RelationshipGoals: 0.2,
	}
}

func fullProfile(userID int64) *profile.Profile {
	return &profile.Profile{
		UserID: userID,
		Personality: &profile.Personality{
			IntrovertExtrovert:  intPtr(7),
			ThinkingFeeling:     intPtr(5),
			PlanningFlexibility: intPtr(3),
		},
		EmotionalPatterns: &profile.EmotionalPatterns{
			CommunicationStyle:  "direct",
			ConflictResolution:  "collaborating",
			EmotionalExpression: intPtr(6),
		},
		Preferences: &profile.RelationshipPreferences{
			RelationshipType: "serious",
			ImportantValues:  []string{"honesty", "family"},
		},
		Interests: []string{"hiking", "cooking", "jazz", "travel"},
	}
}

func TestScoreIdenticalProfiles(t *testing.T) {
	scorer := NewScorer(defaultWeights())

	total, factors := scorer.Score(fullProfile(1), fullProfile(2))

	assert.InDelta(t, 100.0, factors.PersonalityMatch, 0.001)
	assert.InDelta(t, 100.0, factors.EmotionalMatch, 0.001)
	assert.InDelta(t, 100.0, factors.InterestMatch, 0.001)
	assert.InDelta(t, 100.0, factors.RelationshipGoalsMatch, 0.001)
	assert.InDelta(t, 100.0, total, 0.001)
}

func TestScoreWeightedTotal(t *testing.T) {
	scorer := NewScorer(defaultWeights())

	user1 := fullProfile(1)
	user2 := &profile.Profile{
		UserID: 2,
		Personality: &profile.Personality{
			IntrovertExtrovert:  intPtr(5),
			ThinkingFeeling:     intPtr(5),
			PlanningFlexibility: intPtr(7),
		},
		EmotionalPatterns: &profile.EmotionalPatterns{
			CommunicationStyle:  "direct",
			ConflictResolution:  "avoiding",
			EmotionalExpression: intPtr(8),
		},
		Preferences: &profile.RelationshipPreferences{
			RelationshipType: "serious",
			ImportantValues:  []string{"family", "ambition"},
		},
		Interests: []string{"jazz", "travel", "gaming", "yoga"},
	}

	total, factors := scorer.Score(user1, user2)

	// Traits 80, 100, 60
	assert.InDelta(t, 80.0, factors.PersonalityMatch, 0.001)
	// Style match 100, conflict mismatch 50, expression distance 2 -> 80
	assert.InDelta(t, 76.6667, factors.EmotionalMatch, 0.001)
	// 2 shared interests out of a union of 6
	assert.InDelta(t, 33.3333, factors.InterestMatch, 0.001)
	// Type 100, deal breakers 100, 1 of 2 values shared -> 50
	assert.InDelta(t, 83.3333, factors.RelationshipGoalsMatch, 0.001)

	assert.InDelta(t, 70.3333, total, 0.001)
}

func TestScoreOnlyPersonalityPresent(t *testing.T) {
	scorer := NewScorer(defaultWeights())

	user1 := fullProfile(1)
	user1.EmotionalPatterns = nil
	user1.Preferences = nil
	user1.Interests = nil
	user2 := fullProfile(2)
	user2.EmotionalPatterns = nil
	user2.Preferences = nil
	user2.Interests = nil

	total, factors := scorer.Score(user1, user2)

	// Identical personalities, everything else neutral
	assert.InDelta(t, 100.0, factors.PersonalityMatch, 0.001)
	assert.InDelta(t, 50.0, factors.EmotionalMatch, 0.001)
	assert.InDelta(t, 50.0, factors.InterestMatch, 0.001)
	assert.InDelta(t, 50.0, factors.RelationshipGoalsMatch, 0.001)
	assert.InDelta(t, 65.0, total, 0.001)
}

func TestScoreSymmetryExceptValues(t *testing.T) {
	// The values sub-score is normalized by user1's list, so symmetry only
	// holds for the other three factors.
	scorer := NewScorer(defaultWeights())

	user1 := fullProfile(1)
	user2 := fullProfile(2)
	user2.Interests = []string{"hiking", "chess"}
	user2.Personality.IntrovertExtrovert = intPtr(2)

	_, forward := scorer.Score(user1, user2)
	_, backward := scorer.Score(user2, user1)

	assert.InDelta(t, forward.PersonalityMatch, backward.PersonalityMatch, 0.001)
	assert.InDelta(t, forward.EmotionalMatch, backward.EmotionalMatch, 0.001)
	assert.InDelta(t, forward.InterestMatch, backward.InterestMatch, 0.001)
}

func TestScoreMissingSections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *profile.Profile)
		factor func(f *CompatibilityFactors) float64
	}{
		{
			name:   "missing personality",
			mutate: func(p *profile.Profile) { p.Personality = nil },
			factor: func(f *CompatibilityFactors) float64 { return f.PersonalityMatch },
		},
		{
			name:   "missing emotional patterns",
			mutate: func(p *profile.Profile) { p.EmotionalPatterns = nil },
			factor: func(f *CompatibilityFactors) float64 { return f.EmotionalMatch },
		},
		{
			name:   "no interests",
			mutate: func(p *profile.Profile) { p.Interests = nil },
			factor: func(f *CompatibilityFactors) float64 { return f.InterestMatch },
		},
		{
			name:   "missing preferences",
			mutate: func(p *profile.Profile) { p.Preferences = nil },
			factor: func(f *CompatibilityFactors) float64 { return f.RelationshipGoalsMatch },
		},
	}

	scorer := NewScorer(defaultWeights())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user2 := fullProfile(2)
			tt.mutate(user2)

			_, factors := scorer.Score(fullProfile(1), user2)
			assert.InDelta(t, 50.0, tt.factor(factors), 0.001, "absent data scores neutral")
		})
	}
}

func TestScoreUnsetTraitDefaultsToMidpoint(t *testing.T) {
	scorer := NewScorer(defaultWeights())

	user1 := fullProfile(1)
	user2 := fullProfile(2)
	// Unset trait reads as 5; user1 has 7 -> distance 2 -> 80
	user2.Personality.IntrovertExtrovert = nil

	_, factors := scorer.Score(user1, user2)
	assert.InDelta(t, (80.0+100.0+100.0)/3, factors.PersonalityMatch, 0.001)
}

func TestScoreDisjointInterests(t *testing.T) {
	scorer := NewScorer(defaultWeights())

	user1 := fullProfile(1)
	user2 := fullProfile(2)
	user2.Interests = []string{"surfing", "poker"}

	_, factors := scorer.Score(user1, user2)
	assert.InDelta(t, 0.0, factors.InterestMatch, 0.001)
}
