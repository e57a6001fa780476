// internal/matchmaking/scoring.go

package matchmaking

import "github.com/onematch/onematch-backend/internal/profile"

// neutralScore is the factor value used when either profile is missing the
// data a factor needs. Applied at the whole-factor level, not per trait.
const neutralScore = 50.0

// defaultTrait stands in for an unset 1-10 trait inside an otherwise
// present nested object.
const defaultTrait = 5

// ScoreWeights is the weight vector over the four compatibility factors
type ScoreWeights struct {
	Personality       float64
	Emotional         float64
	Interest          float64
	RelationshipGoals float64
}

// Scorer computes compatibility between two profiles. Pure and
// deterministic: no I/O, no side effects.
type Scorer struct {
	weights ScoreWeights
}

func NewScorer(weights ScoreWeights) *Scorer {
	return &Scorer{weights: weights}
}

// Score returns the weighted 0-100 total and the four sub-scores
func (s *Scorer) Score(user1, user2 *profile.Profile) (float64, *CompatibilityFactors) {
	factors := &CompatibilityFactors{
		PersonalityMatch:       s.personalityScore(user1, user2),
		EmotionalMatch:         s.emotionalScore(user1, user2),
		InterestMatch:          s.interestScore(user1, user2),
		RelationshipGoalsMatch: s.relationshipGoalsScore(user1, user2),
	}

	total := factors.PersonalityMatch*s.weights.Personality +
		factors.EmotionalMatch*s.weights.Emotional +
		factors.InterestMatch*s.weights.Interest +
		factors.RelationshipGoalsMatch*s.weights.RelationshipGoals

	return total, factors
}

func (s *Scorer) personalityScore(user1, user2 *profile.Profile) float64 {
	p1, p2 := user1.Personality, user2.Personality
	if p1 == nil || p2 == nil {
		return neutralScore
	}

	introvertExtrovert := traitSimilarity(p1.IntrovertExtrovert, p2.IntrovertExtrovert)
	thinkingFeeling := traitSimilarity(p1.ThinkingFeeling, p2.ThinkingFeeling)
	planningFlexibility := traitSimilarity(p1.PlanningFlexibility, p2.PlanningFlexibility)

	return (introvertExtrovert + thinkingFeeling + planningFlexibility) / 3
}

func (s *Scorer) emotionalScore(user1, user2 *profile.Profile) float64 {
	e1, e2 := user1.EmotionalPatterns, user2.EmotionalPatterns
	if e1 == nil || e2 == nil {
		return neutralScore
	}

	communicationStyle := enumSimilarity(e1.CommunicationStyle, e2.CommunicationStyle)
	conflictResolution := enumSimilarity(e1.ConflictResolution, e2.ConflictResolution)
	expression := traitSimilarity(e1.EmotionalExpression, e2.EmotionalExpression)

	return (communicationStyle + conflictResolution + expression) / 3
}

func (s *Scorer) interestScore(user1, user2 *profile.Profile) float64 {
	if len(user1.Interests) == 0 || len(user2.Interests) == 0 {
		return neutralScore
	}

	seen := make(map[string]bool, len(user1.Interests))
	for _, interest := range user1.Interests {
		seen[interest] = true
	}

	common := 0
	for _, interest := range user2.Interests {
		if seen[interest] {
			common++
		}
	}

	// Jaccard similarity over the two interest sets
	union := len(user1.Interests) + len(user2.Interests) - common
	if union == 0 {
		return neutralScore
	}

	return float64(common) / float64(union) * 100
}

func (s *Scorer) relationshipGoalsScore(user1, user2 *profile.Profile) float64 {
	r1, r2 := user1.Preferences, user2.Preferences
	if r1 == nil || r2 == nil {
		return neutralScore
	}

	relationshipType := enumSimilarity(r1.RelationshipType, r2.RelationshipType)

	// TODO: deal-breaker matching needs real attribute checks; product has
	// not defined which profile attributes a deal breaker maps to, so this
	// sub-score is a constant for now.
	dealBreakers := 100.0

	values := neutralScore
	if len(r1.ImportantValues) > 0 && len(r2.ImportantValues) > 0 {
		shared := make(map[string]bool, len(r1.ImportantValues))
		for _, v := range r1.ImportantValues {
			shared[v] = true
		}
		common := 0
		for _, v := range r2.ImportantValues {
			if shared[v] {
				common++
			}
		}
		values = float64(common) / float64(len(r1.ImportantValues)) * 100
	}

	return (relationshipType + dealBreakers + values) / 3
}

// traitSimilarity maps the distance between two 1-10 traits onto 0-100.
// An unset trait defaults to the scale midpoint.
func traitSimilarity(a, b *int) float64 {
	av, bv := defaultTrait, defaultTrait
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}

	diff := av - bv
	if diff < 0 {
		diff = -diff
	}

	return float64(100 - diff*10)
}

func enumSimilarity(a, b string) float64 {
	if a == b {
		return 100
	}
	return 50
}
