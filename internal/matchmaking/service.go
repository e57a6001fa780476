// internal/matchmaking/service.go

package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/onematch/onematch-backend/internal/profile"
)

// Settings are the tunable knobs of the engine, sourced from config
type Settings struct {
	MilestoneThreshold  int
	InitiatorReflection time.Duration
	RecipientReflection time.Duration
	Weights             ScoreWeights
}

// DailyMatchResult is a match together with the partner's public profile.
// IsNew distinguishes a freshly created match from an ongoing one returned
// on a repeat request.
type DailyMatchResult struct {
	Match   *Match                 `json:"match"`
	Partner *profile.PublicProfile `json:"partner"`
	IsNew   bool                   `json:"is_new"`
}

// MatchDetails is a match with the requesting user's view of the partner
type MatchDetails struct {
	Match   *Match                 `json:"match"`
	Partner *profile.PublicProfile `json:"partner"`
}

// UnpinResult is the ended match together with the moment the initiator
// becomes eligible for a new one.
type UnpinResult struct {
	Match               *Match    `json:"match"`
	ReflectionPeriodEnd time.Time `json:"reflection_period_end"`
}

type Service interface {
	RequestDailyMatch(ctx context.Context, userID int64) (*DailyMatchResult, error)
	PinMatch(ctx context.Context, userID int64, matchID uuid.UUID) (*Match, error)
	UnpinMatch(ctx context.Context, userID int64, matchID uuid.UUID, reason, details string) (*UnpinResult, error)
	RecordMessage(ctx context.Context, matchID uuid.UUID, senderID, receiverID int64) (messageNumber int, milestoneReached bool, err error)
	GetUserState(ctx context.Context, userID int64) (*UserState, error)
	GetMatch(ctx context.Context, userID int64, matchID uuid.UUID) (*Match, error)
	GetMatchDetails(ctx context.Context, userID int64, matchID uuid.UUID) (*MatchDetails, error)
}

type service struct {
	repo     Repository
	profiles profile.Provider
	locks    Locker
	scorer   *Scorer
	settings Settings
	now      func() time.Time
}

func NewService(repo Repository, profiles profile.Provider, locks Locker, settings Settings) Service {
	return &service{
		repo:     repo,
		profiles: profiles,
		locks:    locks,
		scorer:   NewScorer(settings.Weights),
		settings: settings,
		now:      time.Now,
	}
}

// RequestDailyMatch returns the user's match for today, creating one if the
// user is eligible and a scored candidate exists. Repeat requests while a
// match is ongoing return that match unchanged.
func (s *service) RequestDailyMatch(ctx context.Context, userID int64) (*DailyMatchResult, error) {
	release, err := s.locks.Acquire(ctx, userLockKey(userID))
	if err != nil {
		return nil, err
	}
	defer release()

	state, err := s.getOrCreateState(ctx, userID)
	if err != nil {
		return nil, err
	}

	// An ongoing match short-circuits: one match at a time. Looked up in
	// the match table rather than through the state pointer, so a user
	// whose state write was lost still finds their match.
	existing, err := s.repo.GetOngoingMatchForUser(ctx, userID)
	if err != nil && !errors.Is(err, ErrMatchNotFound) {
		return nil, err
	}
	if existing != nil {
		if state.CurrentMatch == nil || *state.CurrentMatch != existing.ID {
			// Repair the dangling state pointer
			state.TransitionTo(StateMatched, &existing.ID, 0, s.now())
			if err := s.repo.SaveUserState(ctx, state); err != nil {
				return nil, err
			}
		}

		partner, err := s.partnerProfile(ctx, existing, userID)
		if err != nil {
			return nil, err
		}
		matchRequests.WithLabelValues("existing").Inc()
		return &DailyMatchResult{Match: existing, Partner: partner, IsNew: false}, nil
	}

	now := s.now()
	if !state.CanReceiveMatch(now) {
		matchRequests.WithLabelValues("not_eligible").Inc()
		return nil, &NotEligibleError{
			CurrentState:        state.CurrentState,
			StateStartTime:      state.StateStartTime,
			ReflectionPeriodEnd: state.ReflectionPeriodEnd,
			LastFeedback:        state.LastFeedback,
		}
	}

	// A thawed reflection period materializes here: the state flips back to
	// available on the user's own request, which also makes them visible to
	// other users' candidate searches.
	if state.CurrentState != StateAvailable {
		state.TransitionTo(StateAvailable, nil, 0, now)
		if err := s.repo.SaveUserState(ctx, state); err != nil {
			return nil, err
		}
	}

	me, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.eligibleCandidates(ctx, me)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		matchRequests.WithLabelValues("no_candidates").Inc()
		return nil, ErrNoCandidates
	}

	scored := s.scoreCandidates(me, candidates)

	match, partner, err := s.createBestMatch(ctx, userID, now, scored)
	if err != nil {
		return nil, err
	}

	if err := s.transitionPairToMatched(ctx, state, match, now); err != nil {
		return nil, err
	}

	matchRequests.WithLabelValues("created").Inc()
	matchesCreated.Inc()
	compatibilityScores.Observe(match.CompatibilityScore)

	return &DailyMatchResult{Match: match, Partner: partner.Public(), IsNew: true}, nil
}

// eligibleCandidates returns complete, opposite-gender profiles whose state
// machine currently allows a new match.
func (s *service) eligibleCandidates(ctx context.Context, me *profile.Profile) ([]*profile.Profile, error) {
	pool, err := s.profiles.FindCandidates(ctx, &profile.CandidateFilter{
		ExcludeUserID:   me.UserID,
		Gender:          oppositeGender(me.Gender),
		RequireComplete: true,
	})
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(pool))
	for i, c := range pool {
		ids[i] = c.UserID
	}

	availableIDs, err := s.repo.AvailableUserIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	available := make(map[int64]bool, len(availableIDs))
	for _, id := range availableIDs {
		available[id] = true
	}

	candidates := pool[:0]
	for _, c := range pool {
		if available[c.UserID] {
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}

type scoredCandidate struct {
	profile *profile.Profile
	score   float64
	factors *CompatibilityFactors
}

func (s *service) scoreCandidates(me *profile.Profile, candidates []*profile.Profile) []scoredCandidate {
	scored := make([]scoredCandidate, len(candidates))
	for i, c := range candidates {
		total, factors := s.scorer.Score(me, c)
		scored[i] = scoredCandidate{profile: c, score: total, factors: factors}
	}

	// Highest score first; ties keep the repository's ordering
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	return scored
}

// createBestMatch inserts a match with the best-scored candidate. The
// partial unique index on ongoing matches is the arbiter against racing
// requests: a unique violation means the candidate was taken in between the
// availability check and the insert, so the next candidate is tried.
func (s *service) createBestMatch(ctx context.Context, userID int64, now time.Time, scored []scoredCandidate) (*Match, *profile.Profile, error) {
	for _, candidate := range scored {
		match := &Match{
			ID:                 uuid.New(),
			User1ID:            userID,
			User2ID:            candidate.profile.UserID,
			MatchDate:          now,
			Status:             MatchActive,
			CompatibilityScore: candidate.score,
			Factors:            *candidate.factors,
		}

		err := s.repo.CreateMatch(ctx, match)
		if err == nil {
			return match, candidate.profile, nil
		}
		if !isUniqueViolation(err) {
			return nil, nil, err
		}
	}

	return nil, nil, ErrNoCandidates
}

// transitionPairToMatched moves both members into the matched state. The
// requester's state is already held under their lock; the partner's is
// loaded fresh. A failed partner transition is retried once and then
// surfaced as an InconsistentStateError.
func (s *service) transitionPairToMatched(ctx context.Context, state *UserState, match *Match, now time.Time) error {
	state.TransitionTo(StateMatched, &match.ID, 0, now)
	if err := s.repo.SaveUserState(ctx, state); err != nil {
		return err
	}

	partnerID := match.OtherUser(state.UserID)
	err := s.transitionUserTo(ctx, partnerID, StateMatched, &match.ID, 0, nil)
	if err != nil {
		if err = s.transitionUserTo(ctx, partnerID, StateMatched, &match.ID, 0, nil); err != nil {
			inconsistentPairs.Inc()
			inconsistent := &InconsistentStateError{MatchID: match.ID, UserID: partnerID, Err: err}
			log.Printf("ALERT: %v", inconsistent)
			return inconsistent
		}
	}
	return nil
}

// transitionUserTo loads a user's state fresh and applies one transition.
// feedback, when non-nil, is attached before saving.
func (s *service) transitionUserTo(ctx context.Context, userID int64, newState UserStateKind, matchID *uuid.UUID, reflection time.Duration, feedback *LastFeedback) error {
	state, err := s.getOrCreateState(ctx, userID)
	if err != nil {
		return err
	}

	state.TransitionTo(newState, matchID, reflection, s.now())
	if feedback != nil {
		state.LastFeedback = feedback
	}
	return s.repo.SaveUserState(ctx, state)
}

// PinMatch marks the match as one the user wants to keep. Pinning is a
// per-user action: only the caller's state moves to pinned.
func (s *service) PinMatch(ctx context.Context, userID int64, matchID uuid.UUID) (*Match, error) {
	release, err := s.locks.Acquire(ctx, matchLockKey(matchID))
	if err != nil {
		return nil, err
	}
	defer release()

	match, err := s.repo.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasUser(userID) {
		return nil, ErrNotMatchMember
	}
	if !match.IsOngoing() {
		return nil, ErrMatchNotOngoing
	}

	if match.Status != MatchPinned {
		if err := s.repo.UpdateMatchStatus(ctx, matchID, MatchPinned); err != nil {
			return nil, err
		}
		match.Status = MatchPinned
	}

	releaseUser, err := s.locks.Acquire(ctx, userLockKey(userID))
	if err != nil {
		return nil, err
	}
	defer releaseUser()

	if err := s.transitionUserTo(ctx, userID, StatePinned, &matchID, 0, nil); err != nil {
		return nil, err
	}

	matchesPinned.Inc()
	return match, nil
}

// UnpinMatch ends the match. The initiator gets the longer reflection
// period; the other member gets the shorter one plus the initiator's
// feedback.
func (s *service) UnpinMatch(ctx context.Context, userID int64, matchID uuid.UUID, reason, details string) (*UnpinResult, error) {
	release, err := s.locks.Acquire(ctx, matchLockKey(matchID))
	if err != nil {
		return nil, err
	}
	defer release()

	match, err := s.repo.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasUser(userID) {
		return nil, ErrNotMatchMember
	}
	if !match.IsOngoing() {
		return nil, ErrMatchNotOngoing
	}

	now := s.now()
	match.Status = MatchEnded
	match.EndDate = &now
	match.UnpinnedBy = &userID
	match.UnpinReason = &reason
	if details != "" {
		match.UnpinDetails = &details
	}

	if err := s.repo.UpdateMatchUnpin(ctx, match); err != nil {
		return nil, err
	}

	recipientID := match.OtherUser(userID)
	releaseUsers, err := s.acquireUserPair(ctx, userID, recipientID)
	if err != nil {
		return nil, err
	}
	defer releaseUsers()

	if err := s.transitionUserTo(ctx, userID, StateUnpinned, nil, s.settings.InitiatorReflection, nil); err != nil {
		return nil, err
	}

	feedback := &LastFeedback{Reason: reason, Details: details, ReceivedAt: now}
	err = s.transitionUserTo(ctx, recipientID, StateUnpinned, nil, s.settings.RecipientReflection, feedback)
	if err != nil {
		if err = s.transitionUserTo(ctx, recipientID, StateUnpinned, nil, s.settings.RecipientReflection, feedback); err != nil {
			inconsistentPairs.Inc()
			inconsistent := &InconsistentStateError{MatchID: matchID, UserID: recipientID, Err: err}
			log.Printf("ALERT: %v", inconsistent)
			return nil, inconsistent
		}
	}

	matchesUnpinned.WithLabelValues(reason).Inc()
	return &UnpinResult{
		Match:               match,
		ReflectionPeriodEnd: now.Add(s.settings.InitiatorReflection),
	}, nil
}

// RecordMessage accounts one milestone-contributing message against the
// match and both members' counters. It returns the message's sequence
// number within the conversation and whether this message crossed the
// milestone threshold. The caller persists the message itself.
func (s *service) RecordMessage(ctx context.Context, matchID uuid.UUID, senderID, receiverID int64) (int, bool, error) {
	release, err := s.locks.Acquire(ctx, matchLockKey(matchID))
	if err != nil {
		return 0, false, err
	}
	defer release()

	match, err := s.repo.GetMatch(ctx, matchID)
	if err != nil {
		return 0, false, err
	}
	if !match.HasUser(senderID) {
		return 0, false, ErrNotMatchMember
	}
	if receiverID != match.OtherUser(senderID) {
		return 0, false, ErrInvalidRecipient
	}
	if !match.IsOngoing() {
		return 0, false, ErrMatchNotOngoing
	}

	// The stored counter is authoritative under the match lock; the row
	// count repairs drift if a previous counter write was lost.
	messageNumber := match.MessageCount + 1
	if stored, err := s.repo.CountContributingMessages(ctx, matchID); err != nil {
		return 0, false, err
	} else if stored >= messageNumber {
		messageNumber = stored + 1
	}

	if err := s.repo.SetMatchMessageCount(ctx, matchID, messageNumber); err != nil {
		return 0, false, err
	}

	milestone := false
	if messageNumber >= s.settings.MilestoneThreshold && !match.MilestoneReached {
		milestone, err = s.repo.MarkMilestoneReached(ctx, matchID, s.now())
		if err != nil {
			return 0, false, err
		}
		if milestone {
			milestonesReached.Inc()
		}
	}

	if err := s.incrementMemberCounters(ctx, match, senderID, receiverID); err != nil {
		return 0, false, err
	}

	return messageNumber, milestone, nil
}

// incrementMemberCounters bumps both members' per-conversation counters.
// User locks are taken in ascending id order while the match lock is held.
func (s *service) incrementMemberCounters(ctx context.Context, match *Match, senderID, receiverID int64) error {
	releaseUsers, err := s.acquireUserPair(ctx, senderID, receiverID)
	if err != nil {
		return err
	}
	defer releaseUsers()

	for _, userID := range []int64{senderID, receiverID} {
		state, err := s.getOrCreateState(ctx, userID)
		if err != nil {
			return err
		}

		// Only counters for this conversation move; a user already
		// transitioned away keeps their snapshot.
		if state.CurrentMatch == nil || *state.CurrentMatch != match.ID {
			continue
		}

		state.IncrementMessageCount(s.settings.MilestoneThreshold)
		if err := s.repo.SaveUserState(ctx, state); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) GetUserState(ctx context.Context, userID int64) (*UserState, error) {
	return s.getOrCreateState(ctx, userID)
}

func (s *service) GetMatch(ctx context.Context, userID int64, matchID uuid.UUID) (*Match, error) {
	match, err := s.repo.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasUser(userID) {
		return nil, ErrNotMatchMember
	}
	return match, nil
}

func (s *service) GetMatchDetails(ctx context.Context, userID int64, matchID uuid.UUID) (*MatchDetails, error) {
	match, err := s.GetMatch(ctx, userID, matchID)
	if err != nil {
		return nil, err
	}

	partner, err := s.partnerProfile(ctx, match, userID)
	if err != nil {
		return nil, err
	}
	return &MatchDetails{Match: match, Partner: partner}, nil
}

func (s *service) partnerProfile(ctx context.Context, match *Match, userID int64) (*profile.PublicProfile, error) {
	p, err := s.profiles.GetProfile(ctx, match.OtherUser(userID))
	if err != nil {
		return nil, fmt.Errorf("load partner profile: %w", err)
	}
	return p.Public(), nil
}

func (s *service) getOrCreateState(ctx context.Context, userID int64) (*UserState, error) {
	state, err := s.repo.GetUserState(ctx, userID)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, ErrUserStateNotFound) {
		return nil, err
	}

	state = NewUserState(userID, s.now())
	if err := s.repo.CreateUserState(ctx, state); err != nil {
		return nil, err
	}
	// Re-read so a concurrent create resolves to one row
	return s.repo.GetUserState(ctx, userID)
}

// acquireUserPair takes both user locks in ascending id order
func (s *service) acquireUserPair(ctx context.Context, a, b int64) (func(), error) {
	first, second := a, b
	if first > second {
		first, second = second, first
	}

	releaseFirst, err := s.locks.Acquire(ctx, userLockKey(first))
	if err != nil {
		return nil, err
	}

	releaseSecond, err := s.locks.Acquire(ctx, userLockKey(second))
	if err != nil {
		releaseFirst()
		return nil, err
	}

	return func() {
		releaseSecond()
		releaseFirst()
	}, nil
}

// oppositeGender implements the binary candidate gender rule
func oppositeGender(gender string) string {
	if gender == "male" {
		return "female"
	}
	return "male"
}
