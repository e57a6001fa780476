// internal/matchmaking/metrics.go

package matchmaking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	matchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchmaking_daily_match_requests_total",
			Help: "Daily match requests by outcome",
		},
		[]string{"outcome"},
	)

	matchesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchmaking_matches_created_total",
			Help: "Total number of matches created",
		},
	)

	matchesPinned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchmaking_matches_pinned_total",
			Help: "Total number of pin actions",
		},
	)

	matchesUnpinned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchmaking_matches_unpinned_total",
			Help: "Matches ended by the stated reason",
		},
		[]string{"reason"},
	)

	milestonesReached = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchmaking_milestones_reached_total",
			Help: "Conversations that crossed the message milestone",
		},
	)

	compatibilityScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matchmaking_compatibility_scores",
			Help:    "Distribution of created match compatibility scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	inconsistentPairs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchmaking_inconsistent_pairs_total",
			Help: "Two-party state transitions left partially applied",
		},
	)
)
