// internal/matchmaking/dto.go
package matchmaking

import "time"

type UnpinMatchDTO struct {
	Reason  string `json:"reason" validate:"required,oneof=not_compatible no_chemistry communication_issues different_goals other"`
	Details string `json:"details,omitempty" validate:"omitempty,max=500"`
}

// NotEligibleResponse is the payload returned with a denied match request
type NotEligibleResponse struct {
	CurrentState        UserStateKind `json:"current_state"`
	StateStartTime      time.Time     `json:"state_start_time"`
	ReflectionPeriodEnd *time.Time    `json:"reflection_period_end,omitempty"`
	LastFeedback        *LastFeedback `json:"last_feedback,omitempty"`
}
