package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 100, cfg.MilestoneThreshold)
	assert.Equal(t, 24*time.Hour, cfg.InitiatorReflection)
	assert.Equal(t, 2*time.Hour, cfg.RecipientReflection)
	assert.Equal(t, 48*time.Hour, cfg.ConversationWindow)

	sum := cfg.WeightPersonality + cfg.WeightEmotional + cfg.WeightInterest + cfg.WeightRelationshipGoals
	assert.InDelta(t, 1.0, sum, 0.001)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MILESTONE_THRESHOLD", "50")
	t.Setenv("INITIATOR_REFLECTION", "12h")
	t.Setenv("RECIPIENT_REFLECTION", "1h")

	cfg := Load()

	assert.Equal(t, 50, cfg.MilestoneThreshold)
	assert.Equal(t, 12*time.Hour, cfg.InitiatorReflection)
	assert.Equal(t, time.Hour, cfg.RecipientReflection)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "weights must sum to one",
			mutate:  func(c *Config) { c.WeightPersonality = 0.5 },
			wantErr: "weights must sum",
		},
		{
			name:    "zero milestone threshold",
			mutate:  func(c *Config) { c.MilestoneThreshold = 0 },
			wantErr: "milestone threshold",
		},
		{
			name: "initiator reflection shorter than recipient",
			mutate: func(c *Config) {
				c.InitiatorReflection = time.Hour
				c.RecipientReflection = 2 * time.Hour
			},
			wantErr: "initiator reflection",
		},
		{
			name:    "negative conversation window",
			mutate:  func(c *Config) { c.ConversationWindow = -time.Hour },
			wantErr: "conversation window",
		},
		{
			name:    "default secret in production",
			mutate:  func(c *Config) { c.Environment = "production" },
			wantErr: "JWT secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
