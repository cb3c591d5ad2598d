package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, 50*time.Second, cfg.CompletionTimeout)
	assert.Equal(t, 3, cfg.CompletionMaxAttempt)
	assert.Equal(t, time.Second, cfg.CompletionBaseDelay)
	assert.Len(t, cfg.EventTypes, 2)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("COMPLETION_TIMEOUT", "20s")
	t.Setenv("EVENTS_TYPES", "a.b.c, d.e.f ,")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("COMPLETION_PROVIDER", "gemini")

	cfg := LoadConfig()

	assert.Equal(t, 20*time.Second, cfg.CompletionTimeout)
	assert.Equal(t, []string{"a.b.c", "d.e.f"}, cfg.EventTypes)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, "gemini", cfg.CompletionProvider)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero timeout", func(c *Config) { c.CompletionTimeout = 0 }},
		{"no attempts", func(c *Config) { c.CompletionMaxAttempt = 0 }},
		{"no tokens", func(c *Config) { c.CompletionMaxTokens = 0 }},
		{"no event types", func(c *Config) { c.EventTypes = nil }},
		{"unknown provider", func(c *Config) { c.CompletionProvider = "other" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
