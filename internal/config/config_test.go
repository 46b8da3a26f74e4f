package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"DATABASE_PATH", "SERVER_PORT", "SESSION_LIFETIME", "MATCH_GRACE_PERIOD",
		"WAITING_TTL", "ACTIVE_IDLE_TTL", "MATCH_SWEEP_INTERVAL", "CLEANUP_INTERVAL",
		"CORS_ALLOWED_ORIGINS", "ADMIN_EMAILS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "duels.db", cfg.DatabasePath)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 24*time.Hour, cfg.SessionLifetime)
	assert.Equal(t, 30*time.Second, cfg.MatchGracePeriod)
	assert.Equal(t, 5*time.Minute, cfg.WaitingTTL)
	assert.Equal(t, 30*time.Minute, cfg.ActiveIdleTTL)
	assert.Equal(t, 10*time.Second, cfg.MatchSweepInterval)
	assert.Equal(t, time.Minute, cfg.CleanupInterval)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.AdminEmails)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/test.db")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MATCH_GRACE_PERIOD", "45s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("ADMIN_EMAILS", "ops@code-duels.app")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.db", cfg.DatabasePath)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, 45*time.Second, cfg.MatchGracePeriod)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, []string{"ops@code-duels.app"}, cfg.AdminEmails)
}

func TestLoadRejectsBadValues(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "Non numeric port", key: "SERVER_PORT", value: "abc"},
		{name: "Port out of range", key: "SERVER_PORT", value: "70000"},
		{name: "Unparsable duration", key: "WAITING_TTL", value: "five minutes"},
		{name: "Negative duration", key: "ACTIVE_IDLE_TTL", value: "-1m"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
