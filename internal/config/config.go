package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type OAuthProvider struct {
	Key         string
	Secret      string
	CallbackURL string
}

type Config struct {
	DatabasePath string
	ServerPort   int

	Judge0URL    string
	Judge0APIKey string

	SessionLifetime time.Duration

	MatchGracePeriod   time.Duration
	WaitingTTL         time.Duration
	ActiveIdleTTL      time.Duration
	MatchSweepInterval time.Duration
	CleanupInterval    time.Duration

	Discord OAuthProvider
	Google  OAuthProvider

	CORSAllowedOrigins []string

	// Users allowed to run maintenance endpoints, by login email
	AdminEmails []string
}

// Load reads configuration from the environment. A .env file is loaded
// first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	cfg := &Config{
		DatabasePath: stringEnv("DATABASE_PATH", "duels.db"),
		ServerPort:   port,
		Judge0URL:    os.Getenv("JUDGE0_API_URL"),
		Judge0APIKey: os.Getenv("JUDGE0_API_KEY"),
		Discord: OAuthProvider{
			Key:         os.Getenv("DISCORD_KEY"),
			Secret:      os.Getenv("DISCORD_SECRET"),
			CallbackURL: os.Getenv("DISCORD_CALLBACK_URL"),
		},
		Google: OAuthProvider{
			Key:         os.Getenv("GOOGLE_KEY"),
			Secret:      os.Getenv("GOOGLE_SECRET"),
			CallbackURL: os.Getenv("GOOGLE_CALLBACK_URL"),
		},
		CORSAllowedOrigins: listEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:8080"}),
		AdminEmails:        listEnv("ADMIN_EMAILS", nil),
	}

	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"SESSION_LIFETIME", 24 * time.Hour, &cfg.SessionLifetime},
		{"MATCH_GRACE_PERIOD", 30 * time.Second, &cfg.MatchGracePeriod},
		{"WAITING_TTL", 5 * time.Minute, &cfg.WaitingTTL},
		{"ACTIVE_IDLE_TTL", 30 * time.Minute, &cfg.ActiveIdleTTL},
		{"MATCH_SWEEP_INTERVAL", 10 * time.Second, &cfg.MatchSweepInterval},
		{"CLEANUP_INTERVAL", time.Minute, &cfg.CleanupInterval},
	}
	for _, d := range durations {
		v, err := durationEnv(d.key, d.fallback)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}

func listEnv(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
