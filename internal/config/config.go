package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr string
	Env  string

	RoundSeconds    int
	CooldownSeconds int
	TopicChoices    int
	SearchLimit     int

	// ReapAfter is how long an in-game room may sit with every player
	// disconnected before it is torn down.
	ReapAfter time.Duration

	CollabTimeout time.Duration
}

// Load reads configuration from the environment, after pulling in a .env file
// if one exists. Missing variables fall back to defaults; a missing .env is
// not an error.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:            getString("ADDR", ":8080"),
		Env:             getString("APP_ENV", "development"),
		RoundSeconds:    getInt("ROUND_SECONDS", 120),
		CooldownSeconds: getInt("RESULT_COOLDOWN_SECONDS", 30),
		TopicChoices:    getInt("TOPIC_CHOICES", 3),
		SearchLimit:     getInt("SEARCH_RESULT_LIMIT", 5),
		ReapAfter:       getDuration("ABANDONED_REAP_AFTER", 5*time.Minute),
		CollabTimeout:   getDuration("COLLABORATOR_TIMEOUT", 8*time.Second),
	}
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
