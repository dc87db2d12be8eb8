package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             int
	VaultKey         string
	DBPath           string
	LogDir           string
	LogRetentionDays int
	SessionTTLHours  int
}

// Load reads .env (if present) and the environment. A missing or short
// PORTAL_KEY is an error: starting without a usable vault key would
// strand every stored credential, so the process refuses to come up.
func Load() (*Config, error) {
	_ = godotenv.Load()

	key := os.Getenv("PORTAL_KEY")
	if key == "" {
		return nil, errors.New("PORTAL_KEY is not set; generate a 32+ character key and set it in the environment or .env")
	}
	if len(key) < 32 {
		return nil, fmt.Errorf("PORTAL_KEY is too short (%d characters, need at least 32)", len(key))
	}

	return &Config{
		Port:             envInt("PORT", 8080),
		VaultKey:         key,
		DBPath:           envStr("PORTAL_DB", "portal.db"),
		LogDir:           envStr("LOG_DIR", "logs"),
		LogRetentionDays: envInt("LOG_RETENTION_DAYS", 90),
		SessionTTLHours:  envInt("SESSION_TTL_HOURS", 12),
	}, nil
}

func envStr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
