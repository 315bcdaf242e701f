package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"opspanel.org/internal/token"
)

const (
	envAddr     = "PANEL_ADDR"
	envPGDSN    = "PANEL_PG_DSN"
	envTokenTTL = "PANEL_TOKEN_TTL"

	defaultAddr = ":8080"
)

// Config holds process-wide settings loaded once at startup.
type Config struct {
	Addr       string
	PostgresDS string
	TokenTTL   time.Duration
}

// Load reads configuration from the environment, with an optional .env
// file for development. The signing secret is validated here: its
// absence is a fatal configuration error, not a per-request one.
func Load() (Config, error) {
	// Missing .env is fine in production; variables come from the host.
	_ = godotenv.Load()

	cfg := Config{
		Addr:       defaultAddr,
		PostgresDS: strings.TrimSpace(os.Getenv(envPGDSN)),
		TokenTTL:   token.DefaultTTL,
	}
	if addr := strings.TrimSpace(os.Getenv(envAddr)); addr != "" {
		cfg.Addr = addr
	}
	if raw := strings.TrimSpace(os.Getenv(envTokenTTL)); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			return Config{}, fmt.Errorf("invalid %s: %q", envTokenTTL, raw)
		}
		cfg.TokenTTL = ttl
	}

	if err := token.CheckSecret(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
