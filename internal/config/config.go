package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration sourced from HRCORE_ env vars.
type Config struct {
	Addr         string
	PostgresDSN  string
	AuthSecret   string
	TokenTTL     time.Duration
	DocumentRoot string
	RateBurst    int
	RatePerSec   float64
	HashWorkers  int
	CORSOrigins  []string
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Addr:         fallback(os.Getenv("HRCORE_ADDR"), ":8080"),
		PostgresDSN:  strings.TrimSpace(os.Getenv("HRCORE_PG_DSN")),
		AuthSecret:   strings.TrimSpace(os.Getenv("HRCORE_AUTH_SECRET")),
		DocumentRoot: fallback(os.Getenv("HRCORE_DOCUMENT_ROOT"), "./data/documents"),
		RateBurst:    intEnv("HRCORE_RATE_BURST", 20),
		RatePerSec:   floatEnv("HRCORE_RATE_PER_SEC", 10),
		HashWorkers:  intEnv("HRCORE_HASH_WORKERS", 4),
		CORSOrigins:  parseCSV(fallback(os.Getenv("HRCORE_CORS_ORIGINS"), "*")),
	}

	minutes := intEnv("HRCORE_TOKEN_TTL_MINUTES", 480)
	if minutes <= 0 {
		minutes = 480
	}
	cfg.TokenTTL = time.Duration(minutes) * time.Minute

	if cfg.PostgresDSN == "" {
		return Config{}, errors.New("HRCORE_PG_DSN is required")
	}
	if cfg.AuthSecret == "" {
		return Config{}, errors.New("HRCORE_AUTH_SECRET is required")
	}

	return cfg, nil
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func intEnv(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return n
	}
	return def
}

func floatEnv(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f > 0 {
		return f
	}
	return def
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
