package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig carries the watchdeck-specific settings on top of the shared
// platform config. The OMDb key is optional at startup: the proxy endpoint
// reports a server misconfiguration per request instead of refusing to boot.
type AppConfig struct {
	JWTSecret       []byte
	OmdbAPIKey      string
	OmdbBaseURL     string
	AllowedOrigins  []string
	NATSURL         string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	TrendingTTLSec  int
}

// DefaultAllowedOrigins is used when ALLOWED_ORIGINS is unset. The first
// entry doubles as the fallback origin for unrecognized callers.
var DefaultAllowedOrigins = []string{
	"http://localhost:5173",
	"http://localhost:8080",
}

func Load() (AppConfig, error) {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return AppConfig{}, errors.New("JWT_SECRET is required")
	}

	cfg := AppConfig{
		JWTSecret:       []byte(secret),
		OmdbAPIKey:      strings.TrimSpace(os.Getenv("OMDB_API_KEY")),
		OmdbBaseURL:     strings.TrimSpace(os.Getenv("OMDB_BASE_URL")),
		AllowedOrigins:  splitOrigins(os.Getenv("ALLOWED_ORIGINS")),
		NATSURL:         strings.TrimSpace(os.Getenv("NATS_URL")),
		AccessTokenTTL:  envDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: envDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		TrendingTTLSec:  envInt("TRENDING_CACHE_TTL_SEC", 300),
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = DefaultAllowedOrigins
	}
	return cfg, nil
}

func splitOrigins(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
