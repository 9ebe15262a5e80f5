package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr       string
	SourceURL  string
	JWTSecret  string
	SessionTTL time.Duration
	CORSOrigin string
	// Upstream fetch
	FetchTimeout time.Duration
	// Redis snapshot cache - optional, disabled when empty
	RedisURL string
	CacheTTL time.Duration
	// Meilisearch - optional, disabled when empty
	MeiliURL       string
	MeiliMasterKey string
	// bcrypt hash guarding the manual refresh endpoint
	AdminTokenHash string
}

func Load() Config {
	return Config{
		Addr:       getenv("API_ADDR", ":8686"),
		SourceURL:  getenv("ORBIT_SOURCE_URL", ""),
		JWTSecret:  getenv("ORBIT_JWT_SECRET", "orbit-dev-secret"),
		SessionTTL: time.Duration(getenvInt("ORBIT_SESSION_TTL_SECONDS", 3600)) * time.Second,
		CORSOrigin: getenv("ORBIT_CORS_ORIGIN", "*"),

		FetchTimeout: time.Duration(getenvInt("ORBIT_FETCH_TIMEOUT_SECONDS", 30)) * time.Second,

		// Snapshot cache - empty by default, caching disabled if not configured
		RedisURL: getenv("REDIS_URL", ""),
		CacheTTL: time.Duration(getenvInt("ORBIT_CACHE_TTL_SECONDS", 900)) * time.Second,

		// Search - empty by default, search falls back to in-memory scan
		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),

		AdminTokenHash: getenv("ORBIT_ADMIN_TOKEN_HASH", ""),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
