package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	SeedPath string // optional JSON hand-off from administration

	AdminUser     string
	AdminPassHash string // bcrypt
	AuthSecret    string

	CORSOrigins []string

	// Fixed-window rate limit for the read-heavy endpoints.
	RateLimitPerMin int

	// Release readiness gates.
	MinParticipants int
	MinCoverage     float64
	MinStability    float64
}

func FromEnv() Config {
	return Config{
		HTTPAddr:        envOr("HTTP_ADDR", ":8080"),
		DBDriver:        envOr("DB_DRIVER", "sqlite"),
		DBDSN:           envOr("DB_DSN", ""),
		SeedPath:        os.Getenv("SEED_PATH"),
		AdminUser:       envOr("ADMIN_USER", "admin"),
		AdminPassHash:   envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),
		AuthSecret:      envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		CORSOrigins:     csvOr("CORS_ORIGINS", "http://localhost:3000"),
		RateLimitPerMin: envInt("RATE_LIMIT_PER_MIN", 120),
		MinParticipants: envInt("RELEASE_MIN_PARTICIPANTS", 10),
		MinCoverage:     envFloat("RELEASE_MIN_COVERAGE", 0.30),
		MinStability:    envFloat("RELEASE_MIN_STABILITY", 0.90),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
