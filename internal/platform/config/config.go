package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs from the environment so main
// stays lean. Development defaults are deliberate; production deployments
// override them.
type Config struct {
	Addr        string
	Environment string

	DatabaseURL string
	RedisURL    string

	SessionCookieName string
	SessionTTL        time.Duration
	IdentityCacheTTL  time.Duration
	SessionSweep      time.Duration

	UploadDir      string
	UploadMaxBytes int64

	MailAPIKey  string
	MailBaseURL string
	MailFrom    string
	AppBaseURL  string

	// PreauthorizedIdentities maps an email onto a fixed role. These
	// identities bypass password and verification checks at login; the
	// list is parsed once at startup so the trust boundary stays
	// auditable in one place.
	PreauthorizedIdentities map[string]string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:              envOr("VITALREG_ADDR", ":8080"),
		Environment:       envOr("VITALREG_ENV", "development"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		SessionCookieName: envOr("SESSION_COOKIE_NAME", "sid"),
		SessionTTL:        envDurationOr("SESSION_TTL", 24*time.Hour),
		IdentityCacheTTL:  envDurationOr("IDENTITY_CACHE_TTL", 5*time.Minute),
		SessionSweep:      envDurationOr("SESSION_SWEEP_INTERVAL", 10*time.Minute),
		UploadDir:         envOr("UPLOAD_DIR", "uploads"),
		UploadMaxBytes:    envInt64Or("UPLOAD_MAX_BYTES", 5*1024*1024),
		MailAPIKey:        os.Getenv("MAIL_API_KEY"),
		MailBaseURL:       envOr("MAIL_BASE_URL", "https://api.resend.com"),
		MailFrom:          envOr("MAIL_FROM", "noreply@registry.gov.gh"),
		AppBaseURL:        envOr("APP_BASE_URL", "http://localhost:8080"),
	}
	cfg.PreauthorizedIdentities = parseIdentityList(os.Getenv("PREAUTHORIZED_IDENTITIES"))
	return cfg
}

// parseIdentityList parses "email:role,email:role" pairs. Malformed entries
// are skipped rather than rejected so a typo never locks operators out of a
// restart.
func parseIdentityList(raw string) map[string]string {
	identities := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		email, role, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		email = strings.ToLower(strings.TrimSpace(email))
		role = strings.TrimSpace(role)
		if email == "" || role == "" {
			continue
		}
		identities[email] = role
	}
	return identities
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envInt64Or(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
