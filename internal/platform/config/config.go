package config

import (
	"os"
	"time"
)

// Config captures everything main needs to wire the server. The three
// database DSNs are deliberately separate: the roll, ballot, and audit stores
// must remain independently addressable storage units.
type Config struct {
	Addr string

	// RollDSN backs member identity, voting status, and election metadata.
	RollDSN string
	// BallotDSN backs the anonymous ballot box. No member-identifying column
	// may ever live behind this handle.
	BallotDSN string
	// AuditDSN backs the append-only audit log.
	AuditDSN string

	// RedisURL backs the token revocation list. Optional; an in-process
	// fallback is used when empty.
	RedisURL string

	JWTSigningKey string
	TokenTTL      time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:          getenv("UNIONVOTE_ADDR", ":8080"),
		RollDSN:       getenv("ROLL_DB_DSN", "postgres://localhost/unionvote_roll?sslmode=disable"),
		BallotDSN:     getenv("BALLOT_DB_DSN", "postgres://localhost/unionvote_ballot?sslmode=disable"),
		AuditDSN:      getenv("AUDIT_DB_DSN", "postgres://localhost/unionvote_audit?sslmode=disable"),
		RedisURL:      os.Getenv("REDIS_URL"),
		JWTSigningKey: getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		TokenTTL:      8 * time.Hour,
	}
	if ttl := os.Getenv("TOKEN_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.TokenTTL = d
		}
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
