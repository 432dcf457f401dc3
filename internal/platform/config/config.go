package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration for the compliance engine.
type Config struct {
	Addr          string
	JWTSigningKey string

	// PostgresDSN selects persistent storage; when empty the engine runs on
	// in-memory stores (dev and test only).
	PostgresDSN string

	Redis RedisConfig

	// KafkaBrokers enables the audit Kafka sink when non-empty.
	KafkaBrokers []string
	AuditTopic   string

	// TTRFilingWindowDays sets the regulatory deadline window added to a
	// report's transaction date.
	TTRFilingWindowDays int

	// ExportDir is where STR and TTR artifacts are written.
	ExportDir string
}

// RedisConfig captures connection settings for the rescreen run-lock.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("COOPAML_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	windowDays := 3
	if v := os.Getenv("TTR_FILING_WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			windowDays = n
		}
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = strings.Split(v, ",")
	}
	auditTopic := os.Getenv("AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "coopaml.audit"
	}

	exportDir := os.Getenv("EXPORT_DIR")
	if exportDir == "" {
		exportDir = os.TempDir()
	}

	return Config{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		KafkaBrokers:        brokers,
		AuditTopic:          auditTopic,
		TTRFilingWindowDays: windowDays,
		ExportDir:           exportDir,
	}
}
