package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr        string
	Environment string

	// IssuerDID is the DID this deployment issues credentials under.
	IssuerDID string

	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	Verification VerificationConfig
	Issuance     IssuanceConfig
}

// RedisConfig holds Redis connection settings. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds the audit sink settings. Empty brokers disable Kafka.
type KafkaConfig struct {
	Brokers    string
	AuditTopic string
}

// VerificationConfig carries the aggregator weights and decision thresholds.
// These are policy constants, not code: every value can be overridden per
// deployment without a rebuild.
type VerificationConfig struct {
	LogoWeight     float64
	TemplateWeight float64
	AIWeight       float64
	MetadataWeight float64

	DuplicatePenalty      float64
	AutoApproveThreshold  float64
	ManualReviewThreshold float64

	// DuplicateSimilarity is the Jaccard threshold above which two texts
	// count as duplicates. Provisional tuning; see the duplicate signal.
	DuplicateSimilarity float64
	// RecentDocuments bounds how many prior texts the duplicate check scans.
	RecentDocuments int
}

// IssuanceConfig carries defaults applied to issuance policies that do not
// override them.
type IssuanceConfig struct {
	DefaultValidity      time.Duration
	DefaultCooldown      time.Duration
	DefaultMaxPerSubject int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:        envString("VERITAS_ADDR", ":8080"),
		Environment: envString("VERITAS_ENV", "development"),
		IssuerDID:   envString("VERITAS_ISSUER_DID", "did:web:veritas.example.edu"),
		DatabaseURL: os.Getenv("VERITAS_DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("VERITAS_REDIS_URL"),
			PoolSize:     envInt("VERITAS_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("VERITAS_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("VERITAS_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("VERITAS_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("VERITAS_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    os.Getenv("VERITAS_KAFKA_BROKERS"),
			AuditTopic: envString("VERITAS_KAFKA_AUDIT_TOPIC", "veritas.audit"),
		},
		Verification: VerificationConfig{
			LogoWeight:            envFloat("VERITAS_WEIGHT_LOGO", 0.20),
			TemplateWeight:        envFloat("VERITAS_WEIGHT_TEMPLATE", 0.25),
			AIWeight:              envFloat("VERITAS_WEIGHT_AI", 0.35),
			MetadataWeight:        envFloat("VERITAS_WEIGHT_METADATA", 0.15),
			DuplicatePenalty:      envFloat("VERITAS_DUPLICATE_PENALTY", 0.40),
			AutoApproveThreshold:  envFloat("VERITAS_AUTO_APPROVE_THRESHOLD", 0.90),
			ManualReviewThreshold: envFloat("VERITAS_MANUAL_REVIEW_THRESHOLD", 0.70),
			DuplicateSimilarity:   envFloat("VERITAS_DUPLICATE_SIMILARITY", 0.95),
			RecentDocuments:       envInt("VERITAS_DUPLICATE_RECENT_DOCS", 50),
		},
		Issuance: IssuanceConfig{
			DefaultValidity:      envDuration("VERITAS_ISSUANCE_VALIDITY", 5*365*24*time.Hour),
			DefaultCooldown:      envDuration("VERITAS_ISSUANCE_COOLDOWN", 24*time.Hour),
			DefaultMaxPerSubject: envInt("VERITAS_ISSUANCE_MAX_PER_SUBJECT", 10),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
