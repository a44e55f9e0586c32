package config

import (
	"os"
	"time"
)

// Server captures process-level configuration for the compliance daemon.
type Server struct {
	Addr        string
	Environment string

	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig

	// ReverifyInterval controls the periodic re-verification sweep over
	// proofs whose verification has not yet passed.
	ReverifyInterval time.Duration

	// SigningKeySeed is a hex-encoded 32-byte Ed25519 seed for the proof
	// signer. Empty means a fresh ephemeral key per process (dev only);
	// production deployments supply key material via their secret manager.
	SigningKeySeed string

	// VerifierIdentity names this deployment in verification records and
	// attestations.
	VerifierIdentity string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings for the proof vault.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds settings for the audit mirror producer.
type KafkaConfig struct {
	Brokers         string
	Topic           string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:             envOr("CERTUS_ADDR", ":8080"),
		Environment:      envOr("CERTUS_ENV", "development"),
		ReverifyInterval: durationOr("CERTUS_REVERIFY_INTERVAL", 15*time.Minute),
		SigningKeySeed:   os.Getenv("CERTUS_SIGNING_KEY_SEED"),
		VerifierIdentity: envOr("CERTUS_VERIFIER_IDENTITY", "certus-verifier"),
		Database: DatabaseConfig{
			URL:             os.Getenv("CERTUS_DATABASE_URL"),
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			URL:          os.Getenv("CERTUS_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:         os.Getenv("CERTUS_KAFKA_BROKERS"),
			Topic:           envOr("CERTUS_KAFKA_AUDIT_TOPIC", "certus.audit.events"),
			Acks:            envOr("CERTUS_KAFKA_ACKS", "all"),
			Retries:         5,
			DeliveryTimeout: 10 * time.Second,
		},
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
