package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server reads from the environment so
// main stays lean.
type Config struct {
	Addr      string
	LogFormat string

	// DatabaseURL switches the policy store to PostgreSQL when set.
	DatabaseURL string
	// Redis backs the pending-extraction registry when configured.
	Redis RedisConfig

	KafkaBrokers []string
	KafkaTopic   string

	S3 S3Config

	Extractor ExtractorConfig

	JWTSigningKey string

	ConfidenceThreshold float64
	RequiredFields      []string

	MaxFileBytes    int64
	PresignedExpiry time.Duration

	PollInterval time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

type ExtractorConfig struct {
	BaseURL          string
	Token            string
	CallbackURL      string
	Seed             string
	MaxSubmitRetries int
}

// FromEnv builds the configuration from environment variables, applying
// development defaults where unset.
func FromEnv() Config {
	return Config{
		Addr:        envOr("POLIZALAB_ADDR", ":8080"),
		LogFormat:   envOr("LOG_FORMAT", "text"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envOr("KAFKA_TOPIC", "policy.lifecycle"),
		S3: S3Config{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			Region:    envOr("S3_REGION", "us-east-1"),
			Bucket:    envOr("S3_BUCKET", "polizalab-documents-dev"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		},
		Extractor: ExtractorConfig{
			BaseURL:          os.Getenv("EXTRACTOR_URL"),
			Token:            os.Getenv("EXTRACTOR_TOKEN"),
			CallbackURL:      os.Getenv("EXTRACTOR_CALLBACK_URL"),
			Seed:             os.Getenv("EXTRACTOR_CALLBACK_SEED"),
			MaxSubmitRetries: envInt("EXTRACTOR_SUBMIT_MAX_RETRIES", 3),
		},
		// Default should be overridden in production.
		JWTSigningKey:       envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		ConfidenceThreshold: envFloat("CONFIDENCE_THRESHOLD", 0.75),
		RequiredFields:      splitList(envOr("REQUIRED_FIELDS", "policyNumber,insuredName,startDate,endDate")),
		MaxFileBytes:        int64(envInt("MAX_FILE_BYTES", 20*1024*1024)),
		PresignedExpiry:     envDuration("PRESIGNED_EXPIRY", 5*time.Minute),
		PollInterval:        envDuration("POLL_INTERVAL", 5*time.Second),
	}
}

func envOr(key, fallback string) string {
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

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
