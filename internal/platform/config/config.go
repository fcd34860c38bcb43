package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs from the environment.
type Config struct {
	Addr     string
	LogLevel string

	// DatabaseURL empty means in-memory stores (development only).
	DatabaseURL string

	Redis RedisConfig

	// KafkaBrokers empty means the audit trail stays in memory.
	KafkaBrokers []string
	KafkaTopic   string

	Breaker BreakerConfig

	// RegistrarTimeout bounds each outbound registrar HTTP attempt.
	RegistrarTimeout time.Duration
	HealthCacheTTL   time.Duration
	AuditBuffer      int
}

// RedisConfig configures the optional Redis connection.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// BreakerConfig tunes the shared registrar circuit breakers.
type BreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
	ResetTimeout     time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:        envString("COLDFORGE_ADDR", ":8080"),
		LogLevel:    envString("COLDFORGE_LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		KafkaBrokers: envList("KAFKA_BROKERS"),
		KafkaTopic:   envString("KAFKA_AUDIT_TOPIC", "coldforge.provisioning"),
		Breaker: BreakerConfig{
			FailureThreshold: envInt("BREAKER_FAILURE_THRESHOLD", 5),
			SuccessThreshold: envInt("BREAKER_SUCCESS_THRESHOLD", 2),
			Timeout:          envDuration("BREAKER_TIMEOUT", 30*time.Second),
			ResetTimeout:     envDuration("BREAKER_RESET_TIMEOUT", 60*time.Second),
		},
		RegistrarTimeout: envDuration("REGISTRAR_HTTP_TIMEOUT", 30*time.Second),
		HealthCacheTTL:   envDuration("HEALTH_CACHE_TTL", 15*time.Minute),
		AuditBuffer:      envInt("AUDIT_BUFFER", 256),
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

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
