package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	platformstrings "pollbooth/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr           string
	Environment    string
	LogLevel       string
	DatabaseURL    string
	Redis          RedisConfig
	Kafka          KafkaConfig
	SessionTTL     time.Duration
	SeedDemoData   bool
	MetricsEnabled bool
}

// RedisConfig configures the optional session store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures audit streaming. Streaming is off when Brokers is empty.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

const (
	defaultAddr       = ":8080"
	defaultSessionTTL = 12 * time.Hour
	defaultAuditTopic = "pollbooth.audit"
)

// FromEnv builds a Server config from environment variables so main stays
// lean. A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func FromEnv() (Server, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Server{}, fmt.Errorf("load .env: %w", err)
	}
	return fromLookup(os.Getenv)
}

func fromLookup(getenv func(string) string) (Server, error) {
	cfg := Server{
		Addr:           stringOr(getenv("POLLBOOTH_ADDR"), defaultAddr),
		Environment:    stringOr(getenv("ENVIRONMENT"), "local"),
		LogLevel:       stringOr(getenv("LOG_LEVEL"), "info"),
		DatabaseURL:    getenv("DATABASE_URL"),
		SessionTTL:     defaultSessionTTL,
		SeedDemoData:   true,
		MetricsEnabled: true,
		Redis: RedisConfig{
			URL:          getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:    platformstrings.SplitUnique(getenv("KAFKA_BROKERS"), ","),
			AuditTopic: stringOr(getenv("AUDIT_TOPIC"), defaultAuditTopic),
		},
	}

	if v := getenv("SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return Server{}, fmt.Errorf("invalid SESSION_TTL %q", v)
		}
		cfg.SessionTTL = ttl
	}

	var err error
	if cfg.SeedDemoData, err = boolOr(getenv("SEED_DEMO_DATA"), true); err != nil {
		return Server{}, fmt.Errorf("invalid SEED_DEMO_DATA: %w", err)
	}
	if cfg.MetricsEnabled, err = boolOr(getenv("METRICS_ENABLED"), true); err != nil {
		return Server{}, fmt.Errorf("invalid METRICS_ENABLED: %w", err)
	}
	return cfg, nil
}

// IsLocal reports whether the process runs on a developer machine.
func (s Server) IsLocal() bool {
	return s.Environment == "local" || s.Environment == "dev"
}

func stringOr(v, fallback string) string {
	if v = strings.TrimSpace(v); v == "" {
		return fallback
	}
	return v
}

func boolOr(v string, fallback bool) (bool, error) {
	if strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	return strconv.ParseBool(strings.TrimSpace(v))
}

