// Package config builds the process configuration from environment variables
// so main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
	// WebhookSecretHash is the bcrypt hash guarding the callback endpoints.
	// Empty disables the check (local development only).
	WebhookSecretHash string
}

// Postgres captures the projection and outbox store configuration. An empty
// URL selects the in-memory stores.
type Postgres struct {
	URL string
}

// Redis captures the resend queue configuration. An empty URL selects the
// in-memory queue.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures the status emitter configuration. No brokers selects the
// in-memory emitter.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Engine captures the process engine timing knobs.
type Engine struct {
	ResendDelay   time.Duration
	RetryInterval time.Duration
	AnswerTimeout time.Duration
	SweepInterval time.Duration
}

// Adapter captures one region connector's transport configuration.
type Adapter struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	SenderGLN    string
}

// Config is the full process configuration.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	Engine   Engine
	Denmark  Adapter
	Norway   Adapter
}

// FromEnv builds the configuration from GRIDGATE_* environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:              envOr("GRIDGATE_ADDR", ":8080"),
			WebhookSecretHash: os.Getenv("GRIDGATE_WEBHOOK_SECRET_HASH"),
		},
		Postgres: Postgres{
			URL: os.Getenv("GRIDGATE_POSTGRES_URL"),
		},
		Redis: Redis{
			URL:          os.Getenv("GRIDGATE_REDIS_URL"),
			PoolSize:     envInt("GRIDGATE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("GRIDGATE_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("GRIDGATE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("GRIDGATE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("GRIDGATE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: envList("GRIDGATE_KAFKA_BROKERS"),
			Topic:   envOr("GRIDGATE_KAFKA_TOPIC", "permission-status"),
		},
		Engine: Engine{
			ResendDelay:   envDuration("GRIDGATE_RESEND_DELAY", 30*time.Second),
			RetryInterval: envDuration("GRIDGATE_SEND_RETRY_INTERVAL", time.Hour),
			AnswerTimeout: envDuration("GRIDGATE_ANSWER_TIMEOUT", 14*24*time.Hour),
			SweepInterval: envDuration("GRIDGATE_SWEEP_INTERVAL", 5*time.Minute),
		},
		Denmark: Adapter{
			Endpoint:  os.Getenv("GRIDGATE_DK_ENDPOINT"),
			SenderGLN: os.Getenv("GRIDGATE_DK_SENDER_GLN"),
		},
		Norway: Adapter{
			Endpoint:     os.Getenv("GRIDGATE_NO_ENDPOINT"),
			ClientID:     os.Getenv("GRIDGATE_NO_CLIENT_ID"),
			ClientSecret: os.Getenv("GRIDGATE_NO_CLIENT_SECRET"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
