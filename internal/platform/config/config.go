// Package config centralizes environment-driven settings so main stays lean.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures everything the server needs from its environment.
// Defaults run a single-process setup: in-memory ledger, in-memory
// treasury, no Kafka.
type Config struct {
	Addr          string `env:"FUNDLEDGER_ADDR" envDefault:":8080"`
	JWTSigningKey string `env:"FUNDLEDGER_JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`

	// StoreBackend selects campaign persistence: "memory" or "postgres".
	StoreBackend string `env:"FUNDLEDGER_STORE" envDefault:"memory"`
	PostgresURL  string `env:"FUNDLEDGER_POSTGRES_URL"`

	// RedisURL switches the treasury rail to Redis when set.
	RedisURL string `env:"FUNDLEDGER_REDIS_URL"`
	RedisConfig

	// KafkaBrokers enables the Kafka event sink when non-empty.
	KafkaBrokers []string `env:"FUNDLEDGER_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"FUNDLEDGER_KAFKA_TOPIC" envDefault:"fundledger.events"`

	// Authorization policy. Creation defaults open, settlement owner-only.
	CreatePolicy    string   `env:"FUNDLEDGER_CREATE_POLICY" envDefault:"open"`
	SettlePolicy    string   `env:"FUNDLEDGER_SETTLE_POLICY" envDefault:"owner_only"`
	Owner           string   `env:"FUNDLEDGER_OWNER" envDefault:"ledger-authority"`
	PolicyAllowlist []string `env:"FUNDLEDGER_POLICY_ALLOWLIST" envSeparator:","`

	EventLogCapacity int `env:"FUNDLEDGER_EVENT_LOG_CAPACITY" envDefault:"1024"`

	ShutdownTimeout time.Duration `env:"FUNDLEDGER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// RedisConfig tunes the go-redis client.
type RedisConfig struct {
	RedisPoolSize     int           `env:"FUNDLEDGER_REDIS_POOL_SIZE" envDefault:"10"`
	RedisMinIdleConns int           `env:"FUNDLEDGER_REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	RedisDialTimeout  time.Duration `env:"FUNDLEDGER_REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	RedisReadTimeout  time.Duration `env:"FUNDLEDGER_REDIS_READ_TIMEOUT" envDefault:"3s"`
	RedisWriteTimeout time.Duration `env:"FUNDLEDGER_REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// FromEnv parses and validates configuration from environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	switch cfg.StoreBackend {
	case "memory", "postgres":
	default:
		return Config{}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if cfg.StoreBackend == "postgres" && cfg.PostgresURL == "" {
		return Config{}, fmt.Errorf("FUNDLEDGER_POSTGRES_URL is required with the postgres backend")
	}
	return cfg, nil
}
