// Package config loads service configuration from the environment so main
// stays lean. All knobs carry defaults suitable for local development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration.
type Config struct {
	Addr        string `env:"ADDRESS_CRI_ADDR" envDefault:":8080"`
	MetricsAddr string `env:"ADDRESS_CRI_METRICS_ADDR" envDefault:":9090"`

	// SessionTTL bounds how long a verification session stays usable.
	SessionTTL    time.Duration `env:"ADDRESS_CRI_SESSION_TTL" envDefault:"30m"`
	CredentialTTL time.Duration `env:"ADDRESS_CRI_CREDENTIAL_TTL" envDefault:"8760h"`

	// Issuer is the value placed in the issuer field of every credential.
	Issuer        string `env:"ADDRESS_CRI_ISSUER" envDefault:"https://address-cri.local"`
	SigningKey    string `env:"ADDRESS_CRI_SIGNING_KEY" envDefault:"dev-signing-key-change-in-production"`
	SigningKeyID  string `env:"ADDRESS_CRI_SIGNING_KEY_ID" envDefault:"dev-key-1"`
	ClientAPIKeys []string `env:"ADDRESS_CRI_CLIENT_API_KEYS" envSeparator:","`

	Registry RegistryConfig `envPrefix:"ADDRESS_CRI_REGISTRY_"`
	Redis    RedisConfig    `envPrefix:"ADDRESS_CRI_REDIS_"`
	Postgres PostgresConfig `envPrefix:"ADDRESS_CRI_POSTGRES_"`
	Kafka    KafkaConfig    `envPrefix:"ADDRESS_CRI_KAFKA_"`
}

// RegistryConfig points at the postcode registry provider.
type RegistryConfig struct {
	BaseURL string        `env:"BASE_URL" envDefault:"https://api.os.uk"`
	APIKey  string        `env:"API_KEY"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"5s"`
}

// RedisConfig configures the redis session store. An empty URL means redis is
// not configured and the service falls back to the in-memory store.
type RedisConfig struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// PostgresConfig configures the postgres session store. An empty DSN means
// postgres is not configured.
type PostgresConfig struct {
	DSN string `env:"DSN"`
}

// KafkaConfig configures the audit publisher. No brokers means audit events
// only reach the log.
type KafkaConfig struct {
	Brokers    []string `env:"BROKERS" envSeparator:","`
	AuditTopic string   `env:"AUDIT_TOPIC" envDefault:"address-cri.audit"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
