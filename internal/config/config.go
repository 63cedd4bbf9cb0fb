// Package config loads server configuration from the environment. Only the
// options listed here are recognized; nothing in the chat core depends on
// their values beyond connectivity.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every environment-driven setting for a server instance.
type Config struct {
	ListenAddr     string        `envconfig:"LISTEN_ADDR" default:":8080"`
	WorkerPoolSize int           `envconfig:"WORKER_POOL_SIZE" default:"256"`
	MaxConnections int           `envconfig:"MAX_CONNECTIONS" default:"100000"`
	ReadTimeout    time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout   time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`

	NATSURL     string `envconfig:"NATS_URL" default:"nats://localhost:4222"`
	RedisAddr   string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:"postgres://localhost:5432/parley?sslmode=disable"`

	JWTSecret   string        `envconfig:"JWT_SECRET" required:"true"`
	PresenceTTL time.Duration `envconfig:"PRESENCE_TTL" default:"1h"`
	HistorySize int           `envconfig:"HISTORY_SIZE" default:"50"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
