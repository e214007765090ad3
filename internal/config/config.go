package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends for user profiles.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Config struct {
	HTTPAddr     string     `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel     slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	DBPath       string     `env:"DB_PATH" envDefault:"data/beastgames.db"`
	DBDriver     string     `env:"DB_DRIVER" envDefault:"libsql"`
	StoreBackend string     `env:"STORE_BACKEND" envDefault:"sqlite"`
	RedisURL     string     `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	SPADir       string     `env:"SPA_DIR"`

	// AdminEmails is the allow-list of administrator emails. Entries are
	// trimmed and lower-cased before matching.
	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:"," envDefault:"tgantasa@gitam.in,physicalfitness_vsp@gitam.in"`

	// AllowedOrigins are extra origin patterns (host or host:port, with
	// path.Match wildcards) accepted on the admin WebSocket. The server's
	// own host is always accepted.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`

	FederatedIssuer   string `env:"FEDERATED_ISSUER"`
	FederatedAudience string `env:"FEDERATED_AUDIENCE"`
	FederatedSecret   string `env:"FEDERATED_SECRET"`

	OTELEndpoint string `env:"OTEL_ENDPOINT"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendSQLite, BackendRedis, c.StoreBackend)
	}
	if c.FederatedSecret != "" && (c.FederatedIssuer == "" || c.FederatedAudience == "") {
		return fmt.Errorf("FEDERATED_ISSUER and FEDERATED_AUDIENCE are required when FEDERATED_SECRET is set")
	}
	return nil
}
