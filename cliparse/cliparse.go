package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port           int    `env:"PORT" envDefault:"3001"`
	DatabaseURL    string `env:"DATABASE_URL"`
	DatabaseType   string `env:"DATABASE_TYPE" envDefault:"sqlite"`
	AdminKeySalt   string `env:"ADMIN_KEY_SALT"`
	CORSOrigin     string `env:"CORS_ORIGIN" envDefault:"*"`
	EventBuffer    int    `env:"EVENT_BUFFER" envDefault:"64"`
	PollCodeLength int    `env:"POLL_CODE_LENGTH" envDefault:"6"`
	OTelEndpoint   string `env:"OTEL_ENDPOINT"`
}

// ArchiveEnabled reports whether closed polls should be written to a database.
func (c Config) ArchiveEnabled() bool {
	return c.DatabaseURL != ""
}

// AdminKeysEnabled reports whether start and close require an admin key.
func (c Config) AdminKeysEnabled() bool {
	return c.AdminKeySalt != ""
}

// ParseFlags reads the environment, then lets CLI flags override it.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("livepoll", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", cfg.Port, "Server port")
	fs.StringVar(&cfg.CORSOrigin, "cors-origin", cfg.CORSOrigin, "Allowed CORS origin")

	// Result archive (optional)
	fs.StringVar(&cfg.DatabaseURL, "d", cfg.DatabaseURL, "Archive database URL (empty disables the archive)")
	fs.StringVar(&cfg.DatabaseType, "t", cfg.DatabaseType, "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminKeySalt, "admin-salt", cfg.AdminKeySalt, "Admin key salt (prefer env; empty disables admin keys)")

	// Tuning
	fs.IntVar(&cfg.EventBuffer, "event-buffer", cfg.EventBuffer, "Events buffered per subscriber before it is dropped")
	fs.IntVar(&cfg.PollCodeLength, "code-length", cfg.PollCodeLength, "Length of generated poll codes")
	fs.StringVar(&cfg.OTelEndpoint, "otel-endpoint", cfg.OTelEndpoint, "OTLP/HTTP endpoint for traces (empty disables tracing)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.DatabaseType = strings.ToLower(strings.TrimSpace(cfg.DatabaseType))
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q (use sqlite or postgres)", cfg.DatabaseType)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, errors.New("port must be between 1 and 65535")
	}
	if cfg.EventBuffer <= 0 {
		return Config{}, errors.New("event buffer must be positive")
	}
	if cfg.PollCodeLength < 4 || cfg.PollCodeLength > 12 {
		return Config{}, errors.New("poll code length must be between 4 and 12")
	}

	return cfg, nil
}
