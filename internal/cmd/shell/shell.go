// Package shell parses app shell command flags and launches the service.
package shell

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/louisbranch/gatehouse/internal/platform/cmd"
	shellservice "github.com/louisbranch/gatehouse/internal/services/shell"
)

// Config holds shell command configuration. Endpoint selection is read
// separately from GATEHOUSE_ENV and friends.
type Config struct {
	HTTPAddr        string        `env:"GATEHOUSE_HTTP_ADDR" envDefault:"localhost:8090"`
	StoreBackend    string        `env:"GATEHOUSE_SESSION_STORE" envDefault:"memory"`
	SQLitePath      string        `env:"GATEHOUSE_SQLITE_PATH" envDefault:"data/sessions.db"`
	RedisAddr       string        `env:"GATEHOUSE_REDIS_ADDR"`
	RedisPrefix     string        `env:"GATEHOUSE_REDIS_PREFIX" envDefault:"gatehouse"`
	TokenSecret     string        `env:"GATEHOUSE_TOKEN_SECRET"`
	TokenIssuer     string        `env:"GATEHOUSE_TOKEN_ISSUER"`
	TokenAudience   string        `env:"GATEHOUSE_TOKEN_AUDIENCE"`
	SessionTTL      time.Duration `env:"GATEHOUSE_SESSION_TTL" envDefault:"12h"`
	SweepInterval   time.Duration `env:"GATEHOUSE_SESSION_SWEEP_INTERVAL" envDefault:"10m"`
	IdentityAddr    string        `env:"GATEHOUSE_AUTH_GRPC_ADDR"`
	GRPCDialTimeout time.Duration `env:"GATEHOUSE_DIAL_TIMEOUT" envDefault:"2s"`
	ProbeAPI        bool          `env:"GATEHOUSE_PROBE_API"`
	// TrustForwardedProto must only be set behind a proxy that overwrites
	// X-Forwarded-Proto.
	TrustForwardedProto bool `env:"GATEHOUSE_TRUST_FORWARDED_PROTO"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The shell HTTP server address")
	fs.StringVar(&cfg.StoreBackend, "session-store", cfg.StoreBackend, "Session store backend: memory, sqlite or redis")
	fs.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "The SQLite session database path")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "The Redis session store address")
	fs.StringVar(&cfg.RedisPrefix, "redis-prefix", cfg.RedisPrefix, "Key prefix for Redis sessions")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "Maximum session lifetime")
	fs.DurationVar(&cfg.SweepInterval, "session-sweep-interval", cfg.SweepInterval, "Expired session purge interval; 0 disables")
	fs.StringVar(&cfg.IdentityAddr, "auth-grpc-addr", cfg.IdentityAddr, "The identity backend gRPC address checked at startup")
	fs.DurationVar(&cfg.GRPCDialTimeout, "dial-timeout", cfg.GRPCDialTimeout, "gRPC dependency dial timeout")
	fs.BoolVar(&cfg.ProbeAPI, "probe-api", cfg.ProbeAPI, "Check the API health endpoint during startup")
	fs.BoolVar(&cfg.TrustForwardedProto, "trust-forwarded-proto", cfg.TrustForwardedProto, "Trust X-Forwarded-Proto from a TLS-terminating proxy")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the shell service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceShell, func(ctx context.Context) error {
		return shellservice.Run(ctx, shellservice.RuntimeConfig{
			HTTPAddr: cfg.HTTPAddr,
			Store: shellservice.StoreConfig{
				Backend:     cfg.StoreBackend,
				SQLitePath:  cfg.SQLitePath,
				RedisAddr:   cfg.RedisAddr,
				RedisPrefix: cfg.RedisPrefix,
			},
			TokenSecret:         cfg.TokenSecret,
			TokenIssuer:         cfg.TokenIssuer,
			TokenAudience:       cfg.TokenAudience,
			SessionTTL:          cfg.SessionTTL,
			IdentityAddr:        cfg.IdentityAddr,
			GRPCDialTimeout:     cfg.GRPCDialTimeout,
			ProbeAPI:            cfg.ProbeAPI,
			TrustForwardedProto: cfg.TrustForwardedProto,
			SweepInterval:       cfg.SweepInterval,
		})
	})
}
