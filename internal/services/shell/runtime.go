package shell

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/louisbranch/gatehouse/internal/platform/endpoint"
	"github.com/louisbranch/gatehouse/internal/services/shell/apiclient"
	"github.com/louisbranch/gatehouse/internal/services/shell/session"
	redisstore "github.com/louisbranch/gatehouse/internal/services/shell/storage/redis"
	sqlitestore "github.com/louisbranch/gatehouse/internal/services/shell/storage/sqlite"
	"github.com/louisbranch/gatehouse/internal/services/shell/token"
	goredis "github.com/redis/go-redis/v9"
)

// Session store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// StoreConfig selects and configures the session store backend.
type StoreConfig struct {
	Backend     string
	SQLitePath  string
	RedisAddr   string
	RedisPrefix string
}

// RuntimeConfig holds everything Run needs beyond the resolved endpoints.
type RuntimeConfig struct {
	HTTPAddr        string
	Store           StoreConfig
	TokenSecret     string
	TokenIssuer     string
	TokenAudience   string
	SessionTTL      time.Duration
	IdentityAddr    string
	GRPCDialTimeout time.Duration
	ProbeAPI        bool
	// TrustForwardedProto is passed through to Config.
	TrustForwardedProto bool
	// SweepInterval schedules expired-session purges for stores that support
	// them. Zero disables sweeping.
	SweepInterval time.Duration
}

type purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// OpenStore opens the configured session store. The returned close function
// is never nil.
func OpenStore(ctx context.Context, cfg StoreConfig, clock clockwork.Clock) (session.Store, func() error, error) {
	noop := func() error { return nil }
	switch backend := strings.ToLower(strings.TrimSpace(cfg.Backend)); backend {
	case "", StoreMemory:
		return session.NewMemoryStore(clock), noop, nil
	case StoreSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, noop, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		store, err := sqlitestore.Open(cfg.SQLitePath, sqlitestore.WithClock(clock))
		if err != nil {
			return nil, noop, fmt.Errorf("open sqlite session store: %w", err)
		}
		return store, store.Close, nil
	case StoreRedis:
		addr := strings.TrimSpace(cfg.RedisAddr)
		if addr == "" {
			return nil, noop, errors.New("redis address is required")
		}
		client := goredis.NewClient(&goredis.Options{Addr: addr})
		store := redisstore.NewWithClock(client, cfg.RedisPrefix, clock)
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("connect redis session store: %w", err)
		}
		return store, client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown session store backend %q", backend)
	}
}

// Run resolves endpoints from the environment, opens the session store and
// serves until ctx ends.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	endpoints, err := endpoint.Load()
	if err != nil {
		return fmt.Errorf("resolve endpoints: %w", err)
	}
	log.Printf("endpoints resolved env=%s api=%s stream=%s", endpoints.Environment, endpoints.APIBaseURL, endpoints.StreamURL)

	clock := clockwork.NewRealClock()
	store, closeStore, err := OpenStore(ctx, cfg.Store, clock)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Printf("close session store: %v", err)
		}
	}()

	api, err := apiclient.New(endpoints.APIBaseURL, nil)
	if err != nil {
		return fmt.Errorf("api client: %w", err)
	}
	serverCfg := Config{
		HTTPAddr:            cfg.HTTPAddr,
		Endpoints:           endpoints,
		Store:               store,
		Profiles:            api,
		SessionTTL:          cfg.SessionTTL,
		IdentityAddr:        cfg.IdentityAddr,
		GRPCDialTimeout:     cfg.GRPCDialTimeout,
		TrustForwardedProto: cfg.TrustForwardedProto,
		Clock:               clock,
	}
	if secret := strings.TrimSpace(cfg.TokenSecret); secret != "" {
		verifier, err := token.NewVerifier(token.Config{
			Secret:   []byte(secret),
			Issuer:   cfg.TokenIssuer,
			Audience: cfg.TokenAudience,
			Clock:    clock,
		})
		if err != nil {
			return fmt.Errorf("token verifier: %w", err)
		}
		serverCfg.Verifier = verifier
	} else if endpoints.IsProduction() {
		return errors.New("token secret is required in production")
	} else {
		log.Printf("token secret not set; sign-in is disabled")
	}
	if cfg.ProbeAPI {
		serverCfg.ProbeAPI = api.Ping
	}

	server, err := NewServer(ctx, serverCfg)
	if err != nil {
		return err
	}
	defer server.Close()

	if p, ok := store.(purger); ok && cfg.SweepInterval > 0 {
		go sweepExpired(ctx, p, clock, cfg.SweepInterval)
	}
	log.Printf("shell listening addr=%s", cfg.HTTPAddr)
	return server.ListenAndServe(ctx)
}

// sweepExpired purges expired sessions every interval until ctx ends.
func sweepExpired(ctx context.Context, store purger, clock clockwork.Clock, interval time.Duration) {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			purged, err := store.PurgeExpired(ctx)
			if err != nil {
				log.Printf("purge expired sessions: %v", err)
				continue
			}
			if purged > 0 {
				log.Printf("purged expired sessions count=%d", purged)
			}
		}
	}
}
