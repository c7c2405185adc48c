// Package auth is the session layer of the shell's provider nesting. It
// attaches a session provider to every request, resolved from the session
// cookie against the configured store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	platformgrpc "github.com/louisbranch/gatehouse/internal/platform/grpc"
	"github.com/louisbranch/gatehouse/internal/platform/timeouts"
	"github.com/louisbranch/gatehouse/internal/services/shell/platform/sessioncookie"
	"github.com/louisbranch/gatehouse/internal/services/shell/session"
)

// LayerName identifies the auth layer in boundary failures.
const LayerName = "auth"

// Config defines the auth layer inputs.
type Config struct {
	Store session.Store
	Clock clockwork.Clock
	// IdentityAddr is the optional gRPC address of the identity backend whose
	// health is checked during Init.
	IdentityAddr string
	Dialer       platformgrpc.Dialer
	DialTimeout  time.Duration
	Logf         func(string, ...any)
}

// Layer resolves per-request session providers.
type Layer struct {
	store        session.Store
	clock        clockwork.Clock
	identityAddr string
	dialer       platformgrpc.Dialer
	dialTimeout  time.Duration
	logf         func(string, ...any)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// New validates cfg and builds the layer.
func New(cfg Config) (*Layer, error) {
	if cfg.Store == nil {
		return nil, errors.New("session store is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = timeouts.GRPCDial
	}
	logf := cfg.Logf
	if logf == nil {
		logf = log.Printf
	}
	return &Layer{
		store:        cfg.Store,
		clock:        clock,
		identityAddr: strings.TrimSpace(cfg.IdentityAddr),
		dialer:       cfg.Dialer,
		dialTimeout:  dialTimeout,
		logf:         logf,
	}, nil
}

// Name implements compose.Layer.
func (l *Layer) Name() string { return LayerName }

// Init checks the session store and, when configured, the identity backend.
func (l *Layer) Init(ctx context.Context) error {
	if p, ok := l.store.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("ping session store: %w", err)
		}
	}
	if l.identityAddr == "" {
		return nil
	}
	conn, err := platformgrpc.DialWithHealth(ctx, l.dialer, l.identityAddr, "", l.dialTimeout, l.logf)
	if err != nil {
		return fmt.Errorf("identity backend: %w", err)
	}
	if err := conn.Close(); err != nil {
		l.logf("close identity probe connection: %v", err)
	}
	return nil
}

// Wrap implements compose.Layer. Each request gets its own provider, which
// starts loading and resolves in the background once something reads it.
func (l *Layer) Wrap(next http.Handler) http.Handler {
	if next == nil {
		next = http.NotFoundHandler()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, _ := sessioncookie.Read(r)
		provider := l.Provider(r.Context(), sessionID)
		next.ServeHTTP(w, r.WithContext(session.WithProvider(r.Context(), provider)))
	})
}

// Provider returns a provider resolving sessionID. Resolution starts on the
// first read and is bound to ctx.
func (l *Layer) Provider(ctx context.Context, sessionID string) *session.Resolver {
	return session.NewResolver(
		session.StoreSource{Store: l.store, SessionID: sessionID, Clock: l.clock},
		session.WithClock(l.clock),
		session.WithLogf(l.logf),
		session.WithLazyRefresh(ctx),
	)
}

// Store returns the session store sign-in and sign-out write to.
func (l *Layer) Store() session.Store {
	return l.store
}
