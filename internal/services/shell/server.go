// Package shell hosts the browser-facing app shell.
package shell

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/louisbranch/gatehouse/internal/platform/endpoint"
	platformgrpc "github.com/louisbranch/gatehouse/internal/platform/grpc"
	"github.com/louisbranch/gatehouse/internal/platform/timeouts"
	"github.com/louisbranch/gatehouse/internal/services/shell/app"
	"github.com/louisbranch/gatehouse/internal/services/shell/appstate"
	"github.com/louisbranch/gatehouse/internal/services/shell/auth"
	"github.com/louisbranch/gatehouse/internal/services/shell/compose"
	"github.com/louisbranch/gatehouse/internal/services/shell/modules/home"
	"github.com/louisbranch/gatehouse/internal/services/shell/modules/public"
	"github.com/louisbranch/gatehouse/internal/services/shell/platform/httpx"
	"github.com/louisbranch/gatehouse/internal/services/shell/platform/observability"
	"github.com/louisbranch/gatehouse/internal/services/shell/platform/requestmeta"
	"github.com/louisbranch/gatehouse/internal/services/shell/platform/weberror"
	"github.com/louisbranch/gatehouse/internal/services/shell/routepath"
	"github.com/louisbranch/gatehouse/internal/services/shell/session"
)

// Config defines startup inputs for the shell service.
type Config struct {
	HTTPAddr  string
	Endpoints endpoint.Endpoints
	Store     session.Store
	// Verifier is optional; without it sign-in reports unavailable.
	Verifier   public.TokenVerifier
	Profiles   appstate.ProfileLoader
	SessionTTL time.Duration
	// ProbeAPI makes domain init fail when the API does not answer.
	ProbeAPI        func(context.Context) error
	IdentityAddr    string
	Dialer          platformgrpc.Dialer
	GRPCDialTimeout time.Duration
	// TrustForwardedProto honors X-Forwarded-Proto from a TLS-terminating
	// proxy for cookie Secure flags and the same-origin check.
	TrustForwardedProto bool
	Clock               clockwork.Clock
	Logger              *log.Logger
}

// Server hosts the shell HTTP surface and lifecycle.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	root       *compose.Root
}

// NewHandler composes the provider nesting and the route groups. Layer init
// failures are logged and contained: the failed layer serves the fallback
// while the rest of the tree stays up.
func NewHandler(ctx context.Context, cfg Config) (http.Handler, *compose.Root, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	boundary := compose.NewBoundary(
		compose.WithFallback(weberror.Fallback),
		compose.WithBoundaryLogf(logger.Printf),
	)
	authLayer, err := auth.New(auth.Config{
		Store:        cfg.Store,
		Clock:        clock,
		IdentityAddr: cfg.IdentityAddr,
		Dialer:       cfg.Dialer,
		DialTimeout:  cfg.GRPCDialTimeout,
		Logf:         logger.Printf,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("auth layer: %w", err)
	}
	domainLayer, err := appstate.New(appstate.Config{
		Endpoints: cfg.Endpoints,
		Profiles:  cfg.Profiles,
		Probe:     cfg.ProbeAPI,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("domain layer: %w", err)
	}
	root, err := compose.New(boundary, authLayer, domainLayer)
	if err != nil {
		return nil, nil, err
	}
	if err := root.Init(ctx); err != nil {
		logger.Printf("shell init degraded: %v", err)
	}

	policy := requestmeta.SchemePolicy{TrustForwardedProto: cfg.TrustForwardedProto}
	publicMount, err := public.New(public.Config{
		Store:               cfg.Store,
		Verifier:            cfg.Verifier,
		SessionTTL:          cfg.SessionTTL,
		Clock:               clock,
		RequestSchemePolicy: policy,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("public routes: %w", err)
	}
	routes, err := app.Compose(app.ComposeInput{
		Public:              []app.Mount{publicMount},
		Protected:           []app.Mount{home.New()},
		RequestSchemePolicy: policy,
	})
	if err != nil {
		return nil, nil, err
	}

	rootMux := http.NewServeMux()
	rootMux.HandleFunc(http.MethodGet+" "+routepath.Health, handleHealth)
	rootMux.Handle("/", root.Handler(routes))
	return httpx.Chain(rootMux,
		httpx.RequestID(),
		observability.RequestLogger(logger),
	), root, nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// NewServer validates config and constructs a shell server.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	handler, root, err := NewHandler(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("compose shell handler: %w", err)
	}
	return &Server{
		httpAddr: httpAddr,
		root:     root,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}, nil
}

// Root exposes the composition root, mainly for init diagnostics.
func (s *Server) Root() *compose.Root {
	if s == nil {
		return nil
	}
	return s.root
}

// ListenAndServe serves HTTP traffic until context cancellation or server stop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("shell server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown shell http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve shell http: %w", err)
	}
}

// Close closes open server resources.
func (s *Server) Close() {
	if s == nil || s.httpServer == nil {
		return
	}
	_ = s.httpServer.Close()
}
