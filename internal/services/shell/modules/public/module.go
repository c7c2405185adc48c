// Package public serves the shell's signed-out surface: landing, sign-in and
// sign-out.
package public

import (
	"errors"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/louisbranch/gatehouse/internal/services/shell/app"
	"github.com/louisbranch/gatehouse/internal/services/shell/platform/requestmeta"
	"github.com/louisbranch/gatehouse/internal/services/shell/routepath"
	"github.com/louisbranch/gatehouse/internal/services/shell/session"
	"github.com/louisbranch/gatehouse/internal/services/shell/token"
)

// DefaultSessionTTL bounds sessions created at sign-in.
const DefaultSessionTTL = 12 * time.Hour

// TokenVerifier verifies an externally issued access token.
type TokenVerifier interface {
	Verify(raw string) (token.Claims, error)
}

// Config defines the public module inputs.
type Config struct {
	Store session.Store
	// Verifier is optional; without it sign-in reports unavailable.
	Verifier   TokenVerifier
	SessionTTL time.Duration
	Clock      clockwork.Clock
	// RequestSchemePolicy decides when session cookies are marked Secure.
	RequestSchemePolicy requestmeta.SchemePolicy
}

// New builds the public mount.
func New(cfg Config) (app.Mount, error) {
	if cfg.Store == nil {
		return app.Mount{}, errors.New("session store is required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	mux := http.NewServeMux()
	registerRoutes(mux, handlers{service: newService(cfg), policy: cfg.RequestSchemePolicy})
	return app.Mount{ID: "public", Prefix: routepath.Root, Handler: mux}, nil
}
