// Package appstate is the domain layer of the shell's provider nesting. It
// carries the signed-in viewer's profile and the resolved endpoints.
package appstate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/louisbranch/gatehouse/internal/platform/endpoint"
	"github.com/louisbranch/gatehouse/internal/services/shell/apiclient"
	"github.com/louisbranch/gatehouse/internal/services/shell/compose"
	"github.com/louisbranch/gatehouse/internal/services/shell/session"
)

// LayerName identifies the domain layer in boundary failures.
const LayerName = "domain"

// ErrNoSession reports a profile lookup without a present session.
var ErrNoSession = errors.New("no signed-in session")

// ProfileLoader loads the profile owned by an access token.
type ProfileLoader interface {
	Me(ctx context.Context, token string) (apiclient.Profile, error)
}

// State is the per-request domain state.
type State struct {
	Endpoints endpoint.Endpoints
	Profile   apiclient.Profile
}

// Config defines the domain layer inputs.
type Config struct {
	Endpoints endpoint.Endpoints
	Profiles  ProfileLoader
	// Probe, when set, is called by Init to check the API is reachable.
	Probe func(context.Context) error
}

// Layer loads domain state lazily, at most once per request.
type Layer struct {
	endpoints endpoint.Endpoints
	profiles  ProfileLoader
	probe     func(context.Context) error
}

// New validates cfg and builds the layer.
func New(cfg Config) (*Layer, error) {
	if cfg.Profiles == nil {
		return nil, errors.New("profile loader is required")
	}
	return &Layer{endpoints: cfg.Endpoints, profiles: cfg.Profiles, probe: cfg.Probe}, nil
}

// Name implements compose.Layer.
func (l *Layer) Name() string { return LayerName }

// Init implements compose.Layer.
func (l *Layer) Init(ctx context.Context) error {
	if strings.TrimSpace(l.endpoints.APIBaseURL) == "" {
		return errors.New("api base url is not resolved")
	}
	if l.probe == nil {
		return nil
	}
	if err := l.probe(ctx); err != nil {
		return fmt.Errorf("probe api: %w", err)
	}
	return nil
}

type requestState struct {
	layer *Layer
	once  sync.Once
	state State
	err   error
}

type requestStateKey struct{}

// Wrap implements compose.Layer.
func (l *Layer) Wrap(next http.Handler) http.Handler {
	if next == nil {
		next = http.NotFoundHandler()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), requestStateKey{}, &requestState{layer: l})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (l *Layer) load(ctx context.Context) (State, error) {
	state := State{Endpoints: l.endpoints}
	provider, ok := session.ProviderFromContext(ctx)
	if !ok {
		return state, ErrNoSession
	}
	current, err := session.Await(ctx, provider)
	if err != nil {
		return state, err
	}
	if !current.Present() {
		return state, ErrNoSession
	}
	profile, err := l.profiles.Me(ctx, current.Session.Token)
	if err != nil {
		return state, fmt.Errorf("load viewer profile: %w", err)
	}
	if strings.TrimSpace(profile.UserID) == "" {
		profile.UserID = current.Session.UserID
	}
	state.Profile = profile
	return state, nil
}

// Load returns the request's domain state, loading it on first use.
func Load(r *http.Request) (State, error) {
	if r == nil {
		return State{}, errors.New("request is required")
	}
	rs, ok := r.Context().Value(requestStateKey{}).(*requestState)
	if !ok || rs == nil {
		return State{}, errors.New("domain layer is not installed")
	}
	rs.once.Do(func() {
		rs.state, rs.err = rs.layer.load(r.Context())
	})
	return rs.state, rs.err
}

// Endpoints returns the resolved endpoints without loading the profile.
func Endpoints(r *http.Request) (endpoint.Endpoints, bool) {
	if r == nil {
		return endpoint.Endpoints{}, false
	}
	rs, ok := r.Context().Value(requestStateKey{}).(*requestState)
	if !ok || rs == nil {
		return endpoint.Endpoints{}, false
	}
	return rs.layer.endpoints, true
}

// LoadOrFail is Load for handlers: a failure is reported to the error boundary
// and ok is false, in which case the handler must return without writing.
func LoadOrFail(r *http.Request) (State, bool) {
	state, err := Load(r)
	if err != nil {
		compose.Fail(r, LayerName, err)
		return State{}, false
	}
	return state, true
}
