// Package guard gates protected content behind a resolved, present session.
//
// A Guard is a three-state machine (loading, unauthenticated, authenticated)
// fed by session provider observations. Rendering is a pure function of the
// current state. Navigation to the login page is a side effect of entering
// the unauthenticated state and fires at most once per entry.
package guard

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/a-h/templ"
	"github.com/louisbranch/gatehouse/internal/services/shell/session"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultLoginPath is where unauthenticated viewers are sent.
const DefaultLoginPath = "/login"

const instrumentationName = "github.com/louisbranch/gatehouse/internal/services/shell/guard"

// Navigator performs a fire-and-forget navigation. Navigate must not call
// Close on the guard that invoked it.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

// Navigate implements Navigator.
func (fn NavigatorFunc) Navigate(path string) {
	fn(path)
}

// Option configures a Guard.
type Option func(*options)

type options struct {
	loginPath     string
	meterProvider metric.MeterProvider
	logf          func(string, ...any)
}

// WithLoginPath overrides the login destination.
func WithLoginPath(path string) Option {
	return func(o *options) {
		if path = strings.TrimSpace(path); path != "" {
			o.loginPath = path
		}
	}
}

// WithMeterProvider overrides the global meter provider for transition counts.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *options) {
		if provider != nil {
			o.meterProvider = provider
		}
	}
}

// WithLogf sets a logger for guard transitions.
func WithLogf(logf func(string, ...any)) Option {
	return func(o *options) {
		o.logf = logf
	}
}

type config struct {
	loginPath   string
	logf        func(string, ...any)
	transitions metric.Int64Counter
}

func newConfig(opts []Option) config {
	o := options{loginPath: DefaultLoginPath}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}
	counter, err := o.meterProvider.Meter(instrumentationName).Int64Counter(
		"gatehouse.guard.transitions",
		metric.WithDescription("Route guard state transitions."),
	)
	if err != nil {
		otel.Handle(err)
	}
	return config{loginPath: o.loginPath, logf: o.logf, transitions: counter}
}

// Guard tracks one subtree's gating state.
type Guard struct {
	nav Navigator
	cfg config

	mu     sync.Mutex
	status Status
	closed bool
	done   chan struct{}
	once   sync.Once

	// navMu serializes navigation with Close.
	navMu sync.Mutex
}

// New returns a Guard in the loading state.
func New(nav Navigator, opts ...Option) *Guard {
	return newGuard(nav, newConfig(opts))
}

func newGuard(nav Navigator, cfg config) *Guard {
	return &Guard{
		nav:    nav,
		cfg:    cfg,
		status: StatusLoading,
		done:   make(chan struct{}),
	}
}

// LoginPath returns the navigation target for unauthenticated viewers.
func (g *Guard) LoginPath() string {
	return g.cfg.loginPath
}

// Status returns the current state.
func (g *Guard) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Observe feeds one provider observation into the state machine and returns
// the resulting status. Observing an unchanged status has no effect.
func (g *Guard) Observe(state session.State) Status {
	next := StatusOf(state)

	g.mu.Lock()
	prev := g.status
	if prev == next {
		g.mu.Unlock()
		return next
	}
	g.status = next
	navigate := transition(prev, next) == actionNavigate
	g.mu.Unlock()

	g.record(prev, next)
	if navigate && g.nav != nil {
		g.navigate()
	}
	return next
}

func (g *Guard) navigate() {
	g.navMu.Lock()
	defer g.navMu.Unlock()
	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()
	if !closed {
		g.nav.Navigate(g.cfg.loginPath)
	}
}

func (g *Guard) record(prev, next Status) {
	if g.cfg.transitions != nil {
		g.cfg.transitions.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("from", prev.String()),
			attribute.String("to", next.String()),
		))
	}
	if g.cfg.logf != nil {
		g.cfg.logf("guard transition from=%s to=%s", prev, next)
	}
}

// Render returns children unchanged when authenticated and an empty
// component otherwise. It never navigates.
func (g *Guard) Render(children templ.Component) templ.Component {
	if g.Status() != StatusAuthenticated || children == nil {
		return templ.NopComponent
	}
	return children
}

// Run observes provider until ctx ends or the guard is closed.
func (g *Guard) Run(ctx context.Context, provider session.Provider) error {
	if provider == nil {
		return nil
	}
	updates, cancel := provider.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.done:
			return nil
		case state, ok := <-updates:
			if !ok {
				return nil
			}
			g.Observe(state)
		}
	}
}

// Close detaches the guard. It waits for an in-flight navigation; once it
// returns, no transition navigates.
func (g *Guard) Close() {
	g.once.Do(func() {
		g.navMu.Lock()
		g.mu.Lock()
		g.closed = true
		g.mu.Unlock()
		g.navMu.Unlock()
		close(g.done)
	})
}

type guardContextKey struct{}

// WithGuard stores g in context for views rendered behind it.
func WithGuard(ctx context.Context, g *Guard) context.Context {
	return context.WithValue(ctx, guardContextKey{}, g)
}

// FromContext returns the guard stored in context.
func FromContext(ctx context.Context) (*Guard, bool) {
	if ctx == nil {
		return nil, false
	}
	g, ok := ctx.Value(guardContextKey{}).(*Guard)
	return g, ok && g != nil
}

// Protect renders children through the guard found in ctx. Without a guard
// nothing is rendered.
func Protect(children templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		g, ok := FromContext(ctx)
		if !ok {
			return nil
		}
		return g.Render(children).Render(ctx, w)
	})
}
