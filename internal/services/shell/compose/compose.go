// Package compose builds the fixed provider nesting every shell request runs
// through: the error boundary outermost, then auth, then domain state.
package compose

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// ErrSkipped marks a layer that was not initialized because a layer it
// depends on failed.
var ErrSkipped = errors.New("layer skipped")

// Layer is one cross-cutting context in the nesting.
type Layer interface {
	Name() string
	Init(ctx context.Context) error
	Wrap(next http.Handler) http.Handler
}

// Root is the composed nesting. Its order is fixed by New.
type Root struct {
	boundary *Boundary
	auth     Layer
	domain   Layer

	mu     sync.RWMutex
	failed map[string]error
}

// New fixes the nesting order. Every layer is required.
func New(boundary *Boundary, auth, domain Layer) (*Root, error) {
	if boundary == nil {
		return nil, errors.New("boundary is required")
	}
	if auth == nil {
		return nil, errors.New("auth layer is required")
	}
	if domain == nil {
		return nil, errors.New("domain layer is required")
	}
	return &Root{boundary: boundary, auth: auth, domain: domain, failed: make(map[string]error)}, nil
}

// Boundary returns the outermost layer.
func (r *Root) Boundary() *Boundary {
	return r.boundary
}

// Init initializes auth, then domain, each inside the boundary. Domain state
// is skipped when auth fails. Failed layers keep serving the fallback; the
// returned error joins every failure.
func (r *Root) Init(ctx context.Context) error {
	if err := r.initLayer(ctx, r.auth); err != nil {
		r.markFailed(r.domain.Name(), fmt.Errorf("%w: %s failed", ErrSkipped, r.auth.Name()))
		return err
	}
	return r.initLayer(ctx, r.domain)
}

func (r *Root) initLayer(ctx context.Context, layer Layer) error {
	err := r.boundary.Contain(layer.Name(), func() error { return layer.Init(ctx) })
	if err != nil {
		r.markFailed(layer.Name(), err)
	}
	return err
}

func (r *Root) markFailed(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[name] = err
}

// Failed returns the init error of the named layer, if any.
func (r *Root) Failed(name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.failed[name]
}

// Handler nests app inside domain, auth and the boundary.
func (r *Root) Handler(app http.Handler) http.Handler {
	if app == nil {
		app = http.NotFoundHandler()
	}
	h := r.wrap(r.domain, app)
	h = r.wrap(r.auth, h)
	return r.boundary.Wrap(h)
}

func (r *Root) wrap(layer Layer, next http.Handler) http.Handler {
	wrapped := layer.Wrap(next)
	name := layer.Name()
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if err := r.Failed(name); err != nil {
			Fail(req, name, err)
			return
		}
		wrapped.ServeHTTP(w, req)
	})
}
