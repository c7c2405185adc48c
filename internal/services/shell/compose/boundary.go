package compose

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/a-h/templ"
	"github.com/louisbranch/gatehouse/internal/platform/requestctx"
	"github.com/louisbranch/gatehouse/internal/services/shell/platform/httpx"
)

// maxFailures bounds the failures a Boundary retains.
const maxFailures = 64

// Failure is one contained error.
type Failure struct {
	Layer    string
	Err      error
	Panicked bool
}

// Error renders the failure for logs.
func (f Failure) Error() string {
	if f.Panicked {
		return fmt.Sprintf("%s: panic: %v", f.Layer, f.Err)
	}
	return fmt.Sprintf("%s: %v", f.Layer, f.Err)
}

// Unwrap returns the contained error.
func (f Failure) Unwrap() error {
	return f.Err
}

// FallbackFunc builds the view shown in place of a failed response.
type FallbackFunc func(Failure) templ.Component

// BoundaryOption configures a Boundary.
type BoundaryOption func(*Boundary)

// WithFallback sets the fallback view.
func WithFallback(fn FallbackFunc) BoundaryOption {
	return func(b *Boundary) {
		if fn != nil {
			b.fallback = fn
		}
	}
}

// WithBoundaryLogf sets the logger for contained failures.
func WithBoundaryLogf(logf func(string, ...any)) BoundaryOption {
	return func(b *Boundary) {
		if logf != nil {
			b.logf = logf
		}
	}
}

// Boundary contains failures from the layers and handlers inside it and
// substitutes a fallback view for them.
type Boundary struct {
	fallback FallbackFunc
	logf     func(string, ...any)

	mu       sync.Mutex
	failures []Failure
}

// NewBoundary returns a Boundary with a minimal fallback view.
func NewBoundary(opts ...BoundaryOption) *Boundary {
	b := &Boundary{fallback: defaultFallback, logf: log.Printf}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func defaultFallback(Failure) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<!doctype html><title>Something went wrong</title><p>Something went wrong. Please try again.</p>")
		return err
	})
}

// Name implements Layer.
func (b *Boundary) Name() string { return "boundary" }

// Init implements Layer.
func (b *Boundary) Init(context.Context) error { return nil }

// Wrap implements Layer.
func (b *Boundary) Wrap(next http.Handler) http.Handler { return b.Middleware()(next) }

// Contain runs fn, converting a panic into an error. Every error is recorded
// as a failure of layer.
func (b *Boundary) Contain(layer string, fn func() error) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			f := Failure{Layer: layer, Err: panicError(recovered), Panicked: true}
			b.record(f, "")
			err = f
		}
	}()
	if err := fn(); err != nil {
		f := Failure{Layer: layer, Err: err}
		b.record(f, "")
		return f
	}
	return nil
}

// Failures returns the most recent contained failures, oldest first.
func (b *Boundary) Failures() []Failure {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Failure(nil), b.failures...)
}

func (b *Boundary) record(f Failure, requestID string) {
	b.mu.Lock()
	b.failures = append(b.failures, f)
	if len(b.failures) > maxFailures {
		b.failures = b.failures[len(b.failures)-maxFailures:]
	}
	b.mu.Unlock()
	if requestID == "" {
		requestID = "-"
	}
	b.logf("boundary contained failure layer=%s panicked=%t request_id=%s err=%v", f.Layer, f.Panicked, requestID, f.Err)
}

// Middleware installs a failure sink for inner layers and renders the
// fallback when one reports a failure or panics before writing a response.
func (b *Boundary) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := httpx.NewResponseRecorder(w)
			s := &sink{}
			r = r.WithContext(context.WithValue(r.Context(), sinkContextKey{}, s))

			defer func() {
				if recovered := recover(); recovered != nil {
					if recovered == http.ErrAbortHandler {
						panic(recovered)
					}
					b.logf("panic recovered method=%s path=%s stack=%s", r.Method, r.URL.Path, strings.TrimSpace(string(debug.Stack())))
					s.set(Failure{Layer: "handler", Err: panicError(recovered), Panicked: true})
				}
				f, failed := s.get()
				if !failed {
					return
				}
				b.record(f, requestctx.RequestIDFromContext(r.Context()))
				if rec.Written() {
					return
				}
				b.render(rec, r, f)
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

func (b *Boundary) render(w http.ResponseWriter, r *http.Request, f Failure) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Del("Location")
	w.WriteHeader(http.StatusInternalServerError)
	if err := b.fallback(f).Render(r.Context(), w); err != nil {
		b.logf("render fallback: %v", err)
	}
}

type sinkContextKey struct{}

type sink struct {
	mu      sync.Mutex
	failure Failure
	failed  bool
}

func (s *sink) set(f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return
	}
	s.failure = f
	s.failed = true
}

func (s *sink) get() (Failure, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure, s.failed
}

// Fail reports err from layer to the boundary serving r. The first failure of
// a request wins. It returns false when no boundary is installed.
func Fail(r *http.Request, layer string, err error) bool {
	if r == nil || err == nil {
		return false
	}
	s, ok := r.Context().Value(sinkContextKey{}).(*sink)
	if !ok {
		return false
	}
	s.set(Failure{Layer: layer, Err: err})
	return true
}

func panicError(recovered any) error {
	if err, ok := recovered.(error); ok {
		return err
	}
	return errors.New(fmt.Sprint(recovered))
}
