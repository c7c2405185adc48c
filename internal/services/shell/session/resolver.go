package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/jonboulle/clockwork"
)

// Resolver is the in-process Provider. It starts loading and settles on the
// result of its Source.
type Resolver struct {
	source Source
	clock  clockwork.Clock
	logf   func(string, ...any)

	lazyCtx context.Context
	started sync.Once

	mu     sync.Mutex
	state  State
	subs   map[int]chan State
	nextID int
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithClock overrides the clock used for expiry checks.
func WithClock(clock clockwork.Clock) ResolverOption {
	return func(r *Resolver) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithLogf overrides resolution failure logging.
func WithLogf(logf func(string, ...any)) ResolverOption {
	return func(r *Resolver) {
		if logf != nil {
			r.logf = logf
		}
	}
}

// WithLazyRefresh defers the first Refresh until State or Subscribe is
// called, then runs it in the background bound to ctx. A resolver nobody
// reads never touches its source.
func WithLazyRefresh(ctx context.Context) ResolverOption {
	return func(r *Resolver) {
		if ctx != nil {
			r.lazyCtx = ctx
		}
	}
}

// NewResolver returns a loading provider backed by source.
func NewResolver(source Source, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		source: source,
		clock:  clockwork.NewRealClock(),
		logf:   log.Printf,
		state:  State{Loading: true},
		subs:   make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State implements Provider.
func (r *Resolver) State() State {
	r.start()
	return r.current()
}

func (r *Resolver) current() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// start launches the deferred first refresh, at most once.
func (r *Resolver) start() {
	r.started.Do(func() {
		if r.lazyCtx != nil {
			go r.Refresh(r.lazyCtx)
		}
	})
}

// Subscribe implements Provider.
func (r *Resolver) Subscribe() (<-chan State, func()) {
	r.start()
	ch := make(chan State, 1)
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = ch
	ch <- r.state
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

// Refresh re-resolves the session. Failures resolve to an absent session; a
// canceled ctx is not logged as one.
func (r *Resolver) Refresh(ctx context.Context) State {
	r.started.Do(func() {})
	r.publish(State{Loading: true, Session: r.current().Session})

	var resolved *Session
	if r.source != nil {
		sess, err := r.source.Resolve(ctx)
		switch {
		case errors.Is(err, context.Canceled):
		case err != nil:
			r.logf("session resolve failed: %v", err)
		case sess != nil && sess.Expired(r.clock.Now()):
		default:
			resolved = sess
		}
	}
	next := State{Session: resolved}
	r.publish(next)
	return next
}

// SignIn publishes a resolved, present session.
func (r *Resolver) SignIn(sess Session) {
	r.publish(State{Session: &sess})
}

// SignOut publishes a resolved, absent session.
func (r *Resolver) SignOut() {
	r.publish(State{})
}

func (r *Resolver) publish(next State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = next
	for _, ch := range r.subs {
		// Latest wins: drop an unread value before sending.
		select {
		case <-ch:
		default:
		}
		ch <- next
	}
}

var _ Provider = (*Resolver)(nil)
