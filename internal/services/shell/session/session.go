// Package session is the session provider consumed by the route guard.
//
// A provider owns the authentication lifecycle and exposes a read-only
// (session, loading) pair plus a stream of changes to it. Consumers only
// observe state. They never mutate it.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound reports a session id unknown to a Store.
var ErrNotFound = errors.New("session not found")

// Session is an authenticated identity. Consumers gating on a session only
// look at its presence.
type Session struct {
	ID     string
	UserID string
	// Token is the raw access token forwarded to the API. It is stored
	// server-side only; the cookie carries ID.
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the session lifetime has passed at now. A zero
// ExpiresAt never expires.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// State is one observation of a provider.
type State struct {
	Session *Session
	Loading bool
}

// Resolved reports whether resolution has finished.
func (s State) Resolved() bool {
	return !s.Loading
}

// Present reports a resolved, present session.
func (s State) Present() bool {
	return !s.Loading && s.Session != nil
}

// Equal compares states by loading flag and session identity.
func (s State) Equal(other State) bool {
	if s.Loading != other.Loading {
		return false
	}
	if s.Session == nil || other.Session == nil {
		return s.Session == nil && other.Session == nil
	}
	return s.Session.ID == other.Session.ID && s.Session.UserID == other.Session.UserID
}

// Provider exposes session state and its changes.
type Provider interface {
	// State returns the current observation.
	State() State
	// Subscribe returns a channel receiving the current state followed by
	// every later change, and a func that ends the subscription. Slow
	// subscribers only see the most recent state.
	Subscribe() (<-chan State, func())
}

// Source resolves the session for one provider.
type Source interface {
	Resolve(ctx context.Context) (*Session, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*Session, error)

// Resolve implements Source.
func (fn SourceFunc) Resolve(ctx context.Context) (*Session, error) {
	return fn(ctx)
}

// Store persists sessions by id.
type Store interface {
	Get(ctx context.Context, id string) (Session, error)
	Put(ctx context.Context, session Session) error
	Delete(ctx context.Context, id string) error
}

// NewID returns a fresh opaque session id.
func NewID() string {
	return uuid.NewString()
}

// Await blocks until provider stops loading or ctx ends. There is no
// internal timeout: a provider stuck loading blocks until ctx is done.
func Await(ctx context.Context, provider Provider) (State, error) {
	if provider == nil {
		return State{}, nil
	}
	if state := provider.State(); state.Resolved() {
		return state, nil
	}
	updates, cancel := provider.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return State{Loading: true}, ctx.Err()
		case state, ok := <-updates:
			if !ok {
				return provider.State(), nil
			}
			if state.Resolved() {
				return state, nil
			}
		}
	}
}

type providerContextKey struct{}

// WithProvider stores the per-request provider in context.
func WithProvider(ctx context.Context, provider Provider) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, providerContextKey{}, provider)
}

// ProviderFromContext returns the provider stored in context.
func ProviderFromContext(ctx context.Context) (Provider, bool) {
	if ctx == nil {
		return nil, false
	}
	provider, ok := ctx.Value(providerContextKey{}).(Provider)
	return provider, ok && provider != nil
}
