// Package redis provides a Redis-backed session store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/louisbranch/gatehouse/internal/services/shell/session"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces session keys when no prefix is given.
const DefaultPrefix = "gatehouse"

// Store persists sessions as JSON values with a TTL matching their lifetime.
type Store struct {
	client goredis.UniversalClient
	prefix string
	clock  clockwork.Clock
}

type record struct {
	ID        string `json:"id"`
	UserID    string `json:"uid"`
	Token     string `json:"tok,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
}

// New returns a Store that writes keys under prefix.
func New(client goredis.UniversalClient, prefix string) *Store {
	return NewWithClock(client, prefix, clockwork.NewRealClock())
}

// NewWithClock is New with an explicit clock for TTL calculation.
func NewWithClock(client goredis.UniversalClient, prefix string, clock clockwork.Clock) *Store {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{client: client, prefix: prefix, clock: clock}
}

func (s *Store) key(id string) string {
	return s.prefix + ":sess:" + strings.TrimSpace(id)
}

// Put stores sess. A session already past its expiry is removed instead.
func (s *Store) Put(ctx context.Context, sess session.Session) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := session.Validate(sess); err != nil {
		return err
	}
	var ttl time.Duration
	if !sess.ExpiresAt.IsZero() {
		ttl = sess.ExpiresAt.Sub(s.clock.Now())
		if ttl <= 0 {
			return s.Delete(ctx, sess.ID)
		}
	}
	rec := record{ID: sess.ID, UserID: sess.UserID, Token: sess.Token}
	if !sess.ExpiresAt.IsZero() {
		rec.ExpiresAt = sess.ExpiresAt.UTC().UnixMilli()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sess.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// Get returns one session by id.
func (s *Store) Get(ctx context.Context, id string) (session.Session, error) {
	if s == nil || s.client == nil {
		return session.Session{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return session.Session{}, session.ErrNotFound
	}
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return session.Session{}, session.ErrNotFound
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("get session: %w", err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return session.Session{}, fmt.Errorf("decode session: %w", err)
	}
	sess := session.Session{ID: rec.ID, UserID: rec.UserID, Token: rec.Token}
	if rec.ExpiresAt != 0 {
		sess.ExpiresAt = time.UnixMilli(rec.ExpiresAt).UTC()
	}
	return sess, nil
}

// Delete removes one session. Unknown ids are not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("storage is not configured")
	}
	return s.client.Ping(ctx).Err()
}

var _ session.Store = (*Store)(nil)
