package public

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	apperrors "github.com/louisbranch/gatehouse/internal/services/shell/platform/errors"
	"github.com/louisbranch/gatehouse/internal/services/shell/session"
)

const signInUnavailableMessage = "sign-in is not configured"

type service struct {
	store    session.Store
	verifier TokenVerifier
	ttl      time.Duration
	clock    clockwork.Clock
}

func newService(cfg Config) service {
	return service{store: cfg.Store, verifier: cfg.Verifier, ttl: cfg.SessionTTL, clock: cfg.Clock}
}

// signIn turns a verified access token into a stored session. The session
// never outlives the token it was created from.
func (s service) signIn(ctx context.Context, rawToken string) (session.Session, error) {
	if s.verifier == nil {
		return session.Session{}, apperrors.E(apperrors.KindUnavailable, signInUnavailableMessage)
	}
	rawToken = strings.TrimSpace(rawToken)
	claims, err := s.verifier.Verify(rawToken)
	if err != nil {
		return session.Session{}, err
	}
	expiresAt := s.clock.Now().UTC().Add(s.ttl)
	if !claims.ExpiresAt.IsZero() && claims.ExpiresAt.Before(expiresAt) {
		expiresAt = claims.ExpiresAt
	}
	sess := session.Session{
		ID:        session.NewID(),
		UserID:    claims.Subject,
		Token:     rawToken,
		ExpiresAt: expiresAt,
	}
	if err := s.store.Put(ctx, sess); err != nil {
		return session.Session{}, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

func (s service) signOut(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
