// Package token verifies externally issued access tokens before they become
// shell sessions.
package token

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	apperrors "github.com/louisbranch/gatehouse/internal/services/shell/platform/errors"
)

// Config defines how access tokens are verified.
type Config struct {
	Secret   []byte
	Issuer   string
	Audience string
	Clock    clockwork.Clock
}

// Claims captures the verified claims the shell relies on.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Verifier validates HS256 access tokens.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	clock    clockwork.Clock
}

// NewVerifier builds a Verifier. The secret is required.
func NewVerifier(cfg Config) (*Verifier, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Verifier{
		secret:   cfg.Secret,
		issuer:   strings.TrimSpace(cfg.Issuer),
		audience: strings.TrimSpace(cfg.Audience),
		clock:    clock,
	}, nil
}

// Verify parses raw and validates its signature and claims.
func (v *Verifier) Verify(raw string) (Claims, error) {
	if v == nil {
		return Claims{}, errors.New("token verifier is not configured")
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, apperrors.E(apperrors.KindInvalidInput, "access token is required")
	}

	var parsed jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if v.issuer != "" && parsed.Issuer != v.issuer {
		return Claims{}, apperrors.E(apperrors.KindUnauthorized, "access token issuer mismatch")
	}
	if v.audience != "" && !slices.Contains(parsed.Audience, v.audience) {
		return Claims{}, apperrors.E(apperrors.KindUnauthorized, "access token audience mismatch")
	}
	subject := strings.TrimSpace(parsed.Subject)
	if subject == "" {
		return Claims{}, apperrors.E(apperrors.KindUnauthorized, "access token sub is required")
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.E(apperrors.KindUnauthorized, "access token exp is required")
	}

	now := v.clock.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return Claims{}, apperrors.E(apperrors.KindUnauthorized, "access token is expired")
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time.UTC()) {
		return Claims{}, apperrors.E(apperrors.KindUnauthorized, "access token not active yet")
	}
	return Claims{Subject: subject, ExpiresAt: exp}, nil
}

// Sign issues an HS256 token for subject. Local development and tests use it
// to stand in for the external identity provider.
func Sign(secret []byte, issuer, audience, subject string, expiresAt time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("token secret is required")
	}
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return apperrors.Wrap(apperrors.KindInvalidInput, "access token is malformed", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return apperrors.Wrap(apperrors.KindUnauthorized, "access token signature is invalid", err)
	default:
		return apperrors.Wrap(apperrors.KindUnauthorized, "access token is invalid", err)
	}
}
