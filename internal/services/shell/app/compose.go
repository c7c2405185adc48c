// Package app mounts shell route groups: public mounts as-is, protected
// mounts behind the session guard and the same-origin check.
package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/louisbranch/gatehouse/internal/services/shell/guard"
	"github.com/louisbranch/gatehouse/internal/services/shell/platform/httpx"
	"github.com/louisbranch/gatehouse/internal/services/shell/platform/requestmeta"
	"github.com/louisbranch/gatehouse/internal/services/shell/platform/sessioncookie"
	"github.com/louisbranch/gatehouse/internal/services/shell/routepath"
)

// Mount is one route group owned by a named feature.
type Mount struct {
	ID      string
	Prefix  string
	Handler http.Handler
}

// ComposeInput carries route groups and the guard protecting them.
type ComposeInput struct {
	Public    []Mount
	Protected []Mount
	// Guard wraps protected mounts. Defaults to guard.RequireSession.
	Guard httpx.Middleware
	// RequestSchemePolicy decides the scheme used by the same-origin check.
	RequestSchemePolicy requestmeta.SchemePolicy
}

// Compose builds a mux from route groups.
func Compose(input ComposeInput) (http.Handler, error) {
	root := http.NewServeMux()
	if input.Guard == nil {
		input.Guard = guard.RequireSession()
	}
	seen := make(map[string]string)
	sameOrigin := RequireCookieSessionSameOrigin(input.RequestSchemePolicy)

	for _, mount := range input.Public {
		prefix, err := resolveMount(mount)
		if err != nil {
			return nil, err
		}
		if routepath.IsProtected(prefix) {
			return nil, fmt.Errorf("mount %q has protected prefix %q in public group", mount.ID, prefix)
		}
		if err := mountHandler(root, mount, prefix, seen, sameOrigin); err != nil {
			return nil, err
		}
	}

	protect := wrapProtected(input.Guard, sameOrigin)
	for _, mount := range input.Protected {
		prefix, err := resolveMount(mount)
		if err != nil {
			return nil, err
		}
		if !routepath.IsProtected(prefix) {
			return nil, fmt.Errorf("mount %q must sit under %s, got %q", mount.ID, routepath.AppPrefix, prefix)
		}
		if err := mountHandler(root, mount, prefix, seen, protect); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func mountHandler(root *http.ServeMux, mount Mount, prefix string, seen map[string]string, wrap httpx.Middleware) error {
	if previous, ok := seen[prefix]; ok {
		return fmt.Errorf("mount %q duplicates prefix %q owned by %q", mount.ID, prefix, previous)
	}
	seen[prefix] = mount.ID
	root.Handle(prefix, wrap(mount.Handler))
	return nil
}

func resolveMount(mount Mount) (string, error) {
	if strings.TrimSpace(mount.ID) == "" {
		return "", fmt.Errorf("mount id is required")
	}
	if mount.Handler == nil {
		return "", fmt.Errorf("mount %q: handler is required", mount.ID)
	}
	prefix := normalizePrefix(mount.Prefix)
	if prefix == "" {
		return "", fmt.Errorf("mount %q: prefix is required", mount.ID)
	}
	return prefix, nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

func wrapProtected(guardWrap, csrfWrap httpx.Middleware) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return guardWrap(csrfWrap(next))
	}
}

// RequireCookieSessionSameOrigin rejects cookie-authenticated mutations that
// carry no same-origin proof. policy decides whether a proxy's
// X-Forwarded-Proto names the request scheme.
func RequireCookieSessionSameOrigin(policy requestmeta.SchemePolicy) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isMutationMethod(r) || !hasSessionCookie(r) {
				next.ServeHTTP(w, r)
				return
			}
			if !requestmeta.HasSameOriginProofWithPolicy(r, policy) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isMutationMethod(r *http.Request) bool {
	if r == nil {
		return false
	}
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func hasSessionCookie(r *http.Request) bool {
	_, ok := sessioncookie.Read(r)
	return ok
}
