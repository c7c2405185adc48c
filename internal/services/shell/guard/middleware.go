package guard

import (
	"net/http"

	"github.com/louisbranch/gatehouse/internal/platform/requestctx"
	"github.com/louisbranch/gatehouse/internal/services/shell/platform/httpx"
	"github.com/louisbranch/gatehouse/internal/services/shell/session"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RequireSession serves next only to requests whose session provider
// resolves to a present session. Unauthenticated requests are redirected to
// the login path. A request whose client goes away while the session is
// still loading gets no response.
func RequireSession(opts ...Option) httpx.Middleware {
	cfg := newConfig(opts)
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			provider, ok := session.ProviderFromContext(ctx)
			if !ok {
				provider = absentProvider{}
			}
			state, err := session.Await(ctx, provider)
			if err != nil {
				return
			}

			g := newGuard(httpNavigator(w, r), cfg)
			status := g.Observe(state)
			trace.SpanFromContext(ctx).AddEvent("guard.evaluated", trace.WithAttributes(
				attribute.String("guard.status", status.String()),
			))
			if status != StatusAuthenticated {
				return
			}

			ctx = WithGuard(ctx, g)
			ctx = requestctx.WithUserID(ctx, state.Session.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func httpNavigator(w http.ResponseWriter, r *http.Request) Navigator {
	return NavigatorFunc(func(path string) {
		httpx.WriteRedirect(w, r, path)
	})
}

// absentProvider stands in when no provider was attached to a request.
type absentProvider struct{}

func (absentProvider) State() session.State { return session.State{} }

func (absentProvider) Subscribe() (<-chan session.State, func()) {
	ch := make(chan session.State, 1)
	ch <- session.State{}
	return ch, func() {}
}
