package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/louisbranch/gatehouse/internal/platform/requestctx"
	"github.com/louisbranch/gatehouse/internal/services/shell/session"
)

func protectedHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			t.Error("expected guard in request context")
		}
		_, _ = w.Write([]byte("protected:" + requestctx.UserIDFromContext(r.Context())))
	})
}

func requestWithProvider(provider session.Provider) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/app/", nil)
	if provider == nil {
		return req
	}
	return req.WithContext(session.WithProvider(req.Context(), provider))
}

func resolvedProvider(state session.State) *session.Resolver {
	r := session.NewResolver(nil)
	if state.Session != nil {
		r.SignIn(*state.Session)
	} else {
		r.SignOut()
	}
	return r
}

func TestRequireSession(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		provider     session.Provider
		htmx         bool
		wantStatus   int
		wantLocation string
		wantHXTarget string
		wantBody     string
	}{
		{name: "present session", provider: resolvedProvider(presentState), wantStatus: http.StatusOK, wantBody: "protected:u1"},
		{name: "absent session", provider: resolvedProvider(absentState), wantStatus: http.StatusFound, wantLocation: "/login"},
		{name: "no provider", wantStatus: http.StatusFound, wantLocation: "/login"},
		{name: "htmx absent session", provider: resolvedProvider(absentState), htmx: true, wantStatus: http.StatusOK, wantHXTarget: "/login"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			handler := RequireSession()(protectedHandler(t))
			req := requestWithProvider(tc.provider)
			if tc.htmx {
				req.Header.Set("HX-Request", "true")
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tc.wantStatus)
			}
			if got := rr.Header().Get("Location"); got != tc.wantLocation {
				t.Fatalf("Location = %q, want %q", got, tc.wantLocation)
			}
			if got := rr.Header().Get("HX-Redirect"); got != tc.wantHXTarget {
				t.Fatalf("HX-Redirect = %q, want %q", got, tc.wantHXTarget)
			}
			if tc.wantBody != "" && rr.Body.String() != tc.wantBody {
				t.Fatalf("body = %q, want %q", rr.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestRequireSessionWaitsForResolution(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	resolver := session.NewResolver(session.SourceFunc(func(context.Context) (*session.Session, error) {
		<-release
		return &session.Session{ID: "s1", UserID: "u1"}, nil
	}))
	go resolver.Refresh(context.Background())

	handler := RequireSession()(protectedHandler(t))
	rr := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(rr, requestWithProvider(resolver))
	}()

	select {
	case <-done:
		t.Fatal("handler finished while session was loading")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not finish after resolution")
	}
	if rr.Code != http.StatusOK || rr.Body.String() != "protected:u1" {
		t.Fatalf("response = %d %q, want 200 protected:u1", rr.Code, rr.Body.String())
	}
}

func TestRequireSessionWritesNothingWhenClientLeavesWhileLoading(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := requestWithProvider(session.NewResolver(nil)).WithContext(ctx)
	req = req.WithContext(session.WithProvider(req.Context(), session.NewResolver(nil)))

	called := false
	handler := RequireSession()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if called {
		t.Fatal("protected handler must not run while loading")
	}
	if rr.Body.Len() != 0 || rr.Header().Get("Location") != "" {
		t.Fatalf("response = %d %q, want nothing written", rr.Code, rr.Body.String())
	}
}

func TestRequireSessionCustomLoginPath(t *testing.T) {
	t.Parallel()

	handler := RequireSession(WithLoginPath("/signin"))(protectedHandler(t))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, requestWithProvider(resolvedProvider(absentState)))
	if got := rr.Header().Get("Location"); got != "/signin" {
		t.Fatalf("Location = %q, want %q", got, "/signin")
	}
}
