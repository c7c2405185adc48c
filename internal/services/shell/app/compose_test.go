package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/louisbranch/gatehouse/internal/services/shell/platform/requestmeta"
	"github.com/louisbranch/gatehouse/internal/services/shell/platform/sessioncookie"
	"github.com/louisbranch/gatehouse/internal/services/shell/session"
)

func noContent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func signedInRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	resolver := session.NewResolver(nil)
	resolver.SignIn(session.Session{ID: "s1", UserID: "u1"})
	req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: "s1"})
	return req.WithContext(session.WithProvider(req.Context(), resolver))
}

func TestComposeRejectsInvalidMounts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input ComposeInput
	}{
		{name: "duplicate prefix", input: ComposeInput{Public: []Mount{
			{ID: "one", Prefix: "/one/", Handler: noContent()},
			{ID: "two", Prefix: "/one", Handler: noContent()},
		}}},
		{name: "missing id", input: ComposeInput{Public: []Mount{{Prefix: "/one/", Handler: noContent()}}}},
		{name: "missing handler", input: ComposeInput{Public: []Mount{{ID: "one", Prefix: "/one/"}}}},
		{name: "missing prefix", input: ComposeInput{Public: []Mount{{ID: "one", Handler: noContent()}}}},
		{name: "protected prefix in public group", input: ComposeInput{Public: []Mount{{ID: "app", Prefix: "/app/", Handler: noContent()}}}},
		{name: "public prefix in protected group", input: ComposeInput{Protected: []Mount{{ID: "login", Prefix: "/login/", Handler: noContent()}}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Compose(tc.input); err == nil {
				t.Fatal("expected compose error")
			}
		})
	}
}

func TestComposeGuardsProtectedMounts(t *testing.T) {
	t.Parallel()

	h, err := Compose(ComposeInput{Protected: []Mount{{ID: "home", Prefix: "/app/", Handler: noContent()}}})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/app/onboarding", nil))
	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusFound)
	}
	if got := rr.Header().Get("Location"); got != "/login" {
		t.Fatalf("Location = %q, want %q", got, "/login")
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, signedInRequest(http.MethodGet, "/app/"))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
}

func TestComposeMountsPublicWithoutGuard(t *testing.T) {
	t.Parallel()

	h, err := Compose(ComposeInput{Public: []Mount{{ID: "public", Prefix: "/", Handler: noContent()}}})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/login", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
}

func TestProtectedMutationsNeedSameOriginProof(t *testing.T) {
	t.Parallel()

	h, err := Compose(ComposeInput{Protected: []Mount{{ID: "home", Prefix: "/app/", Handler: noContent()}}})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, signedInRequest(http.MethodPost, "/app/onboarding"))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status without proof = %d, want %d", rr.Code, http.StatusForbidden)
	}

	req := signedInRequest(http.MethodPost, "/app/onboarding")
	req.Header.Set("Origin", "http://example.com")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status with proof = %d, want %d", rr.Code, http.StatusNoContent)
	}
}

func TestSameOriginCheckTrustsForwardedProtoWhenEnabled(t *testing.T) {
	t.Parallel()

	newRequest := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/logout", nil)
		req.Host = "gatehouse.example"
		req.Header.Set("Origin", "https://gatehouse.example")
		req.Header.Set("X-Forwarded-Proto", "https")
		req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: "s1"})
		return req
	}

	tests := []struct {
		name   string
		policy requestmeta.SchemePolicy
		want   int
	}{
		{name: "default policy", want: http.StatusForbidden},
		{name: "trusting policy", policy: requestmeta.SchemePolicy{TrustForwardedProto: true}, want: http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h, err := Compose(ComposeInput{
				Public:              []Mount{{ID: "public", Prefix: "/", Handler: noContent()}},
				RequestSchemePolicy: tc.policy,
			})
			if err != nil {
				t.Fatalf("Compose() error = %v", err)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, newRequest())
			if rr.Code != tc.want {
				t.Fatalf("status = %d, want %d", rr.Code, tc.want)
			}
		})
	}
}

func TestCustomGuardIsUsed(t *testing.T) {
	t.Parallel()

	called := false
	h, err := Compose(ComposeInput{
		Protected: []Mount{{ID: "home", Prefix: "/app/", Handler: noContent()}},
		Guard: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				next.ServeHTTP(w, r)
			})
		},
	})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/app/", nil))
	if !called {
		t.Fatal("expected custom guard to run")
	}
}
