package sessioncookie

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/louisbranch/gatehouse/internal/services/shell/platform/requestmeta"
)

func TestReadTrimsAndRejectsBlank(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/app/", nil)
	if _, ok := Read(req); ok {
		t.Fatal("expected missing cookie")
	}

	req.AddCookie(&http.Cookie{Name: Name, Value: "  "})
	if _, ok := Read(req); ok {
		t.Fatal("expected blank cookie to be rejected")
	}

	req = httptest.NewRequest(http.MethodGet, "/app/", nil)
	req.AddCookie(&http.Cookie{Name: Name, Value: "sess-1"})
	value, ok := Read(req)
	if !ok || value != "sess-1" {
		t.Fatalf("Read() = %q, %v, want %q, true", value, ok, "sess-1")
	}
	if _, ok := Read(nil); ok {
		t.Fatal("expected nil request to have no cookie")
	}
}

func TestWriteSetsHardenedCookie(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "https://app.example.test/login", nil)
	rr := httptest.NewRecorder()
	expiresAt := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	Write(rr, req, " sess-1 ", expiresAt)

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	cookie := cookies[0]
	if cookie.Value != "sess-1" {
		t.Fatalf("Value = %q, want %q", cookie.Value, "sess-1")
	}
	if !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("cookie flags = %+v", cookie)
	}
	if !cookie.Expires.Equal(expiresAt) {
		t.Fatalf("Expires = %v, want %v", cookie.Expires, expiresAt)
	}
}

func TestClearExpiresCookie(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	Clear(rr, httptest.NewRequest(http.MethodPost, "/logout", nil))
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("cookies = %+v, want one expired cookie", cookies)
	}
}

func TestWriteWithPolicyMarksProxiedCookieSecure(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	trusting := requestmeta.SchemePolicy{TrustForwardedProto: true}

	rr := httptest.NewRecorder()
	Write(rr, req, "sess-1", time.Time{})
	if cookies := rr.Result().Cookies(); len(cookies) != 1 || cookies[0].Secure {
		t.Fatalf("cookies = %+v, want one non-secure cookie by default", cookies)
	}

	rr = httptest.NewRecorder()
	WriteWithPolicy(rr, req, "sess-1", time.Time{}, trusting)
	if cookies := rr.Result().Cookies(); len(cookies) != 1 || !cookies[0].Secure {
		t.Fatalf("cookies = %+v, want one secure cookie", cookies)
	}

	rr = httptest.NewRecorder()
	ClearWithPolicy(rr, req, trusting)
	if cookies := rr.Result().Cookies(); len(cookies) != 1 || !cookies[0].Secure || cookies[0].MaxAge >= 0 {
		t.Fatalf("cookies = %+v, want one expired secure cookie", cookies)
	}
}
