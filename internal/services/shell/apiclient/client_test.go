package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/louisbranch/gatehouse/internal/services/shell/platform/errors"
)

func TestNewValidatesBaseURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "  ", "ftp://example.com", "://bad"} {
		if _, err := New(raw, nil); err == nil {
			t.Fatalf("New(%q) error = nil, want error", raw)
		}
	}
	client, err := New("http://localhost:8080/", nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if client.BaseURL() != "http://localhost:8080" {
		t.Fatalf("BaseURL() = %q, want %q", client.BaseURL(), "http://localhost:8080")
	}
}

func TestMeSendsBearerToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/me" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/api/v1/me")
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer tok-1")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Profile{UserID: "u1", DisplayName: "Ada", Onboarded: true})
	}))
	t.Cleanup(srv.Close)

	client, err := New(srv.URL+"/api", srv.Client())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	profile, err := client.Me(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if profile.UserID != "u1" || profile.DisplayName != "Ada" || !profile.Onboarded {
		t.Fatalf("Me() = %+v, want u1 Ada onboarded", profile)
	}
}

func TestFetchMapsStatusToKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   apperrors.Kind
	}{
		{status: http.StatusUnauthorized, want: apperrors.KindUnauthorized},
		{status: http.StatusForbidden, want: apperrors.KindForbidden},
		{status: http.StatusNotFound, want: apperrors.KindNotFound},
		{status: http.StatusServiceUnavailable, want: apperrors.KindUnavailable},
		{status: http.StatusInternalServerError, want: apperrors.KindUnknown},
	}
	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tc.status)
			}))
			t.Cleanup(srv.Close)

			client, err := New(srv.URL, srv.Client())
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			err = client.Fetch(context.Background(), "", http.MethodGet, "/v1/me", nil, nil)
			if got := apperrors.KindOf(err); got != tc.want {
				t.Fatalf("KindOf() = %q, want %q (err = %v)", got, tc.want, err)
			}
		})
	}
}

func TestFetchSendsJSONBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", got)
		}
		if r.URL.RawQuery != "step=2" {
			t.Errorf("query = %q, want %q", r.URL.RawQuery, "step=2")
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if payload["name"] != "Ada" {
			t.Errorf("name = %q, want Ada", payload["name"])
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	client, err := New(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	var out map[string]string
	if err := client.Fetch(context.Background(), "tok", http.MethodPost, "v1/onboarding?step=2", map[string]string{"name": "Ada"}, &out); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
}

func TestPingUnreachableIsUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := New(url, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := client.Ping(context.Background()); apperrors.KindOf(err) != apperrors.KindUnavailable {
		t.Fatalf("Ping() error = %v, want unavailable", err)
	}
}

func TestNilClient(t *testing.T) {
	t.Parallel()

	var client *Client
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from nil client")
	}
}
