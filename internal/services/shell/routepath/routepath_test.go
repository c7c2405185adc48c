package routepath

import "testing"

func TestTopLevelRouteConstants(t *testing.T) {
	t.Parallel()

	if Root != "/" {
		t.Fatalf("Root = %q", Root)
	}
	if Login != "/login" {
		t.Fatalf("Login = %q", Login)
	}
	if Logout != "/logout" {
		t.Fatalf("Logout = %q", Logout)
	}
	if Health != "/up" {
		t.Fatalf("Health = %q", Health)
	}
	if Onboarding != "/app/onboarding" {
		t.Fatalf("Onboarding = %q", Onboarding)
	}
}

func TestIsProtected(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"/app/":           true,
		"/app/onboarding": true,
		"/app":            false,
		"/login":          false,
		"/":               false,
		"/apple/":         false,
	}
	for path, want := range tests {
		if got := IsProtected(path); got != want {
			t.Fatalf("IsProtected(%q) = %t, want %t", path, got, want)
		}
	}
}
