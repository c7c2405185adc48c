// Package routepath centralizes shell route paths.
package routepath

const (
	Root   = "/"
	Login  = "/login"
	Logout = "/logout"
	Health = "/up"

	// AppPrefix owns every protected route.
	AppPrefix  = "/app/"
	AppHome    = "/app/"
	Onboarding = "/app/onboarding"
)

// IsProtected reports whether path sits under AppPrefix.
func IsProtected(path string) bool {
	return len(path) >= len(AppPrefix) && path[:len(AppPrefix)] == AppPrefix
}
