// Package views holds the shell's HTML components.
package views

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/louisbranch/gatehouse/internal/platform/endpoint"
	"github.com/louisbranch/gatehouse/internal/services/shell/apiclient"
	"github.com/louisbranch/gatehouse/internal/services/shell/routepath"
)

// Meta tag names exposing the resolved endpoints to client scripts.
const (
	MetaAPIBaseURL = "gatehouse-api-base-url"
	MetaStreamURL  = "gatehouse-stream-url"
	MetaEnv        = "gatehouse-env"
)

func text(s string) string {
	return templ.EscapeString(s)
}

func write(w io.Writer, parts ...string) error {
	for _, part := range parts {
		if _, err := io.WriteString(w, part); err != nil {
			return err
		}
	}
	return nil
}

// Layout renders the document shell around the children in context.
func Layout(title string, endpoints endpoint.Endpoints) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		docTitle := "Gatehouse"
		if trimmed := strings.TrimSpace(title); trimmed != "" {
			docTitle = trimmed + " | Gatehouse"
		}
		if err := write(w,
			`<!doctype html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>`, text(docTitle), `</title>`,
		); err != nil {
			return err
		}
		if endpoints.APIBaseURL != "" {
			if err := write(w,
				`<meta name="`, MetaEnv, `" content="`, text(string(endpoints.Environment)), `">`,
				`<meta name="`, MetaAPIBaseURL, `" content="`, text(endpoints.APIBaseURL), `">`,
				`<meta name="`, MetaStreamURL, `" content="`, text(endpoints.StreamURL), `">`,
			); err != nil {
				return err
			}
		}
		if err := write(w, `</head><body><main id="main">`); err != nil {
			return err
		}
		if err := templ.GetChildren(ctx).Render(ctx, w); err != nil {
			return err
		}
		return write(w, `</main></body></html>`)
	})
}

// Landing is the public entry page.
func Landing() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return write(w,
			`<section class="landing"><h1>Gatehouse</h1>`,
			`<p><a href="`, routepath.Login, `">Sign in</a></p></section>`,
		)
	})
}

// LoginForm asks for an access token issued by the identity provider.
func LoginForm(message string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if err := write(w, `<section class="login"><h1>Sign in</h1>`); err != nil {
			return err
		}
		if message = strings.TrimSpace(message); message != "" {
			if err := write(w, `<p class="error" role="alert">`, text(message), `</p>`); err != nil {
				return err
			}
		}
		return write(w,
			`<form method="post" action="`, routepath.Login, `">`,
			`<label for="access_token">Access token</label>`,
			`<textarea id="access_token" name="access_token" required></textarea>`,
			`<button type="submit">Continue</button></form></section>`,
		)
	})
}

func displayName(profile apiclient.Profile) string {
	if name := strings.TrimSpace(profile.DisplayName); name != "" {
		return name
	}
	return "there"
}

// Home is the signed-in landing page.
func Home(profile apiclient.Profile) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if err := write(w, `<section class="home"><h1>Welcome, `, text(displayName(profile)), `</h1>`); err != nil {
			return err
		}
		if !profile.Onboarded {
			if err := write(w, `<p><a href="`, routepath.Onboarding, `">Finish setting up your account</a></p>`); err != nil {
				return err
			}
		}
		return write(w,
			`<form method="post" action="`, routepath.Logout, `"><button type="submit">Sign out</button></form></section>`,
		)
	})
}

// Onboarding is the entry point of account setup.
func Onboarding(profile apiclient.Profile) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if profile.Onboarded {
			return write(w,
				`<section class="onboarding"><h1>You're all set</h1>`,
				`<p><a href="`, routepath.AppHome, `">Continue</a></p></section>`,
			)
		}
		return write(w,
			`<section class="onboarding"><h1>Set up your account, `, text(displayName(profile)), `</h1>`,
			`<p>Tell us a bit about yourself to get started.</p></section>`,
		)
	})
}

// ErrorState is the body shown for failed requests. It never includes
// internal error details.
func ErrorState(status int) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		code := status
		if code < http.StatusBadRequest {
			code = http.StatusInternalServerError
		}
		heading := "Something went wrong"
		if code == http.StatusNotFound {
			heading = "Page not found"
		}
		return write(w,
			`<section class="error-state" data-status="`, fmt.Sprint(code), `"><h1>`, text(heading), `</h1>`,
			`<p>Please try again. If the problem continues, come back later.</p>`,
			`<p><a href="`, routepath.Root, `">Go home</a></p></section>`,
		)
	})
}

// ErrorTitle is the document title for an error page.
func ErrorTitle(status int) string {
	if status == http.StatusNotFound {
		return "Not found"
	}
	return "Error"
}
