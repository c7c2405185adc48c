// Package pagerender centralizes shell page rendering.
package pagerender

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/louisbranch/gatehouse/internal/services/shell/appstate"
	"github.com/louisbranch/gatehouse/internal/services/shell/platform/httpx"
	"github.com/louisbranch/gatehouse/internal/services/shell/views"
)

// Page describes one page response for both full-page and HTMX flows.
type Page struct {
	Title      string
	StatusCode int
	Fragment   templ.Component
}

// WritePage renders page inside the layout, or the fragment alone for HTMX
// requests.
func WritePage(w http.ResponseWriter, r *http.Request, page Page) error {
	if w == nil {
		return nil
	}
	statusCode := page.StatusCode
	if statusCode <= 0 {
		statusCode = http.StatusOK
	}
	fragment := page.Fragment
	if fragment == nil {
		fragment = templ.NopComponent
	}
	ctx := httpx.RequestContext(r)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if httpx.IsHTMXRequest(r) {
		return fragment.Render(ctx, w)
	}
	endpoints, _ := appstate.Endpoints(r)
	return views.Layout(page.Title, endpoints).Render(templ.WithChildren(ctx, fragment), w)
}
