// Package weberror renders shell error responses.
package weberror

import (
	"context"
	"io"
	"log"
	"net/http"

	"github.com/a-h/templ"
	"github.com/louisbranch/gatehouse/internal/platform/endpoint"
	"github.com/louisbranch/gatehouse/internal/services/shell/compose"
	apperrors "github.com/louisbranch/gatehouse/internal/services/shell/platform/errors"
	"github.com/louisbranch/gatehouse/internal/services/shell/platform/pagerender"
	"github.com/louisbranch/gatehouse/internal/services/shell/views"
)

// ShouldRenderAppError reports whether status should use the error page.
func ShouldRenderAppError(statusCode int) bool {
	return statusCode == http.StatusNotFound || statusCode >= http.StatusInternalServerError
}

// PublicMessage returns a user-safe message for err.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	statusCode := apperrors.HTTPStatus(err)
	if statusCode < http.StatusBadRequest {
		statusCode = http.StatusInternalServerError
	}
	return http.StatusText(statusCode)
}

// WriteAppError writes the error page for statusCode.
func WriteAppError(w http.ResponseWriter, r *http.Request, statusCode int) {
	if w == nil {
		return
	}
	if !ShouldRenderAppError(statusCode) {
		statusCode = http.StatusInternalServerError
	}
	if err := pagerender.WritePage(w, r, pagerender.Page{
		Title:      views.ErrorTitle(statusCode),
		StatusCode: statusCode,
		Fragment:   views.ErrorState(statusCode),
	}); err != nil {
		log.Printf("render error page status=%d: %v", statusCode, err)
	}
}

// WriteError writes a response for err: the error page for not-found and
// server failures, a plain status message otherwise.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if w == nil {
		return
	}
	statusCode := apperrors.HTTPStatus(err)
	if ShouldRenderAppError(statusCode) {
		WriteAppError(w, r, statusCode)
		return
	}
	http.Error(w, PublicMessage(err), statusCode)
}

// Fallback is the error boundary's view for contained failures.
func Fallback(compose.Failure) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return views.Layout(views.ErrorTitle(http.StatusInternalServerError), endpoint.Endpoints{}).
			Render(templ.WithChildren(ctx, views.ErrorState(http.StatusInternalServerError)), w)
	})
}
