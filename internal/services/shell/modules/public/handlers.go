package public

import (
	"log"
	"net/http"

	apperrors "github.com/louisbranch/gatehouse/internal/services/shell/platform/errors"
	"github.com/louisbranch/gatehouse/internal/services/shell/platform/httpx"
	"github.com/louisbranch/gatehouse/internal/services/shell/platform/pagerender"
	"github.com/louisbranch/gatehouse/internal/services/shell/platform/requestmeta"
	"github.com/louisbranch/gatehouse/internal/services/shell/platform/sessioncookie"
	"github.com/louisbranch/gatehouse/internal/services/shell/platform/weberror"
	"github.com/louisbranch/gatehouse/internal/services/shell/routepath"
	"github.com/louisbranch/gatehouse/internal/services/shell/session"
	"github.com/louisbranch/gatehouse/internal/services/shell/views"
)

type handlers struct {
	service service
	policy  requestmeta.SchemePolicy
}

func (h handlers) handleRoot(w http.ResponseWriter, r *http.Request) {
	if signedIn(r) {
		httpx.WriteRedirect(w, r, routepath.AppHome)
		return
	}
	h.writePage(w, r, pagerender.Page{Fragment: views.Landing()})
}

func (h handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	if signedIn(r) {
		httpx.WriteRedirect(w, r, routepath.AppHome)
		return
	}
	h.writeLoginForm(w, r, http.StatusOK, "")
}

func (h handlers) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeLoginForm(w, r, http.StatusBadRequest, "Invalid form submission.")
		return
	}
	sess, err := h.service.signIn(r.Context(), r.PostForm.Get("access_token"))
	if err != nil {
		status := apperrors.HTTPStatus(err)
		if status == http.StatusInternalServerError {
			log.Printf("sign in: %v", err)
			weberror.WriteError(w, r, err)
			return
		}
		h.writeLoginForm(w, r, loginFailureStatus(status), loginFailureMessage(status))
		return
	}
	sessioncookie.WriteWithPolicy(w, r, sess.ID, sess.ExpiresAt, h.policy)
	httpx.WriteRedirect(w, r, routepath.AppHome)
}

func (h handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := sessioncookie.Read(r)
	if err := h.service.signOut(r.Context(), sessionID); err != nil {
		log.Printf("sign out: %v", err)
	}
	sessioncookie.ClearWithPolicy(w, r, h.policy)
	httpx.WriteRedirect(w, r, routepath.Login)
}

func (h handlers) handleNotFound(w http.ResponseWriter, r *http.Request) {
	weberror.WriteAppError(w, r, http.StatusNotFound)
}

func (h handlers) writeLoginForm(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.writePage(w, r, pagerender.Page{Title: "Sign in", StatusCode: status, Fragment: views.LoginForm(message)})
}

func (handlers) writePage(w http.ResponseWriter, r *http.Request, page pagerender.Page) {
	if err := pagerender.WritePage(w, r, page); err != nil {
		log.Printf("render page path=%s: %v", r.URL.Path, err)
	}
}

// loginFailureStatus keeps rejected tokens at 401.
func loginFailureStatus(status int) int {
	if status == http.StatusServiceUnavailable {
		return status
	}
	return http.StatusUnauthorized
}

func loginFailureMessage(status int) string {
	if status == http.StatusServiceUnavailable {
		return "Sign-in is unavailable right now."
	}
	return "That access token was not accepted."
}

// signedIn reports whether the request's session resolved present. A request
// without a provider counts as signed out.
func signedIn(r *http.Request) bool {
	provider, ok := session.ProviderFromContext(r.Context())
	if !ok {
		return false
	}
	state, err := session.Await(r.Context(), provider)
	return err == nil && state.Present()
}
