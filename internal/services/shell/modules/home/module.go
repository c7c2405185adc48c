// Package home serves the signed-in surface under /app/.
package home

import (
	"log"
	"net/http"

	"github.com/louisbranch/gatehouse/internal/services/shell/app"
	"github.com/louisbranch/gatehouse/internal/services/shell/appstate"
	"github.com/louisbranch/gatehouse/internal/services/shell/guard"
	"github.com/louisbranch/gatehouse/internal/services/shell/platform/pagerender"
	"github.com/louisbranch/gatehouse/internal/services/shell/platform/weberror"
	"github.com/louisbranch/gatehouse/internal/services/shell/routepath"
	"github.com/louisbranch/gatehouse/internal/services/shell/views"
)

// New builds the protected mount. Handlers rely on the guard and the domain
// layer being installed around them.
func New() app.Mount {
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+routepath.AppHome+"{$}", handleHome)
	mux.HandleFunc(http.MethodGet+" "+routepath.Onboarding, handleOnboarding)
	mux.HandleFunc(routepath.AppPrefix+"{rest...}", func(w http.ResponseWriter, r *http.Request) {
		weberror.WriteAppError(w, r, http.StatusNotFound)
	})
	return app.Mount{ID: "home", Prefix: routepath.AppPrefix, Handler: mux}
}

func handleHome(w http.ResponseWriter, r *http.Request) {
	state, ok := appstate.LoadOrFail(r)
	if !ok {
		return
	}
	writePage(w, r, pagerender.Page{Title: "Home", Fragment: guard.Protect(views.Home(state.Profile))})
}

func handleOnboarding(w http.ResponseWriter, r *http.Request) {
	state, ok := appstate.LoadOrFail(r)
	if !ok {
		return
	}
	writePage(w, r, pagerender.Page{Title: "Get started", Fragment: guard.Protect(views.Onboarding(state.Profile))})
}

func writePage(w http.ResponseWriter, r *http.Request, page pagerender.Page) {
	if err := pagerender.WritePage(w, r, page); err != nil {
		log.Printf("render page path=%s: %v", r.URL.Path, err)
	}
}
