package public

import (
	"net/http"

	"github.com/louisbranch/gatehouse/internal/services/shell/platform/httpx"
	"github.com/louisbranch/gatehouse/internal/services/shell/routepath"
)

func registerRoutes(mux *http.ServeMux, h handlers) {
	if mux == nil {
		return
	}
	mux.HandleFunc(http.MethodGet+" "+routepath.Root+"{$}", h.handleRoot)
	mux.HandleFunc(http.MethodGet+" "+routepath.Login, h.handleLogin)
	mux.HandleFunc(http.MethodPost+" "+routepath.Login, h.handleLoginSubmit)

	mux.HandleFunc(http.MethodPost+" "+routepath.Logout, h.handleLogout)
	mux.Handle(http.MethodGet+" "+routepath.Logout, httpx.RequireMethod(http.MethodPost)(nil))

	mux.HandleFunc("/{rest...}", h.handleNotFound)
}
