package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/hookrelay/modules/webhooks/services"
	"github.com/iota-uz/hookrelay/pkg/application"
)

const missingTunnelParams = "Must include both 'url' and 'data' parameters."

// RelayController exposes the diagnostic tunnel relayers post through.
// Responses are plain text and transport failures come back in the body with
// a 200, because the devices calling this retry forever on anything else.
type RelayController struct {
	app      application.Application
	relay    *services.RelayService
	basePath string
}

func NewRelayController(app application.Application) application.Controller {
	return &RelayController{
		app:      app,
		relay:    app.Service(services.RelayService{}).(*services.RelayService),
		basePath: "/webhooks/tunnel",
	}
}

func (c *RelayController) Key() string {
	return c.basePath
}

func (c *RelayController) Register(r *mux.Router) {
	r.HandleFunc(c.basePath, c.Tunnel).Methods(http.MethodPost)
}

func (c *RelayController) Tunnel(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeTunnelText(w, http.StatusBadRequest, missingTunnelParams)
		return
	}
	// Presence is what counts: an empty value is the caller's problem and
	// surfaces in the relayed response instead.
	if !r.PostForm.Has("url") || !r.PostForm.Has("data") {
		writeTunnelText(w, http.StatusBadRequest, missingTunnelParams)
		return
	}

	out := c.relay.Forward(r.Context(), r.PostForm.Get("url"), r.PostForm.Get("data"))
	writeTunnelText(w, http.StatusOK, out)
}

func writeTunnelText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
