package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-retail-ledger/internal/notify"
	"github.com/go-chi/chi/v5"
)

func (a *API) registerNotifications(r chi.Router) {
	r.Get("/notifications", a.listNotifications)
	r.Post("/notifications/{id}/ack", a.ackNotification)
}

func (a *API) listNotifications(w http.ResponseWriter, r *http.Request) {
	status, err := notify.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	ns, err := a.Notify.List(r.Context(), actorOf(r), notify.Filter{Status: status})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ns)
}

func (a *API) ackNotification(w http.ResponseWriter, r *http.Request) {
	n, err := a.Notify.Acknowledge(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}
