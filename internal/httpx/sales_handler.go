package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/ariefcatur/go-retail-ledger/internal/sales"
	"github.com/go-chi/chi/v5"
)

func (a *API) registerSales(r chi.Router) {
	r.Route("/sales", func(r chi.Router) {
		r.Get("/", a.listSales)
		r.Post("/", a.recordSale)
		r.Get("/{id}", a.getSale)
	})
}

type recordSaleReq struct {
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	Lines         []sales.LineInput    `json:"lines"`
}

func (a *API) recordSale(w http.ResponseWriter, r *http.Request) {
	var req recordSaleReq
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	s, err := a.Sales.RecordSale(r.Context(), actorOf(r), req.PaymentMethod, req.Lines)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (a *API) listSales(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 50)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	ss, err := a.Sales.ListSales(r.Context(), actorOf(r), limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ss)
}

func (a *API) getSale(w http.ResponseWriter, r *http.Request) {
	s, err := a.Sales.GetSale(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
