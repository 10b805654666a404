package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (a *API) registerReports(r chi.Router) {
	r.Get("/dashboard/stats", a.dashboardStats)
	r.Route("/reports", func(r chi.Router) {
		r.Get("/sales-by-date", a.salesByDate)
		r.Get("/category-sales", a.categorySales)
		r.Get("/top-products", a.topProducts)
	})
}

func (a *API) dashboardStats(w http.ResponseWriter, r *http.Request) {
	st, err := a.Reports.DashboardStats(r.Context(), actorOf(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) salesByDate(w http.ResponseWriter, r *http.Request) {
	days, err := intQuery(r, "days", 7)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out, err := a.Reports.SalesByDate(r.Context(), actorOf(r), days)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) categorySales(w http.ResponseWriter, r *http.Request) {
	out, err := a.Reports.CategorySales(r.Context(), actorOf(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) topProducts(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 5)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out, err := a.Reports.TopProducts(r.Context(), actorOf(r), limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
