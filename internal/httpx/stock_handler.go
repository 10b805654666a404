package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/go-chi/chi/v5"
)

func (a *API) registerStock(r chi.Router) {
	r.Post("/stock/adjustments", a.adjustBatch)
}

type adjustReq struct {
	Delta  int           `json:"delta"`
	Reason domain.Reason `json:"reason"`
}

func reasonOrManual(r domain.Reason) domain.Reason {
	if r == "" {
		return domain.ReasonManualAdjustment
	}
	return r
}

// adjustStock returns the movement the adjustment produced.
func (a *API) adjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustReq
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	m, err := a.Ledger.Adjust(r.Context(), actorOf(r), chi.URLParam(r, "id"), req.Delta, reasonOrManual(req.Reason))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type adjustBatchReq struct {
	Reason      domain.Reason       `json:"reason"`
	Adjustments []domain.StockDelta `json:"adjustments"`
}

func (a *API) adjustBatch(w http.ResponseWriter, r *http.Request) {
	var req adjustBatchReq
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	ms, err := a.Ledger.AdjustBatch(r.Context(), actorOf(r), req.Adjustments, reasonOrManual(req.Reason))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

func (a *API) listMovements(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 50)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	ms, err := a.Ledger.Movements(r.Context(), actorOf(r), chi.URLParam(r, "id"), limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}
