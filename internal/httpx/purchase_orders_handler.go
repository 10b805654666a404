package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (a *API) registerPurchaseOrders(r chi.Router) {
	r.Route("/purchase-orders", func(r chi.Router) {
		r.Get("/", a.listOrders)
		r.Post("/", a.createOrder)
		r.Get("/{id}", a.getOrder)
		r.Get("/{id}/details", a.getOrderDetails)
		r.Post("/{id}/receive", a.receiveOrder)
	})
}

type createOrderReq struct {
	SupplierID string                     `json:"supplier_id"`
	Items      []domain.PurchaseOrderItem `json:"items"`
}

// createOrder honours an optional Idempotency-Key header, scoped to the actor:
// a replay by the same actor returns the order created by the first request.
func (a *API) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	actor := actorOf(r)

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	reserved := false
	if key != "" && a.Idem != nil {
		existing, ok, err := a.Idem.Reserve(ctx, actor.ID, key)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		if !ok {
			o, err := a.Orders.GetOrder(ctx, actor, existing)
			if err != nil {
				a.writeError(w, r, err)
				return
			}
			w.Header().Set("Idempotent-Replayed", "true")
			writeJSON(w, http.StatusOK, o)
			return
		}
		reserved = true
	}

	o, err := a.Orders.CreateOrder(ctx, actor, req.SupplierID, req.Items)
	if err != nil {
		if reserved {
			if rerr := a.Idem.Release(context.WithoutCancel(ctx), actor.ID, key); rerr != nil {
				a.Log.Warn("release idempotency key", zap.String("key", key), zap.Error(rerr))
			}
		}
		a.writeError(w, r, err)
		return
	}
	if reserved {
		// order sudah tersimpan; kegagalan di sini cuma bikin replay jadi conflict sampai TTL pending habis
		if err := a.Idem.Complete(context.WithoutCancel(ctx), actor.ID, key, o.ID); err != nil {
			a.Log.Warn("complete idempotency key", zap.String("key", key), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusCreated, o)
}

func (a *API) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := a.Orders.ListOrders(r.Context(), actorOf(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (a *API) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := a.Orders.GetOrder(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (a *API) getOrderDetails(w http.ResponseWriter, r *http.Request) {
	d, err := a.Orders.GetOrderDetails(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) receiveOrder(w http.ResponseWriter, r *http.Request) {
	o, err := a.Reconciler.Receive(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
