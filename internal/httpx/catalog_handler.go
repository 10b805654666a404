package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/go-chi/chi/v5"
)

func (a *API) registerCatalog(r chi.Router) {
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", a.listCategories)
		r.Post("/", a.createCategory)
		r.Get("/{id}", a.getCategory)
		r.Put("/{id}", a.updateCategory)
		r.Delete("/{id}", a.deleteCategory)
	})
	r.Route("/suppliers", func(r chi.Router) {
		r.Get("/", a.listSuppliers)
		r.Post("/", a.createSupplier)
		r.Get("/{id}", a.getSupplier)
		r.Put("/{id}", a.updateSupplier)
		r.Delete("/{id}", a.deleteSupplier)
	})
	r.Route("/products", func(r chi.Router) {
		r.Get("/", a.listProducts)
		r.Post("/", a.createProduct)
		r.Get("/{id}", a.getProduct)
		r.Put("/{id}", a.updateProduct)
		r.Post("/{id}/stock", a.adjustStock)
		r.Get("/{id}/movements", a.listMovements)
	})
}

func (a *API) listCategories(w http.ResponseWriter, r *http.Request) {
	cs, err := a.Catalog.ListCategories(r.Context(), actorOf(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (a *API) getCategory(w http.ResponseWriter, r *http.Request) {
	c, err := a.Catalog.GetCategory(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) createCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.Category
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	c, err := a.Catalog.CreateCategory(r.Context(), actorOf(r), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) updateCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.Category
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	req.ID = chi.URLParam(r, "id")
	c, err := a.Catalog.UpdateCategory(r.Context(), actorOf(r), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := a.Catalog.DeleteCategory(r.Context(), actorOf(r), chi.URLParam(r, "id")); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listSuppliers(w http.ResponseWriter, r *http.Request) {
	ss, err := a.Catalog.ListSuppliers(r.Context(), actorOf(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ss)
}

func (a *API) getSupplier(w http.ResponseWriter, r *http.Request) {
	sp, err := a.Catalog.GetSupplier(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

// supplierReq leaves out reliability_score, which clients cannot set.
type supplierReq struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

func (q supplierReq) supplier(id string) domain.Supplier {
	return domain.Supplier{ID: id, Name: q.Name, Phone: q.Phone, Email: q.Email, Address: q.Address}
}

func (a *API) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierReq
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	sp, err := a.Catalog.CreateSupplier(r.Context(), actorOf(r), req.supplier(""))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sp)
}

func (a *API) updateSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierReq
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	sp, err := a.Catalog.UpdateSupplier(r.Context(), actorOf(r), req.supplier(chi.URLParam(r, "id")))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

func (a *API) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	if err := a.Catalog.DeleteSupplier(r.Context(), actorOf(r), chi.URLParam(r, "id")); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := a.Catalog.ListProducts(r.Context(), actorOf(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (a *API) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := a.Catalog.GetProduct(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) createProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.Product
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	p, err := a.Catalog.CreateProduct(r.Context(), actorOf(r), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.Product
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	req.ID = chi.URLParam(r, "id")
	p, err := a.Catalog.UpdateProduct(r.Context(), actorOf(r), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
