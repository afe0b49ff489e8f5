package httpx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-commerce-api/internal/auth"
	"github.com/ariefcatur/go-commerce-api/internal/catalog"
)

// ProductsHandler serves the catalog. Reads are public.
type ProductsHandler struct {
	Catalog *catalog.Service
	Log     *slog.Logger
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Post("/products", h.createProduct)
	r.Get("/products/search", h.searchProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Put("/products/{id}", h.updateProduct)
	r.Delete("/products/{id}", h.deleteProduct)
}

func (h *ProductsHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Catalog.List(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) searchProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Catalog.Search(r.Context(), r.URL.Query().Get("text"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	if err := auth.RequireCaller(callerID(r)); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var in catalog.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	p, err := h.Catalog.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductsHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	if err := auth.RequireCaller(callerID(r)); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var in catalog.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	p, err := h.Catalog.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := auth.RequireCaller(callerID(r)); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := h.Catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "product deleted"})
}
