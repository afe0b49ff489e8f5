package httpx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-commerce-api/internal/clients"
)

type ClientsHandler struct {
	Clients *clients.Service
	Log     *slog.Logger
}

func (h *ClientsHandler) Register(r chi.Router) {
	r.Get("/clients", h.listClients)
	r.Post("/clients", h.createClient)
	r.Get("/clients/mine", h.listMine)
	r.Get("/clients/{id}", h.getClient)
	r.Put("/clients/{id}", h.updateClient)
	r.Delete("/clients/{id}", h.deleteClient)
}

func (h *ClientsHandler) listClients(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Clients.List(r.Context(), callerID(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *ClientsHandler) listMine(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Clients.ListForSeller(r.Context(), callerID(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *ClientsHandler) getClient(w http.ResponseWriter, r *http.Request) {
	c, err := h.Clients.Get(r.Context(), chi.URLParam(r, "id"), callerID(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ClientsHandler) createClient(w http.ResponseWriter, r *http.Request) {
	var in clients.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	c, err := h.Clients.Create(r.Context(), in, callerID(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ClientsHandler) updateClient(w http.ResponseWriter, r *http.Request) {
	var in clients.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	c, err := h.Clients.Update(r.Context(), chi.URLParam(r, "id"), in, callerID(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ClientsHandler) deleteClient(w http.ResponseWriter, r *http.Request) {
	if err := h.Clients.Delete(r.Context(), chi.URLParam(r, "id"), callerID(r)); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "client deleted"})
}
