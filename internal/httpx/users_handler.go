package httpx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-commerce-api/internal/users"
)

type UsersHandler struct {
	Users *users.Service
	Log   *slog.Logger
}

type tokenResp struct {
	Token string `json:"token"`
}

func (h *UsersHandler) Register(r chi.Router) {
	r.Post("/users", h.createUser)
	r.Get("/users/me", h.me)
	r.Post("/auth/token", h.authenticate)
}

func (h *UsersHandler) createUser(w http.ResponseWriter, r *http.Request) {
	var in users.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	u, err := h.Users.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *UsersHandler) authenticate(w http.ResponseWriter, r *http.Request) {
	var c users.Credentials
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	tok, err := h.Users.Authenticate(r.Context(), c)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResp{Token: tok})
}

func (h *UsersHandler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.Me(r.Context(), callerID(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
