package httpx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-commerce-api/internal/apperr"
	"github.com/ariefcatur/go-commerce-api/internal/auth"
	"github.com/ariefcatur/go-commerce-api/internal/orders"
	"github.com/ariefcatur/go-commerce-api/internal/redisx"
)

const (
	idemPending     = "pending"
	idemSetAttempts = 3
)

type OrdersHandler struct {
	Orders *orders.Workflow
	Redis  *redis.Client // optional, enables Idempotency-Key on create
	Log    *slog.Logger
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/orders", h.listOrders)
	r.Post("/orders", h.createOrder)
	r.Get("/orders/mine", h.listMine)
	r.Get("/orders/state/{state}", h.listByState)
	r.Get("/orders/{id}", h.getOrder)
	r.Put("/orders/{id}", h.updateOrder)
	r.Delete("/orders/{id}", h.deleteOrder)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var in orders.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	caller := callerID(r)
	ctx := r.Context()

	idem := r.Header.Get("Idempotency-Key")
	if idem == "" || h.Redis == nil {
		o, err := h.Orders.Create(ctx, in, caller)
		if err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		writeJSON(w, http.StatusCreated, o)
		return
	}

	if err := auth.RequireCaller(caller); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	key := fmt.Sprintf(redisx.KeyIdemOrderCreate, caller, idem)
	first, err := redisx.Claim(ctx, h.Redis, key, idemPending, redisx.TTLIdempotency)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if !first {
		h.replay(w, r, key, caller)
		return
	}

	o, err := h.Orders.Create(ctx, in, caller)
	if err != nil {
		// Let the client retry with the same key.
		_ = h.Redis.Del(ctx, key).Err()
		writeError(w, r, h.Log, err)
		return
	}
	h.rememberCreated(ctx, key, o.ID)
	writeJSON(w, http.StatusCreated, o)
}

// rememberCreated replaces the pending claim with id. If Redis keeps failing
// the claim is released so retries are not refused for the whole TTL.
func (h *OrdersHandler) rememberCreated(ctx context.Context, key, id string) {
	var err error
	for i := 0; i < idemSetAttempts; i++ {
		if err = h.Redis.Set(ctx, key, id, redisx.TTLIdempotency).Err(); err == nil {
			return
		}
	}
	h.Log.WarnContext(ctx, "idempotency key not stored, releasing claim", "order_id", id, "err", err)
	if err := h.Redis.Del(ctx, key).Err(); err != nil {
		h.Log.ErrorContext(ctx, "idempotency claim not released", "order_id", id, "err", err)
	}
}

func (h *OrdersHandler) replay(w http.ResponseWriter, r *http.Request, key, caller string) {
	id, ok, err := redisx.Lookup(r.Context(), h.Redis, key)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if !ok || id == idemPending {
		writeError(w, r, h.Log, apperr.Conflict("a request with this idempotency key is in progress"))
		return
	}
	o, err := h.Orders.Get(r.Context(), id, caller)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.Header().Set("Idempotent-Replayed", "true")
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var p orders.Patch
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	o, err := h.Orders.Update(r.Context(), chi.URLParam(r, "id"), p, callerID(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.Orders.Delete(r.Context(), chi.URLParam(r, "id"), callerID(r)); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "order deleted"})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.Get(r.Context(), chi.URLParam(r, "id"), callerID(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.List(r.Context(), callerID(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) listMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListForSeller(r.Context(), callerID(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) listByState(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListByState(r.Context(), orders.State(chi.URLParam(r, "state")), callerID(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
