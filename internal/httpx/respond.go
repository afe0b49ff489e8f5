package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ariefcatur/go-commerce-api/internal/apperr"
)

type errorBody struct {
	Error   apperr.Kind `json:"error"`
	Message string      `json:"message"`
}

type stockErrorBody struct {
	errorBody
	Product   string `json:"product"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

type messageBody struct {
	Message string `json:"message"`
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindForbidden:         http.StatusForbidden,
	apperr.KindUnauthenticated:   http.StatusUnauthorized,
	apperr.KindInsufficientStock: http.StatusConflict,
	apperr.KindConflict:          http.StatusConflict,
	apperr.KindInvalid:           http.StatusBadRequest,
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status and body. Unclassified errors are logged
// and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var se *apperr.InsufficientStockError
	if errors.As(err, &se) {
		writeJSON(w, http.StatusConflict, stockErrorBody{
			errorBody: errorBody{Error: apperr.KindInsufficientStock, Message: se.Error()},
			Product:   se.ProductName,
			Requested: se.Requested,
			Available: se.Available,
		})
		return
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		if code, ok := statusByKind[ae.Kind]; ok {
			writeJSON(w, code, errorBody{Error: ae.Kind, Message: ae.Message})
			return
		}
	}

	log.ErrorContext(r.Context(), "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"err", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: apperr.KindInternal, Message: "internal server error"})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Invalid("invalid json")
	}
	return nil
}
