package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ariefcatur/go-commerce-api/internal/auth"
)

type TokenVerifier interface {
	Verify(raw string) (auth.Identity, error)
}

func NewRouter(tokens TokenVerifier, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(Authenticate(tokens, log))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Authenticate attaches the caller identity when the Authorization header
// carries a valid token. Requests without one, or with a bad one, continue
// unauthenticated and fail later in any operation that needs a caller.
func Authenticate(tokens TokenVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Authorization")
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			id, err := tokens.Verify(raw)
			if err != nil {
				log.DebugContext(r.Context(), "ignoring bad bearer token",
					"request_id", middleware.GetReqID(r.Context()), "err", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// callerID is empty for unauthenticated requests.
func callerID(r *http.Request) string {
	id, err := auth.FromContext(r.Context())
	if err != nil {
		return ""
	}
	return id.UserID
}
