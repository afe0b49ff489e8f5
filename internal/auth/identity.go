package auth

import (
	"context"

	"github.com/ariefcatur/go-commerce-api/internal/apperr"
)

// Identity is the authenticated caller, as carried by the bearer token.
type Identity struct {
	UserID  string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the caller, or an Unauthenticated error when the request
// carried no valid credential.
func FromContext(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, apperr.Unauthenticated("authentication required")
	}
	return id, nil
}

// RequireCaller rejects an empty caller id.
func RequireCaller(callerID string) error {
	if callerID == "" {
		return apperr.Unauthenticated("authentication required")
	}
	return nil
}
