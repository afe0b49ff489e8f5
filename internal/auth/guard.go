package auth

import (
	"context"

	"github.com/ariefcatur/go-commerce-api/internal/apperr"
)

// Owned loads a seller-scoped record and checks that callerID owns it.
// Load failures (NotFound included) are returned unchanged; a record owned by
// someone else yields Forbidden.
func Owned[T any](ctx context.Context, callerID string, load func(context.Context) (T, error), owner func(T) string) (T, error) {
	var zero T
	if err := RequireCaller(callerID); err != nil {
		return zero, err
	}
	rec, err := load(ctx)
	if err != nil {
		return zero, err
	}
	if owner(rec) != callerID {
		return zero, apperr.Forbidden("you do not have permission to access this resource")
	}
	return rec, nil
}
