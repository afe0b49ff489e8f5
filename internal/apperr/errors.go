// Package apperr holds the error kinds surfaced to API callers.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindUnauthenticated   Kind = "unauthenticated"
	KindInsufficientStock Kind = "insufficient_stock"
	KindConflict          Kind = "conflict"
	KindInvalid           Kind = "invalid"
	KindInternal          Kind = "internal"
)

// Error is a caller-facing failure. Message is safe to show; Err is the
// optional lower-level cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error  { return newf(KindNotFound, format, args...) }
func Forbidden(format string, args ...any) *Error { return newf(KindForbidden, format, args...) }
func Conflict(format string, args ...any) *Error  { return newf(KindConflict, format, args...) }
func Invalid(format string, args ...any) *Error   { return newf(KindInvalid, format, args...) }

func Unauthenticated(format string, args ...any) *Error {
	return newf(KindUnauthenticated, format, args...)
}

// Wrap marks err with kind k, keeping it as the cause.
func Wrap(k Kind, err error, msg string) *Error {
	return &Error{Kind: k, Message: msg, Err: err}
}

// InsufficientStockError reports the first line item that asked for more
// than the product has.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %q exceeds available stock: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

// KindOf classifies err. Unknown errors are KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var se *InsufficientStockError
	if errors.As(err, &se) {
		return KindInsufficientStock
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

func Is(err error, k Kind) bool { return KindOf(err) == k }
