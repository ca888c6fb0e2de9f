package common

import (
	"context"
	"errors"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/cart/command"
	"github.com/noah-isme/toko-pricing/internal/lock"
	"github.com/noah-isme/toko-pricing/internal/resilience"
	"github.com/noah-isme/toko-pricing/internal/session"
)

// Exit codes reported by the command line tools.
const (
	ExitOK          = 0
	ExitInternal    = 1
	ExitInvalid     = 2
	ExitNotFound    = 3
	ExitRejected    = 4
	ExitUnavailable = 5
)

// AppError represents an error with an attached code and process exit status.
type AppError struct {
	Code     string
	Message  string
	ExitCode int
	Err      error
	Details  any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, exitCode int, err error) *AppError {
	return &AppError{Code: code, Message: message, ExitCode: exitCode, Err: err}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// Classify maps err onto an AppError. Existing AppErrors are returned as is;
// unknown errors become INTERNAL.
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, cart.ErrInvalidInput), errors.Is(err, command.ErrInvalidCommand):
		return NewAppError("INVALID_INPUT", "invalid input", ExitInvalid, err)
	case errors.Is(err, cart.ErrNotFound):
		return NewAppError("NOT_FOUND", "cart not found", ExitNotFound, err)
	case errors.Is(err, command.ErrUnavailable):
		return NewAppError("SKU_UNAVAILABLE", "sku not available", ExitRejected, err)
	case errors.Is(err, command.ErrInsufficientStock):
		return NewAppError("INSUFFICIENT_STOCK", "insufficient stock", ExitRejected, err)
	case errors.Is(err, session.ErrRateLimited):
		return NewAppError("RATE_LIMITED", "too many cart commands", ExitUnavailable, err)
	case errors.Is(err, lock.ErrLocked):
		return NewAppError("CART_LOCKED", "cart is locked by another request", ExitUnavailable, err)
	case errors.Is(err, resilience.ErrOpenCircuit), errors.Is(err, context.DeadlineExceeded):
		return NewAppError("CATALOG_UNAVAILABLE", "catalog temporarily unavailable", ExitUnavailable, err)
	default:
		return NewAppError("INTERNAL", "internal error", ExitInternal, err)
	}
}
