package api

import (
	"errors"
	"net/http"

	"github.com/jmolloy/cartminder/internal/domain"
	"github.com/jmolloy/cartminder/internal/service"
	"github.com/jmolloy/cartminder/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, service.ErrCartNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, domain.ErrCartClosed),
		errors.Is(err, domain.ErrReminderAlreadySent),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrEmptyCartEmail),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidProductID),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidReminderStep),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, service.ErrCartNotFound),
		errors.Is(err, store.ErrNotFound):
		return "Cart not found"

	case errors.Is(err, domain.ErrCartClosed):
		return "Cart is closed"

	case errors.Is(err, domain.ErrReminderAlreadySent):
		return "Reminder already sent"

	case errors.Is(err, domain.ErrEmptyCartEmail),
		errors.Is(err, domain.ErrInvalidEmail):
		return "A valid email address is required"

	case errors.Is(err, domain.ErrInvalidProductID):
		return "Product ID must be a positive integer"

	case errors.Is(err, domain.ErrInvalidQuantity):
		return "Quantity must be at least 1"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request"

	default:
		return "An unexpected error occurred"
	}
}
