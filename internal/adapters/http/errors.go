package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/emberline/faregate/internal/core/usecases"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, 409, "conflict", msg)
}

// errPaymentRequired returns a 402 error for declined charges.
func errPaymentRequired(c *fiber.Ctx, msg string) error {
	return newError(c, 402, "payment_required", msg)
}

// errForbidden returns a 403 error.
func errForbidden(c *fiber.Ctx, msg string) error {
	return newError(c, 403, "forbidden", msg)
}

// serviceError maps usecase errors onto API status codes.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, usecases.ErrUnknownSystem),
		errors.Is(err, usecases.ErrUnknownStation),
		errors.Is(err, usecases.ErrUnknownGate),
		errors.Is(err, usecases.ErrUnknownRoute),
		errors.Is(err, usecases.ErrUnknownStaff),
		errors.Is(err, usecases.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, usecases.ErrInsufficientFunds):
		return errPaymentRequired(c, err.Error())
	case errors.Is(err, usecases.ErrJourneyOpen),
		errors.Is(err, usecases.ErrNoOpenJourney),
		errors.Is(err, usecases.ErrSystemMismatch),
		errors.Is(err, usecases.ErrStationClosed):
		return errConflict(c, err.Error())
	case errors.Is(err, usecases.ErrNotPermutation):
		return errBadRequest(c, err.Error())
	default:
		return errInternal(c, err.Error())
	}
}
